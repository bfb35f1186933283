package sweep

import "sync"

// Buffer is the in-memory distance-vs-angle sweep. Slot i holds the latest
// reading taken at angle index i; the write index wraps to 0 when it
// reaches the buffer length.
//
// The controller is the only writer. Readers such as the debug pages take
// snapshots.
type Buffer struct {
	mu          sync.RWMutex
	samples     []uint32
	index       int
	revolutions int
}

// Snapshot is a copy of a Buffer at one instant.
type Snapshot struct {
	Samples     []uint32 `json:"samples"`
	Index       int      `json:"index"`
	Revolutions int      `json:"revolutions"`
}

// NewBuffer allocates n zeroed slots; n < 1 uses DefaultSampleCount.
func NewBuffer(n int) *Buffer {
	if n < 1 {
		n = DefaultSampleCount
	}
	return &Buffer{samples: make([]uint32, n)}
}

// Set stores mm at the current index.
func (b *Buffer) Set(mm uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples[b.index] = mm
}

// Next advances the index and reports whether it wrapped to 0.
func (b *Buffer) Next() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.index++
	if b.index == len(b.samples) {
		b.index = 0
		b.revolutions++
		return true
	}
	return false
}

// Index is the slot the next reading will be stored in.
func (b *Buffer) Index() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index
}

// Len is the number of slots.
func (b *Buffer) Len() int {
	return len(b.samples)
}

// Snapshot copies the buffer.
func (b *Buffer) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Snapshot{
		Samples:     append([]uint32(nil), b.samples...),
		Index:       b.index,
		Revolutions: b.revolutions,
	}
}
