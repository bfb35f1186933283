package sweep

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferWrapsAtLength(t *testing.T) {
	b := NewBuffer(3)
	var wraps []bool
	for i := 0; i < 7; i++ {
		b.Set(uint32(i))
		wraps = append(wraps, b.Next())
	}

	assert.Equal(t, []bool{false, false, true, false, false, true, false}, wraps)
	snap := b.Snapshot()
	assert.Equal(t, []uint32{6, 4, 5}, snap.Samples)
	assert.Equal(t, 1, snap.Index)
	assert.Equal(t, 2, snap.Revolutions)
}

func TestBufferSnapshotIsACopy(t *testing.T) {
	b := NewBuffer(2)
	b.Set(10)
	snap := b.Snapshot()
	b.Set(20)

	assert.Equal(t, uint32(10), snap.Samples[0])
}

func TestNewBufferDefaultLength(t *testing.T) {
	assert.Equal(t, DefaultSampleCount, NewBuffer(0).Len())
	assert.Equal(t, 1, NewBuffer(1).Len())
}
