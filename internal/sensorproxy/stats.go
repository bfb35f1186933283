package sensorproxy

import (
	"sync"
	"time"

	"github.com/banshee-data/tofsweep/internal/monitoring"
)

// Stats counts requests handled by a Server.
type Stats struct {
	mu        sync.Mutex
	requests  int64
	replies   int64
	failures  int64
	lastReset time.Time
}

// NewStats creates a new Stats instance.
func NewStats() *Stats {
	return &Stats{lastReset: time.Now()}
}

func (s *Stats) addRequest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
}

func (s *Stats) addReply() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies++
}

func (s *Stats) addFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
}

// GetAndReset returns the current counters and zeroes them.
func (s *Stats) GetAndReset() (requests, replies, failures int64, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	duration = now.Sub(s.lastReset)
	requests, replies, failures = s.requests, s.replies, s.failures
	s.requests, s.replies, s.failures = 0, 0, 0
	s.lastReset = now
	return
}

// LogStats logs and resets the counters. Idle intervals are not logged.
func (s *Stats) LogStats() {
	requests, replies, failures, duration := s.GetAndReset()
	if requests == 0 && failures == 0 {
		return
	}
	monitoring.Logf("Sensor proxy stats: %d requests, %d replies, %d failures in %v (%.1f req/sec)",
		requests, replies, failures, duration.Round(time.Second), float64(requests)/duration.Seconds())
}
