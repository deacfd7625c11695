package clock

import (
	"sync"
	"time"
)

// Clock dipakai service supaya waktu bisa diatur di test.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Manual adalah clock untuk test yang maju hanya lewat Advance.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// UnixMilli adalah format waktu yang dipakai di wire (createdAt, calledAt).
func UnixMilli(c Clock) int64 {
	return c.Now().UnixMilli()
}
