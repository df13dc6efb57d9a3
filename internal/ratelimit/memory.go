package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count int
	start time.Time
}

// Memory is a process-local limiter.  Counters are lost on restart.
type Memory struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*window
	lastGC  time.Time
}

func NewMemory(max int, w time.Duration) *Memory {
	if max < 1 {
		max = 1
	}
	return &Memory{max: max, window: w, now: time.Now, entries: make(map[string]*window)}
}

func (m *Memory) Max() int { return m.max }

func (m *Memory) Allow(_ context.Context, key string) (Result, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gc(now)
	e, ok := m.entries[key]
	if !ok || now.Sub(e.start) >= m.window {
		e = &window{start: now}
		m.entries[key] = e
	}
	e.count++
	res := Result{
		Allowed:   e.count <= m.max,
		Remaining: m.max - e.count,
		ResetAt:   e.start.Add(m.window),
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	return res, nil
}

func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// gc drops expired windows at most once per window length.  Caller holds mu.
func (m *Memory) gc(now time.Time) {
	if now.Sub(m.lastGC) < m.window {
		return
	}
	m.lastGC = now
	for k, e := range m.entries {
		if now.Sub(e.start) >= m.window {
			delete(m.entries, k)
		}
	}
}

// size is used by tests.
func (m *Memory) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
