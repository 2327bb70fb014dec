package clock

import (
	"container/heap"
	"sync"
	"time"
)

// Mock provides a controllable time source for testing
// Timers fire synchronously inside Advance, in deadline order
type Mock struct {
	mu          sync.Mutex
	currentTime time.Time
	timers      timerHeap
	seq         uint64
}

// NewMock creates a mock clock with the given start time
func NewMock(startTime time.Time) *Mock {
	return &Mock{
		currentTime: startTime,
	}
}

// Now returns the current mocked time
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTime
}

// AfterFunc registers f to run once virtual time reaches now+d
// Non-positive d fires on the next Advance, including Advance(0)
func (m *Mock) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d < 0 {
		d = 0
	}
	m.seq++
	t := &mockTimer{
		clock:    m,
		deadline: m.currentTime.Add(d),
		seq:      m.seq,
		fn:       f,
		index:    -1,
	}
	heap.Push(&m.timers, t)
	return t
}

// Advance moves time forward by d, firing every timer due within the window
// Callbacks run without the clock lock held and may schedule further timers
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.currentTime.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		if len(m.timers) == 0 || m.timers[0].deadline.After(target) {
			m.currentTime = target
			m.mu.Unlock()
			return
		}
		t := heap.Pop(&m.timers).(*mockTimer)
		if t.deadline.After(m.currentTime) {
			m.currentTime = t.deadline
		}
		t.fired = true
		fn := t.fn
		m.mu.Unlock()

		fn()
	}
}

// Pending returns the number of armed timers
func (m *Mock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

type mockTimer struct {
	clock    *Mock
	deadline time.Time
	seq      uint64
	fn       func()
	index    int
	fired    bool
}

// Stop removes the timer from the mock schedule
func (t *mockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.fired || t.index < 0 {
		return false
	}
	heap.Remove(&t.clock.timers, t.index)
	return true
}

// timerHeap orders by deadline, then by creation for equal deadlines
type timerHeap []*mockTimer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*mockTimer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
