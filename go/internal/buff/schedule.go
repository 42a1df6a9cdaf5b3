package buff

import (
	"time"

	"github.com/zyedidia/generic/heap"
)

// tickHandle is the periodic timer of one buff: its next fire time inside the
// controller schedule. Cancelled handles stay in the heap until they surface
// and are then discarded without firing.
type tickHandle struct {
	name      string
	next      time.Time
	seq       uint64
	cancelled bool
}

// schedule orders the tick handles of all active buffs by next fire time.
// Each buff keeps its own phase, so ticks from different buffs interleave.
type schedule struct {
	entries  *heap.Heap[*tickHandle]
	interval time.Duration
	seq      uint64
	live     int
}

func newSchedule(interval time.Duration) *schedule {
	return &schedule{
		entries: heap.New(func(a, b *tickHandle) bool {
			if a.next.Equal(b.next) {
				return a.seq < b.seq
			}
			return a.next.Before(b.next)
		}),
		interval: interval,
	}
}

// start creates a handle that first fires one interval after now.
func (s *schedule) start(name string, now time.Time) *tickHandle {
	h := &tickHandle{name: name, next: now.Add(s.interval)}
	s.push(h)
	s.live++
	return h
}

// requeue moves a fired handle forward by one interval.
func (s *schedule) requeue(h *tickHandle) {
	h.next = h.next.Add(s.interval)
	s.push(h)
}

// cancel stops h. It reports false if h was already cancelled.
func (s *schedule) cancel(h *tickHandle) bool {
	if h == nil || h.cancelled {
		return false
	}
	h.cancelled = true
	s.live--
	return true
}

// popDue removes and returns the earliest live handle due at or before now.
func (s *schedule) popDue(now time.Time) (*tickHandle, bool) {
	for {
		h, ok := s.entries.Peek()
		if !ok {
			return nil, false
		}
		if h.cancelled {
			s.entries.Pop()
			continue
		}
		if h.next.After(now) {
			return nil, false
		}
		s.entries.Pop()
		return h, true
	}
}

// nextDeadline returns the fire time of the earliest live handle.
func (s *schedule) nextDeadline() (time.Time, bool) {
	for {
		h, ok := s.entries.Peek()
		if !ok {
			return time.Time{}, false
		}
		if h.cancelled {
			s.entries.Pop()
			continue
		}
		return h.next, true
	}
}

// pending returns the number of live handles.
func (s *schedule) pending() int {
	return s.live
}

func (s *schedule) push(h *tickHandle) {
	s.seq++
	h.seq = s.seq
	s.entries.Push(h)
}
