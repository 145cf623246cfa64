package timectrl

import (
	"fmt"
	"sync"
	"time"
)

// Frame describes one tick of the render loop.
type Frame struct {
	// Seq increases by one per Step.
	Seq uint64
	// Now is the wall-clock time of the frame.
	Now time.Time
	// Delta is the time since the previous frame; zero on the first frame.
	Delta time.Duration
}

// FrameFunc is invoked once per frame. A returned error is reported to the
// scheduler's error handler and the loop keeps running.
type FrameFunc func(Frame) error

// ErrorHandler receives errors and recovered panics from frame callbacks.
type ErrorHandler func(loop string, err error)

// Option customises FrameScheduler construction.
type Option func(*FrameScheduler)

// WithErrorHandler installs a handler for failing frame callbacks.
func WithErrorHandler(h ErrorHandler) Option {
	return func(s *FrameScheduler) {
		s.onError = h
	}
}

// FrameScheduler drives per-frame callbacks, the way a browser drives
// requestAnimationFrame. Callbacks registered during a Step first run on the
// following Step. Each registration returns a Handle that cancels it exactly once.
type FrameScheduler struct {
	mu sync.Mutex

	nextID uint64
	order  []uint64
	subs   map[uint64]*subscription

	seq     uint64
	last    time.Time
	onError ErrorHandler
}

type subscription struct {
	name   string
	fn     FrameFunc
	once   bool
	handle *Handle
}

// Handle identifies one registered callback.
type Handle struct {
	id   uint64
	s    *FrameScheduler
	mu   sync.Mutex
	done bool
	name string
}

// NewFrameScheduler constructs an idle scheduler.
func NewFrameScheduler(opts ...Option) *FrameScheduler {
	s := &FrameScheduler{subs: make(map[uint64]*subscription)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Loop registers fn to run on every frame until the handle is cancelled.
func (s *FrameScheduler) Loop(name string, fn FrameFunc) *Handle {
	return s.add(name, fn, false)
}

// Once registers fn to run on the next frame only.
func (s *FrameScheduler) Once(name string, fn FrameFunc) *Handle {
	return s.add(name, fn, true)
}

func (s *FrameScheduler) add(name string, fn FrameFunc, once bool) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	h := &Handle{id: s.nextID, s: s, name: name}
	s.subs[h.id] = &subscription{name: name, fn: fn, once: once, handle: h}
	s.order = append(s.order, h.id)
	return h
}

// Active returns the number of registered callbacks.
func (s *FrameScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Step runs one frame at the given time and returns its description.
func (s *FrameScheduler) Step(now time.Time) Frame {
	s.mu.Lock()
	s.seq++
	frame := Frame{Seq: s.seq, Now: now}
	if !s.last.IsZero() && now.After(s.last) {
		frame.Delta = now.Sub(s.last)
	}
	s.last = now
	ids := append([]uint64(nil), s.order...)
	s.mu.Unlock()

	for _, id := range ids {
		s.mu.Lock()
		sub, ok := s.subs[id]
		s.mu.Unlock()
		if !ok {
			// Cancelled by an earlier callback in this frame.
			continue
		}
		if sub.once {
			sub.handle.Cancel()
		}
		s.invoke(sub, frame)
	}
	return frame
}

func (s *FrameScheduler) invoke(sub *subscription, frame Frame) {
	defer func() {
		if r := recover(); r != nil {
			s.report(sub.name, fmt.Errorf("panic in frame callback: %v", r))
		}
	}()
	if err := sub.fn(frame); err != nil {
		s.report(sub.name, err)
	}
}

func (s *FrameScheduler) report(name string, err error) {
	if s.onError != nil {
		s.onError(name, err)
	}
}

func (s *FrameScheduler) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[id]; !ok {
		return
	}
	delete(s.subs, id)
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Cancel unregisters the callback. It reports true only for the call that
// actually cancelled it; later calls are no-ops.
func (h *Handle) Cancel() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		return false
	}
	h.done = true
	h.mu.Unlock()
	h.s.remove(h.id)
	return true
}

// Active reports whether the callback is still registered.
func (h *Handle) Active() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.done
}

// Name returns the loop name given at registration.
func (h *Handle) Name() string {
	if h == nil {
		return ""
	}
	return h.name
}
