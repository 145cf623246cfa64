package timectrl

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

func TestStepComputesDelta(t *testing.T) {
	s := NewFrameScheduler()

	first := s.Step(t0)
	if first.Delta != 0 || first.Seq != 1 {
		t.Fatalf("first frame = %+v, want zero delta and seq 1", first)
	}
	second := s.Step(t0.Add(16 * time.Millisecond))
	if second.Delta != 16*time.Millisecond || second.Seq != 2 {
		t.Fatalf("second frame = %+v, want 16ms delta and seq 2", second)
	}
}

func TestLoopRunsUntilCancelled(t *testing.T) {
	s := NewFrameScheduler()
	calls := 0
	h := s.Loop("counter", func(Frame) error {
		calls++
		return nil
	})

	for i := 0; i < 3; i++ {
		s.Step(t0.Add(time.Duration(i) * time.Millisecond))
	}
	if !h.Cancel() {
		t.Fatalf("first Cancel() = false, want true")
	}
	if h.Cancel() {
		t.Fatalf("second Cancel() = true, want false")
	}
	s.Step(t0.Add(time.Second))

	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if s.Active() != 0 || h.Active() {
		t.Fatalf("scheduler still has %d active callbacks", s.Active())
	}
}

func TestOnceRunsOnNextFrameOnly(t *testing.T) {
	s := NewFrameScheduler()
	calls := 0
	h := s.Once("once", func(Frame) error {
		calls++
		return nil
	})
	s.Step(t0)
	s.Step(t0.Add(time.Millisecond))
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if h.Active() {
		t.Fatalf("once handle still active after running")
	}
}

func TestCallbackRegisteredDuringStepRunsNextFrame(t *testing.T) {
	s := NewFrameScheduler()
	var order []string
	s.Once("outer", func(Frame) error {
		order = append(order, "outer")
		s.Once("inner", func(Frame) error {
			order = append(order, "inner")
			return nil
		})
		return nil
	})
	s.Step(t0)
	if len(order) != 1 {
		t.Fatalf("after first frame order = %v, want [outer]", order)
	}
	s.Step(t0.Add(time.Millisecond))
	if len(order) != 2 || order[1] != "inner" {
		t.Fatalf("after second frame order = %v, want [outer inner]", order)
	}
}

func TestErrorsAndPanicsDoNotStopLoop(t *testing.T) {
	var reported []string
	s := NewFrameScheduler(WithErrorHandler(func(loop string, err error) {
		reported = append(reported, loop+": "+err.Error())
	}))

	calls := 0
	s.Loop("flaky", func(f Frame) error {
		calls++
		switch f.Seq {
		case 1:
			return errors.New("boom")
		case 2:
			panic("kaboom")
		}
		return nil
	})
	healthy := 0
	s.Loop("healthy", func(Frame) error {
		healthy++
		return nil
	})

	for i := 0; i < 3; i++ {
		s.Step(t0.Add(time.Duration(i) * time.Millisecond))
	}
	if calls != 3 || healthy != 3 {
		t.Fatalf("calls = %d, healthy = %d; want 3 and 3", calls, healthy)
	}
	if len(reported) != 2 {
		t.Fatalf("reported = %v, want 2 entries", reported)
	}
}

func TestCancelFromSiblingCallbackSkipsIt(t *testing.T) {
	s := NewFrameScheduler()
	var victim *Handle
	ran := false
	s.Loop("killer", func(Frame) error {
		victim.Cancel()
		return nil
	})
	victim = s.Loop("victim", func(Frame) error {
		ran = true
		return nil
	})
	s.Step(t0)
	if ran {
		t.Fatalf("callback cancelled earlier in the same frame still ran")
	}
}
