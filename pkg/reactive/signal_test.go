package reactive

import (
	"sync"
	"testing"
)

func TestSignalGetSet(t *testing.T) {
	s := NewSignal(1)

	if got := s.Get(); got != 1 {
		t.Errorf("Get() = %d, want 1", got)
	}
	if !s.Set(2) {
		t.Error("Set(2) should report a change")
	}
	if s.Set(2) {
		t.Error("Set(2) twice should not report a change")
	}
	if got := s.Version(); got != 1 {
		t.Errorf("Version() = %d, want 1", got)
	}
}

func TestSignalSubscribe(t *testing.T) {
	s := NewSignal("a")

	calls := 0
	unsub := s.Subscribe(func() { calls++ })

	s.Set("b")
	s.Set("b")
	s.Set("c")
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}

	unsub()
	unsub()
	s.Set("d")
	if calls != 2 {
		t.Errorf("calls after unsubscribe = %d, want 2", calls)
	}
	if s.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", s.Subscribers())
	}
}

func TestSignalAnyMixedTypes(t *testing.T) {
	s := NewSignal[any](1)

	if !s.Set("1") {
		t.Error("switching dynamic type should be a change")
	}
	if s.Set("1") {
		t.Error("same string should not be a change")
	}
	if !s.Set(map[string]string{"id": "1"}) {
		t.Error("map should be a change")
	}
	if s.Set(map[string]string{"id": "1"}) {
		t.Error("deep-equal map should not be a change")
	}
}

func TestSignalAlwaysNotify(t *testing.T) {
	s := NewSignal(0).AlwaysNotify()

	calls := 0
	s.Subscribe(func() { calls++ })
	s.Set(0)
	s.Set(0)

	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestSignalUpdate(t *testing.T) {
	s := NewSignal(10)
	s.Update(func(v int) int { return v + 5 })

	if got := s.Get(); got != 15 {
		t.Errorf("Get() = %d, want 15", got)
	}
	if s.Update(func(v int) int { return v }) {
		t.Error("identity update should not report a change")
	}
}

func TestSignalConcurrentSet(t *testing.T) {
	s := NewSignal(0)

	var mu sync.Mutex
	notified := 0
	s.Subscribe(func() {
		mu.Lock()
		notified++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Update(func(v int) int { return v + 1 })
		}(i)
	}
	wg.Wait()

	if got := s.Get(); got != 50 {
		t.Errorf("Get() = %d, want 50", got)
	}
	if notified != 50 {
		t.Errorf("notified = %d, want 50", notified)
	}
}
