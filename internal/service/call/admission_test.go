package call

import (
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

func TestAdmission_RejectsOverCapacity(t *testing.T) {
	a := NewAdmissionController(3, zap.NewNop())

	for i := 0; i < 3; i++ {
		if !a.TryAdmit() {
			t.Fatalf("call %d should be admitted", i+1)
		}
	}
	if a.TryAdmit() {
		t.Fatal("4th call must be rejected")
	}
	if st := a.Status(); st.Active != 3 || st.Max != 3 {
		t.Errorf("expected 3/3, got %s", st)
	}

	a.Release()
	if !a.TryAdmit() {
		t.Error("a call must be admitted after a release")
	}
}

func TestAdmission_ZeroCapacity(t *testing.T) {
	a := NewAdmissionController(0, zap.NewNop())
	if a.TryAdmit() {
		t.Error("no call can be admitted with zero capacity")
	}
	if a.Status().Active != 0 {
		t.Error("rejection must not change the active count")
	}
}

func TestAdmission_ReleaseWithoutAdmit(t *testing.T) {
	a := NewAdmissionController(1, zap.NewNop())
	a.Release()

	if a.Status().Active != 0 {
		t.Errorf("active count must never go negative, got %d", a.Status().Active)
	}
	if !a.TryAdmit() {
		t.Error("stray release must not break admission")
	}
	if a.TryAdmit() {
		t.Error("stray release must not add capacity")
	}
}

func TestAdmission_Concurrent(t *testing.T) {
	a := NewAdmissionController(5, zap.NewNop())

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if a.TryAdmit() {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if admitted.Load() != 5 {
		t.Fatalf("expected exactly 5 admissions, got %d", admitted.Load())
	}

	for i := 0; i < 5; i++ {
		a.Release()
	}
	in, out := a.Totals()
	if in != 5 || out != 5 {
		t.Errorf("expected totals 5/5, got %d/%d", in, out)
	}
	if a.Status().Active != 0 {
		t.Errorf("expected no active calls, got %d", a.Status().Active)
	}
}
