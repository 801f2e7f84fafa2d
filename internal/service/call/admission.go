package call

import (
	"sync"

	"go.uber.org/zap"

	"github.com/seu-repo/talkinator/internal/domain"
	"github.com/seu-repo/talkinator/internal/observability/telemetry"
)

// AdmissionController caps the number of calls handled at the same time.
// Every successful TryAdmit must be paired with exactly one Release.
type AdmissionController struct {
	mu       sync.Mutex
	active   int
	max      int
	admitted uint64
	released uint64
	log      *zap.Logger
}

func NewAdmissionController(maxCalls int, log *zap.Logger) *AdmissionController {
	if maxCalls < 0 {
		maxCalls = 0
	}
	return &AdmissionController{max: maxCalls, log: log}
}

// TryAdmit takes a slot if one is free. A rejection leaves the state untouched.
func (a *AdmissionController) TryAdmit() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active >= a.max {
		a.log.Info("Call rejected, capacity reached",
			zap.Int("active", a.active),
			zap.Int("max", a.max),
		)
		return false
	}

	a.active++
	a.admitted++
	telemetry.ActiveCalls.Set(float64(a.active))
	return true
}

// Release frees a slot taken by TryAdmit
func (a *AdmissionController) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active == 0 {
		a.log.Error("Admission release without an admitted call")
		return
	}

	a.active--
	a.released++
	telemetry.ActiveCalls.Set(float64(a.active))
}

func (a *AdmissionController) Status() domain.AdmissionStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return domain.AdmissionStatus{Active: a.active, Max: a.max}
}

// Totals returns how many calls were admitted and released since start
func (a *AdmissionController) Totals() (admitted, released uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.admitted, a.released
}
