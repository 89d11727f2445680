package compute

import (
	"sync"

	"github.com/atlastrack/atlastrack/pkg/types"
)

// AbnormalBrightening is the magnitude drop, between two consecutive full
// refreshes, above which the latest value is classified abnormal. Lower
// magnitude means brighter.
const AbnormalBrightening = 0.3

// epsilon absorbs float64 subtraction error so that a drop of exactly
// AbnormalBrightening (e.g. 10.0 to 9.7) stays normal.
const epsilon = 1e-9

// Classify returns MagAbnormal when both values are present and previous
// exceeds latest by more than AbnormalBrightening.
func Classify(previous, latest *float64) types.MagStatus {
	if previous == nil || latest == nil {
		return types.MagNormal
	}
	if *previous-*latest > AbnormalBrightening+epsilon {
		return types.MagAbnormal
	}
	return types.MagNormal
}

// Detector applies Classify with one step of memory: each Observe compares
// against the value passed to the previous Observe.
type Detector struct {
	mu       sync.Mutex
	previous *float64
}

// Observe classifies latest and then makes it the new previous value, even
// when latest is nil. It returns the status and the previous value used.
func (d *Detector) Observe(latest *float64) (types.MagStatus, *float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.previous
	status := Classify(prev, latest)
	d.previous = types.Float(latest)
	return status, prev
}

// Previous returns a copy of the remembered value.
func (d *Detector) Previous() *float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return types.Float(d.previous)
}
