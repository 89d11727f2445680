package compute

import "math"

// Accepted value domains.
const (
	MinMagnitude = 0.0
	MaxMagnitude = 30.0
	MaxDistance  = 1e12
)

// ValidMagnitude returns a copy of v if it is finite and within
// [MinMagnitude, MaxMagnitude], else nil.
func ValidMagnitude(v *float64) *float64 {
	if v == nil || !finite(*v) || *v < MinMagnitude || *v > MaxMagnitude {
		return nil
	}
	c := *v
	return &c
}

// ValidDistance returns a copy of v if it is finite, positive and below
// MaxDistance kilometres, else nil.
func ValidDistance(v *float64) *float64 {
	if v == nil || !finite(*v) || *v <= 0 || *v >= MaxDistance {
		return nil
	}
	c := *v
	return &c
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
