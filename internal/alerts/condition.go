package alerts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atlastrack/atlastrack/pkg/types"
)

// condition is a parsed "field op value" rule expression.
type condition struct {
	field string
	op    string
	rhs   string
	num   float64 // rhs parsed, numeric fields only
}

var stringFields = map[string]func(types.Snapshot) string{
	"mag_status": func(s types.Snapshot) string { return string(s.MagStatus) },
	"source":     func(s types.Snapshot) string { return string(s.Source) },
}

var numericFields = map[string]func(types.Snapshot) *float64{
	"latest_mag":    func(s types.Snapshot) *float64 { return s.LatestMag },
	"observed_mag":  func(s types.Snapshot) *float64 { return s.ObservedMag },
	"predicted_mag": func(s types.Snapshot) *float64 { return s.PredictedMag },
	"previous_mag":  func(s types.Snapshot) *float64 { return s.PreviousMag },
	"distance_km":   func(s types.Snapshot) *float64 { return s.DistanceKm },
}

// parseCondition parses a rule condition.
//
// Supported expressions (field operator value):
//
//	mag_status == abnormal
//	source == none
//	source != secondary
//	latest_mag < 8
//	distance_km <= 2e8
//
// Numeric fields accept > >= < <= == !=; string fields accept == and !=.
func parseCondition(cond string) (condition, error) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return condition{}, fmt.Errorf("condition %q: want \"field op value\"", cond)
	}
	c := condition{field: parts[0], op: parts[1], rhs: parts[2]}

	if _, ok := stringFields[c.field]; ok {
		if c.op != "==" && c.op != "!=" {
			return condition{}, fmt.Errorf("condition %q: operator %s not valid for %s", cond, c.op, c.field)
		}
		return c, nil
	}
	if _, ok := numericFields[c.field]; !ok {
		return condition{}, fmt.Errorf("condition %q: unknown field %s", cond, c.field)
	}
	switch c.op {
	case ">", ">=", "<", "<=", "==", "!=":
	default:
		return condition{}, fmt.Errorf("condition %q: unknown operator %s", cond, c.op)
	}
	n, err := strconv.ParseFloat(c.rhs, 64)
	if err != nil {
		return condition{}, fmt.Errorf("condition %q: %w", cond, err)
	}
	c.num = n
	return c, nil
}

// eval tests the condition against snap and returns the triggering value for
// numeric fields. A nil numeric field never fires.
func (c condition) eval(snap types.Snapshot) (bool, float64) {
	if get, ok := stringFields[c.field]; ok {
		eq := get(snap) == c.rhs
		if c.op == "==" {
			return eq, 0
		}
		return !eq, 0
	}

	v := numericFields[c.field](snap)
	if v == nil {
		return false, 0
	}
	return compareFloat(*v, c.op, c.num), *v
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
