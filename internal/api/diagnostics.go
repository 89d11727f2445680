package api

import (
	"fmt"
	"sort"
	"time"

	"github.com/atlastrack/atlastrack/pkg/types"
)

// distanceStaleAfter is how old the held distance may get before a hint is
// raised. The distance cycle runs every 10 seconds.
const distanceStaleAfter = 2 * time.Minute

// DiagnosticHint is one human-readable insight about the tracker's state.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label (≤ 5 words).
	Title string `json:"title"`
	// Detail is the full explanation.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

var levelRank = map[string]int{"critical": 0, "warning": 1, "info": 2, "ok": 3}

// computeDiagnostics derives hints from a snapshot, critical first.
func computeDiagnostics(snap types.Snapshot, now time.Time) []DiagnosticHint {
	if snap.Updated == nil {
		return []DiagnosticHint{{
			Key:   "warming_up",
			Level: "info",
			Title: "Warming up",
			Detail: "No full refresh has completed yet. The first one runs at startup " +
				"and takes up to 20 seconds per source. No action needed.",
		}}
	}

	var hints []DiagnosticHint

	// ── Source failures ──────────────────────────────────────────────────────
	ids := make([]string, 0, len(snap.Raw))
	for id := range snap.Raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		r := snap.Raw[id]
		if r == nil || r.OK() {
			continue
		}
		hints = append(hints, DiagnosticHint{
			Key:   "source_failed_" + id,
			Level: "critical",
			Title: fmt.Sprintf("Can't reach %s", id),
			Detail: fmt.Sprintf("The last fetch of %s failed with: %q. "+
				"Its fields are treated as absent until the next refresh succeeds. "+
				"Check that %s is reachable from this host.", id, r.Error, r.URL),
		})
	}

	// ── Magnitude source ─────────────────────────────────────────────────────
	switch snap.Source {
	case types.SourceNone:
		hints = append(hints, DiagnosticHint{
			Key:   "no_magnitude",
			Level: "warning",
			Title: "No magnitude",
			Detail: "Neither source yielded a valid magnitude in the last refresh. " +
				"If the pages are reachable, their layout may have changed beyond the " +
				"fallback patterns; compare the raw snippets with /api/<source-id>.",
		})
	case types.SourcePrimaryObserved, types.SourcePrimaryPredicted:
		hints = append(hints, DiagnosticHint{
			Key:   "fallback_source",
			Level: "info",
			Title: "Using fallback source",
			Detail: fmt.Sprintf("The observation list had no usable line for the object, "+
				"so the latest magnitude comes from %s.", snap.Source),
		})
	}

	// ── Values rejected by validation ────────────────────────────────────────
	for _, id := range ids {
		r := snap.Raw[id]
		if r == nil {
			continue
		}
		for _, rv := range rejected(r, snap) {
			v := rv.value
			hints = append(hints, DiagnosticHint{
				Key:   "rejected_" + id + "_" + rv.field,
				Level: "info",
				Title: "Value rejected",
				Detail: fmt.Sprintf("%s extracted %s = %g via %q, which is outside the accepted range "+
					"and was discarded.", id, rv.field, v, r.Matched[rv.field]),
				Value: &v,
			})
		}
	}

	// ── Anomaly ──────────────────────────────────────────────────────────────
	if snap.MagStatus == types.MagAbnormal {
		hint := DiagnosticHint{
			Key:   "abnormal_brightening",
			Level: "warning",
			Title: "Abnormal brightening",
			Detail: "The latest magnitude is more than 0.3 brighter than the previous " +
				"full refresh. A receding object is expected to fade; check whether " +
				"the source changed or the reading is genuine.",
		}
		if snap.LatestMag != nil {
			v := *snap.LatestMag
			hint.Value = &v
		}
		hints = append(hints, hint)
	}

	// ── Distance ─────────────────────────────────────────────────────────────
	switch {
	case snap.DistanceKm == nil:
		hints = append(hints, DiagnosticHint{
			Key:    "no_distance",
			Level:  "warning",
			Title:  "No distance",
			Detail: "No valid distance has been extracted from the primary source yet.",
		})
	case snap.DistanceUpdated != nil && now.Sub(*snap.DistanceUpdated) > distanceStaleAfter:
		age := now.Sub(*snap.DistanceUpdated).Round(time.Second)
		secs := age.Seconds()
		hints = append(hints, DiagnosticHint{
			Key:   "distance_stale",
			Level: "warning",
			Title: "Distance is stale",
			Detail: fmt.Sprintf("The distance was last updated %s ago although it is "+
				"refreshed every 10 seconds. Recent distance fetches are failing.", age),
			Value: &secs,
		})
	}

	if len(hints) == 0 {
		return []DiagnosticHint{{
			Key:    "healthy",
			Level:  "ok",
			Title:  "All clear",
			Detail: "Both sources responded, the magnitude comes from the observation list and the distance is current.",
		}}
	}

	sort.SliceStable(hints, func(i, j int) bool {
		return levelRank[hints[i].Level] < levelRank[hints[j].Level]
	})
	return hints
}

type rejectedValue struct {
	field string
	value float64
}

// rejected lists fields r extracted that did not make it into snap.
func rejected(r *types.SourceReading, snap types.Snapshot) []rejectedValue {
	var out []rejectedValue
	check := func(field string, raw, kept *float64) {
		if raw != nil && kept == nil {
			out = append(out, rejectedValue{field, *raw})
		}
	}
	check(types.FieldObservedMag, r.ObservedMag, snap.ObservedMag)
	check(types.FieldPredictedMag, r.PredictedMag, snap.PredictedMag)
	if r.LatestMag != nil && snap.Source != types.SourceSecondary {
		out = append(out, rejectedValue{types.FieldLatestMag, *r.LatestMag})
	}
	// A newer distance-only update may have replaced the refresh's distance.
	if r.DistanceKm != nil && snap.DistanceKm == nil {
		out = append(out, rejectedValue{types.FieldDistanceKm, *r.DistanceKm})
	}
	return out
}
