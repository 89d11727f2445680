package compute

import (
	"log/slog"
	"time"

	"github.com/atlastrack/atlastrack/pkg/types"
)

// Merged is the outcome of one full-refresh merge, ready to be applied to the
// cache by the store writer.
type Merged struct {
	LatestMag    *float64
	Source       types.Source
	ObservedMag  *float64
	PredictedMag *float64
	DistanceKm   *float64

	// DistanceAt is the fetch time of the primary reading. Zero when there was
	// no primary reading.
	DistanceAt time.Time

	// Raw holds the readings the merge was computed from, keyed by source id.
	Raw map[string]*types.SourceReading
}

// Merge validates the primary and secondary readings and picks LatestMag by
// priority: secondary, then primary observed, then primary predicted. Either
// reading may be nil or carry an Error; its fields are then treated as absent.
func Merge(primary, secondary *types.SourceReading) Merged {
	out := Merged{
		Source: types.SourceNone,
		Raw:    make(map[string]*types.SourceReading, 2),
	}

	if primary != nil {
		out.Raw[primary.SourceID] = primary
		out.ObservedMag = checkMag(primary, types.FieldObservedMag, primary.ObservedMag)
		out.PredictedMag = checkMag(primary, types.FieldPredictedMag, primary.PredictedMag)
		out.DistanceKm = checkDistance(primary)
		out.DistanceAt = primary.FetchedAt
	}

	var latest *float64
	if secondary != nil {
		out.Raw[secondary.SourceID] = secondary
		latest = checkMag(secondary, types.FieldLatestMag, secondary.LatestMag)
	}

	switch {
	case latest != nil:
		out.LatestMag, out.Source = latest, types.SourceSecondary
	case out.ObservedMag != nil:
		out.LatestMag, out.Source = types.Float(out.ObservedMag), types.SourcePrimaryObserved
	case out.PredictedMag != nil:
		out.LatestMag, out.Source = types.Float(out.PredictedMag), types.SourcePrimaryPredicted
	}
	return out
}

func checkMag(r *types.SourceReading, field string, v *float64) *float64 {
	ok := ValidMagnitude(v)
	if ok == nil && v != nil {
		slog.Debug("compute: magnitude rejected", "source", r.SourceID, "field", field, "value", *v)
	}
	return ok
}

func checkDistance(r *types.SourceReading) *float64 {
	ok := ValidDistance(r.DistanceKm)
	if ok == nil && r.DistanceKm != nil {
		slog.Debug("compute: distance rejected", "source", r.SourceID, "value", *r.DistanceKm)
	}
	return ok
}
