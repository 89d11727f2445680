package types

import "time"

// Source labels which input supplied Snapshot.LatestMag.
type Source string

const (
	SourceSecondary        Source = "secondary"
	SourcePrimaryObserved  Source = "primary-observed"
	SourcePrimaryPredicted Source = "primary-predicted"
	SourceNone             Source = "none"
)

// MagStatus is the anomaly classification of the latest magnitude.
type MagStatus string

const (
	MagNormal   MagStatus = "normal"
	MagAbnormal MagStatus = "abnormal"
)

// Extracted field names, used as keys in SourceReading.Matched.
const (
	FieldObservedMag  = "observedMag"
	FieldPredictedMag = "predictedMag"
	FieldDistanceKm   = "distanceKm"
	FieldLatestMag    = "latestMag"
)

// SourceReading is the result of one fetch-and-extract attempt against one page.
// Values are as extracted, before validation. A reading is never modified after
// the fetcher returns it.
type SourceReading struct {
	SourceID   string    `json:"source"`
	URL        string    `json:"url"`
	FetchedAt  time.Time `json:"fetchedAt"`
	RawSnippet string    `json:"rawSnippet,omitempty"`

	// Primary source fields.
	ObservedMag  *float64 `json:"observedMag,omitempty"`
	PredictedMag *float64 `json:"predictedMag,omitempty"`
	DistanceKm   *float64 `json:"distanceKm,omitempty"`

	// Secondary source fields. Note holds the start of the line LatestMag came from.
	LatestMag *float64 `json:"latestMag,omitempty"`
	Note      string   `json:"note,omitempty"`

	// Matched maps a field name to the extraction strategy that produced it.
	Matched map[string]string `json:"matched,omitempty"`

	// Error is non-empty when the fetch itself failed (network, timeout, status, parse).
	Error string `json:"error,omitempty"`
}

// OK reports whether the fetch succeeded.
func (r *SourceReading) OK() bool {
	return r != nil && r.Error == ""
}

// Snapshot is the single merged state record served by /api/latest.
type Snapshot struct {
	Updated      *time.Time `json:"updated"`
	LatestMag    *float64   `json:"latestMag"`
	ObservedMag  *float64   `json:"observedMag"`
	PredictedMag *float64   `json:"predictedMag"`
	DistanceKm   *float64   `json:"distanceKm"`
	Source       Source     `json:"source"`
	MagStatus    MagStatus  `json:"magStatus"`
	PreviousMag  *float64   `json:"previousMag"`

	// DistanceUpdated is the fetch time of the reading DistanceKm came from.
	DistanceUpdated *time.Time `json:"distanceUpdated"`

	Raw map[string]*SourceReading `json:"raw"`
}

// NewSnapshot returns the process-start snapshot: every nullable field nil.
func NewSnapshot() Snapshot {
	return Snapshot{
		Source:    SourceNone,
		MagStatus: MagNormal,
		Raw:       map[string]*SourceReading{},
	}
}

// Clone returns a copy that shares no pointers with s. Readings in Raw are
// immutable and are shared.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Updated = cloneTime(s.Updated)
	out.DistanceUpdated = cloneTime(s.DistanceUpdated)
	out.LatestMag = Float(s.LatestMag)
	out.ObservedMag = Float(s.ObservedMag)
	out.PredictedMag = Float(s.PredictedMag)
	out.DistanceKm = Float(s.DistanceKm)
	out.PreviousMag = Float(s.PreviousMag)
	out.Raw = make(map[string]*SourceReading, len(s.Raw))
	for k, v := range s.Raw {
		out.Raw[k] = v
	}
	return out
}

// Float returns a fresh pointer holding *v, or nil.
func Float(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// F is shorthand for a pointer to v.
func F(v float64) *float64 { return &v }

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// LogValue returns *v, or nil when v is nil, for use as a slog attribute value.
func LogValue(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
