package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/atlastrack/atlastrack/pkg/types"
)

func TestObserveFetch_CountsOutcome(t *testing.T) {
	before := testutil.ToFloat64(FetchesTotal.WithLabelValues("metrics-test", "error"))
	ObserveFetch("metrics-test", false, 0)
	after := testutil.ToFloat64(FetchesTotal.WithLabelValues("metrics-test", "error"))
	if after-before != 1 {
		t.Errorf("error count delta = %v, want 1", after-before)
	}
}

func TestObserveExtraction_EmptyStrategyIsNone(t *testing.T) {
	ObserveExtraction("metrics-test", "latestMag", "")
	if got := testutil.ToFloat64(ExtractionsTotal.WithLabelValues("metrics-test", "latestMag", "none")); got < 1 {
		t.Errorf("none count = %v, want >= 1", got)
	}
}

func TestSetSnapshot(t *testing.T) {
	s := types.NewSnapshot()
	s.LatestMag = types.F(9.4)
	s.DistanceKm = types.F(3.1e8)
	s.MagStatus = types.MagAbnormal
	SetSnapshot(s)

	if got := testutil.ToFloat64(Magnitude.WithLabelValues(types.FieldLatestMag)); got != 9.4 {
		t.Errorf("latestMag gauge = %v, want 9.4", got)
	}
	if got := testutil.ToFloat64(DistanceKm); got != 3.1e8 {
		t.Errorf("distance gauge = %v, want 3.1e8", got)
	}
	if got := testutil.ToFloat64(Abnormal); got != 1 {
		t.Errorf("abnormal gauge = %v, want 1", got)
	}

	s.MagStatus = types.MagNormal
	s.LatestMag = nil
	SetSnapshot(s)
	if got := testutil.ToFloat64(Magnitude.WithLabelValues(types.FieldLatestMag)); got != 9.4 {
		t.Errorf("nil latestMag should keep gauge at 9.4, got %v", got)
	}
	if got := testutil.ToFloat64(Abnormal); got != 0 {
		t.Errorf("abnormal gauge = %v, want 0", got)
	}
}
