package extract

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- MagnitudeChain tiers ---

func TestMagnitudeChain_Tiers(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     float64
		strategy string
	}{
		{"observed label", "Observed magnitude: 10.1\nMagnitude: 12.0", 10.1, "observed-label"},
		{"observed short form", "observed mag 9.85", 9.85, "observed-label"},
		{"generic label", "Current Magnitude 11.4", 11.4, "magnitude-label"},
		{"visual keyword only", "Visual: 11.2", 11.2, "visual-keyword"},
		{"scan skips out of range", "RA 23.45 Dec 45.12 then 12.3", 12.3, "any-decimal-in-range"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, ok := MagnitudeChain.Run(tc.text)
			require.True(t, ok)
			assert.Equal(t, tc.want, m.Value)
			assert.Equal(t, tc.strategy, m.Strategy)
		})
	}
}

func TestMagnitudeChain_VisualEarlierTiersMiss(t *testing.T) {
	text := "Brightness report\nVisual: 11.2"

	_, ok := MagnitudeChain[0].Match(text)
	assert.False(t, ok, "observed-label should miss")
	_, ok = MagnitudeChain[1].Match(text)
	assert.False(t, ok, "magnitude-label should miss")

	m, ok := MagnitudeChain.Run(text)
	require.True(t, ok)
	assert.Equal(t, 11.2, m.Value)
	assert.Equal(t, "visual-keyword", m.Strategy)
}

func TestMagnitudeChain_NoNumbers(t *testing.T) {
	_, ok := MagnitudeChain.Run("no readings today")
	assert.False(t, ok)
}

func TestMagnitudeChain_AllOutOfScanRange(t *testing.T) {
	_, ok := MagnitudeChain.Run("values 19.5 and 45.20")
	assert.False(t, ok)
}

// --- PredictedChain ---

func TestPredictedChain(t *testing.T) {
	m, ok := PredictedChain.Run("Observed magnitude 10.1 Predicted magnitude: 11.35")
	require.True(t, ok)
	assert.Equal(t, 11.35, m.Value)

	_, ok = PredictedChain.Run("Magnitude: 10.1")
	assert.False(t, ok)
}

// --- DistanceChain ---

func TestDistanceChain(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"grouped kilometers", "Distance to Earth: 310,769,103.3 kilometers", 310769103.3},
		{"km suffix", "distance 123,456 km", 123456},
		{"ungrouped", "Earth distance\n  98765432 km", 98765432},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, ok := DistanceChain.Run(tc.text)
			require.True(t, ok)
			assert.InDelta(t, tc.want, m.Value, 1e-6)
		})
	}
}

func TestDistanceChain_NoUnit(t *testing.T) {
	_, ok := DistanceChain.Run("Distance to Earth: 2.07 AU")
	assert.False(t, ok)
}

// --- LineMagnitudeChain ---

func TestLineMagnitudeChain(t *testing.T) {
	tests := []struct {
		line     string
		want     float64
		strategy string
	}{
		{"C/2025 N1 (ATLAS) mag. = 9.1 coma 3'", 9.1, "mag-equals"},
		{"C/2025 N1 magnitude: 9.4", 9.4, "magnitude-label"},
		{"C/2025 N1 2025 10 19 9.7", 9.7, "any-decimal"},
	}
	for _, tc := range tests {
		m, ok := LineMagnitudeChain.Run(tc.line)
		require.True(t, ok, tc.line)
		assert.Equal(t, tc.want, m.Value, tc.line)
		assert.Equal(t, tc.strategy, m.Strategy, tc.line)
	}
}

// --- Chain plumbing ---

func TestChain_StopsAtFirstHit(t *testing.T) {
	calls := 0
	c := Chain{
		{Name: "miss", Match: func(string) (float64, bool) { calls++; return 0, false }},
		{Name: "hit", Match: func(string) (float64, bool) { calls++; return 1, true }},
		{Name: "never", Match: func(string) (float64, bool) { calls++; return 2, true }},
	}
	m, ok := c.Run("")
	require.True(t, ok)
	assert.Equal(t, "hit", m.Strategy)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{"miss", "hit", "never"}, c.Names())
}

func TestInRange_Inclusive(t *testing.T) {
	s := InRange("r", regexp.MustCompile(decimal), 0, 18)
	v, ok := s.Match("18.00")
	require.True(t, ok)
	assert.Equal(t, 18.0, v)
}

// --- Normalize ---

func TestNormalize_DropsScriptsAndBlankLines(t *testing.T) {
	html := `<html><head><title>t</title></head><body>
		<script>var mag = "1.1";</script>
		<h1>Comet</h1>

		<p>Magnitude: 10.1</p>
	</body></html>`

	text, err := Normalize(html)
	require.NoError(t, err)
	assert.NotContains(t, text, "var mag")
	assert.Equal(t, []string{"Comet", "Magnitude: 10.1"}, Lines(text))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "äö", Truncate("äöü", 2))
}
