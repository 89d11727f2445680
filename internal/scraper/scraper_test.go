package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlastrack/atlastrack/internal/config"
	"github.com/atlastrack/atlastrack/pkg/types"
)

// primaryPage is a trimmed copy of the object page layout.
const primaryPage = `<html><body>
<nav>Home | Planets | Comets</nav>
<h1>C/2025 N1 (ATLAS)</h1>
<table>
  <tr><td>Observed Magnitude:</td><td>10.1</td></tr>
  <tr><td>Predicted Magnitude:</td><td>11.4</td></tr>
</table>
<p>Distance to Earth: 310,769,103.3 kilometers
(2.077 Astronomical Units)</p>
<script>var x = "Observed Magnitude: 1.1";</script>
</body></html>`

// secondaryPage is a trimmed copy of the observation list layout.
const secondaryPage = `<html><body><pre>
2025-10-18 12P/Pons-Brooks mag. = 13.2
2025-10-19 C/2025 N1 (ATLAS) mag. = 9.1 coma 2'
2025-10-19 C/2025N1 mag. = 8.0
</pre></body></html>`

var fixedNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newPrimary(url string) *Primary {
	p := NewPrimary(config.Source{ID: "theskylive", URL: url, UserAgent: "test-agent"})
	p.now = func() time.Time { return fixedNow }
	return p
}

func newSecondary(t *testing.T, url string) *Secondary {
	t.Helper()
	s, err := NewSecondary(config.Source{ID: "cobs", URL: url, Designation: config.DefaultDesignation})
	require.NoError(t, err)
	s.now = func() time.Time { return fixedNow }
	return s
}

// --- Primary ---

func TestPrimary_Fetch(t *testing.T) {
	srv := serve(t, http.StatusOK, primaryPage)
	res := newPrimary(srv.URL).Fetch(context.Background())

	require.True(t, res.OK(), res.Error)
	assert.Equal(t, "theskylive", res.SourceID)
	assert.Equal(t, srv.URL, res.URL)
	assert.Equal(t, fixedNow, res.FetchedAt)

	require.NotNil(t, res.ObservedMag)
	assert.Equal(t, 10.1, *res.ObservedMag)
	assert.Equal(t, "observed-label", res.Matched[types.FieldObservedMag])

	require.NotNil(t, res.PredictedMag)
	assert.Equal(t, 11.4, *res.PredictedMag)

	require.NotNil(t, res.DistanceKm)
	assert.InDelta(t, 310769103.3, *res.DistanceKm, 1e-3)

	assert.NotContains(t, res.RawSnippet, "var x")
	assert.Nil(t, res.LatestMag)
}

func TestPrimary_SendsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(primaryPage))
	}))
	defer srv.Close()

	newPrimary(srv.URL).Fetch(context.Background())
	assert.Equal(t, "test-agent", got)
}

func TestPrimary_VisualFallback(t *testing.T) {
	srv := serve(t, http.StatusOK, `<html><body><p>Visual: 11.2</p></body></html>`)
	res := newPrimary(srv.URL).Fetch(context.Background())

	require.True(t, res.OK())
	require.NotNil(t, res.ObservedMag)
	assert.Equal(t, 11.2, *res.ObservedMag)
	assert.Equal(t, "visual-keyword", res.Matched[types.FieldObservedMag])
	assert.Nil(t, res.PredictedMag)
	assert.Nil(t, res.DistanceKm)
}

func TestPrimary_Non200(t *testing.T) {
	srv := serve(t, http.StatusServiceUnavailable, "down")
	res := newPrimary(srv.URL).Fetch(context.Background())

	assert.False(t, res.OK())
	assert.Contains(t, res.Error, "503")
	assert.Nil(t, res.ObservedMag)
	assert.Nil(t, res.DistanceKm)
}

func TestPrimary_ConnectFailure(t *testing.T) {
	res := newPrimary("http://127.0.0.1:1").Fetch(context.Background())
	require.NotNil(t, res)
	assert.False(t, res.OK())
	assert.Equal(t, fixedNow, res.FetchedAt)
}

func TestPrimary_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res := newPrimary(srv.URL).Fetch(ctx)
	assert.False(t, res.OK())
}

// --- Secondary ---

func TestSecondary_FirstDesignationLineOnly(t *testing.T) {
	srv := serve(t, http.StatusOK, secondaryPage)
	res := newSecondary(t, srv.URL).Fetch(context.Background())

	require.True(t, res.OK(), res.Error)
	require.NotNil(t, res.LatestMag)
	assert.Equal(t, 9.1, *res.LatestMag)
	assert.Equal(t, "mag-equals", res.Matched[types.FieldLatestMag])
	assert.Contains(t, res.Note, "C/2025 N1 (ATLAS)")
}

func TestSecondary_FirstLineWithoutNumberShortCircuits(t *testing.T) {
	page := `<html><body><pre>
C/2025 N1 (ATLAS) no estimate
C/2025 N1 mag. = 9.3
</pre></body></html>`
	srv := serve(t, http.StatusOK, page)
	res := newSecondary(t, srv.URL).Fetch(context.Background())

	require.True(t, res.OK())
	assert.Nil(t, res.LatestMag)
	assert.Empty(t, res.Note)
}

func TestSecondary_CaseAndSpacingVariants(t *testing.T) {
	for _, line := range []string{"c/2025 n1 mag 9.6", "C2025N1 mag=9.6", "C/ 2025  N1 magnitude: 9.6"} {
		srv := serve(t, http.StatusOK, "<html><body><p>"+line+"</p></body></html>")
		res := newSecondary(t, srv.URL).Fetch(context.Background())
		require.NotNil(t, res.LatestMag, line)
		assert.Equal(t, 9.6, *res.LatestMag, line)
	}
}

func TestSecondary_NoDesignation(t *testing.T) {
	srv := serve(t, http.StatusOK, `<html><body><p>12P mag. = 13.2</p></body></html>`)
	res := newSecondary(t, srv.URL).Fetch(context.Background())
	require.True(t, res.OK())
	assert.Nil(t, res.LatestMag)
}

func TestSecondary_ConnectFailure(t *testing.T) {
	res := newSecondary(t, "http://127.0.0.1:1").Fetch(context.Background())
	assert.False(t, res.OK())
	assert.Nil(t, res.LatestMag)
}

func TestNewSecondary_BadDesignation(t *testing.T) {
	_, err := NewSecondary(config.Source{ID: "cobs", Designation: "C/(2025"})
	assert.Error(t, err)
}

// --- FetchError ---

func TestFetchError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &FetchError{URL: "http://x", Message: "http get", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "http get")

	var fe *FetchError
	assert.ErrorAs(t, error(&FetchError{URL: "http://x", Message: "unexpected status 500"}), &fe)
}
