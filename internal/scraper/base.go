package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/atlastrack/atlastrack/internal/config"
	"github.com/atlastrack/atlastrack/internal/extract"
	"github.com/atlastrack/atlastrack/internal/metrics"
	"github.com/atlastrack/atlastrack/pkg/types"
)

// FetchTimeout bounds one fetch attempt, connection through body read.
const FetchTimeout = 20 * time.Second

const (
	snippetLen = 1200
	noteLen    = 300
	maxBody    = 8 << 20
)

// Fetcher is implemented by Primary and Secondary.
type Fetcher interface {
	ID() string
	Fetch(ctx context.Context) *types.SourceReading
}

// FetchError describes why a page could not be fetched or parsed.
type FetchError struct {
	URL     string
	Message string
	Cause   error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// headerRoundTripper sets the source's request headers on every outgoing request.
type headerRoundTripper struct {
	base      http.RoundTripper
	userAgent string
}

func (t *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs the client used for every fetch of src.
func buildHTTPClient(src config.Source) *http.Client {
	return &http.Client{
		Transport: &headerRoundTripper{
			base:      http.DefaultTransport,
			userAgent: src.UserAgent,
		},
		Timeout: FetchTimeout,
	}
}

// fetchText GETs url and returns the normalized body text.
func fetchText(ctx context.Context, client *http.Client, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Message: "build request", Cause: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", &FetchError{URL: url, Message: "http get", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{URL: url, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", &FetchError{URL: url, Message: "read body", Cause: err}
	}

	text, err := extract.Normalize(string(body))
	if err != nil {
		return "", &FetchError{URL: url, Message: "normalize html", Cause: err}
	}
	return text, nil
}

// newReading initialises an empty reading for src.
func newReading(src config.Source) *types.SourceReading {
	return &types.SourceReading{
		SourceID: src.ID,
		URL:      src.URL,
		Matched:  make(map[string]string),
	}
}

// apply runs chain over text, records the winning strategy for field, and
// returns the value or nil.
func apply(r *types.SourceReading, field string, chain extract.Chain, text string) *float64 {
	m, ok := chain.Run(text)
	if !ok {
		metrics.ObserveExtraction(r.SourceID, field, "")
		return nil
	}
	r.Matched[field] = m.Strategy
	metrics.ObserveExtraction(r.SourceID, field, m.Strategy)
	return types.F(m.Value)
}
