package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/atlastrack/atlastrack/internal/config"
	"github.com/atlastrack/atlastrack/internal/extract"
	"github.com/atlastrack/atlastrack/internal/metrics"
	"github.com/atlastrack/atlastrack/pkg/types"
)

// Secondary fetches an observation list and reads the magnitude from the first
// line that names the object's designation.
type Secondary struct {
	src         config.Source
	client      *http.Client
	designation *regexp.Regexp
	now         func() time.Time
}

// NewSecondary returns a Secondary fetcher for src. The designation pattern is
// matched case-insensitively.
func NewSecondary(src config.Source) (*Secondary, error) {
	re, err := regexp.Compile("(?i)" + src.Designation)
	if err != nil {
		return nil, fmt.Errorf("scraper %q: compile designation: %w", src.ID, err)
	}
	return &Secondary{src: src, client: buildHTTPClient(src), designation: re, now: time.Now}, nil
}

// ID returns the configured source id.
func (s *Secondary) ID() string { return s.src.ID }

// Fetch retrieves the list and extracts LatestMag. It always returns a reading;
// failures are reported in its Error field.
func (s *Secondary) Fetch(ctx context.Context) *types.SourceReading {
	start := time.Now()
	res := newReading(s.src)

	text, err := fetchText(ctx, s.client, s.src.URL)
	res.FetchedAt = s.now().UTC()
	metrics.ObserveFetch(s.src.ID, err == nil, time.Since(start))
	if err != nil {
		res.Error = err.Error()
		slog.Warn("scraper: secondary fetch failed", "source", s.src.ID, "err", err)
		return res
	}

	res.RawSnippet = extract.Truncate(text, snippetLen)
	s.scan(res, extract.Lines(text))

	slog.Info("scraper: secondary extracted",
		"source", s.src.ID,
		"latest", types.LogValue(res.LatestMag),
		"latest_by", res.Matched[types.FieldLatestMag],
	)
	return res
}

// scan examines only the first designation line; later lines are never consulted.
func (s *Secondary) scan(res *types.SourceReading, lines []string) {
	for _, ln := range lines {
		if !s.designation.MatchString(ln) {
			continue
		}
		res.LatestMag = apply(res, types.FieldLatestMag, extract.LineMagnitudeChain, ln)
		if res.LatestMag != nil {
			res.Note = extract.Truncate(ln, noteLen)
		}
		return
	}
	metrics.ObserveExtraction(s.src.ID, types.FieldLatestMag, "")
}
