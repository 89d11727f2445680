package scraper

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/atlastrack/atlastrack/internal/config"
	"github.com/atlastrack/atlastrack/internal/extract"
	"github.com/atlastrack/atlastrack/internal/metrics"
	"github.com/atlastrack/atlastrack/pkg/types"
)

// Primary fetches the object page carrying observed magnitude, predicted
// magnitude and distance to Earth.
type Primary struct {
	src    config.Source
	client *http.Client
	now    func() time.Time
}

// NewPrimary returns a Primary fetcher for src.
func NewPrimary(src config.Source) *Primary {
	return &Primary{src: src, client: buildHTTPClient(src), now: time.Now}
}

// ID returns the configured source id.
func (p *Primary) ID() string { return p.src.ID }

// Fetch retrieves the page and extracts every primary field independently.
// It always returns a reading; failures are reported in its Error field.
func (p *Primary) Fetch(ctx context.Context) *types.SourceReading {
	start := time.Now()
	res := newReading(p.src)

	text, err := fetchText(ctx, p.client, p.src.URL)
	res.FetchedAt = p.now().UTC()
	metrics.ObserveFetch(p.src.ID, err == nil, time.Since(start))
	if err != nil {
		res.Error = err.Error()
		slog.Warn("scraper: primary fetch failed", "source", p.src.ID, "err", err)
		return res
	}

	res.RawSnippet = extract.Truncate(text, snippetLen)
	res.ObservedMag = apply(res, types.FieldObservedMag, extract.MagnitudeChain, text)
	res.PredictedMag = apply(res, types.FieldPredictedMag, extract.PredictedChain, text)
	res.DistanceKm = apply(res, types.FieldDistanceKm, extract.DistanceChain, text)

	slog.Info("scraper: primary extracted",
		"source", p.src.ID,
		"observed", types.LogValue(res.ObservedMag),
		"observed_by", res.Matched[types.FieldObservedMag],
		"predicted", types.LogValue(res.PredictedMag),
		"distance_km", types.LogValue(res.DistanceKm),
	)
	return res
}
