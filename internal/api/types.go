package api

import "github.com/atlastrack/atlastrack/pkg/types"

// LatestResponse is the payload for GET /api/latest and the WebSocket push.
type LatestResponse struct {
	OK    bool           `json:"ok"`
	Cache types.Snapshot `json:"cache"`
}

// DistanceResponse is the payload for GET /api/distance.
type DistanceResponse struct {
	OK         bool     `json:"ok"`
	DistanceKm *float64 `json:"distanceKm"`
	Timestamp  string   `json:"timestamp"` // RFC3339
	Error      string   `json:"error,omitempty"`
}

// TestResponse is the payload for GET /api/test.
type TestResponse struct {
	OK        bool   `json:"ok"`
	Server    string `json:"server"`
	Timestamp string `json:"timestamp"` // RFC3339
	Note      string `json:"note"`
}

// DiagnosticsResponse is the payload for GET /api/diagnostics.
type DiagnosticsResponse struct {
	Hints       []DiagnosticHint `json:"hints"`
	GeneratedAt string           `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body. RetryAfter is set on 429s.
type errorResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}
