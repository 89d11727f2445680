// Package api implements the HTTP API for atlastrack.
//
// New(store, cfg) returns a Handler that serves:
//
//	GET /api/latest       {"ok":true,"cache":<snapshot>}
//	GET /api/distance     live primary fetch: {"ok":true,"distanceKm":…,"timestamp":…}
//	GET /api/{source-id}  live fetch of one source, unmerged and unvalidated
//	GET /api/test         liveness payload
//	GET /api/diagnostics  human-readable hints derived from the snapshot
//	GET /api/alerts       firing and recently resolved alerts
//	GET /metrics          Prometheus exposition, content-negotiated
//
// All /api endpoints respond with Content-Type: application/json and return
// 405 for non-GET methods. The live-fetch endpoints are guarded by the API key
// when server.auth.mode is apikey.
//
// middleware.go provides the security header and CORS wrappers applied to the
// whole server; ratelimit.go the per-IP fixed-window limiter applied to /api.
// No external HTTP framework is used.
package api
