// Package types defines the shared Go types passed between the fetchers, the
// compute stage, the cache store and the HTTP layer. JSON field names match the
// public /api/latest payload.
package types
