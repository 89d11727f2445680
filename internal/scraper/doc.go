// Package scraper fetches the two source pages and extracts readings from them.
//
// Primary (primary.go) reads observed magnitude, predicted magnitude and
// distance to Earth from one object page. Secondary (secondary.go) scans an
// observation list for the first line naming the object's designation and
// reads one magnitude from it.
//
// Fetchers never return errors: every failure (transport, timeout, non-200
// status, HTML parse) is flattened into SourceReading.Error, and an extraction
// miss is a nil field. Each fetch is bounded by FetchTimeout. HTTP clients are
// built once per source in base.go and reused across calls.
package scraper
