// Package scheduler drives the two refresh cycles that write the cache.
//
// The full refresh fetches both sources in parallel, merges them and submits
// a Replace to the store. It runs once synchronously in Start and then every
// refresh interval. The distance cycle fetches only the primary source every
// DistanceInterval and submits a SetDistance when it extracted a valid value.
//
// Both cycles run as robfig/cron jobs wrapped with Recover, so a panic is
// logged and scheduling continues, and SkipIfStillRunning, so a cycle that
// fires while the previous one of the same kind is still in flight is skipped.
package scheduler
