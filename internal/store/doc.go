// Package store holds the single shared cache snapshot.
//
// All writes go through one goroutine (Run) that applies commands in
// submission order. Readers receive copies of the last published snapshot and
// never observe a partially applied update.
//
// Distance writes carry the fetch time of the reading they came from; the
// writer drops any distance older than the one it already holds, so a slow
// full refresh cannot overwrite a newer distance-only update.
package store
