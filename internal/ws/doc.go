// Package ws streams the cache snapshot over WebSocket at /ws/stream.
//
// Every subscriber first receives the current snapshot, then a new push on
// each ws_interval tick and whenever the store publishes. Each push is
//
//	{"event": "snapshot", "seq": 42, "data": {"ok": true, "cache": {...}}}
//
// where data has the GET /api/latest schema. A subscriber that falls
// queueDepth pushes behind is disconnected.
package ws
