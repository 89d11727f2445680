// Package config loads and watches the tracker configuration file (YAML).
//
// Top-level types:
//   - Config{Tracker, Server, Logging, Alerts}: full tree parsed from YAML
//   - TrackerConfig: object name, refresh_interval_hours, primary and
//     secondary source definitions
//   - Source: id (also the diagnostic route /api/{id}), url, designation
//     pattern (secondary only), user_agent
//   - ServerConfig: http_port, ws_interval, rate_limit, auth, static_dir
//   - AlertsConfig: rules evaluated against every published snapshot and the
//     webhooks they are delivered to
//
// Load(path) applies defaults, unmarshals the file (if path is non-empty),
// applies the REFRESH_INTERVAL_HOURS and PORT environment overrides, then
// validates with go-playground/validator struct tags plus structural checks.
//
// Watch(ctx, path, onChange) uses fsnotify on the file's directory and
// reloads once a burst of writes or renames has settled.
package config
