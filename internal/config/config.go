package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultObject               = "C/2025 N1 (ATLAS)"
	DefaultRefreshIntervalHours = 1.0
	DefaultHTTPPort             = 3000
	DefaultWSInterval           = 5 * time.Second
	DefaultRateLimitRequests    = 60
	DefaultRateLimitWindow      = time.Minute

	DefaultPrimaryID        = "theskylive"
	DefaultPrimaryURL       = "https://theskylive.com/c2025n1-info"
	DefaultSecondaryID      = "cobs"
	DefaultSecondaryURL     = "https://cobs.si/recent/"
	DefaultDesignation      = `C/?\s*2025\s*N1`
	DefaultUserAgent        = "Mozilla/5.0 (compatible; atlastrack/1.0)"
	DefaultServerName       = "3I-ATLAS-Tracker"
	MinRefreshInterval      = 60 * time.Second
	MaxRefreshIntervalHours = 24 * 366
	envRefreshIntervalHours = "REFRESH_INTERVAL_HOURS"
	envPort                 = "PORT"
)

// sourceIDRe restricts source ids to values usable as a URL path segment.
var sourceIDRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// reservedRoutes are /api/ paths that source ids must not shadow.
var reservedRoutes = map[string]bool{
	"latest": true, "distance": true, "test": true, "diagnostics": true, "alerts": true,
}

// Config is the top-level configuration.
type Config struct {
	Tracker TrackerConfig `yaml:"tracker"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Alerts  AlertsConfig  `yaml:"alerts"`
}

// TrackerConfig describes what is tracked and where it is read from.
type TrackerConfig struct {
	// Object is the display name of the tracked object.
	Object string `yaml:"object" validate:"required"`

	// RefreshIntervalHours is the full-refresh cadence, at most one year.
	// Values below one minute are clamped by RefreshInterval.
	RefreshIntervalHours float64 `yaml:"refresh_interval_hours" validate:"gt=0,lte=8784"`

	// Primary is the page carrying observed/predicted magnitude and distance.
	Primary Source `yaml:"primary"`

	// Secondary is the observation list scanned for the designation line.
	Secondary Source `yaml:"secondary"`
}

// RefreshInterval returns the full-refresh interval, clamped to
// [MinRefreshInterval, MaxRefreshIntervalHours].
func (t TrackerConfig) RefreshInterval() time.Duration {
	h := t.RefreshIntervalHours
	if h > MaxRefreshIntervalHours {
		h = MaxRefreshIntervalHours
	}
	d := time.Duration(h * float64(time.Hour))
	if d < MinRefreshInterval {
		return MinRefreshInterval
	}
	return d
}

// Source is one fetched page.
type Source struct {
	// ID names the source in logs, metrics, the snapshot's raw map and the
	// diagnostic route /api/{id}.
	ID string `yaml:"id" validate:"required"`

	// URL is the page address.
	URL string `yaml:"url" validate:"required,url"`

	// Designation is the case-insensitive pattern selecting the object's line
	// on the secondary page. Ignored for the primary source.
	Designation string `yaml:"designation"`

	// UserAgent is sent with every request to this source.
	UserAgent string `yaml:"user_agent"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	// Name is reported by /api/test.
	Name string `yaml:"name"`

	// HTTPPort is the port the REST API and WebSocket hub listen on.
	HTTPPort int `yaml:"http_port" validate:"min=1,max=65535"`

	// WSInterval is how often the snapshot is pushed to WebSocket clients.
	WSInterval time.Duration `yaml:"ws_interval" validate:"gt=0"`

	// RateLimit bounds requests per client IP.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Auth optionally protects the endpoints that trigger live fetches.
	Auth AuthConfig `yaml:"auth"`

	// StaticDir, when set, is served at "/".
	StaticDir string `yaml:"static_dir"`
}

// RateLimitConfig is a fixed-window per-IP limit. Requests <= 0 disables it.
type RateLimitConfig struct {
	Requests int           `yaml:"requests" validate:"gte=0"`
	Window   time.Duration `yaml:"window" validate:"gte=0"`
}

// AuthConfig controls the API key guard on live-fetch endpoints.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode" validate:"omitempty,oneof=apikey none"`

	// KeyEnv is the environment variable holding the expected key.
	KeyEnv string `yaml:"key_env"`

	// Header carries the key. Defaults to "x-api-key".
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`

	// Format is json (machine) or text (colourised console).
	Format string `yaml:"format" validate:"omitempty,oneof=json text"`
}

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules" validate:"dive"`
	Webhooks []WebhookConfig `yaml:"webhooks" validate:"dive"`
}

// AlertRule defines one condition evaluated against each published snapshot.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name" validate:"required"`

	// Condition is "field op value", e.g. "mag_status == abnormal",
	// "latest_mag < 8", "source == none".
	Condition string `yaml:"condition" validate:"required"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity" validate:"omitempty,oneof=critical warning info"`

	// Cooldown suppresses re-fires for this duration. Defaults to 15 minutes.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type" validate:"required,oneof=teams slack http"`

	// URLEnv is the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env" validate:"required"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load builds the configuration: defaults, then the YAML file at path (skipped
// when path is empty), then environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := check(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config pre-populated with default values.
func Defaults() *Config {
	return &Config{
		Tracker: TrackerConfig{
			Object:               DefaultObject,
			RefreshIntervalHours: DefaultRefreshIntervalHours,
			Primary: Source{
				ID:        DefaultPrimaryID,
				URL:       DefaultPrimaryURL,
				UserAgent: DefaultUserAgent,
			},
			Secondary: Source{
				ID:          DefaultSecondaryID,
				URL:         DefaultSecondaryURL,
				Designation: DefaultDesignation,
				UserAgent:   DefaultUserAgent,
			},
		},
		Server: ServerConfig{
			Name:       DefaultServerName,
			HTTPPort:   DefaultHTTPPort,
			WSInterval: DefaultWSInterval,
			RateLimit: RateLimitConfig{
				Requests: DefaultRateLimitRequests,
				Window:   DefaultRateLimitWindow,
			},
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// applyEnv applies the environment overrides the deployment scripts rely on.
func applyEnv(cfg *Config) error {
	if v := os.Getenv(envRefreshIntervalHours); v != "" {
		h, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(h) || math.IsInf(h, 0) {
			return fmt.Errorf("%s=%q is not a number", envRefreshIntervalHours, v)
		}
		cfg.Tracker.RefreshIntervalHours = h
	}
	if v := os.Getenv(envPort); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q is not a port number", envPort, v)
		}
		cfg.Server.HTTPPort = p
	}
	return nil
}

// check runs the struct-tag validation and the constraints tags cannot express.
func check(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed %q validation (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}

	t := cfg.Tracker
	for _, src := range []Source{t.Primary, t.Secondary} {
		if !sourceIDRe.MatchString(src.ID) {
			return fmt.Errorf("source id %q must be lowercase letters, digits, '-' or '_'", src.ID)
		}
		if reservedRoutes[src.ID] {
			return fmt.Errorf("source id %q collides with a built-in route", src.ID)
		}
	}
	if t.Primary.ID == t.Secondary.ID {
		return fmt.Errorf("primary and secondary share id %q", t.Primary.ID)
	}
	if t.Secondary.Designation == "" {
		return fmt.Errorf("tracker.secondary.designation is required")
	}
	if _, err := regexp.Compile("(?i)" + t.Secondary.Designation); err != nil {
		return fmt.Errorf("tracker.secondary.designation: %w", err)
	}
	return nil
}
