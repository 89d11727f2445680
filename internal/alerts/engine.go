package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atlastrack/atlastrack/internal/config"
	"github.com/atlastrack/atlastrack/pkg/types"
)

const (
	defaultCooldown = 15 * time.Minute
	defaultSeverity = "warning"
	keepResolved    = 200
	recentWindow    = time.Hour
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert is one firing or resolved occurrence of a rule.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"ruleName"`
	Object     string     `json:"object"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"firedAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	State      string     `json:"state"`
}

// tracked is a parsed rule plus its firing state.
type tracked struct {
	name     string
	severity string
	cooldown time.Duration
	cond     condition

	firing   *Alert
	lastFire time.Time
}

// Engine evaluates rules against each published snapshot and posts webhook
// notifications on fire and resolve. It is safe for concurrent use.
type Engine struct {
	object   string
	webhooks []config.WebhookConfig
	client   *http.Client
	now      func() time.Time

	mu       sync.Mutex
	rules    []*tracked
	resolved []Alert

	wg sync.WaitGroup
}

// New parses every rule condition for object. An Engine without rules is
// valid; Evaluate is then a no-op.
func New(object string, cfg config.AlertsConfig) (*Engine, error) {
	e := &Engine{
		object:   object,
		webhooks: cfg.Webhooks,
		client:   &http.Client{Timeout: deliveryTimeout},
		now:      time.Now,
	}
	for _, r := range cfg.Rules {
		c, err := parseCondition(r.Condition)
		if err != nil {
			return nil, fmt.Errorf("alerts: rule %q: %w", r.Name, err)
		}
		t := &tracked{name: r.Name, severity: r.Severity, cooldown: r.Cooldown, cond: c}
		if t.severity == "" {
			t.severity = defaultSeverity
		}
		if t.cooldown <= 0 {
			t.cooldown = defaultCooldown
		}
		e.rules = append(e.rules, t)
	}
	return e, nil
}

// Evaluate applies every rule to snap. It matches the store's notify hook
// signature and returns without waiting for webhook delivery.
func (e *Engine) Evaluate(snap types.Snapshot) {
	e.mu.Lock()
	now := e.now()
	var changed []Alert
	for _, r := range e.rules {
		fires, value := r.cond.eval(snap)
		var a *Alert
		if fires {
			a = e.fire(r, value, now)
		} else {
			a = e.resolve(r, now)
		}
		if a != nil {
			changed = append(changed, *a)
		}
	}
	e.mu.Unlock()

	for i := range changed {
		a := changed[i]
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.deliver(&a)
		}()
	}
}

// fire opens a new alert for r unless it fired within its cooldown.
// Called with mu held.
func (e *Engine) fire(r *tracked, value float64, now time.Time) *Alert {
	if !r.lastFire.IsZero() && now.Sub(r.lastFire) <= r.cooldown {
		return nil
	}
	r.firing = &Alert{
		ID:       uuid.NewString(),
		RuleName: r.name,
		Object:   e.object,
		Severity: r.severity,
		Value:    value,
		Message:  fmt.Sprintf("[%s] %s fired for %s: %s", r.severity, r.name, e.object, describe(r.cond, value)),
		FiredAt:  now,
		State:    StateFiring,
	}
	r.lastFire = now
	slog.Warn("alerts: fired", "rule", r.name, "value", value, "severity", r.severity)
	return r.firing
}

// resolve closes r's firing alert, if any. Called with mu held.
func (e *Engine) resolve(r *tracked, now time.Time) *Alert {
	if r.firing == nil {
		return nil
	}
	a := *r.firing
	a.State = StateResolved
	a.ResolvedAt = &now
	r.firing = nil

	e.resolved = append(e.resolved, a)
	if n := len(e.resolved); n > keepResolved {
		e.resolved = slices.Clone(e.resolved[n-keepResolved:])
	}
	slog.Info("alerts: resolved", "rule", r.name)
	return &a
}

func describe(c condition, value float64) string {
	if _, ok := numericFields[c.field]; ok {
		return fmt.Sprintf("%s %s %s (value %.2f)", c.field, c.op, c.rhs, value)
	}
	return fmt.Sprintf("%s %s %s", c.field, c.op, c.rhs)
}

// Active returns copies of the firing alerts and of alerts resolved within
// the last hour, newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := []*Alert{}
	for _, r := range e.rules {
		if r.firing != nil {
			a := *r.firing
			out = append(out, &a)
		}
	}
	cutoff := e.now().Add(-recentWindow)
	for i := range e.resolved {
		if e.resolved[i].ResolvedAt.After(cutoff) {
			a := e.resolved[i]
			out = append(out, &a)
		}
	}
	slices.SortStableFunc(out, func(a, b *Alert) int { return b.FiredAt.Compare(a.FiredAt) })
	return out
}

// Wait blocks until in-flight webhook deliveries finish.
func (e *Engine) Wait() {
	e.wg.Wait()
}
