package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const deliveryTimeout = 10 * time.Second

// payloadFunc renders an alert as the JSON body one webhook type expects.
type payloadFunc func(a *Alert) any

var payloads = map[string]payloadFunc{
	"slack": slackPayload,
	"teams": teamsPayload,
	"http":  func(a *Alert) any { return map[string]any{"alert": a} },
}

// deliver posts a to every webhook with a resolvable URL. Failures are
// logged per target.
func (e *Engine) deliver(a *Alert) {
	for _, wh := range e.webhooks {
		build, ok := payloads[wh.Type]
		if !ok {
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}
		url := wh.URL()
		if url == "" {
			continue
		}

		body, err := json.Marshal(build(a))
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
			err = e.post(ctx, url, body)
			cancel()
		}
		if err != nil {
			slog.Error("alerts: webhook delivery failed", "type", wh.Type, "rule", a.RuleName, "err", err)
			continue
		}
		slog.Debug("alerts: webhook delivered", "type", wh.Type, "rule", a.RuleName, "state", a.State)
	}
}

func (e *Engine) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func slackPayload(a *Alert) any {
	if a.State == StateResolved {
		return map[string]string{"text": fmt.Sprintf(":white_check_mark: %s cleared for %s", a.RuleName, a.Object)}
	}
	icon := ":comet:"
	if a.Severity == "critical" {
		icon = ":rotating_light:"
	}
	return map[string]string{"text": fmt.Sprintf("%s %s", icon, a.Message)}
}

func teamsPayload(a *Alert) any {
	color := "FFAB40"
	switch {
	case a.State == StateResolved:
		color = "2EB886"
	case a.Severity == "critical":
		color = "FF4F6A"
	case a.Severity == "info":
		color = "00D4FF"
	}
	return map[string]any{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": color,
		"summary":    a.RuleName,
		"title":      fmt.Sprintf("%s: %s (%s)", a.Object, a.RuleName, a.State),
		"text":       a.Message,
	}
}
