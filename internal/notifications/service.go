package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"reelsync/internal/config"
)

const userAgent = "reelsync/0.1.0"

// Event identifies a user-visible notification.
type Event string

const (
	// EventServiceUnavailable fires once when a readiness gate exhausts its budget.
	EventServiceUnavailable Event = "service_unavailable"
	// EventScrapeCompleted reports how many new catalog items a bulk scrape added.
	EventScrapeCompleted Event = "scrape_completed"
	// EventTest is sent by `reelsync test-notify`.
	EventTest Event = "test"
)

// Payload carries event specific values.
type Payload map[string]any

// Service publishes notification events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := cleanhttp.DefaultPooledClient()
	client.Timeout = timeout
	return &ntfyService{endpoint: topic, client: client}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func render(event Event, payload Payload) (message, bool) {
	switch event {
	case EventServiceUnavailable:
		endpoint := payloadString(payload, "endpoint")
		attempts := payloadInt(payload, "attempts")
		body := "⚠️ Scraper service is not responding"
		if endpoint != "" {
			body = fmt.Sprintf("⚠️ Scraper service at %s did not become ready after %d attempts", endpoint, attempts)
		}
		return message{
			title:    "reelsync - Service Unavailable",
			body:     body,
			tags:     []string{"reelsync", "scraper", "unavailable"},
			priority: "high",
		}, true
	case EventScrapeCompleted:
		count := payloadInt(payload, "count")
		noun := "items"
		if count == 1 {
			noun = "item"
		}
		body := fmt.Sprintf("🎬 Scrape complete: %d new %s", count, noun)
		if criteria := payloadString(payload, "criteria"); criteria != "" {
			body = fmt.Sprintf("%s (%s)", body, criteria)
		}
		return message{
			title: "reelsync - Scrape Complete",
			body:  body,
			tags:  []string{"reelsync", "scrape", "completed"},
		}, true
	case EventTest:
		return message{
			title:    "reelsync - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"reelsync", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func payloadString(p Payload, key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func payloadInt(p Payload, key string) int {
	if p == nil {
		return 0
	}
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
