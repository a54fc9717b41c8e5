package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Options configure a Notifier. Zero values fall back to the defaults.
type Options struct {
	SuccessTTL time.Duration
	ErrorTTL   time.Duration
	// WebhookURL, when set, receives every notification at or above
	// WebhookMinSeverity as a JSON POST.
	WebhookURL         string
	WebhookMinSeverity Severity
	Logger             *slog.Logger
}

// Notifier turns action outcomes into notifications, logs them, persists
// them when a Store is present and forwards them to an optional webhook.
type Notifier struct {
	store  *Store
	opts   Options
	logger *slog.Logger
	client *http.Client
	now    func() time.Time
}

// NewNotifier creates a Notifier. store may be nil, in which case
// notifications are only logged.
func NewNotifier(store *Store, opts Options) *Notifier {
	if opts.SuccessTTL <= 0 {
		opts.SuccessTTL = DefaultSuccessTTL
	}
	if opts.ErrorTTL <= 0 {
		opts.ErrorTTL = DefaultErrorTTL
	}
	if opts.WebhookMinSeverity == "" {
		opts.WebhookMinSeverity = SeverityCritical
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		store:  store,
		opts:   opts,
		logger: logger,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
}

// Store returns the backing store, or nil.
func (n *Notifier) Store() *Store { return n.store }

// Success records an info notification for op. An empty message becomes
// "<op> succeeded".
func (n *Notifier) Success(ctx context.Context, op, message string) Notification {
	if message == "" {
		message = op + " succeeded"
	}
	return n.Notify(ctx, Notification{Severity: SeverityInfo, Title: op, Message: message})
}

// Warn records a warning notification for op.
func (n *Notifier) Warn(ctx context.Context, op, message string) Notification {
	return n.Notify(ctx, Notification{Severity: SeverityWarning, Title: op, Message: message})
}

// Error records a critical notification reading "Failed to <op>: <err>".
func (n *Notifier) Error(ctx context.Context, op string, err error) Notification {
	return n.Notify(ctx, Notification{
		Severity: SeverityCritical,
		Title:    op,
		Message:  fmt.Sprintf("Failed to %s: %v", op, err),
	})
}

// Notify stamps, logs, persists and forwards a notification. Delivery
// problems are logged, never returned: a notification must not turn a
// successful action into a failed one.
func (n *Notifier) Notify(ctx context.Context, note Notification) Notification {
	now := n.now()
	if note.Severity == "" {
		note.Severity = SeverityInfo
	}
	note.CreatedAt = now
	if note.ExpiresAt.IsZero() {
		ttl := n.opts.SuccessTTL
		if note.Severity != SeverityInfo {
			ttl = n.opts.ErrorTTL
		}
		note.ExpiresAt = now.Add(ttl)
	}

	n.logger.Log(ctx, logLevel(note.Severity), note.Message, "operation", note.Title, "severity", string(note.Severity))

	if n.store != nil {
		stored, err := n.store.Create(ctx, note)
		if err != nil {
			n.logger.Warn("persisting notification failed", "error", err)
		} else {
			note = stored
		}
	}

	if n.opts.WebhookURL != "" && severityMatches(note.Severity, n.opts.WebhookMinSeverity) {
		payload, err := json.Marshal(note)
		if err == nil {
			err = n.SendWebhook(ctx, n.opts.WebhookURL, payload)
		}
		if err != nil {
			n.logger.Warn("notification webhook failed", "url", n.opts.WebhookURL, "error", err)
		}
	}
	return note
}

// SendWebhook POSTs payload to the given URL.
func (n *Notifier) SendWebhook(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func logLevel(s Severity) slog.Level {
	switch s {
	case SeverityCritical:
		return slog.LevelError
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// severityMatches returns true if the notification severity meets or exceeds the filter threshold.
func severityMatches(actual, filter Severity) bool {
	levels := map[Severity]int{
		SeverityInfo:     0,
		SeverityWarning:  1,
		SeverityCritical: 2,
	}
	return levels[actual] >= levels[filter]
}
