package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/plurk-comet/internal/comet"
)

// Forwarder is a comet.Sink that pushes events to an ntfy topic.
type Forwarder struct {
	httpClient *http.Client
	config     *Config
	logger     *zap.Logger
}

// NewForwarder creates a new ntfy forwarder.
func NewForwarder(cfg *Config, logger *zap.Logger) *Forwarder {
	return &Forwarder{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
	}
}

// Handle forwards one event.
func (f *Forwarder) Handle(ctx context.Context, unit comet.ContentUnit) error {
	if !f.config.Enabled {
		return nil
	}

	msg, ok := FormatMessage(unit)
	if !ok {
		return nil
	}

	tags := f.config.Tags
	if msg.Tags != "" {
		if tags != "" {
			tags += ","
		}
		tags += msg.Tags
	}

	return f.send(ctx, msg, tags)
}

func (f *Forwarder) send(ctx context.Context, msg Message, tags string) error {
	url := fmt.Sprintf("%s/%s", strings.TrimSuffix(f.config.Server, "/"), f.config.Topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(msg.Body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Title", msg.Title)
	req.Header.Set("Priority", f.config.Priority)
	if tags != "" {
		req.Header.Set("Tags", tags)
	}
	if msg.Click != "" {
		req.Header.Set("Click", msg.Click)
	}

	if f.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.config.Token)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Warn("failed to send notification", zap.Error(err))
		return fmt.Errorf("sending notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain response body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.Warn("notification failed",
			zap.Int("status", resp.StatusCode),
			zap.String("url", url),
		)
		return fmt.Errorf("notification failed with status: %d", resp.StatusCode)
	}

	f.logger.Debug("notification sent", zap.String("title", msg.Title))
	return nil
}

// NoopSink is a no-op sink for when forwarding is disabled.
type NoopSink struct{}

// Handle is a no-op.
func (NoopSink) Handle(_ context.Context, _ comet.ContentUnit) error {
	return nil
}

// New creates the appropriate sink based on config.
func New(cfg *Config, logger *zap.Logger) comet.Sink {
	if !cfg.Enabled {
		return NoopSink{}
	}
	return NewForwarder(cfg, logger)
}
