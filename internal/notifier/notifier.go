// Package notifier delivers job events to subscribers as CloudEvents.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/signature"
)

const (
	specVersion  = "1.0"
	contentType  = "application/cloudevents+json"
	eventTypeFmt = "com.lumina.%s.%s"
)

// ErrPermanent marks deliveries the subscriber refused; retrying will not help.
var ErrPermanent = errors.New("notification permanently rejected")

// Notifier delivers a job event to its subscriber.
type Notifier interface {
	Notify(ctx context.Context, event *domain.JobEvent) error
}

// CloudEvent is the structured-mode CloudEvents 1.0 envelope.
type CloudEvent struct {
	SpecVersion     string           `json:"specversion"`
	ID              string           `json:"id"`
	Source          string           `json:"source"`
	Type            string           `json:"type"`
	Subject         string           `json:"subject"`
	Time            time.Time        `json:"time"`
	DataContentType string           `json:"datacontenttype"`
	Data            *domain.JobEvent `json:"data"`
}

// NewCloudEvent wraps event in an envelope; the CloudEvent id is the event ID so
// subscribers can deduplicate redeliveries.
func NewCloudEvent(source string, event *domain.JobEvent) CloudEvent {
	status := "completed"
	if event.Status == domain.StatusFailed {
		status = "failed"
	}
	return CloudEvent{
		SpecVersion:     specVersion,
		ID:              event.EventID.String(),
		Source:          source,
		Type:            fmt.Sprintf(eventTypeFmt, event.Kind, status),
		Subject:         event.JobID.String(),
		Time:            event.OccurredAt,
		DataContentType: "application/json",
		Data:            event,
	}
}

// Config configures the HTTP notifier.
type Config struct {
	URL        string
	SigningKey string
	Source     string
	Timeout    time.Duration
}

// HTTPNotifier POSTs signed CloudEvents to a single subscriber URL.
type HTTPNotifier struct {
	cfg    Config
	client *http.Client
}

var _ Notifier = (*HTTPNotifier)(nil)

// NewHTTPNotifier creates a notifier for cfg.URL.
func NewHTTPNotifier(cfg Config) *HTTPNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Source == "" {
		cfg.Source = "lumina/api"
	}
	return &HTTPNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (n *HTTPNotifier) Notify(ctx context.Context, event *domain.JobEvent) error {
	body, err := json.Marshal(NewCloudEvent(n.cfg.Source, event))
	if err != nil {
		return fmt.Errorf("%w: marshal cloudevent: %v", ErrPermanent, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrPermanent, err)
	}
	req.Header.Set("Content-Type", contentType)
	if n.cfg.SigningKey != "" {
		req.Header.Set(signature.Header, signature.Sign(n.cfg.SigningKey, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notifier: post event %s: %w", event.EventID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return fmt.Errorf("notifier: subscriber returned HTTP %d", resp.StatusCode)
	default:
		return fmt.Errorf("%w: subscriber returned HTTP %d", ErrPermanent, resp.StatusCode)
	}
}

// LogNotifier only logs events. Used when no subscriber URL is configured.
type LogNotifier struct {
	logger *zap.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, event *domain.JobEvent) error {
	n.logger.Info("Job event",
		zap.String("event_id", event.EventID.String()),
		zap.String("job_id", event.JobID.String()),
		zap.String("kind", string(event.Kind)),
		zap.String("status", string(event.Status)),
	)
	return nil
}
