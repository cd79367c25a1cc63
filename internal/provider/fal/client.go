// Package fal implements provider.Gateway against the fal.ai queue API.
package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Harsh-BH/Lumina/internal/provider"
)

const (
	defaultBaseURL         = "https://queue.fal.run"
	defaultTrainingModel   = "fal-ai/flux-lora-fast-training"
	defaultGenerationModel = "fal-ai/flux-lora"
	defaultTimeout         = 10 * time.Second

	// maxErrorBody caps how much of an error response is kept as the rejection reason.
	maxErrorBody = 4 << 10
)

// Config configures the fal client.
type Config struct {
	BaseURL         string
	APIKey          string
	TrainingModel   string
	GenerationModel string
	// WebhookBaseURL is the public base URL of this service; callbacks land on
	// {WebhookBaseURL}/webhook/train and {WebhookBaseURL}/webhook/generate.
	WebhookBaseURL string
	Timeout        time.Duration
	HTTPClient     *http.Client
}

// Client submits training and generation jobs to fal.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

var _ provider.Gateway = (*Client)(nil)

// NewClient creates a fal client, applying defaults for unset fields.
func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.TrainingModel == "" {
		cfg.TrainingModel = defaultTrainingModel
	}
	if cfg.GenerationModel == "" {
		cfg.GenerationModel = defaultGenerationModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.WebhookBaseURL = strings.TrimRight(cfg.WebhookBaseURL, "/")

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Client{cfg: cfg, httpClient: client}
}

func (c *Client) Name() string { return "fal" }

type trainingPayload struct {
	ImagesDataURL string `json:"images_data_url"`
	TriggerWord   string `json:"trigger_word"`
}

type lora struct {
	Path  string  `json:"path"`
	Scale float64 `json:"scale"`
}

type generationPayload struct {
	Prompt string `json:"prompt"`
	Loras  []lora `json:"loras"`
}

type queueResponse struct {
	RequestID string `json:"request_id"`
}

type errorResponse struct {
	Detail  any    `json:"detail"`
	Message string `json:"message"`
}

// SubmitTraining enqueues a LoRA training run and returns fal's request ID.
func (c *Client) SubmitTraining(ctx context.Context, req provider.TrainingRequest) (string, error) {
	return c.submit(ctx, c.cfg.TrainingModel, "/webhook/train", trainingPayload{
		ImagesDataURL: req.ZipURL,
		TriggerWord:   req.TriggerWord,
	})
}

// SubmitGeneration enqueues an image generation and returns fal's request ID.
func (c *Client) SubmitGeneration(ctx context.Context, req provider.GenerationRequest) (string, error) {
	return c.submit(ctx, c.cfg.GenerationModel, "/webhook/generate", generationPayload{
		Prompt: req.Prompt,
		Loras:  []lora{{Path: req.ModelRef, Scale: 1}},
	})
}

func (c *Client) submit(ctx context.Context, model, webhookPath string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("fal: marshal payload: %w", err)
	}

	endpoint := c.cfg.BaseURL + "/" + strings.TrimLeft(model, "/")
	if c.cfg.WebhookBaseURL != "" {
		endpoint += "?fal_webhook=" + url.QueryEscape(c.cfg.WebhookBaseURL+webhookPath)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("fal: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Key "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", provider.Unavailable(fmt.Errorf("fal: timed out after %s", c.cfg.Timeout))
		}
		return "", provider.Unavailable(fmt.Errorf("fal: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", provider.Unavailable(fmt.Errorf("fal: read response: %w", err))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", provider.Unavailable(fmt.Errorf("fal: HTTP %d", resp.StatusCode))
	default:
		return "", &provider.RejectedError{StatusCode: resp.StatusCode, Reason: rejectionReason(raw)}
	}

	var qr queueResponse
	if err := json.Unmarshal(raw, &qr); err != nil {
		return "", provider.Unavailable(fmt.Errorf("fal: decode response: %w", err))
	}
	if strings.TrimSpace(qr.RequestID) == "" {
		return "", provider.Unavailable(errors.New("fal: response missing request_id"))
	}
	return qr.RequestID, nil
}

func rejectionReason(raw []byte) string {
	var er errorResponse
	if err := json.Unmarshal(raw, &er); err == nil {
		if er.Message != "" {
			return er.Message
		}
		if er.Detail != nil {
			if s, ok := er.Detail.(string); ok {
				return s
			}
			if b, err := json.Marshal(er.Detail); err == nil {
				return truncate(string(b))
			}
		}
	}
	return truncate(strings.TrimSpace(string(raw)))
}

func truncate(s string) string {
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
