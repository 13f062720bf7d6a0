package tiledesk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"tiledesk-relay/internal/metrics"
)

var (
	// ErrUnauthorized indicates the platform rejected the conversation token.
	ErrUnauthorized = errors.New("tiledesk unauthorized")
)

// Client delivers messages into Tiledesk conversations.
type Client struct {
	logger  *slog.Logger
	baseURL string
	timeout time.Duration
	http    *http.Client
	metrics *metrics.Metrics
}

// Config holds Tiledesk client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// New creates a Tiledesk API client.
func New(cfg Config, logger *slog.Logger, metrics *metrics.Metrics) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.tiledesk.com/v2"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		logger:  logger.With("component", "tiledesk"),
		baseURL: base,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
		metrics: metrics,
	}
}

type errorEnvelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Message string `json:"msg"`
}

// SendMessage posts one message into the conversation identified by the
// support request. The caller decides ordering; each call stands alone.
func (c *Client) SendMessage(ctx context.Context, req *SupportRequest, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/requests/%s/messages", c.baseURL, req.ProjectID, req.RequestID)
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Token != "" {
		httpReq.Header.Set("Authorization", req.Token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.MessagesSent.WithLabelValues("error").Inc()
		return fmt.Errorf("tiledesk http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.metrics.MessagesSent.WithLabelValues("unauthorized").Inc()
		return ErrUnauthorized
	}
	if resp.StatusCode >= 300 {
		c.metrics.MessagesSent.WithLabelValues("failed").Inc()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var env errorEnvelope
		if jsonErr := json.Unmarshal(raw, &env); jsonErr == nil && (env.Error != "" || env.Message != "") {
			return fmt.Errorf("send message: status=%d %s%s", resp.StatusCode, env.Error, env.Message)
		}
		return fmt.Errorf("send message: status=%d body=%s", resp.StatusCode, string(raw))
	}

	c.metrics.MessagesSent.WithLabelValues("success").Inc()
	c.logger.Debug("message sent", "request_id", req.RequestID, "type", msg.Type)
	return nil
}
