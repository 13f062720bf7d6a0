package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"golang.org/x/oauth2/google"

	"tiledesk-relay/internal/metrics"
)

const (
	dialogflowAPIBase = "https://dialogflow.googleapis.com/v2"
	dialogflowScope   = "https://www.googleapis.com/auth/cloud-platform"
)

var (
	errUnauthorized = errors.New("dialogflow unauthorized")
	errQuota        = errors.New("dialogflow quota exceeded")
)

// Credentials is one bot's Dialogflow service account. Raw keeps the original
// JSON for the oauth2 JWT flow.
type Credentials struct {
	ProjectID string `json:"project_id"`

	raw []byte
}

// ParseCredentials validates a service-account JSON blob.
func ParseCredentials(raw []byte) (*Credentials, error) {
	var c Credentials
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	if strings.TrimSpace(c.ProjectID) == "" {
		return nil, fmt.Errorf("credentials missing project_id")
	}
	c.raw = raw
	return &c, nil
}

// Result is the structured outcome of one detectIntent call.
type Result struct {
	QueryText       string
	Intent          string
	IsFallback      bool
	Confidence      float64
	FulfillmentText string
	LanguageCode    string
}

// Client calls the Dialogflow ES detectIntent endpoint. Authorized HTTP
// clients are built from each bot's service account and cached per project.
type Client struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	apiBase string
	timeout time.Duration

	mu      sync.Mutex
	clients map[string]*http.Client
}

// Config holds NLU client configuration.
type Config struct {
	Timeout time.Duration
}

// New creates a Dialogflow client.
func New(logger *slog.Logger, metrics *metrics.Metrics, cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		logger:  logger.With("component", "nlu"),
		metrics: metrics,
		apiBase: dialogflowAPIBase,
		timeout: timeout,
		clients: make(map[string]*http.Client),
	}
}

// DetectIntent maps an utterance to an intent for the given conversation.
func (c *Client) DetectIntent(ctx context.Context, creds *Credentials, sessionID, text, languageCode string) (*Result, error) {
	httpClient, err := c.clientFor(ctx, creds)
	if err != nil {
		c.metrics.NLURequests.WithLabelValues("error").Inc()
		return nil, err
	}

	var payload detectIntentRequest
	payload.QueryInput.Text.Text = text
	payload.QueryInput.Text.LanguageCode = languageCode
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	url := fmt.Sprintf("%s/projects/%s/agent/sessions/%s:detectIntent", c.apiBase, creds.ProjectID, sessionID)
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		c.metrics.NLURequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("dialogflow http: %w", err)
	}
	defer resp.Body.Close()

	c.metrics.NLULatency.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Observe(time.Since(start).Seconds())

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		c.metrics.NLURequests.WithLabelValues("failed").Inc()
		return nil, errQuota
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.metrics.NLURequests.WithLabelValues("failed").Inc()
		return nil, errUnauthorized
	default:
		c.metrics.NLURequests.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("dialogflow request failed: status=%d body=%s", resp.StatusCode, string(raw))
	}

	result, err := decodeResult(raw)
	if err != nil {
		c.metrics.NLURequests.WithLabelValues("error").Inc()
		return nil, err
	}
	c.metrics.NLURequests.WithLabelValues("success").Inc()
	c.logger.Debug("intent detected",
		"intent", result.Intent,
		"is_fallback", result.IsFallback,
		"confidence", result.Confidence,
		"session", sessionID,
	)
	return result, nil
}

func (c *Client) clientFor(ctx context.Context, creds *Credentials) (*http.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[creds.ProjectID]; ok {
		return client, nil
	}
	conf, err := google.JWTConfigFromJSON(creds.raw, dialogflowScope)
	if err != nil {
		return nil, fmt.Errorf("jwt config for %s: %w", creds.ProjectID, err)
	}
	client := conf.Client(ctx)
	client.Timeout = c.timeout
	c.clients[creds.ProjectID] = client
	return client, nil
}

type detectIntentRequest struct {
	QueryInput struct {
		Text struct {
			Text         string `json:"text"`
			LanguageCode string `json:"languageCode"`
		} `json:"text"`
	} `json:"queryInput"`
}

type detectIntentResponse struct {
	QueryResult struct {
		QueryText       string `json:"queryText"`
		FulfillmentText string `json:"fulfillmentText"`
		Intent          struct {
			DisplayName string `json:"displayName"`
			IsFallback  bool   `json:"isFallback"`
		} `json:"intent"`
		IntentDetectionConfidence float64 `json:"intentDetectionConfidence"`
		LanguageCode              string  `json:"languageCode"`
	} `json:"queryResult"`
}

func decodeResult(raw []byte) (*Result, error) {
	var resp detectIntentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode dialogflow response: %w", err)
	}
	qr := resp.QueryResult
	return &Result{
		QueryText:       qr.QueryText,
		Intent:          qr.Intent.DisplayName,
		IsFallback:      qr.Intent.IsFallback,
		Confidence:      qr.IntentDetectionConfidence,
		FulfillmentText: qr.FulfillmentText,
		LanguageCode:    qr.LanguageCode,
	}, nil
}
