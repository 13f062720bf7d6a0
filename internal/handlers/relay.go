package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"

	"tiledesk-relay/internal/config"
	"tiledesk-relay/internal/engine"
	"tiledesk-relay/internal/metrics"
	"tiledesk-relay/internal/nlu"
	"tiledesk-relay/internal/tiledesk"
	"tiledesk-relay/pkg/logger"
)

// IntentDetector maps an utterance to a structured NLU result.
type IntentDetector interface {
	DetectIntent(ctx context.Context, creds *nlu.Credentials, sessionID, text, languageCode string) (*nlu.Result, error)
}

// MessageSender delivers one message into a conversation.
type MessageSender interface {
	SendMessage(ctx context.Context, req *tiledesk.SupportRequest, msg tiledesk.Message) error
}

type replyMode int

const (
	modePlain replyMode = iota
	modeRich
	modeHandoff
)

// Relay wires the chatbot endpoints to the NLU client and the decision engine.
type Relay struct {
	cfg     *config.Config
	nlu     IntentDetector
	sender  MessageSender
	engine  *engine.Engine
	logger  *slog.Logger
	metrics *metrics.Metrics

	now          func() time.Time
	replyTimeout time.Duration
}

// NewRelay constructs the handler set.
func NewRelay(cfg *config.Config, detector IntentDetector, sender MessageSender, eng *engine.Engine, log *slog.Logger, m *metrics.Metrics) *Relay {
	return &Relay{
		cfg:          cfg,
		nlu:          detector,
		sender:       sender,
		engine:       eng,
		logger:       log.With("component", "handlers"),
		metrics:      m,
		now:          time.Now,
		replyTimeout: 30 * time.Second,
	}
}

// HandleRoot is the liveness probe.
func (h *Relay) HandleRoot(c *gin.Context) {
	c.String(http.StatusOK, "Hello")
}

// HandleBot relays the utterance to the NLU agent and replies with the plain
// fulfillment text. The HTTP response is the acknowledgement only; the reply
// itself is delivered out-of-band.
func (h *Relay) HandleBot(c *gin.Context) {
	h.acceptAndRelay(c, modePlain)
}

// HandleMicrolangBot is HandleBot with the reply run through the
// micro-language parser before delivery.
func (h *Relay) HandleMicrolangBot(c *gin.Context) {
	h.acceptAndRelay(c, modeRich)
}

// HandleFallbackHandoff relays like HandleBot but counts consecutive
// fallbacks per conversation and escalates to a human agent when the run
// reaches the configured maximum.
func (h *Relay) HandleFallbackHandoff(c *gin.Context) {
	h.acceptAndRelay(c, modeHandoff)
}

func (h *Relay) acceptAndRelay(c *gin.Context, mode replyMode) {
	log := logger.FromGin(c)
	botID := c.Param("botid")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false})
		return
	}
	sr, err := tiledesk.ParseSupportRequest(body)
	if err != nil {
		log.Warn("invalid webhook body", "error", err, "bot", botID)
		c.JSON(http.StatusBadRequest, gin.H{"success": false})
		return
	}

	// Acknowledge immediately; the reply continues on its own.
	c.JSON(http.StatusOK, gin.H{"success": true})

	go h.relayReply(log, botID, sr, mode)
}

// relayReply is the asynchronous continuation that runs after the webhook has
// been acknowledged. Every failure here is terminal for this one reply: it is
// logged and swallowed, never surfaced to the platform.
func (h *Relay) relayReply(log *slog.Logger, botID string, sr *tiledesk.SupportRequest, mode replyMode) {
	defer func() {
		if r := recover(); r != nil {
			h.metrics.Errors.WithLabelValues("reply_panic").Inc()
			log.Error("reply handling panicked", "panic", r, "bot", botID, "request_id", sr.RequestID)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), h.replyTimeout)
	defer cancel()

	creds, err := h.credsFor(botID)
	if err != nil {
		h.metrics.Errors.WithLabelValues("credentials").Inc()
		log.Error("bot credentials unusable", "error", err, "bot", botID)
		return
	}

	res, err := h.nlu.DetectIntent(ctx, creds, sr.RequestID, sr.Text, h.cfg.DialogflowLanguage)
	if err != nil {
		h.metrics.Errors.WithLabelValues("nlu").Inc()
		log.Error("intent detection failed", "error", err, "bot", botID, "request_id", sr.RequestID)
		return
	}

	var decision engine.Decision
	if mode == modeHandoff {
		decision, err = h.engine.DecideFallback(ctx, sr.RequestID, res)
		if err != nil {
			h.metrics.Errors.WithLabelValues("tracker").Inc()
			log.Error("fallback decision failed", "error", err, "request_id", sr.RequestID)
			return
		}
	} else {
		decision = engine.Decision{Kind: engine.KindReply, Text: res.FulfillmentText}
	}

	var msgs []tiledesk.Message
	if mode == modeRich {
		msgs = engine.ComposeRich(decision)
	} else {
		msgs = engine.Compose(decision)
	}

	// Order within one decision matters; a failed message is logged and the
	// rest still go out.
	for _, msg := range msgs {
		if err := h.sender.SendMessage(ctx, sr, msg); err != nil {
			log.Error("message delivery failed", "error", err, "request_id", sr.RequestID)
		}
	}
}

func (h *Relay) credsFor(botID string) (*nlu.Credentials, error) {
	raw, ok := h.cfg.BotCredentials[botID]
	if !ok {
		return nil, fmt.Errorf("no credentials configured for bot %q", botID)
	}
	return nlu.ParseCredentials([]byte(raw))
}

type fulfillmentWebhookBody struct {
	QueryResult struct {
		FulfillmentText string `json:"fulfillmentText"`
		LanguageCode    string `json:"languageCode"`
		Intent          struct {
			DisplayName string `json:"displayName"`
		} `json:"intent"`
	} `json:"queryResult"`
}

// HandleFulfillmentWebhook answers the NLU service's own fulfillment webhook.
// Unlike the chatbot endpoints this is fully synchronous: the override rides
// in the HTTP response body. A malformed payload or a non-agent intent yields
// an empty object, never an error status.
func (h *Relay) HandleFulfillmentWebhook(c *gin.Context) {
	log := logger.FromGin(c)

	var body fulfillmentWebhookBody
	if err := c.ShouldBindJSON(&body); err != nil {
		log.Warn("malformed fulfillment webhook body", "error", err, "project", c.Param("projectid"))
		h.metrics.WebhookDecisions.WithLabelValues("malformed").Inc()
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	now := h.now().Add(h.cfg.HoursOffset)
	text, ok := h.engine.DecideHandoff(now, body.QueryResult.Intent.DisplayName, body.QueryResult.LanguageCode)
	if !ok {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, gin.H{"fulfillmentText": text})
}
