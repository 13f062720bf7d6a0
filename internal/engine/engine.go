// Package engine holds the escalation decision core: when a conversation
// stops getting bot replies and gets handed to a human agent instead.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"tiledesk-relay/internal/hours"
	"tiledesk-relay/internal/metrics"
	"tiledesk-relay/internal/nlu"
	"tiledesk-relay/internal/session"
)

// HandoffToken is the reserved message payload the chat platform interprets
// as "transfer this conversation to a human agent".
const HandoffToken = `\agent`

// Kind discriminates escalation decisions.
type Kind int

const (
	// KindReply delivers the bot's fulfillment text as-is.
	KindReply Kind = iota
	// KindHandoff delivers a notice followed by the handoff directive.
	KindHandoff
)

// Decision is the outcome of one escalation evaluation. Produced fresh per
// request; it has no identity beyond the messages it generates.
type Decision struct {
	Kind   Kind
	Text   string
	Notice string
}

// Config holds the escalation policy knobs.
type Config struct {
	MaxFallbacks int
	// ConfidenceThreshold, when above zero, additionally treats results below
	// it as fallbacks. Disabled by default: only the upstream isFallback flag
	// counts.
	ConfidenceThreshold float64
	AgentIntent         string
	Policy              hours.Policy
	ContactURLEN        string
	ContactURLIT        string
}

// Engine decides between bot replies and agent escalation.
type Engine struct {
	tracker session.Tracker
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates the decision engine. The tracker is injected so the session
// registry can be swapped (memory, redis) without touching decision logic.
func New(tracker session.Tracker, cfg Config, logger *slog.Logger, metrics *metrics.Metrics) *Engine {
	if cfg.MaxFallbacks < 1 {
		cfg.MaxFallbacks = 4
	}
	if cfg.AgentIntent == "" {
		cfg.AgentIntent = "talk to agent"
	}
	return &Engine{
		tracker: tracker,
		cfg:     cfg,
		logger:  logger.With("component", "engine"),
		metrics: metrics,
	}
}

// DecideFallback applies the consecutive-fallback protocol: observe the NLU
// outcome for this conversation and either reply with the fulfillment text or
// escalate once the fallback run reaches the configured maximum.
func (e *Engine) DecideFallback(ctx context.Context, sessionID string, res *nlu.Result) (Decision, error) {
	fallback := res.IsFallback
	if e.cfg.ConfidenceThreshold > 0 && res.Confidence < e.cfg.ConfidenceThreshold {
		fallback = true
	}

	count, escalate, err := e.tracker.Observe(ctx, sessionID, fallback, e.cfg.MaxFallbacks)
	if err != nil {
		return Decision{}, fmt.Errorf("observe fallback: %w", err)
	}
	e.logger.Debug("fallback observed", "session", sessionID, "fallback", fallback, "count", count)

	if escalate {
		e.metrics.Handoffs.WithLabelValues("fallback").Inc()
		return Decision{
			Kind:   KindHandoff,
			Notice: handoffNotice(res.LanguageCode),
			Text:   HandoffToken,
		}, nil
	}
	return Decision{Kind: KindReply, Text: res.FulfillmentText}, nil
}

// DecideHandoff applies the business-hours protocol for the fulfillment
// webhook. It returns the fulfillment-text override and whether one was
// produced; any intent other than the agent intent is a no-op pass-through.
// The caller applies the configured clock offset before passing now.
func (e *Engine) DecideHandoff(now time.Time, intentName, languageCode string) (string, bool) {
	if !strings.EqualFold(strings.TrimSpace(intentName), e.cfg.AgentIntent) {
		e.metrics.WebhookDecisions.WithLabelValues("passthrough").Inc()
		return "", false
	}

	if e.cfg.Policy.IsOpen(now) {
		e.metrics.Handoffs.WithLabelValues("hours").Inc()
		e.metrics.WebhookDecisions.WithLabelValues("handoff").Inc()
		return agentAvailable(languageCode), true
	}
	e.metrics.WebhookDecisions.WithLabelValues("deny").Inc()
	return e.agentUnavailable(languageCode), true
}

func handoffNotice(languageCode string) string {
	if isItalian(languageCode) {
		return "Non riesco proprio a capire le tue domande, ti metto in contatto con un operatore..."
	}
	return "I really don't understand your questions, putting you in touch with an operator..."
}

func agentAvailable(languageCode string) string {
	if isItalian(languageCode) {
		return "Ti stiamo passando un agente... " + HandoffToken
	}
	return "We're handing you an agent... " + HandoffToken
}

func (e *Engine) agentUnavailable(languageCode string) string {
	schedule := scheduleLabel(e.cfg.Policy)
	if isItalian(languageCode) {
		return fmt.Sprintf("Al momento gli agenti non sono disponibili, riprova da lunedì a venerdì %s. Nel frattempo puoi contattarci tramite il nostro modulo: %s", schedule, e.cfg.ContactURLIT)
	}
	return fmt.Sprintf("Agents are currently unavailable, please try again Monday through Friday %s. In the meantime, you can contact us via our form: %s", schedule, e.cfg.ContactURLEN)
}

func isItalian(languageCode string) bool {
	return strings.HasPrefix(strings.ToLower(languageCode), "it")
}

func scheduleLabel(p hours.Policy) string {
	parts := make([]string, 0, len(p.Intervals))
	for _, iv := range p.Intervals {
		parts = append(parts, fmt.Sprintf("%s - %s", iv.Start, iv.End))
	}
	return strings.Join(parts, " / ")
}
