package tiledesk

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Message is one outbound chat message. Type, Attributes and Metadata are only
// set for rich messages; a plain bot reply carries Text alone.
type Message struct {
	Text       string         `json:"text"`
	Type       string         `json:"type,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// SupportRequest is the normalized view of an inbound chatbot webhook: the
// conversation it belongs to and the credentials needed to reply into it.
type SupportRequest struct {
	RequestID string
	ProjectID string
	Text      string
	Token     string
}

type webhookBody struct {
	Payload struct {
		Text      string `json:"text"`
		Recipient string `json:"recipient"`
		IDProject string `json:"id_project"`
		Request   struct {
			RequestID string `json:"request_id"`
			IDProject string `json:"id_project"`
		} `json:"request"`
	} `json:"payload"`
	Token string `json:"token"`
}

// ParseSupportRequest extracts the conversation coordinates from a chatbot
// webhook body. The request_id doubles as the NLU session id, so it must be
// present and stable per conversation.
func ParseSupportRequest(body []byte) (*SupportRequest, error) {
	var wb webhookBody
	if err := json.Unmarshal(body, &wb); err != nil {
		return nil, fmt.Errorf("decode webhook body: %w", err)
	}

	requestID := strings.TrimSpace(wb.Payload.Request.RequestID)
	if requestID == "" {
		requestID = strings.TrimSpace(wb.Payload.Recipient)
	}
	if requestID == "" {
		return nil, fmt.Errorf("webhook body missing request_id")
	}

	projectID := strings.TrimSpace(wb.Payload.IDProject)
	if projectID == "" {
		projectID = strings.TrimSpace(wb.Payload.Request.IDProject)
	}

	return &SupportRequest{
		RequestID: requestID,
		ProjectID: projectID,
		Text:      strings.TrimSpace(wb.Payload.Text),
		Token:     strings.TrimSpace(wb.Token),
	}, nil
}
