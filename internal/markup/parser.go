// Package markup parses the Tiledesk "micro language" that bot authors embed
// in fulfillment text to render rich widget content: button lines prefixed
// with "* " and image/frame directives.
package markup

import (
	"strings"

	"tiledesk-relay/internal/tiledesk"
)

const (
	buttonPrefix = "* "
	imagePrefix  = "\\image:"
	framePrefix  = "\\frame:"
)

// ParseReply turns fulfillment text into a structured message. Plain text
// passes through with no type or attributes set.
func ParseReply(text string) tiledesk.Message {
	lines := strings.Split(text, "\n")

	var textLines []string
	var buttons []map[string]any
	msg := tiledesk.Message{}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, buttonPrefix):
			label := strings.TrimSpace(strings.TrimPrefix(trimmed, buttonPrefix))
			if label != "" {
				buttons = append(buttons, map[string]any{"type": "action", "value": label})
			}
		case strings.HasPrefix(trimmed, imagePrefix):
			if src := strings.TrimSpace(strings.TrimPrefix(trimmed, imagePrefix)); src != "" {
				msg.Type = "image"
				msg.Metadata = map[string]any{"src": src}
			}
		case strings.HasPrefix(trimmed, framePrefix):
			if src := strings.TrimSpace(strings.TrimPrefix(trimmed, framePrefix)); src != "" {
				msg.Type = "frame"
				msg.Metadata = map[string]any{"src": src}
			}
		default:
			textLines = append(textLines, line)
		}
	}

	msg.Text = strings.TrimSpace(strings.Join(textLines, "\n"))

	if len(buttons) > 0 {
		msg.Type = "text"
		msg.Attributes = map[string]any{
			"attachment": map[string]any{
				"type":    "template",
				"buttons": buttons,
			},
		}
	}
	return msg
}
