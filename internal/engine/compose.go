package engine

import (
	"tiledesk-relay/internal/markup"
	"tiledesk-relay/internal/tiledesk"
)

// Compose maps a decision to the ordered messages it delivers. For a handoff
// the notice always precedes the directive; the platform acts on the
// directive, so the user must have seen the notice first.
func Compose(d Decision) []tiledesk.Message {
	if d.Kind == KindHandoff {
		return []tiledesk.Message{
			{Text: d.Notice},
			{Text: d.Text},
		}
	}
	return []tiledesk.Message{{Text: d.Text}}
}

// ComposeRich runs the decision's reply text through the micro-language
// parser and forwards exactly what the parser returns. Handoff decisions
// never carry markup and compose as usual.
func ComposeRich(d Decision) []tiledesk.Message {
	if d.Kind == KindHandoff {
		return Compose(d)
	}
	return []tiledesk.Message{markup.ParseReply(d.Text)}
}
