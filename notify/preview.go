package notify

import (
	"fmt"
	"unicode/utf8"

	"github.com/hazyhaar/pagewatch/extract"
)

// PreviewLimit is the default preview length in runes.
const PreviewLimit = 1000

// Truncate cuts s to at most limit runes, appending "..." when cut.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + "..."
		}
		n++
	}
	return s
}

// buildMessage renders the channel-independent part of the alert once per
// dispatch.
func buildMessage(req Request, limit int) Message {
	return Message{
		CheckID:     req.CheckID,
		URL:         req.URL,
		Subject:     fmt.Sprintf("Website Content Changed: %s", req.URL),
		Title:       fmt.Sprintf("Content Change Detected: %s", req.URL),
		OldHTML:     Truncate(req.OldContent, limit),
		NewHTML:     Truncate(req.NewContent, limit),
		OldText:     Truncate(extract.Text(req.OldContent), limit),
		NewText:     Truncate(extract.Text(req.NewContent), limit),
		OldMarkdown: Truncate(extract.Markdown(req.OldContent, req.URL), limit),
		NewMarkdown: Truncate(extract.Markdown(req.NewContent, req.URL), limit),
	}
}

// mergeParams overlays params onto body, skipping reserved keys that carry
// credentials or routing.
func mergeParams(body map[string]any, params map[string]any, reserved ...string) {
	skip := make(map[string]bool, len(reserved))
	for _, k := range reserved {
		skip[k] = true
	}
	for k, v := range params {
		if skip[k] {
			continue
		}
		body[k] = v
	}
}

// stringParams renders params as strings for form and custom-args payloads.
func stringParams(params map[string]any) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		switch t := v.(type) {
		case string:
			out[k] = t
		case nil:
			out[k] = ""
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out
}
