package nlu

import "strings"

// StripCodeFences removes markdown code-fence wrapping from model output.
// Handles ```json with or without a newline after the opening fence, bare
// ```, and unterminated fences. Non-fenced input is returned trimmed. The
// model is never assumed to emit clean JSON; this runs before every parse
// attempt.
func StripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimPrefix(trimmed, "```")
	if end := strings.LastIndex(body, "```"); end != -1 {
		body = body[:end]
	}
	body = strings.TrimSpace(body)

	// Drop a fence language tag when one leads the content. Only "json" is
	// expected given the instruction grammar; prose content is left alone.
	if rest, ok := cutFenceTag(body, "json"); ok {
		body = strings.TrimSpace(rest)
	}
	return body
}

// cutFenceTag strips tag from the front of s when it reads as a fence
// language specifier rather than content, i.e. it is followed by whitespace,
// an opening brace, or nothing.
func cutFenceTag(s, tag string) (string, bool) {
	if len(s) < len(tag) || !strings.EqualFold(s[:len(tag)], tag) {
		return s, false
	}
	rest := s[len(tag):]
	if rest == "" {
		return "", true
	}
	switch rest[0] {
	case ' ', '\t', '\n', '\r', '{':
		return rest, true
	}
	return s, false
}
