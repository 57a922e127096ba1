package translate

import (
	"strings"
	"unicode"
)

// DetectedConfidence is the nominal confidence reported alongside a detected
// language. The model provides no real score; the value mirrors the one the
// reference service documented in its example output.
const DetectedConfidence = 87

// ParsedReply is the outcome of splitting a raw provider reply into the
// detected-language marker (if any) and the translation body.
type ParsedReply struct {
	Text     string
	Detected string
}

// ParseReply extracts the detected-language marker from a raw model reply.
//
// The parse is deliberately tolerant: models do not always obey the instructed
// format, and a translation without a marker is still useful. If the first
// line is not a well-formed marker the whole reply is returned as translation
// text with Detected empty. Only detect-mode callers should pass detect=true;
// fixed-source replies are returned verbatim (trimmed).
func ParseReply(raw string, detect bool) ParsedReply {
	text := strings.TrimSpace(raw)
	if !detect {
		return ParsedReply{Text: text}
	}

	first, rest, found := strings.Cut(text, "\n")
	code, ok := parseMarkerLine(first)
	if !ok {
		return ParsedReply{Text: text}
	}
	if !found {
		// Marker with no body: nothing translatable, fall back to the raw
		// reply rather than returning an empty translation.
		return ParsedReply{Text: text}
	}

	return ParsedReply{
		Text:     strings.TrimSpace(rest),
		Detected: code,
	}
}

// parseMarkerLine validates a candidate "LANG:<code>" line and returns the
// code. The code must look like a language tag: 2..8 letters, optionally
// followed by "-" and up to 8 more letters or digits (e.g. "pt-BR").
func parseMarkerLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, MarkerPrefix) {
		return "", false
	}
	code := strings.TrimSpace(strings.TrimPrefix(line, MarkerPrefix))
	if !validLanguageTag(code) {
		return "", false
	}
	return code, true
}

func validLanguageTag(tag string) bool {
	base, region, hasRegion := strings.Cut(tag, "-")
	if n := len(base); n < 2 || n > 8 {
		return false
	}
	for _, r := range base {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	if hasRegion {
		if n := len(region); n < 1 || n > 8 {
			return false
		}
		for _, r := range region {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				return false
			}
		}
	}
	return true
}
