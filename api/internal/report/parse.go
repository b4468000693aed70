package report

import (
	"errors"
	"regexp"
	"strings"
)

// Model output rarely arrives as clean JSON: it shows up wrapped in prose,
// markdown fences or both. ExtractPayload locates the object-shaped span
// instead of trusting the raw text.

var (
	// ErrNoPayload means no object-shaped span was found in the output at all.
	ErrNoPayload = errors.New("no JSON payload found in model output")

	fencedRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")
)

// ExtractPayload returns the first well-formed object-shaped substring of raw.
// A fenced ```json block wins; otherwise the first balanced {...} span is taken.
func ExtractPayload(raw string) (string, error) {
	if m := fencedRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), nil
	}
	if span := firstBalancedObject(raw); span != "" {
		return span, nil
	}
	return "", ErrNoPayload
}

// firstBalancedObject scans for the first balanced {...} span, tracking
// string literals and escapes so braces inside values don't break the count.
func firstBalancedObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1])
			}
		}
	}
	return ""
}
