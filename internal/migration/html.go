package migration

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Legacy backup pages embed their data one of three ways: a JSON script
// island, a localStorage.setItem call whose second argument is the
// serialized payload, or an inline object assigned to a script variable.
// Extraction tries them in that order and accepts the first candidate
// that is valid JSON.

var (
	jsonIslandPattern = regexp.MustCompile(`(?is)<script[^>]*type\s*=\s*["']application/json["'][^>]*>(.*?)</script>`)
	assignmentPattern = regexp.MustCompile(`(?i)(?:var|let|const)\s+\w+\s*=\s*\{|window\.\w+\s*=\s*\{`)
)

// ParseHTML locates the embedded payload in a legacy backup page and
// flattens it the same way a raw JSON export is flattened
func ParseHTML(data []byte, provenance string) ([]LegacyRecord, []Reject, error) {
	payload, err := ExtractHTMLPayload(data)
	if err != nil {
		return nil, nil, err
	}
	return ParseJSON(payload, provenance)
}

// ExtractHTMLPayload returns the embedded JSON payload of a legacy backup
// page, or a NO_PAYLOAD_FOUND error when the document carries none
func ExtractHTMLPayload(data []byte) ([]byte, error) {
	if payload, ok := extractJSONIsland(data); ok {
		return payload, nil
	}
	if payload, ok := extractLocalStorageItem(data); ok {
		return payload, nil
	}
	if payload, ok := extractAssignedObject(data); ok {
		return payload, nil
	}
	return nil, NewNoPayloadFoundError("document contains no recognizable inventory payload", nil)
}

func extractJSONIsland(data []byte) ([]byte, bool) {
	for _, match := range jsonIslandPattern.FindAllSubmatch(data, -1) {
		candidate := []byte(strings.TrimSpace(string(match[1])))
		if isJSONObject(candidate) {
			return candidate, true
		}
	}
	return nil, false
}

func extractLocalStorageItem(data []byte) ([]byte, bool) {
	text := string(data)
	offset := 0
	for {
		i := strings.Index(text[offset:], "localStorage.setItem")
		if i < 0 {
			return nil, false
		}
		pos := offset + i + len("localStorage.setItem")
		offset = pos

		pos = skipSpaces(text, pos)
		if pos >= len(text) || text[pos] != '(' {
			continue
		}
		pos = skipSpaces(text, pos+1)

		// First argument is the storage key; only its extent matters
		_, pos, ok := scanJSString(text, pos)
		if !ok {
			continue
		}
		pos = skipSpaces(text, pos)
		if pos >= len(text) || text[pos] != ',' {
			continue
		}
		pos = skipSpaces(text, pos+1)

		value, _, ok := scanJSString(text, pos)
		if !ok {
			continue
		}
		candidate := []byte(strings.TrimSpace(value))
		if isJSONObject(candidate) {
			return candidate, true
		}
	}
}

func extractAssignedObject(data []byte) ([]byte, bool) {
	for _, loc := range assignmentPattern.FindAllIndex(data, -1) {
		// The match ends on the opening brace
		start := loc[1] - 1
		candidate, ok := scanBalancedObject(data, start)
		if !ok {
			continue
		}
		if isJSONObject(candidate) {
			return candidate, true
		}
	}
	return nil, false
}

func isJSONObject(candidate []byte) bool {
	trimmed := strings.TrimSpace(string(candidate))
	return strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed))
}

// scanJSString reads a single- or double-quoted JavaScript string literal
// starting at pos and returns its unescaped value and the position after
// the closing quote
func scanJSString(s string, pos int) (string, int, bool) {
	if pos >= len(s) {
		return "", pos, false
	}
	quote := s[pos]
	if quote != '\'' && quote != '"' {
		return "", pos, false
	}

	var b strings.Builder
	i := pos + 1
	for i < len(s) {
		c := s[i]
		switch {
		case c == quote:
			return b.String(), i + 1, true

		case c == '\\':
			if i+1 >= len(s) {
				return "", pos, false
			}
			next := s[i+1]
			switch next {
			case 'n':
				b.WriteByte('\n')
				i += 2
			case 't':
				b.WriteByte('\t')
				i += 2
			case 'r':
				b.WriteByte('\r')
				i += 2
			case 'b':
				b.WriteByte('\b')
				i += 2
			case 'f':
				b.WriteByte('\f')
				i += 2
			case 'u':
				r, consumed, ok := decodeUnicodeEscape(s, i)
				if !ok {
					return "", pos, false
				}
				b.WriteRune(r)
				i += consumed
			default:
				b.WriteByte(next)
				i += 2
			}

		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", pos, false
}

// decodeUnicodeEscape reads a \uXXXX escape at position i, combining
// surrogate pairs when a second escape follows
func decodeUnicodeEscape(s string, i int) (rune, int, bool) {
	if i+6 > len(s) {
		return 0, 0, false
	}
	n, err := strconv.ParseUint(s[i+2:i+6], 16, 32)
	if err != nil {
		return 0, 0, false
	}
	r := rune(n)

	if utf16.IsSurrogate(r) && i+12 <= len(s) && s[i+6] == '\\' && s[i+7] == 'u' {
		n2, err := strconv.ParseUint(s[i+8:i+12], 16, 32)
		if err == nil {
			if combined := utf16.DecodeRune(r, rune(n2)); combined != utf8.RuneError {
				return combined, 12, true
			}
		}
	}
	if utf16.IsSurrogate(r) {
		return utf8.RuneError, 6, true
	}
	return r, 6, true
}

// scanBalancedObject returns the byte range of the brace-balanced object
// starting at start, tracking string literals so braces inside them do
// not count
func scanBalancedObject(data []byte, start int) ([]byte, bool) {
	if start >= len(data) || data[start] != '{' {
		return nil, false
	}

	depth := 0
	var inString bool
	var quote byte
	for i := start; i < len(data); i++ {
		c := data[i]
		if inString {
			switch c {
			case '\\':
				i++
			case quote:
				inString = false
			}
			continue
		}
		switch c {
		case '"', '\'':
			inString = true
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return data[start : i+1], true
			}
		}
	}
	return nil, false
}

func skipSpaces(s string, pos int) int {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t' || s[pos] == '\n' || s[pos] == '\r') {
		pos++
	}
	return pos
}
