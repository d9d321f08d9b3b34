package compiler

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"sabr/internal/token"
)

// parseNumber parses a numeric literal per the base-prefix / sign-prefix
// grammar: an optional leading `+`/`-` toggles sign before base dispatch,
// `0x`/`0o`/`0b` select base 16/8/2, a literal containing `.` parses as a
// decimal float, and everything else parses as base-10. A signed-overflow
// on the base-10/16/8/2 integer path silently retries as unsigned, matching
// a tagged-free Value cell that has no overflow concept of its own.
func parseNumber(text string) (token.Value, error) {
	neg := false
	body := text
	switch {
	case strings.HasPrefix(body, "+"):
		body = body[1:]
	case strings.HasPrefix(body, "-"):
		neg = true
		body = body[1:]
	}

	if strings.Contains(body, ".") {
		f, err := strconv.ParseFloat(body, 64)
		if err != nil {
			return token.Value{}, &Error{Kind: InvalidNumeric, Text: text}
		}
		if neg {
			f = -f
		}
		return token.FromFloat(f), nil
	}

	base := 10
	switch {
	case strings.HasPrefix(body, "0x"):
		base, body = 16, body[2:]
	case strings.HasPrefix(body, "0o"):
		base, body = 8, body[2:]
	case strings.HasPrefix(body, "0b"):
		base, body = 2, body[2:]
	}

	if i, err := strconv.ParseInt(body, base, 64); err == nil {
		if neg {
			i = -i
		}
		return token.FromInt(i), nil
	}
	u, err := strconv.ParseUint(body, base, 64)
	if err != nil {
		return token.Value{}, &Error{Kind: InvalidNumeric, Text: text}
	}
	if neg {
		return token.FromInt(-int64(u)), nil
	}
	return token.FromUint(u), nil
}

// isNumericStart reports whether text (ignoring a leading sign) begins a
// numeric literal rather than an identifier.
func isNumericStart(text string) bool {
	body := text
	if strings.HasPrefix(body, "+") || strings.HasPrefix(body, "-") {
		body = body[1:]
	}
	if body == "" {
		return false
	}
	return body[0] == '.' || (body[0] >= '0' && body[0] <= '9')
}

// isValidIdentifier implements the admissibility grammar: non-empty, not
// starting with a reserved sigil or a digit, and a `+`/`-`/`.` prefix is
// only allowed when the following character is not a digit (so it isn't
// mistaken for a numeric literal).
func isValidIdentifier(name string) bool {
	if name == "" {
		return false
	}
	switch name[0] {
	case '@', '(', ')', '{', '}', '#', '$', '\\', '\'', '"':
		return false
	}
	if name[0] >= '0' && name[0] <= '9' {
		return false
	}
	if name[0] == '+' || name[0] == '-' || name[0] == '.' {
		if len(name) > 1 && name[1] >= '0' && name[1] <= '9' {
			return false
		}
	}
	return true
}

// decodeCharString decodes the body of a `'…'` character-string literal
// (quotes already stripped) into its sequence of Unicode code points,
// applying the escape grammar.
func decodeCharString(body string) ([]rune, error) {
	var out []rune
	i := 0
	for i < len(body) {
		if body[i] != '\\' {
			r, size := utf8.DecodeRuneInString(body[i:])
			out = append(out, r)
			i += size
			continue
		}
		i++
		if i >= len(body) {
			return nil, &Error{Kind: InvalidEscape, Text: body}
		}
		r, n, err := decodeEscape(body[i:])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
		i += n
	}
	return out, nil
}

func decodeEscape(s string) (rune, int, error) {
	switch s[0] {
	case 'a':
		return '\a', 1, nil
	case 'b':
		return '\b', 1, nil
	case 'e':
		return 0x1b, 1, nil
	case 'f':
		return '\f', 1, nil
	case 'n':
		return '\n', 1, nil
	case 'r':
		return '\r', 1, nil
	case 't':
		return '\t', 1, nil
	case 'v':
		return '\v', 1, nil
	case '\\':
		return '\\', 1, nil
	case '\'':
		return '\'', 1, nil
	case '"':
		return '"', 1, nil
	case 'x':
		return decodeHexEscape(s[1:], 2)
	case 'u':
		return decodeHexEscape(s[1:], 4)
	case 'U':
		return decodeHexEscape(s[1:], 8)
	}
	if s[0] >= '0' && s[0] <= '7' {
		return decodeOctalEscape(s)
	}
	return 0, 0, &Error{Kind: InvalidEscape, Text: s}
}

func decodeHexEscape(s string, width int) (rune, int, error) {
	if len(s) < width {
		return 0, 0, &Error{Kind: InvalidEscape, Text: s}
	}
	v, err := strconv.ParseUint(s[:width], 16, 32)
	if err != nil {
		return 0, 0, &Error{Kind: InvalidEscape, Text: s}
	}
	return rune(v), width + 1, nil
}

func decodeOctalEscape(s string) (rune, int, error) {
	n := 0
	for n < len(s) && n < 3 && s[n] >= '0' && s[n] <= '7' {
		n++
	}
	v, err := strconv.ParseUint(s[:n], 8, 32)
	if err != nil {
		return 0, 0, &Error{Kind: InvalidEscape, Text: s}
	}
	return rune(v), n, nil
}
