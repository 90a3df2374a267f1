package normalizer

import (
	"errors"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

	errInvalidJSON = errors.New("invalid JSON")
)

// ParseLenientJSON parses JSON after removing comments and trailing commas.
func ParseLenientJSON(raw string) (*Value, error) {
	cleaned := StripTrailingCommas(StripJSONComments(raw))
	if !gjson.Valid(cleaned) {
		return nil, errInvalidJSON
	}
	return valueFromResult(gjson.Parse(cleaned)), nil
}

// StripJSONComments removes // and /* */ comments outside single or double
// quoted strings. Newlines ending line comments are kept.
func StripJSONComments(input string) string {
	var out strings.Builder
	out.Grow(len(input))

	var quote byte
	escaped := false

	for i := 0; i < len(input); {
		ch := input[i]

		if quote != 0 {
			out.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == quote:
				quote = 0
			}
			i++
			continue
		}

		if ch == '"' || ch == '\'' {
			quote = ch
			out.WriteByte(ch)
			i++
			continue
		}

		if ch == '/' && i+1 < len(input) {
			switch input[i+1] {
			case '/':
				i += 2
				for i < len(input) && input[i] != '\n' {
					i++
				}
				continue
			case '*':
				end := strings.Index(input[i+2:], "*/")
				if end < 0 {
					i = len(input)
				} else {
					i += 2 + end + 2
				}
				continue
			}
		}

		out.WriteByte(ch)
		i++
	}

	return out.String()
}

// StripTrailingCommas drops a comma that directly precedes } or ].
func StripTrailingCommas(input string) string {
	return trailingCommaRe.ReplaceAllString(input, "$1")
}

func valueFromResult(r gjson.Result) *Value {
	switch r.Type {
	case gjson.False:
		return Bool(false)
	case gjson.True:
		return Bool(true)
	case gjson.Number:
		return Number(r.Num)
	case gjson.String:
		return String(r.Str)
	case gjson.JSON:
		if r.IsArray() {
			items := make([]*Value, 0)
			r.ForEach(func(_, item gjson.Result) bool {
				items = append(items, valueFromResult(item))
				return true
			})
			return Array(items...)
		}
		obj := NewObject()
		r.ForEach(func(key, item gjson.Result) bool {
			obj.Set(key.Str, valueFromResult(item))
			return true
		})
		return ObjectValue(obj)
	default:
		return Null()
	}
}
