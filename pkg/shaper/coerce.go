package shaper

import (
	"regexp"
	"strconv"
	"strings"
)

// stringOr returns the first parameter among keys that is a non-empty
// string, or fallback.
func stringOr(params map[string]any, fallback string, keys ...string) string {
	for _, key := range keys {
		if s, ok := params[key].(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

// intOr coerces a numeric or numeric-string parameter to int. Missing,
// zero or unparsable values yield fallback.
func intOr(params map[string]any, fallback int, key string) int {
	switch v := params[key].(type) {
	case int:
		if v != 0 {
			return v
		}
	case int64:
		if v != 0 {
			return int(v)
		}
	case float64:
		if v != 0 {
			return int(v)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n != 0 {
			return n
		}
	}
	return fallback
}

func floatOr(params map[string]any, fallback float64, key string) float64 {
	switch v := params[key].(type) {
	case float64:
		if v != 0 {
			return v
		}
	case int:
		if v != 0 {
			return float64(v)
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f != 0 {
			return f
		}
	}
	return fallback
}

// boolOr keeps an explicit boolean parameter, including false, and only
// falls back when the key is absent or not a bool.
func boolOr(params map[string]any, fallback bool, key string) bool {
	if b, ok := params[key].(bool); ok {
		return b
	}
	return fallback
}

// anyList coerces a parameter into a list. A non-empty string becomes a
// singleton list; anything else that is not a list yields nil.
func anyList(v any) []any {
	switch value := v.(type) {
	case []any:
		return value
	case []string:
		out := make([]any, len(value))
		for i, s := range value {
			out[i] = s
		}
		return out
	case string:
		if value == "" {
			return nil
		}
		return []any{value}
	}
	return nil
}

func listOr(params map[string]any, fallback []any, key string) []any {
	if list := anyList(params[key]); len(list) > 0 {
		return list
	}
	return fallback
}

// commaList coerces a parameter into a list of names, splitting a bare
// string on commas.
func commaList(v any) []any {
	if s, ok := v.(string); ok {
		parts := strings.Split(s, ",")
		out := make([]any, 0, len(parts))
		for _, part := range parts {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	if list := anyList(v); list != nil {
		return list
	}
	return []any{}
}

// copyIfPresent forwards optional parameters that carry a usable value.
func copyIfPresent(dst, params map[string]any, keys ...string) {
	for _, key := range keys {
		v, ok := params[key]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		dst[key] = v
	}
}

var yearPattern = regexp.MustCompile(`\d{4}`)

// normalizeYearRange accepts the year-range spellings seen in the wild,
// {from,to}, {from_year,to_year}, {start_year,end_year}, "2019-2023" and
// "2019 to 2023", and returns the worker's {from,to} object, or nil when
// no usable pair exists.
func normalizeYearRange(v any) map[string]any {
	switch value := v.(type) {
	case map[string]any:
		for _, pair := range [][2]string{
			{"from", "to"},
			{"from_year", "to_year"},
			{"start_year", "end_year"},
		} {
			from, to := yearString(value[pair[0]]), yearString(value[pair[1]])
			if from != "" && to != "" {
				return map[string]any{"from": from, "to": to}
			}
		}
	case string:
		if years := yearPattern.FindAllString(value, -1); len(years) >= 2 {
			return map[string]any{"from": years[0], "to": years[1]}
		}
	}
	return nil
}

func yearString(v any) string {
	switch value := v.(type) {
	case string:
		return yearPattern.FindString(value)
	case float64:
		return strconv.Itoa(int(value))
	case int:
		return strconv.Itoa(value)
	}
	return ""
}

var (
	timestampedLine = regexp.MustCompile(`^(.+?)\s*\(([^)]+)\)\s*:\s*(.*)$`)
	speakerLine     = regexp.MustCompile(`^([^:]+):\s*(.*)$`)
)

// normalizeDiscussionLogs coerces discussion entries into the worker's
// {user_id, timestamp, message} objects. Structured entries pass through
// unchanged; "Alice (10:02): message" and "Alice: message" strings are
// parsed; anything unrecognizable stays verbatim so the worker's
// free-text fallback can deal with it.
func normalizeDiscussionLogs(v any) []any {
	entries := anyList(v)
	out := make([]any, 0, len(entries))
	for _, entry := range entries {
		if s, ok := entry.(string); ok {
			out = append(out, parseDiscussionLine(s))
			continue
		}
		out = append(out, entry)
	}
	return out
}

func parseDiscussionLine(line string) any {
	trimmed := strings.TrimSpace(line)
	if m := timestampedLine.FindStringSubmatch(trimmed); m != nil {
		return map[string]any{
			"user_id":   strings.TrimSpace(m[1]),
			"timestamp": strings.TrimSpace(m[2]),
			"message":   m[3],
		}
	}
	if m := speakerLine.FindStringSubmatch(trimmed); m != nil {
		return map[string]any{
			"user_id":   strings.TrimSpace(m[1]),
			"timestamp": "",
			"message":   m[2],
		}
	}
	return line
}
