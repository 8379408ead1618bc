package ai

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MalformedResponseError means the model answered with something that is not
// the JSON object that was asked for.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	msg := "the language model returned an invalid response"
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg + "; the output may have been truncated, try fewer days or preferences or a more concise model"
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// ExtractJSON parses text as a JSON object. When that fails it retries on the
// substring between the first '{' and the last '}'.
func ExtractJSON(text string) (map[string]interface{}, error) {
	var obj map[string]interface{}
	firstErr := json.Unmarshal([]byte(text), &obj)
	if firstErr == nil && obj != nil {
		return obj, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, &MalformedResponseError{Reason: "no JSON object found", Err: firstErr}
	}
	obj = nil
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil || obj == nil {
		return nil, &MalformedResponseError{Reason: "JSON object could not be parsed", Err: err}
	}
	return obj, nil
}

// number coerces a decoded JSON value to float64. Numeric strings are
// accepted; anything else reports false.
func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func numberOr(v interface{}, fallback float64) float64 {
	if f, ok := number(v); ok {
		return f
	}
	return fallback
}

// text renders a decoded JSON scalar as a string; nil gives fallback.
func text(v interface{}, fallback string) string {
	switch s := v.(type) {
	case nil:
		return fallback
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}

func stringList(v interface{}, limit int) []string {
	raw, _ := v.([]interface{})
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s := strings.TrimSpace(text(item, ""))
		if s == "" {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func object(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}
