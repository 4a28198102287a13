package parsers

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	logx "github.com/warranty-agent-poc-v1/server/pkg/logger"
)

const finalAnswerPrefix = "The final answer is:"

// maxContentLen bounds the text handed to the regex and JSON decoders.
const maxContentLen = 128 * 1024

var boxedPattern = regexp.MustCompile(`(?s)\\boxed\{(.*)\}`)

// resultKeys are tried in order inside a boxed JSON object.
var resultKeys = []string{"result", "answer", "content"}

// rule inspects text and either finishes normalization (done) or hands a
// possibly rewritten text to the next rule.
type rule func(text string) (out string, done bool)

var rules = []rule{
	unwrapBoxed,
	stripFinalAnswerPrefix,
	unwrapJSONResult,
	unescapeNewlines,
}

// NormalizeResponse recovers the answer from a model's final text. It
// unwraps \boxed{...} envelopes, drops a "The final answer is:" prefix,
// extracts the result field of a bare JSON object and turns literal \n
// sequences into newlines. Malformed input falls through unchanged; it never
// fails.
func NormalizeResponse(raw string) (out string) {
	if raw == "" {
		return raw
	}
	if len(raw) > maxContentLen {
		logx.Warn().
			Str("component", "response_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(raw)).
			Msg("response too large to normalize; returned as is")
		return raw
	}

	text := raw
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "response_parser").Msgf("panic recovered: %v", r)
			out = text
		}
	}()

	for _, apply := range rules {
		next, done := apply(text)
		text = next
		if done {
			return text
		}
	}
	return text
}

func unwrapBoxed(text string) (string, bool) {
	m := boxedPattern.FindStringSubmatch(text)
	if m == nil {
		return text, false
	}
	content := m[1]

	if len(content) >= 2 && strings.HasPrefix(content, `"`) && strings.HasSuffix(content, `"`) {
		var unquoted string
		if err := json.Unmarshal([]byte(content), &unquoted); err == nil {
			content = unquoted
		}
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err == nil {
		for _, key := range resultKeys {
			if v, ok := obj[key]; ok {
				return stringify(v), true
			}
		}
	}
	return content, true
}

func stripFinalAnswerPrefix(text string) (string, bool) {
	return strings.TrimSpace(strings.ReplaceAll(text, finalAnswerPrefix, "")), false
}

func unwrapJSONResult(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return text, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return text, false
	}
	if v, ok := obj["result"]; ok {
		return stringify(v), true
	}
	return text, false
}

func unescapeNewlines(text string) (string, bool) {
	return strings.ReplaceAll(text, `\n`, "\n"), true
}

// stringify renders a decoded JSON value as plain text.
func stringify(v any) string {
	switch vv := v.(type) {
	case string:
		return vv
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(vv)
	default:
		b, err := json.Marshal(vv)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
