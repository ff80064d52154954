package usecase

import (
	"encoding/json"
	"regexp"
	"strings"
)

// htmlField is the envelope field the AI service is instructed to
// return its HTML document under.
const htmlField = "htmlres"

// ExtractionError reports that no HTML payload could be recovered from
// an AI reply after every extraction strategy has been tried.
type ExtractionError struct {
	Reason string
}

func (e *ExtractionError) Error() string { return e.Reason }

// extractStrategy attempts to recover an HTML payload from a cleaned
// reply. It reports false when the reply does not match its shape.
type extractStrategy func(s string) (string, bool)

// htmlStrategies run in fixed priority order: trusted-structured first,
// loosely-structured second, unstructured last. First success wins.
var htmlStrategies = []extractStrategy{
	extractFromJSONEnvelope,
	extractFromFieldPattern,
	extractFromDocumentSpan,
}

var (
	fieldPattern = regexp.MustCompile(`(?s)"` + htmlField + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	documentSpan = regexp.MustCompile(`(?is)<html\b[^>]*>.*</html>`)
	fencePrefix  = regexp.MustCompile("^```[a-zA-Z]*[ \t]*\r?\n?")
)

// ExtractHTML recovers an HTML document string from the raw text of an
// AI reply. The reply is expected to be a JSON envelope holding the
// document under the "htmlres" field, but replies wrapped in markdown
// code fences, truncated, or missing the envelope entirely are also
// handled. The recovered string may still carry escape artifacts;
// NormalizeHTML resolves those.
func ExtractHTML(raw string) (string, error) {
	cleaned := stripCodeFences(raw)
	for _, strategy := range htmlStrategies {
		if html, ok := strategy(cleaned); ok {
			return html, nil
		}
	}
	return "", &ExtractionError{Reason: "no HTML content recoverable"}
}

// stripCodeFences removes a surrounding markdown code fence (``` or
// ```json) and trims whitespace. Applying it to already-clean text is
// a no-op.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = fencePrefix.ReplaceAllString(s, "")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// extractFromJSONEnvelope is the trusted path: a strict JSON parse of
// the reply with the HTML field present. Parsed JSON already has its
// string escapes resolved once, so a well-behaved reply needs no
// further normalization.
func extractFromJSONEnvelope(s string) (string, bool) {
	var envelope map[string]interface{}
	if err := json.Unmarshal([]byte(s), &envelope); err != nil {
		return "", false
	}
	html, ok := envelope[htmlField].(string)
	if !ok || strings.TrimSpace(html) == "" {
		return "", false
	}
	return html, true
}

// extractFromFieldPattern recovers the field value from a reply that is
// almost JSON (trailing garbage, minor syntax errors) but still has the
// `"htmlres": "..."` delimiters intact. The captured group is returned
// verbatim, escapes included.
func extractFromFieldPattern(s string) (string, bool) {
	m := fieldPattern.FindStringSubmatch(s)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return "", false
	}
	return m[1], true
}

// extractFromDocumentSpan handles a reply with no JSON envelope at all
// by taking the outermost <html>...</html> span, case-insensitively and
// verbatim.
func extractFromDocumentSpan(s string) (string, bool) {
	m := documentSpan.FindString(s)
	if m == "" {
		return "", false
	}
	return m, true
}
