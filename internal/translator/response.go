package translator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/valpere/bolcha/internal/postprocess"
)

// textFields lists the field names backends have used for the translated
// text, in lookup order.
var textFields = []string{"translatedText", "text", "translation"}

// statusFields lists the field names carrying a success/failure status.
var statusFields = []string{"code", "status"}

// ParseResponse extracts the translated text from a backend response body.
//
// A JSON object is read for a status field and one of textFields. A status
// reporting failure yields ErrRejected without looking at the text. Bodies
// that are not JSON are taken as the plain-text translation, unless they look
// like an HTML page.
func ParseResponse(body string) (string, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return "", ErrEmpty
	}
	if postprocess.LooksLikeHTMLPage(trimmed) {
		return "", ErrHTMLPage
	}

	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return finish(trimmed)
	}

	switch t := v.(type) {
	case map[string]any:
		return fromObject(t)
	case string:
		return finish(t)
	case []any:
		return "", fmt.Errorf("%w: unexpected JSON array", ErrMalformed)
	default:
		return finish(trimmed)
	}
}

func fromObject(obj map[string]any) (string, error) {
	if ok, present := statusOK(obj); present && !ok {
		if msg := firstString(obj, "error", "message"); msg != "" {
			return "", fmt.Errorf("%w: %s", ErrRejected, msg)
		}
		return "", ErrRejected
	}

	if text := firstString(obj, textFields...); text != "" {
		return finish(text)
	}
	return "", fmt.Errorf("%w: no translated text field", ErrMalformed)
}

// statusOK inspects the first status field present. Numeric 200, boolean
// true and the strings "ok", "success" and "200" mean success.
func statusOK(obj map[string]any) (ok, present bool) {
	for _, f := range statusFields {
		raw, has := obj[f]
		if !has || raw == nil {
			continue
		}
		switch s := raw.(type) {
		case float64:
			return s == 200, true
		case bool:
			return s, true
		case string:
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "ok", "success", "200":
				return true, true
			}
			return false, true
		}
		return false, true
	}
	return false, false
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func finish(text string) (string, error) {
	out := postprocess.Normalize(text)
	if out == "" {
		return "", ErrEmpty
	}
	return out, nil
}
