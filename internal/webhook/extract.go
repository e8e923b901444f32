package webhook

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	// ErrNullReply is returned when the webhook answers with a JSON null.
	ErrNullReply = errors.New("webhook returned a null body")

	// ErrUnexpectedReply means the selected reply field holds something other
	// than text, or the reply array starts with null.
	ErrUnexpectedReply = errors.New("webhook reply is not text")
)

// replyFields are checked in order on an object reply, after "output".
var replyFields = []string{"response", "message", "text"}

// ExtractReply pulls the assistant text out of a webhook response body.
//
// n8n workflows answer in several shapes depending on the "Respond to Webhook"
// node. In precedence order:
//
//	[{"output": "..."}]        first element's output
//	{"output": "..."}
//	"..."                      raw JSON string
//	{"response": "..."}
//	{"message": "..."}
//	{"text": "..."}
//
// A field only counts when its value is truthy: "", 0, false and null are
// skipped. A truthy field that is not a string is an error. Anything else is
// returned as indented JSON so the user at least sees what came back.
func ExtractReply(body []byte) (string, error) {
	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", err
	}
	if data == nil {
		return "", ErrNullReply
	}

	if arr, ok := data.([]interface{}); ok && len(arr) > 0 {
		if arr[0] == nil {
			return "", ErrUnexpectedReply
		}
		if first, ok := arr[0].(map[string]interface{}); ok && truthy(first["output"]) {
			return asText(first["output"])
		}
	}

	obj, isObject := data.(map[string]interface{})
	if isObject && truthy(obj["output"]) {
		return asText(obj["output"])
	}

	if s, ok := data.(string); ok {
		return s, nil
	}

	if isObject {
		for _, field := range replyFields {
			if truthy(obj[field]) {
				return asText(obj[field])
			}
		}
	}

	return indentJSON(body)
}

func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	default:
		// objects and arrays, even empty ones
		return true
	}
}

func asText(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", ErrUnexpectedReply
	}
	return s, nil
}

// stripped are removed from every reply. U+FE0F is the variation selector that
// follows the calendar glyph in 🗓️.
var stripped = strings.NewReplacer(
	"\U0001F44B", "", // 👋
	"\U0001F4E7", "", // 📧
	"\U0001F5D3", "", // 🗓
	"\uFE0F", "",
)

// CleanReply removes the greeting/mail/calendar emoji the workflow likes to add
// and trims surrounding whitespace.
func CleanReply(s string) string {
	return strings.TrimSpace(stripped.Replace(s))
}
