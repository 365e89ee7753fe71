package template

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/schema"
)

// MergeContexts merges multiple contexts into a single context
// Later contexts override values from earlier contexts
func MergeContexts(contexts ...map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	for _, ctx := range contexts {
		for key, value := range ctx {
			result[key] = value
		}
	}

	return result
}

// ContextFromParams builds a rendering context from tool parameters. The
// synthetic template id parameter is dropped and file handles are replaced by
// their content when it is known.
func ContextFromParams(params map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(params))
	for key, value := range params {
		if key == api.TemplateIDParameter {
			continue
		}
		if fv, ok := schema.AsFileValue(value); ok && fv.HasContent() {
			value = *fv.Content
		}
		out[key] = value
	}
	return out
}

// Stringify renders a value for substitution into prompt text. Strings are
// used as is; arrays and objects are rendered as JSON.
func Stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case json.Number:
		return v.String()
	case map[string]interface{}, []interface{}, []string:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", v)
	}
}
