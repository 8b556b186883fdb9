package llm

import (
	"encoding/json"
	"strings"
)

// ParseJSONArray pulls the outermost JSON array of objects out of a model
// reply, tolerating surrounding prose and Markdown fences. ok is false when
// no decodable array is present.
func ParseJSONArray(reply string) (items []map[string]any, ok bool) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end <= start {
		return nil, false
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &items); err != nil {
		return nil, false
	}
	return items, true
}
