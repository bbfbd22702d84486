package feedflow_test

import (
	"encoding/json"
	"strings"
)

func countOccurrences(s, substr string) int {
	return strings.Count(s, substr)
}

// extractJSONField digs a string field out of the unified API response body.
func extractJSONField(body, field string) string {
	var resp struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return ""
	}
	return resp.Data[field]
}
