package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON pulls the outermost JSON object out of a model response that
// may be wrapped in prose or code fences.
func extractJSON(response string) string {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return response[start : end+1]
}

// decodeStructured parses a structured completion into the given schema.
func decodeStructured(response string, v any) error {
	content := extractJSON(response)
	if content == "" {
		return fmt.Errorf("no JSON found in response")
	}
	if err := json.Unmarshal([]byte(content), v); err != nil {
		return fmt.Errorf("JSON unmarshal failed: %w", err)
	}
	return nil
}
