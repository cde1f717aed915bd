// Package ai turns loosely-shaped completion replies into typed records.
package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fairyhunter13/career-consultant/internal/domain"
)

// ExtractJSON locates a single JSON object in text.
//
// The trimmed text is first parsed directly. Failing that, the greedy span
// from the first '{' to the last '}' is parsed. When neither yields an
// object the error wraps domain.ErrParse.
func ExtractJSON(text string) (map[string]any, error) {
	text = removeMarkdownBlocks(text)
	if obj, ok := parseObject(text); ok {
		return obj, nil
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("op=ai.ExtractJSON: %w", domain.ErrParse)
	}
	obj, ok := parseObject(text[start : end+1])
	if !ok {
		return nil, fmt.Errorf("op=ai.ExtractJSON: span is not a json object: %w", domain.ErrParse)
	}
	return obj, nil
}

// removeMarkdownBlocks strips a surrounding ```json fence, if any.
func removeMarkdownBlocks(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

func parseObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}
