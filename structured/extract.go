package structured

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoStructuredContent is returned when a response holds neither a YAML
// nor a JSON document.
var ErrNoStructuredContent = errors.New("structured: no YAML or JSON content in response")

const fence = "```"

// fenced returns the body of the first fenced block labelled lang, or of the
// first fenced block of any language when lang is empty.
func fenced(response, lang string) (string, bool) {
	start := strings.Index(response, fence+lang)
	if start == -1 {
		return "", false
	}
	start += len(fence) + len(lang)
	if lang == "" {
		// skip the language identifier
		nl := strings.IndexByte(response[start:], '\n')
		if nl == -1 {
			return "", false
		}
		start += nl + 1
	}
	end := strings.Index(response[start:], fence)
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(response[start : start+end]), true
}

// ExtractYAML extracts YAML content from an LLM response: a ```yaml block, a
// generic fenced block, or the first run of key: value lines.
func ExtractYAML(response string) string {
	for _, lang := range []string{"yaml", "yml", ""} {
		if body, ok := fenced(response, lang); ok {
			return body
		}
	}

	var lines []string
	inYAML := false
	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)
		if !inYAML && strings.Contains(trimmed, ":") && !strings.HasPrefix(trimmed, "http") {
			inYAML = true
		}
		if !inYAML {
			continue
		}
		indented := strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
		if trimmed != "" && !indented && !strings.HasPrefix(trimmed, "#") &&
			!strings.Contains(trimmed, ":") && !strings.HasPrefix(trimmed, "-") {
			break
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ExtractJSON extracts JSON content from an LLM response: a ```json block, a
// generic fenced block starting with { or [, or the first balanced object.
func ExtractJSON(response string) string {
	if body, ok := fenced(response, "json"); ok {
		return body
	}
	if body, ok := fenced(response, ""); ok && looksLikeJSON(body) {
		return body
	}

	start := strings.IndexAny(response, "{[")
	if start == -1 {
		return ""
	}
	open, closing := response[start], byte('}')
	if open == '[' {
		closing = ']'
	}
	depth, inString, escaped := 0, false, false
	for i := start; i < len(response); i++ {
		c := response[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == closing:
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}

func looksLikeJSON(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

// Decode parses the structured content of an LLM response into T. JSON is
// tried first when the YAML candidate is itself, or wraps, a JSON document.
func Decode[T any](response string) (T, error) {
	var result T

	if body, ok := fenced(response, "json"); ok {
		if err := json.Unmarshal([]byte(body), &result); err != nil {
			return result, fmt.Errorf("decode json: %w", err)
		}
		return result, nil
	}

	yamlContent := ExtractYAML(response)
	jsonContent := ExtractJSON(response)
	if yamlContent == "" && jsonContent == "" {
		return result, ErrNoStructuredContent
	}

	type attempt struct {
		kind      string
		content   string
		unmarshal func([]byte, any) error
	}
	order := []attempt{{"yaml", yamlContent, yaml.Unmarshal}, {"json", jsonContent, json.Unmarshal}}
	if looksLikeJSON(strings.TrimSpace(yamlContent)) || (jsonContent != "" && strings.Contains(yamlContent, jsonContent)) {
		order[0], order[1] = order[1], order[0]
	}

	var errs []error
	for _, a := range order {
		if a.content == "" {
			continue
		}
		var v T
		if err := a.unmarshal([]byte(a.content), &v); err != nil {
			errs = append(errs, fmt.Errorf("decode %s: %w", a.kind, err))
			continue
		}
		return v, nil
	}
	return result, errors.Join(errs...)
}
