package common

import (
	"regexp"
	"strings"
)

// trailingCommaPattern matches trailing commas before ] or }, a common
// LLM output artifact that breaks encoding/json.
var trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)

// codeBlockPattern matches the first fenced markdown code block, with or
// without a language tag. (?s) lets . span newlines.
var codeBlockPattern = regexp.MustCompile("(?s)```[a-zA-Z0-9_+.-]*[ \t]*\n(.*?)```")

// ExtractJSONObject pulls the first JSON object out of an LLM response.
// Models often wrap their answer in markdown fences or prose, so we locate
// the outermost braces instead of unmarshalling the raw text.
// Returns "" when no object can be found.
func ExtractJSONObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return stripTrailingCommas(content[start : end+1])
}

// ExtractJSONArray pulls the first JSON array out of an LLM response.
// Returns "" when no array can be found.
func ExtractJSONArray(content string) string {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return stripTrailingCommas(content[start : end+1])
}

func stripTrailingCommas(raw string) string {
	return trailingCommaPattern.ReplaceAllString(raw, "$1")
}

// ExtractCodeBlock pulls the body of the first fenced code block out of an
// LLM response. When the model ignored the fence instruction and replied with
// bare code, the trimmed response itself is returned. Returns "" for an
// empty/blank response.
func ExtractCodeBlock(content string) string {
	if m := codeBlockPattern.FindStringSubmatch(content); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(content)
}
