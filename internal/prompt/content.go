package prompt

import (
	"regexp"
	"strings"
)

// MinContentLength is the minimum trimmed length accepted for prompt content
const MinContentLength = 10

var variablePattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// ValidateContent reports whether prompt content is usable: not empty,
// not just whitespace and at least MinContentLength characters.
func ValidateContent(content string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return false
	}
	return len(trimmed) >= MinContentLength
}

// ExtractVariables returns the template variable names referenced in
// the content as {{name}} placeholders, in order of first appearance.
func ExtractVariables(content string) []string {
	matches := variablePattern.FindAllStringSubmatch(content, -1)
	seen := make(map[string]bool, len(matches))
	vars := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		vars = append(vars, m[1])
	}
	return vars
}
