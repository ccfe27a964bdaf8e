package services

import (
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// ExtractVariables returns the placeholder names found in texts, deduplicated,
// in the order they first appear.
func ExtractVariables(texts ...string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, text := range texts {
		for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
			name := m[1]
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// RenderPlaceholders substitutes every {{name}} found in data. Placeholders with
// no value are left verbatim and their names returned in first-seen order.
func RenderPlaceholders(text string, data map[string]string) (string, []string) {
	var unresolved []string
	seen := make(map[string]struct{})
	rendered := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "{{"), "}}")
		if v, ok := data[name]; ok {
			return v
		}
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			unresolved = append(unresolved, name)
		}
		return match
	})
	return rendered, unresolved
}
