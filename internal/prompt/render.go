package prompt

import "regexp"

var placeholderRe = regexp.MustCompile(`\{\{([a-zA-Z_][a-zA-Z0-9_.]*)\}\}`)

// Render substitutes every {{variable}} placeholder with its value.
// Unknown variables become the empty string rather than leaking the
// placeholder into the prompt.
func Render(template string, vars map[string]string) string {
	if template == "" {
		return ""
	}
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := match[2 : len(match)-2]
		return vars[name]
	})
}

// Placeholders lists the distinct variable names a template references,
// in first-appearance order. The template editor uses it for preview.
func Placeholders(template string) []string {
	seen := map[string]bool{}
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
