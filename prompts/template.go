package prompts

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{\.(\w+)\}\}`)

// PromptTemplate represents a string template that can be formatted.
// Variables are written as `{{.variable_name}}`.
type PromptTemplate struct {
	Template string
}

// NewPromptTemplate creates a new prompt template.
func NewPromptTemplate(template string) PromptTemplate {
	return PromptTemplate{Template: template}
}

// Format substitutes variables in the template string in a single pass, so
// values that themselves look like placeholders are left untouched.
// Placeholders without a value are kept as-is.
func (p PromptTemplate) Format(vars map[string]string) string {
	if len(vars) == 0 {
		return p.Template
	}
	pairs := make([]string, 0, len(vars)*2)
	for key, value := range vars {
		pairs = append(pairs, placeholder(key), value)
	}
	return strings.NewReplacer(pairs...).Replace(p.Template)
}

// Partial returns a new template with some of the variables already bound.
func (p PromptTemplate) Partial(vars map[string]string) PromptTemplate {
	return NewPromptTemplate(p.Format(vars))
}

// Variables lists the distinct placeholder names in order of first appearance.
func (p PromptTemplate) Variables() []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderRe.FindAllStringSubmatch(p.Template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Extract reverses Format: given text rendered from this template it returns
// the value bound to each placeholder. It reports false when the text does
// not match the template or a repeated placeholder was bound to different values.
func (p PromptTemplate) Extract(rendered string) (map[string]string, bool) {
	locs := placeholderRe.FindAllStringSubmatchIndex(p.Template, -1)
	if len(locs) == 0 {
		return map[string]string{}, rendered == p.Template
	}

	var (
		expr  strings.Builder
		names []string
		last  int
	)
	expr.WriteString(`(?s)^`)
	for _, loc := range locs {
		expr.WriteString(regexp.QuoteMeta(p.Template[last:loc[0]]))
		expr.WriteString(`(.*?)`)
		names = append(names, p.Template[loc[2]:loc[3]])
		last = loc[1]
	}
	expr.WriteString(regexp.QuoteMeta(p.Template[last:]))
	expr.WriteString(`$`)

	re, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, false
	}
	m := re.FindStringSubmatch(rendered)
	if m == nil {
		return nil, false
	}

	values := make(map[string]string, len(names))
	for i, name := range names {
		if prev, ok := values[name]; ok && prev != m[i+1] {
			return nil, false
		}
		values[name] = m[i+1]
	}
	return values, true
}

func placeholder(name string) string {
	return "{{." + name + "}}"
}
