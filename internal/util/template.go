package util

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// PromptTemplate is a system prompt parsed once and rendered per run.
// Prompts are plain text, so no HTML escaping is applied.
type PromptTemplate struct {
	text string
	tmpl *template.Template
}

// ParsePromptTemplate parses text with the prompt helper functions. Text
// without template markers renders as is.
func ParsePromptTemplate(name, text string) (*PromptTemplate, error) {
	p := &PromptTemplate{text: text}
	if !strings.Contains(text, "{{") {
		return p, nil
	}

	tmpl, err := template.New(name).Option("missingkey=error").Funcs(promptFuncs).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %q: %w", name, err)
	}
	p.tmpl = tmpl
	return p, nil
}

// Render executes the template against data.
func (p *PromptTemplate) Render(data any) (string, error) {
	if p.tmpl == nil {
		return p.text, nil
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt template %q: %w", p.tmpl.Name(), err)
	}
	return buf.String(), nil
}

// Text returns the unparsed template text.
func (p *PromptTemplate) Text() string { return p.text }

var promptFuncs = template.FuncMap{
	"default": func(fallback, val string) string {
		if strings.TrimSpace(val) == "" {
			return fallback
		}
		return val
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"join": func(sep string, items []string) string {
		return strings.Join(items, sep)
	},
	"indent": func(spaces int, s string) string {
		pad := strings.Repeat(" ", spaces)
		return pad + strings.ReplaceAll(s, "\n", "\n"+pad)
	},
}
