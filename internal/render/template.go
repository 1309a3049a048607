package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// Engine renders template strings with helper functions.
type Engine struct {
	funcs template.FuncMap
}

// New creates a new template engine.
func New() *Engine {
	return &Engine{
		funcs: template.FuncMap{
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
			"to_json": func(v interface{}) (string, error) {
				b, err := json.Marshal(v)
				if err != nil {
					return "", err
				}
				return string(b), nil
			},
		},
	}
}

// RenderString renders the provided template string against data.
func (e *Engine) RenderString(tmpl string, data interface{}) (string, error) {
	if tmpl == "" {
		return "", nil
	}
	t, err := template.New("tpl").Option("missingkey=error").Funcs(e.funcs).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return buf.String(), nil
}
