package prompt

import (
	"bytes"
	"fmt"
	"sync"
	"text/template"
)

// Renderer renders persona templates with strict missing-key semantics. Parsed templates are cached by text.
type Renderer struct {
	cache sync.Map
}

func (r *Renderer) Render(name, tmpl string, data any) (string, error) {
	if tmpl == "" {
		return "", fmt.Errorf("prompt: template %s text required", name)
	}
	var t *template.Template
	if cached, ok := r.cache.Load(tmpl); ok {
		t = cached.(*template.Template)
	} else {
		parsed, err := template.New(name).Option("missingkey=error").Parse(tmpl)
		if err != nil {
			return "", fmt.Errorf("prompt: parse %s: %w", name, err)
		}
		r.cache.Store(tmpl, parsed)
		t = parsed
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("prompt: execute %s: %w", name, err)
	}
	return buf.String(), nil
}
