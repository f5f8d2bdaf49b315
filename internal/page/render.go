package page

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Renderer draws page models with the embedded templates. Templates are
// parsed once; a Renderer is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"safeURL": func(s string) template.URL { return template.URL(s) },
	}
	t, err := template.New("_root").Funcs(funcMap).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: t}, nil
}

// Render executes the base layout into w. Output is buffered so a template
// error never leaves a half-written page.
func (r *Renderer) Render(w io.Writer, m Model) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "base", m); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}
