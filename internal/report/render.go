package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ovasquez/facet/pkg/metric"
)

//go:embed template.html
var templateFS embed.FS

// Renderer turns a validated metric document into its HTML view via
// the single embedded master template.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded template.
func NewRenderer() (*Renderer, error) {
	printer := message.NewPrinter(language.English)
	funcMap := template.FuncMap{
		"num": func(v float64) string {
			return printer.Sprintf("%.4f", v)
		},
		"pct": func(v float64) string {
			return printer.Sprintf("%.1f%%", v*100)
		},
		"title": cases.Title(language.English).String,
		"bar": func(b *int) int {
			if b == nil {
				return 0
			}
			return *b
		},
	}

	content, err := templateFS.ReadFile("template.html")
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New("metric").Funcs(funcMap).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the HTML view of doc to w.
func (r *Renderer) Render(doc *metric.Document, w io.Writer) error {
	return r.tmpl.Execute(w, doc)
}

// RenderToFile renders into a buffer first so a template failure
// leaves no partial file behind.
func (r *Renderer) RenderToFile(doc *metric.Document, path string) error {
	var buf bytes.Buffer
	if err := r.Render(doc, &buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
