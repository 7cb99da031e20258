package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/Aryanchhabra/DeepResearchAI/internal/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/*.html
var templateFS embed.FS

type pages struct {
	index    *template.Template
	history  *template.Template
	research *template.Template
	markdown goldmark.Markdown
}

func loadPages() *pages {
	funcs := template.FuncMap{
		"timestamp": func(t time.Time) string { return t.Local().Format("2006-01-02 15:04:05") },
		"inc":       func(i int) int { return i + 1 },
	}
	parse := func(page string) *template.Template {
		return template.Must(template.New("layout.html").Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+page))
	}
	return &pages{
		index:    parse("index.html"),
		history:  parse("history.html"),
		research: parse("research.html"),
		// raw HTML in answers is dropped; only markdown is rendered
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
	}
}

// render converts answer markdown into HTML safe to embed in a page.
func (p *pages) render(md string) template.HTML {
	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(md), &buf); err != nil {
		log.GetLogger().Warnf("Failed to render markdown: %v", err)
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

func (p *pages) execute(w http.ResponseWriter, tmpl *template.Template, data interface{}) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		log.GetLogger().Errorf("Failed to render page %s: %v", tmpl.Name(), err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
