// Package web renders the dashboard pages and serves their static assets.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/fedorten/resursGraf/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	PageIndex    = "index"
	PageChart    = "chart"
	PageNotFound = "404"
)

type Period struct {
	Key   string
	Label string
}

var periodLabels = map[string]string{
	"week":           "Неделя",
	"month":          "Месяц",
	"3months":        "3 месяца",
	"year":           "Год",
	"3years":         "3 года",
	models.PeriodAll: "Всё время",
}

// Periods returns the chart period buttons in display order.
func Periods() []Period {
	out := make([]Period, 0, len(models.PeriodKeys))
	for _, k := range models.PeriodKeys {
		out = append(out, Period{Key: k, Label: periodLabels[k]})
	}
	return out
}

type IndexData struct {
	Resources []models.Resource
}

type ChartData struct {
	Resource  models.Resource
	Resources []models.Resource
	Periods   []Period
}

type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range []string{PageIndex, PageChart, PageNotFound} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes page into a buffer first so a template error never leaves
// a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// StaticHandler serves the embedded assets; mount it under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
