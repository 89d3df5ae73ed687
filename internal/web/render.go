package web

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"cryptonics/internal/currency"

	"github.com/gin-gonic/gin/render"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"home", "coins", "coin", "exchanges", "error"}

var funcs = template.FuncMap{
	"upper": strings.ToUpper,
	"year":  func() int { return time.Now().Year() },
}

// pageRenderer is a gin HTMLRender holding one template set per page, each
// sharing the layout and partials.
type pageRenderer map[string]*template.Template

func loadTemplates() (pageRenderer, error) {
	r := make(pageRenderer, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r[name] = t
	}
	return r, nil
}

func (r pageRenderer) Instance(name string, data any) render.Render {
	return render.HTML{Template: r[name], Name: "layout", Data: data}
}

// Page is the layout data shared by every view.
type Page struct {
	Title    string
	Active   string
	Currency currency.Code
	Options  []currency.Option
	Content  any
}

// ErrorView is the generic error state. An empty RetryURL hides "Try Again".
type ErrorView struct {
	Title    string
	Message  string
	RetryURL string
}
