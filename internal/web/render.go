package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/nhle/todo-web/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// indexView is the data for the task list page.
type indexView struct {
	Username string
	Query    string
	Tasks    []model.Task
	Error    string
}

// loginView is the data for the login/register page.
type loginView struct {
	Username   string
	Registered bool
	Error      string
}

// errorView is the data for the generic error page.
type errorView struct {
	Status  int
	Message string
}

// renderer executes the embedded page templates.
type renderer struct {
	pages map[string]*template.Template
}

var pageNames = []string{"index.html", "login_register.html", "about.html", "error.html"}

func newRenderer() (*renderer, error) {
	funcs := template.FuncMap{
		"date": func(t interface{ Format(string) string }) string {
			return t.Format("2006-01-02 15:04:05")
		},
	}

	r := &renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// render writes page with the given status. The page is executed into a
// buffer first so a template failure never produces a half-written 200.
func (r *renderer) render(w http.ResponseWriter, status int, page string, data any) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("executing template %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
