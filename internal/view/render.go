// internal/view/render.go
//
// Central view engine: template parsing, func-map injection, and layout
// execution over an fs.FS (normally a component's embedded templates).
//
// Public helpers
// --------------
//   - New            – parse every *.html in the FS once, at startup.
//   - Render         – write rendered HTML to an http.ResponseWriter.
//   - RenderToString – return template.HTML (fragments, tests).
//
// All templates in the FS are parsed as one set so sub-templates
// ({{ template "row" . }}) and a shared layout work out-of-the-box.
//
// execName() chooses the best template to execute:
//   – If the set contains "<name>.html", we run that (file has no define).
//   – Else we fall back to "<name>" (root template defined via {{ define }}).
//
// Style
// -----
// • Oxford commas, two spaces after periods.

package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/yanizio/visitlog/internal/routing"
	"github.com/yanizio/visitlog/internal/viewhelpers"
)

// Engine holds one parsed template set.  Safe for concurrent use.
type Engine struct {
	set *template.Template
}

// New parses every *.html file in fsys.  base is the configured base path
// used by the "url" helper.
func New(fsys fs.FS, base string) (*Engine, error) {
	t, err := template.New("").Funcs(buildFuncMap(base)).ParseFS(fsys, "*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Engine{set: t}, nil
}

// Render executes the named template and streams it to w.  The body is
// rendered into a buffer first so a template error still yields a clean
// 500 instead of half a page.
func (e *Engine) Render(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := e.set.ExecuteTemplate(&buf, execName(e.set, name), data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// RenderToString executes and returns HTML.
func (e *Engine) RenderToString(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := e.set.ExecuteTemplate(&buf, execName(e.set, name), data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

//
// func-map builders
//

func buildFuncMap(base string) template.FuncMap {
	fm := template.FuncMap{
		"dict": dict,
		"url":  func(path string) string { return routing.URL(base, path) },
	}
	for k, v := range viewhelpers.FuncMap() {
		fm[k] = v
	}
	return fm
}

//
// helpers
//

// execName picks the template name to execute.
//
// Priority:
//  1. If the set has "<name>.html" (file-based template), run that.
//  2. Otherwise, fall back to "<name>" (root template defined in code).
func execName(t *template.Template, name string) string {
	if tmpl := t.Lookup(name + ".html"); tmpl != nil {
		return name + ".html"
	}
	return name
}

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}
