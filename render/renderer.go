// Package render は埋め込みテンプレートから HTML 画面を生成します。
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"stockroom/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// 画面名。templates/<name>.html に対応します。
const (
	PageProducts    = "products"
	PageProductForm = "product_form"
	PageVendors     = "vendors"
)

var funcs = template.FuncMap{
	"fieldErrors": func(s model.FormState, field string) []string {
		return s.Errors[field]
	},
}

// Renderer は画面ごとに layout と組み合わせたテンプレートを保持します。
type Renderer struct {
	pages map[string]*template.Template
}

// New は全画面のテンプレートを解析します。
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range []string{PageProducts, PageProductForm, PageVendors} {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// MustNew は New と同じですが、失敗すると panic します。
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Execute は画面を w に書き出します。
func (r *Renderer) Execute(w io.Writer, page string, data interface{}) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

// HTML は画面をバッファに生成してからステータスコード付きで返します。
// 生成に失敗した場合は 500 を返します。
func (r *Renderer) HTML(w http.ResponseWriter, status int, page string, data interface{}) error {
	var buf bytes.Buffer
	if err := r.Execute(&buf, page, data); err != nil {
		http.Error(w, "Failed to render page.", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
