package frontend

import (
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/jo-hoe/takziah/internal/backend/card"
	"github.com/labstack/echo/v4"
)

const viewsPattern = "views/*.html"

var (
	//go:embed views/*.html
	templateFS embed.FS

	//go:embed views/icon.svg
	assetsFS embed.FS
)

type Template struct {
	templates *template.Template
}

func newTemplate() *Template {
	return &Template{
		templates: template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, viewsPattern)),
	}
}

func (t *Template) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

var templateFuncs = template.FuncMap{
	"downloadName": card.DownloadName,
	"date": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("2 Jan 2006")
	},
}
