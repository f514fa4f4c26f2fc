package claim

import (
	"embed"
	"html/template"
)

//go:embed static/*.html
var templateFS embed.FS

//go:embed static/app.css
var appCSS []byte

var pageTemplates = template.Must(template.ParseFS(templateFS, "static/*.html"))
