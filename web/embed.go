package web

import (
	"embed"
	"html/template"
	"io/fs"
)

// Templates embeds the HTML pages.
//
//go:embed templates/*.html
var Templates embed.FS

// Static embeds the stylesheet and other public assets.
//
//go:embed static
var Static embed.FS

// ParseTemplates parses every page; gin renders them by file name.
func ParseTemplates() (*template.Template, error) {
	return template.ParseFS(Templates, "templates/*.html")
}

// StaticFS returns the embedded assets rooted at static/.
func StaticFS() fs.FS {
	sub, err := fs.Sub(Static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
