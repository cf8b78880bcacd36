package server

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog/log"
)

const contentTypeHTML = "text/html; charset=utf-8"

//go:embed templates/*
var templateFiles embed.FS

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses a page together with the shared layout.
func ParseTemplate(name string) (*template.Template, error) {
	return template.New(name).ParseFS(TemplateFilesFS(), "layout.html", name)
}

func mustParseTemplate(name string) *template.Template {
	tmpl, err := ParseTemplate(name)
	if err != nil {
		panic("Failed to parse " + name + " template: " + err.Error())
	}
	return tmpl
}

// renderTemplate executes tmpl into a buffer first so a failing template
// never leaves a half written page behind.
func renderTemplate(w http.ResponseWriter, status int, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		log.Err(err).Str("template", tmpl.Name()).Msg("Failed to render template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
