package web

import (
	"bytes"
	"embed"
	"html/template"

	"github.com/example/bookingwidget/internal/infrastructure/config"
)

//go:embed templates/*.html static/*
var assets embed.FS

const fullCalendarCoreCSS = "https://cdnjs.cloudflare.com/ajax/libs/fullcalendar/2.6.1/fullcalendar.min.css"

func ParseTemplates() (*template.Template, error) {
	return template.ParseFS(assets, "templates/*.html")
}

func renderFragment(t *template.Template, name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// stylesheets lists the bundles a mount links, in load order.
func stylesheets(s config.Styling) []string {
	var out []string
	if s.IncludeCore() {
		out = append(out, fullCalendarCoreCSS)
	}
	if s.IncludeTheme() {
		out = append(out, "/static/fullcalendar-theme.css")
	}
	if s.IncludeGeneral() {
		out = append(out, "/static/bookingwidget.css")
	}
	return out
}
