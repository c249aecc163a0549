package web

import "embed"

// TemplatesFS embeds the dashboard page and its partials.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the dashboard script and stylesheet.
//
//go:embed static/*
var StaticFS embed.FS
