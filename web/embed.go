package web

import "embed"

// TemplatesFS embeds the page shell and the HTMX partials.
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the stylesheet and the client-side event glue.
//go:embed static/*
var StaticFS embed.FS
