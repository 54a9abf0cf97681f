// Package web carries the embedded dashboard and terminal pages together
// with their static assets.
package web

import "embed"

// TemplatesFS holds the server-rendered HTML pages.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds css and js served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
