// Package ui holds the HTML documentation page of the record store.
package ui

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var static embed.FS

// GetHandler serves the files under static/ from the site root, so a request
// for "/" gets index.html.
func GetHandler() http.Handler {
	root, err := fs.Sub(static, "static")
	if err != nil {
		// static/ is part of the binary.
		panic(err)
	}
	return http.FileServerFS(root)
}
