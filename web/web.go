// Package web embeds the site's templates and static assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates static
var files embed.FS

// Templates returns the template tree rooted at templates/
func Templates() fs.FS {
	return sub("templates")
}

// Static returns the static asset tree rooted at static/
func Static() fs.FS {
	return sub("static")
}

func sub(dir string) fs.FS {
	f, err := fs.Sub(files, dir)
	if err != nil {
		panic(err)
	}
	return f
}
