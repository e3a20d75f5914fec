//go:build !dev

// Package frontend carries the templates and static assets compiled into
// the binary. Size and modtime constants for the stylesheet are kept
// current by ./embed.sh.
package frontend

import (
	"embed"
	"io/fs"
	"net/http"
	"time"

	"vimagination.zapto.org/httpembed"
)

//go:embed templates
var templates embed.FS

//go:embed static/app.css.gz
var appCSS []byte

const (
	cssSize    = 2722
	cssModTime = 1787920613
)

// Templates is the template tree, rooted so paths start "templates/".
func Templates() fs.FS {
	return templates
}

// CSS serves the stylesheet, compressed or not per the request.
var CSS http.Handler = httpembed.HandleBuffer("app.css", appCSS, cssSize, time.Unix(cssModTime, 0))
