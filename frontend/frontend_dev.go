//go:build dev

// In dev builds templates and the stylesheet come straight from disk, so
// edits show up on refresh. Run the server from the repository root.
package frontend

import (
	"io/fs"
	"net/http"
	"os"
)

func Templates() fs.FS {
	return os.DirFS("frontend")
}

var CSS http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, "frontend/static/app.css")
})
