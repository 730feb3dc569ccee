package handlers

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/camden-git/retrocam/media"
	"github.com/camden-git/retrocam/utils"
	log "github.com/sirupsen/logrus"
)

// AssetServer serves images of one asset type out of the media store.
// the request path must sit under routePrefix; the remainder is the file
// name inside subDir. example usage in main.go:
//
//	r.Get("/api/demo/*", AssetServer(store, "/api/demo/", "demo"))
func AssetServer(store media.Store, routePrefix, subDir string) http.HandlerFunc {
	log.Printf("Serving assets for '%s*' from store directory: %s", routePrefix, subDir)
	cacheDuration := 24 * time.Hour

	return func(w http.ResponseWriter, r *http.Request) {
		// e.g., for route /api/demo/* and request /api/demo/cat-1.webp, extract "cat-1.webp"
		name := strings.TrimPrefix(r.URL.Path, routePrefix)
		if name == "" || strings.Contains(name, "..") || !utils.IsRasterImage(name) {
			WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid asset path")
			return
		}

		rc, info, err := store.Get(path.Join(subDir, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				http.NotFound(w, r)
				return
			}
			log.Printf("SECURITY/IO: asset request '%s' refused: %v", r.URL.Path, err)
			WriteAPIError(w, http.StatusForbidden, CodeInvalidRequest, "Forbidden")
			return
		}
		defer rc.Close()

		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(cacheDuration.Seconds())))
		w.Header().Set("Expires", time.Now().Add(cacheDuration).Format(http.TimeFormat))

		if rs, ok := rc.(io.ReadSeeker); ok {
			http.ServeContent(w, r, info.Name(), info.ModTime(), rs)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(info.Size()))
		if _, err := io.Copy(w, rc); err != nil {
			log.Printf("Error streaming asset %s: %v", r.URL.Path, err)
		}
	}
}
