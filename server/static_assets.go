package server

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed static
var embeddedStatic embed.FS

// Assets are not fingerprinted, so browsers revalidate after a few minutes.
const staticCacheControl = "public, max-age=300, must-revalidate"

// assetHandler serves the embedded stylesheet and scripts below RouteStatic.
// Only regular files are served; directory listings are a 404.
type assetHandler struct {
	assets fs.FS
	files  http.Handler
}

func newAssetHandler() (*assetHandler, error) {
	assets, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		return nil, fmt.Errorf("[server newAssetHandler] %w", err)
	}
	return &assetHandler{
		assets: assets,
		files:  http.StripPrefix(RouteStatic, http.FileServerFS(assets)),
	}, nil
}

func (h *assetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, RouteStatic)
	info, err := fs.Stat(h.assets, name)
	if name == "" || err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", staticCacheControl)
	h.files.ServeHTTP(w, r)
}
