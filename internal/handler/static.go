package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
)

const assetCacheControl = "public, max-age=86400"

// AssetHandler serves session images from a directory. Unlike an SPA
// handler it has no index fallback: unknown paths are 404.
type AssetHandler struct {
	dir string
}

func NewAssetHandler(dir string) *AssetHandler {
	return &AssetHandler{dir: dir}
}

func (h *AssetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Get the wildcard path from Chi router context
	path := chi.URLParam(r, "*")
	if path == "" {
		http.NotFound(w, r)
		return
	}

	// Cleaning against "/" keeps ".." from escaping dir.
	filePath := filepath.Join(h.dir, filepath.FromSlash(filepath.Clean("/"+path)))

	info, err := os.Stat(filePath)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", assetCacheControl)
	http.ServeFile(w, r, filePath)
}
