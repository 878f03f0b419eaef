package web

import (
	"net/http"
	"path/filepath"
)

// ServeChat serves the chat page HTML file
func ServeChat(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	chatPath := filepath.Join("web", "chat.html")
	http.ServeFile(w, r, chatPath)
}
