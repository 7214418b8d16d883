package gateway

import (
	"embed"
	"net/http"
)

//go:embed ui/index.html
var gatewayUI embed.FS

// handleUIIndex serves the single-page dashboard. Deep links under /ui/
// all get index.html; the page talks to the REST API and /events itself.
func (gw *Gateway) handleUIIndex(w http.ResponseWriter, r *http.Request) {
	data, err := gatewayUI.ReadFile("ui/index.html")
	if err != nil {
		http.Error(w, "UI not available", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}
