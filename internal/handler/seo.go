package handler

import (
	"bytes"
	"net/http"

	"github.com/inam-1906/datock-website/internal/middleware"
)

type sitemapData struct {
	BaseURL string
	Pages   []Page
}

// Sitemap serves sitemap.xml listing every public page
func (h *Handler) Sitemap(w http.ResponseWriter, r *http.Request) {
	h.text(w, r, "sitemap.xml", "application/xml; charset=utf-8", sitemapData{
		BaseURL: h.cfg.Site.BaseURL,
		Pages:   Pages,
	})
}

// Robots serves robots.txt
func (h *Handler) Robots(w http.ResponseWriter, r *http.Request) {
	h.text(w, r, "robots.txt", "text/plain; charset=utf-8", sitemapData{
		BaseURL: h.cfg.Site.BaseURL,
	})
}

func (h *Handler) text(w http.ResponseWriter, r *http.Request, name, contentType string, data any) {
	var buf bytes.Buffer
	if err := h.renderer.Text(&buf, name, data); err != nil {
		h.log.Error().
			Err(err).
			Str("template", name).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("Failed to render text template")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	_, _ = buf.WriteTo(w)
}
