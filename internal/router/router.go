package router

import (
	"net/http"

	"github.com/inam-1906/datock-website/internal/config"
	"github.com/inam-1906/datock-website/internal/handler"
	"github.com/inam-1906/datock-website/internal/middleware"
	"github.com/inam-1906/datock-website/web"
)

// New creates and configures the HTTP router
func New(h *handler.Handler, mw *middleware.Middleware, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoints
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)

	// Pages
	for _, p := range handler.Pages {
		pattern := "GET " + p.Path
		if p.Path == "/" {
			pattern = "GET /{$}"
		}
		mux.HandleFunc(pattern, h.Page(p))
	}

	// SEO
	mux.HandleFunc("GET /sitemap.xml", h.Sitemap)
	mux.HandleFunc("GET /robots.txt", h.Robots)

	// Contact form
	mux.HandleFunc("POST /send-email", h.SendEmail)
	mux.HandleFunc("/send-email", h.SendEmailMethodNotAllowed)

	// Static assets
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(web.Static())))

	// Everything else
	mux.HandleFunc("/", h.NotFound)

	// Apply middleware stack
	var handler http.Handler = mux

	// CSRF protection for the contact form
	handler = mw.CSRF()(handler)

	// Fresh assets on every reload while developing
	if cfg.Site.DevMode {
		handler = mw.NoCache(handler)
	}

	// Security headers
	handler = mw.SecurityHeaders(handler)

	// Request logging
	handler = mw.Logger(handler)

	// Timing
	handler = mw.Timing(handler)

	// Request ID
	handler = mw.RequestID(handler)

	// Panic recovery (outermost)
	handler = mw.Recover(handler)

	return handler
}
