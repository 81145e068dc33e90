package handler

import (
	"bytes"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/inam-1906/datock-website/internal/config"
	"github.com/inam-1906/datock-website/internal/middleware"
	"github.com/inam-1906/datock-website/internal/service"
)

// Page describes a public page and its sitemap entry
type Page struct {
	Template    string
	Path        string
	Title       string
	Description string
	ChangeFreq  string
	Priority    string
}

// Pages lists the site's public pages in navigation order
var Pages = []Page{
	{
		Template:    "index",
		Path:        "/",
		Title:       "Home",
		Description: "DaTock builds websites, apps and cloud systems for growing businesses.",
		ChangeFreq:  "weekly",
		Priority:    "1.0",
	},
	{
		Template:    "services",
		Path:        "/services",
		Title:       "Services",
		Description: "Web development, mobile apps, cloud infrastructure and consulting from DaTock.",
		ChangeFreq:  "monthly",
		Priority:    "0.8",
	},
	{
		Template:    "about",
		Path:        "/about",
		Title:       "About",
		Description: "Who we are and how DaTock works with its clients.",
		ChangeFreq:  "monthly",
		Priority:    "0.7",
	},
	{
		Template:    "contact",
		Path:        "/contact",
		Title:       "Contact",
		Description: "Tell DaTock about your project and we will get back to you.",
		ChangeFreq:  "monthly",
		Priority:    "0.8",
	},
	{
		Template:    "privacy",
		Path:        "/privacy",
		Title:       "Privacy Policy",
		Description: "How DaTock handles the information you send through this website.",
		ChangeFreq:  "yearly",
		Priority:    "0.3",
	},
}

// NotFoundTemplate is rendered for unknown paths
const NotFoundTemplate = "not_found"

// Templates lists every page template the handlers render
func Templates() []string {
	names := make([]string, 0, len(Pages)+1)
	for _, p := range Pages {
		names = append(names, p.Template)
	}
	return append(names, NotFoundTemplate)
}

// PageData is passed to every page template
type PageData struct {
	Title       string
	Description string
	Site        config.SiteConfig
	Path        string
	CSRFToken   string
	Limits      service.Limits
	Year        int
}

func (h *Handler) pageData(r *http.Request, title, description string) PageData {
	return PageData{
		Title:       title,
		Description: description,
		Site:        h.cfg.Site,
		Path:        r.URL.Path,
		CSRFToken:   csrf.Token(r),
		Limits:      h.contactSvc.Limits(),
		Year:        h.now().Year(),
	}
}

// Page returns a handler rendering p
func (h *Handler) Page(p Page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, http.StatusOK, p.Template, h.pageData(r, p.Title, p.Description))
	}
}

// NotFound renders the 404 page
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, NotFoundTemplate, h.pageData(r, "Page Not Found", ""))
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data PageData) {
	var buf bytes.Buffer
	if err := h.renderer.Page(&buf, name, data); err != nil {
		h.log.Error().
			Err(err).
			Str("page", name).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("Failed to render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
