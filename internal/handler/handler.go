package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/inam-1906/datock-website/internal/config"
	"github.com/inam-1906/datock-website/internal/email"
	"github.com/inam-1906/datock-website/internal/logger"
	"github.com/inam-1906/datock-website/internal/render"
	"github.com/inam-1906/datock-website/internal/service"
)

// Version is reported by the health endpoint. Overridden at build time with
// -ldflags "-X github.com/inam-1906/datock-website/internal/handler.Version=..."
var Version = "0.1.0"

// Handler holds all HTTP handlers
type Handler struct {
	log        *logger.Logger
	cfg        *config.Config
	renderer   *render.Renderer
	contactSvc *service.ContactService
	sender     email.Sender
	now        func() time.Time
}

// New creates a new Handler instance
func New(log *logger.Logger, cfg *config.Config, renderer *render.Renderer, contactSvc *service.ContactService, sender email.Sender) *Handler {
	return &Handler{
		log:        log.WithComponent("handler"),
		cfg:        cfg,
		renderer:   renderer,
		contactSvc: contactSvc,
		sender:     sender,
		now:        time.Now,
	}
}

// Response is the JSON body returned by /send-email
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeResult(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: status < 400, Message: message})
}

func readJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return err
	}
	if decoder.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
