package handler

import (
	"errors"
	"net/http"

	"github.com/inam-1906/datock-website/internal/middleware"
	"github.com/inam-1906/datock-website/internal/service"
)

// Contact form responses
const (
	MsgInvalidBody    = "Invalid request body."
	MsgInvalidFields  = "Please fill in all required fields correctly."
	MsgDeliveryFailed = "Failed to send email. Please try again."
	MsgSent           = "Email sent successfully!"
)

// SendEmail relays a contact form submission to the site's mailbox
func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	if limit := h.cfg.Contact.MaxBodyBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	var req service.Inquiry
	if err := readJSON(r, &req); err != nil {
		writeResult(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}

	err := h.contactSvc.Submit(r.Context(), req)
	if err == nil {
		writeResult(w, http.StatusOK, MsgSent)
		return
	}

	var verr *service.ValidationError
	if errors.Is(err, service.ErrInvalidInquiry) && errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Message: MsgInvalidFields,
			Errors:  verr.Fields,
		})
		return
	}

	h.log.Error().
		Err(err).
		Str("provider", h.contactSvc.SenderName()).
		Str("client_ip", middleware.ClientIP(r)).
		Str("request_id", middleware.GetRequestID(r.Context())).
		Msg("Failed to send inquiry")
	writeResult(w, http.StatusInternalServerError, MsgDeliveryFailed)
}

// SendEmailMethodNotAllowed answers non-POST requests to /send-email.
// Without it the catch-all 404 page would shadow the mux's 405.
func (h *Handler) SendEmailMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	writeResult(w, http.StatusMethodNotAllowed, "Method not allowed.")
}
