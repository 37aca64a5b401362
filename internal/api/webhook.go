// Package api provides the WhatsApp webhook handlers.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"whatscoach/internal/models"
)

// twimlAck is the empty response envelope the transport expects on every
// acknowledged webhook delivery.
const twimlAck = `<?xml version="1.0" encoding="UTF-8"?>
<Response></Response>`

// statusBanner answers the transport's webhook verification GET.
const statusBanner = "WhatsApp AI Coach Webhook is running! 🤖"

// webhookStatusHandler handles GET /api/webhook/whatsapp (liveness check).
func (s *Server) webhookStatusHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(statusBanner)); err != nil {
		slog.Error("Server.webhookStatusHandler: failed to write banner", "error", err)
	}
}

// webhookHandler handles POST /api/webhook/whatsapp: one inbound message
// from the transport, form-encoded.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.Warn("Server.webhookHandler: failed to parse form body", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	msg := models.InboundMessage{
		From:        r.PostFormValue("From"),
		Body:        r.PostFormValue("Body"),
		ProfileName: r.PostFormValue("ProfileName"),
	}

	if err := s.coach.HandleInbound(r.Context(), msg); err != nil {
		if errors.Is(err, models.ErrMalformedEvent) {
			slog.Warn("Server.webhookHandler: malformed event", "from_set", msg.From != "", "body_set", msg.Body != "")
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		// The coach already attempted the apology fallback; the transport
		// only sees a generic failure status.
		slog.Error("Server.webhookHandler: turn failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(twimlAck)); err != nil {
		slog.Error("Server.webhookHandler: failed to write acknowledgment", "error", err)
	}
}
