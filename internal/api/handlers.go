// Package api provides HTTP handlers for the registration and
// existence-check endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"whatscoach/internal/coach"
	"whatscoach/internal/directory"
	"whatscoach/internal/models"
	"whatscoach/internal/phone"
)

// checkUserHandler handles POST /api/auth/check-user.
func (s *Server) checkUserHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}

	var req models.CheckUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.checkUserHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.PhoneNumber == "" {
		slog.Warn("Server.checkUserHandler: phone number missing")
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Phone number is required"))
		return
	}

	canonical := phone.Normalize(req.PhoneNumber)
	user, err := s.users.GetUserByPhone(r.Context(), canonical)
	if err != nil {
		slog.Error("Server.checkUserHandler: directory lookup failed", "error", err, "phone", canonical)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Database error occurred"))
		return
	}

	slog.Debug("Server.checkUserHandler: lookup complete", "phone", canonical, "exists", user != nil)
	writeJSONResponse(w, http.StatusOK, models.CheckUserResponse{Exists: user != nil, User: user})
}

// registerHandler handles POST /api/auth/register.
func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}

	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.registerHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.registerHandler: validation failed", "error", err)
		s.countRegistration("validation_error")
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	// Configuration preflight: without a sending address there is no point
	// persisting a registration nobody can be welcomed to.
	if !s.messagingConfigured {
		slog.Error("Server.registerHandler: messaging sending address not configured")
		s.countRegistration("config_error")
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("WhatsApp configuration error"))
		return
	}

	canonical := phone.Normalize(req.PhoneNumber)
	whatsappAddr := phone.WhatsAppAddress(req.PhoneNumber)

	existing, err := s.users.GetUserByPhone(r.Context(), canonical)
	if err != nil {
		slog.Error("Server.registerHandler: directory lookup failed", "error", err, "phone", canonical)
		s.countRegistration("storage_error")
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to register user"))
		return
	}
	if existing != nil {
		slog.Warn("Server.registerHandler: user already registered", "phone", canonical, "id", existing.ID)
		s.countRegistration("conflict")
		writeJSONResponse(w, http.StatusBadRequest, models.Error("User with this phone number already registered"))
		return
	}

	user := directory.NewUser(canonical, req.Name, whatsappAddr)
	if err := s.users.CreateUser(r.Context(), user); err != nil {
		slog.Error("Server.registerHandler: failed to persist user", "error", err, "phone", canonical)
		s.countRegistration("storage_error")
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to register user"))
		return
	}

	// The record is persisted at this point. A failed welcome send does not
	// roll it back; the participant can still message the coach directly.
	if err := s.sender.SendMessage(r.Context(), whatsappAddr, coach.WelcomeMessage(req.Name)); err != nil {
		slog.Error("Server.registerHandler: welcome message failed", "error", err, "to", whatsappAddr)
		s.countRegistration("messaging_error")
		if errors.Is(err, models.ErrWhatsAppChannel) {
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("WhatsApp configuration error. Please contact support."))
			return
		}
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to register user"))
		return
	}

	slog.Info("Server.registerHandler: user registered", "id", user.ID, "phone", canonical)
	s.countRegistration("success")
	writeJSONResponse(w, http.StatusOK, models.RegisterResponse{
		Success: true,
		Message: "Registration successful! Check WhatsApp for your welcome message.",
		UserID:  user.ID,
	})
}

func (s *Server) countRegistration(outcome string) {
	if s.metrics != nil {
		s.metrics.Registrations.WithLabelValues(outcome).Inc()
	}
}
