package transport

import (
	"errors"
	"net/http"
	"strings"

	"fireplay/internal/domain"
	"fireplay/internal/middleware"
	"fireplay/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContactRequest is the contact form payload
type ContactRequest struct {
	Name           string `json:"name" validate:"required,max=120"`
	Email          string `json:"email" validate:"required,email"`
	OrderReference string `json:"order_reference" validate:"max=32"`
	Subject        string `json:"subject" validate:"required"`
	Message        string `json:"message" validate:"required,min=10,max=5000"`
}

// ContactHandler accepts contact form messages
type ContactHandler struct {
	contact service.ContactService
	logger  *zap.Logger
}

// NewContactHandler creates a ContactHandler
func NewContactHandler(contact service.ContactService, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{contact: contact, logger: logger}
}

// RegisterRoutes registers the contact route; signing in is optional
func (h *ContactHandler) RegisterRoutes(r chi.Router, optionalAuth func(http.Handler) http.Handler) {
	r.With(optionalAuth).Post("/api/contact", h.Submit)
}

func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	var userID *uuid.UUID
	if raw, ok := middleware.GetUserID(r.Context()); ok {
		if id, err := uuid.Parse(raw); err == nil {
			userID = &id
		}
	}

	msg, err := h.contact.Submit(r.Context(), userID, service.ContactInput{
		Name:           req.Name,
		Email:          req.Email,
		OrderReference: req.OrderReference,
		Subject:        req.Subject,
		Message:        req.Message,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidSubject) {
			middleware.RespondWithValidationErrors(w, []middleware.ValidationError{{
				Field:   "Subject",
				Message: "Value must be one of: " + strings.Join(domain.ContactSubjects, " "),
			}})
			return
		}
		h.logger.Error("Failed to store contact message", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, map[string]string{
		"id":      msg.ID.String(),
		"message": "Thanks for reaching out, we will get back to you soon",
	})
}
