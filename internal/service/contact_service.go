package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"fireplay/internal/domain"
	"fireplay/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidSubject = errors.New("unknown contact subject")

// ContactInput is a contact form submission
type ContactInput struct {
	Name           string
	Email          string
	OrderReference string
	Subject        string
	Message        string
}

// ContactService stores contact form messages
type ContactService interface {
	Submit(ctx context.Context, userID *uuid.UUID, in ContactInput) (*domain.ContactMessage, error)
}

type contactService struct {
	repo   repository.ContactRepository
	logger *zap.Logger
}

func NewContactService(repo repository.ContactRepository, logger *zap.Logger) ContactService {
	return &contactService{repo: repo, logger: logger}
}

// Submit persists a message; signed-in senders have their id attached
func (s *contactService) Submit(ctx context.Context, userID *uuid.UUID, in ContactInput) (*domain.ContactMessage, error) {
	subject := strings.ToLower(strings.TrimSpace(in.Subject))
	if !slices.Contains(domain.ContactSubjects, subject) {
		return nil, ErrInvalidSubject
	}

	msg := &domain.ContactMessage{
		ID:             uuid.New(),
		UserID:         userID,
		Name:           strings.TrimSpace(in.Name),
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
		OrderReference: strings.ToUpper(strings.TrimSpace(in.OrderReference)),
		Subject:        subject,
		Message:        strings.TrimSpace(in.Message),
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save contact message: %w", err)
	}

	s.logger.Info("Contact message received",
		zap.String("message_id", msg.ID.String()),
		zap.String("subject", msg.Subject),
		zap.Bool("signed_in", userID != nil),
	)

	return msg, nil
}
