package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestContact_SubmitNormalizes(t *testing.T) {
	repo := &mockContactRepository{}
	svc := NewContactService(repo, zap.NewNop())
	userID := uuid.New()

	msg, err := svc.Submit(context.Background(), &userID, ContactInput{
		Name:           " Ana ",
		Email:          "Ana@Example.com",
		OrderReference: "fp-1a2b3c4d",
		Subject:        "Billing",
		Message:        "Charged twice",
	})
	require.NoError(t, err)

	assert.Equal(t, "Ana", msg.Name)
	assert.Equal(t, "ana@example.com", msg.Email)
	assert.Equal(t, "FP-1A2B3C4D", msg.OrderReference)
	assert.Equal(t, "billing", msg.Subject)
	assert.Equal(t, &userID, msg.UserID)
	require.Len(t, repo.messages, 1)
}

func TestContact_AnonymousAndInvalidSubject(t *testing.T) {
	repo := &mockContactRepository{}
	svc := NewContactService(repo, zap.NewNop())

	msg, err := svc.Submit(context.Background(), nil, ContactInput{Name: "A", Email: "a@b.com", Subject: "other", Message: "hi"})
	require.NoError(t, err)
	assert.Nil(t, msg.UserID)

	_, err = svc.Submit(context.Background(), nil, ContactInput{Name: "A", Email: "a@b.com", Subject: "refunds", Message: "hi"})
	assert.ErrorIs(t, err, ErrInvalidSubject)
	assert.Len(t, repo.messages, 1)
}
