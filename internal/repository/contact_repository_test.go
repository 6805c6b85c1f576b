package repository

import (
	"context"
	"testing"
	"time"

	"fireplay/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactRepository_CreateAnonymous(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	msg := &domain.ContactMessage{
		ID:        uuid.New(),
		Name:      "Ana",
		Email:     "ana@example.com",
		Subject:   "support",
		Message:   "Where is my key?",
		CreatedAt: time.Now(),
	}

	mock.ExpectExec("INSERT INTO contact_messages").
		WithArgs(msg.ID, nil, "Ana", "ana@example.com", "", "support", "Where is my key?", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewContactRepository(db).Create(context.Background(), msg))
	assert.NoError(t, mock.ExpectationsWereMet())
}
