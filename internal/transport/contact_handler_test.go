package transport

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contactBody = `{"name":" Ana ","email":"Ana@Example.com","order_reference":"fp-1a2b3c4d","subject":"Orders","message":"My order never arrived."}`

func TestContact_AnonymousSubmit(t *testing.T) {
	sf := newStorefront(t)

	w := sf.do(http.MethodPost, "/api/contact", "", contactBody)
	require.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, sf.contacts.messages, 1)
	msg := sf.contacts.messages[0]
	assert.Nil(t, msg.UserID)
	assert.Equal(t, "Ana", msg.Name)
	assert.Equal(t, "ana@example.com", msg.Email)
	assert.Equal(t, "orders", msg.Subject)
	assert.Equal(t, "FP-1A2B3C4D", msg.OrderReference)
}

func TestContact_SignedInSenderIsAttached(t *testing.T) {
	sf := newStorefront(t)
	userID := uuid.New()

	w := sf.do(http.MethodPost, "/api/contact", tokenFor(t, userID.String()), contactBody)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, sf.contacts.messages, 1)
	require.NotNil(t, sf.contacts.messages[0].UserID)
	assert.Equal(t, userID, *sf.contacts.messages[0].UserID)
}

func TestContact_Validation(t *testing.T) {
	sf := newStorefront(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"email":"a@b.com","subject":"other","message":"Hello there friend"}`},
		{"bad email", `{"name":"A","email":"nope","subject":"other","message":"Hello there friend"}`},
		{"short message", `{"name":"A","email":"a@b.com","subject":"other","message":"hi"}`},
		{"unknown subject", `{"name":"A","email":"a@b.com","subject":"refunds","message":"Hello there friend"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := sf.do(http.MethodPost, "/api/contact", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "validation_errors")
		})
	}
	assert.Empty(t, sf.contacts.messages)
}
