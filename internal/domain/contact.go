package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContactSubjects lists the accepted contact form subjects
var ContactSubjects = []string{"support", "billing", "orders", "other"}

// ContactMessage is a message sent through the contact form
type ContactMessage struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	UserID         *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	Name           string     `json:"name" db:"name"`
	Email          string     `json:"email" db:"email"`
	OrderReference string     `json:"order_reference,omitempty" db:"order_reference"`
	Subject        string     `json:"subject" db:"subject"`
	Message        string     `json:"message" db:"message"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}
