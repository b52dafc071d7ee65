package model

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryAttempt records one fan-out and its aggregate outcome.
// Rows are append-only; nothing updates or deletes them.
type DeliveryAttempt struct {
	ID      uuid.UUID `json:"id" db:"id"`
	Time    time.Time `json:"time" db:"time"`
	Title   string    `json:"title" db:"title"`
	Body    string    `json:"body" db:"body"`
	Image   string    `json:"image" db:"image"`
	Link    string    `json:"link" db:"link"`
	Sent    int       `json:"sent" db:"sent"`
	Failed  int       `json:"failed" db:"failed"`
	Removed int       `json:"removed" db:"removed"`
}
