package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	SubscriptionStatusSent   = "sent"
	SubscriptionStatusFailed = "failed"
)

// Subscription is one registered push endpoint. Endpoint is the natural
// key: re-registering the same endpoint overwrites the row, key material
// included.
type Subscription struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Endpoint     string    `json:"endpoint" db:"endpoint"`
	P256dh       string    `json:"-" db:"p256dh"`
	Auth         string    `json:"-" db:"auth"`
	UserAgent    string    `json:"user_agent" db:"user_agent"`
	Device       string    `json:"device" db:"device"`
	IP           string    `json:"ip" db:"ip"`
	City         string    `json:"city" db:"city"`
	Country      string    `json:"country" db:"country"`
	Nickname     string    `json:"nickname" db:"nickname"`
	Email        string    `json:"email" db:"email"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
	LastStatus   string    `json:"last_status" db:"last_status"`
	LastError    string    `json:"last_error" db:"last_error"`
}

// SubscriberView is the read-only projection exposed to the admin UI.
// It deliberately omits the endpoint and encryption keys.
type SubscriberView struct {
	IP           string    `json:"ip"`
	Device       string    `json:"device"`
	Nickname     string    `json:"nickname"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"subscribed_at"`
	City         string    `json:"city"`
	Country      string    `json:"country"`
	LastStatus   string    `json:"last_status"`
	LastError    string    `json:"last_error"`
}

// View returns the key-material-free projection of s.
func (s *Subscription) View() *SubscriberView {
	return &SubscriberView{
		IP:           s.IP,
		Device:       s.Device,
		Nickname:     s.Nickname,
		Email:        s.Email,
		RegisteredAt: s.RegisteredAt,
		City:         s.City,
		Country:      s.Country,
		LastStatus:   s.LastStatus,
		LastError:    s.LastError,
	}
}

// RegisterRequest is the browser-supplied subscription payload.
type RegisterRequest struct {
	Subscription SubscriptionPayload `json:"subscription" binding:"required"`
	Nickname     string              `json:"nickname"`
	Email        string              `json:"email" binding:"omitempty,email"`
	UserAgent    string              `json:"ua"`
}

type SubscriptionPayload struct {
	Endpoint string           `json:"endpoint" binding:"required,url"`
	Keys     SubscriptionKeys `json:"keys" binding:"required"`
}

type SubscriptionKeys struct {
	P256dh string `json:"p256dh" binding:"required,base64url"`
	Auth   string `json:"auth" binding:"required,base64url"`
}
