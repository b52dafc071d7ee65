package model

import (
	"encoding/json"
	"strings"
)

const (
	defaultTitle = "Notification"
	defaultLink  = "/"
)

// Message is the authored notification delivered to every subscriber.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image"`
	Link  string `json:"link"`
}

// Normalize trims the fields and applies the defaults the service worker
// expects: a placeholder title and the root path as click target.
func (m *Message) Normalize() {
	m.Title = strings.TrimSpace(m.Title)
	m.Body = strings.TrimSpace(m.Body)
	m.Image = strings.TrimSpace(m.Image)
	m.Link = strings.TrimSpace(m.Link)
	if m.Title == "" {
		m.Title = defaultTitle
	}
	if m.Link == "" {
		m.Link = defaultLink
	}
}

// Payload serializes the message once; every delivery in a fan-out uses
// the same bytes.
func (m *Message) Payload() ([]byte, error) {
	return json.Marshal(m)
}

// DispatchResult aggregates one fan-out. Endpoints removed after a
// 404/410 are counted both failed and removed.
type DispatchResult struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Removed int `json:"removed"`
}
