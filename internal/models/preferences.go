package models

import "time"

type Location struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy"`
	ObtainedAt time.Time `json:"timestamp"`
}

// Preferences is the small per-user state kept outside the document store.
type Preferences struct {
	UserID       string    `json:"userId"`
	Theme        string    `json:"theme"`
	LastLocation *Location `json:"userLocation,omitempty"`
	PushToken    string    `json:"pushToken,omitempty"`
}

// ThemeOrDefault returns the stored theme, falling back to light.
func (p *Preferences) ThemeOrDefault() string {
	if p == nil || p.Theme == "" {
		return ThemeLight
	}
	return p.Theme
}

// Notification is an inbound push message.
type Notification struct {
	UserID string            `json:"userId"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

func (n Notification) TitleOrDefault() string {
	if n.Title == "" {
		return DefaultNotificationTitle
	}
	return n.Title
}
