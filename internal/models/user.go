package models

import "time"

// Identity is the signed-in user as exposed to the rest of the app.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL,omitempty"`
	Provider    string `json:"provider"`
}

// BookingName returns the name written into new appointments.
func (i *Identity) BookingName() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	if i.Email != "" {
		return i.Email
	}
	return DefaultUserName
}

// User is the stored account record.
type User struct {
	UID          string
	Email        string
	DisplayName  string
	PhotoURL     string
	Provider     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) Identity() *Identity {
	return &Identity{
		UID:         u.UID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		PhotoURL:    u.PhotoURL,
		Provider:    u.Provider,
	}
}
