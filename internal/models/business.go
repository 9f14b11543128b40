package models

import (
	"strings"
	"time"
)

// Hours is the opening window of one weekday.
type Hours struct {
	Open   string `json:"open" yaml:"open"`
	Close  string `json:"close" yaml:"close"`
	Closed bool   `json:"closed,omitempty" yaml:"closed"`
}

type Business struct {
	ID                 string           `json:"id" yaml:"id"`
	Name               string           `json:"name" yaml:"name"`
	Category           string           `json:"type" yaml:"type"`
	Services           []string         `json:"services" yaml:"services"`
	Address            string           `json:"address" yaml:"address"`
	Phone              string           `json:"phone" yaml:"phone"`
	Email              string           `json:"email" yaml:"email"`
	Latitude           *float64         `json:"latitude,omitempty" yaml:"latitude"`
	Longitude          *float64         `json:"longitude,omitempty" yaml:"longitude"`
	OpeningHours       map[string]Hours `json:"openingHours" yaml:"opening_hours"`
	AverageServiceTime int              `json:"averageServiceTime" yaml:"average_service_time"` // minutes
	CurrentQueue       int              `json:"currentQueue" yaml:"current_queue"`
	Rating             float64          `json:"rating" yaml:"rating"`
	Image              string           `json:"image,omitempty" yaml:"image"`
	CreatedAt          time.Time        `json:"createdAt" yaml:"-"`
	UpdatedAt          time.Time        `json:"updatedAt" yaml:"-"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (b *Business) HasCoordinates() bool {
	return b.Latitude != nil && b.Longitude != nil
}

// OffersService matches service names case-insensitively.
func (b *Business) OffersService(service string) bool {
	for _, s := range b.Services {
		if strings.EqualFold(s, service) {
			return true
		}
	}
	return false
}

// BusinessUpdate carries the mutable fields of a business. Nil fields are left untouched.
type BusinessUpdate struct {
	Name               *string          `json:"name,omitempty"`
	Category           *string          `json:"type,omitempty"`
	Services           []string         `json:"services,omitempty"`
	Address            *string          `json:"address,omitempty"`
	Phone              *string          `json:"phone,omitempty"`
	Email              *string          `json:"email,omitempty"`
	Latitude           *float64         `json:"latitude,omitempty"`
	Longitude          *float64         `json:"longitude,omitempty"`
	OpeningHours       map[string]Hours `json:"openingHours,omitempty"`
	AverageServiceTime *int             `json:"averageServiceTime,omitempty"`
	Rating             *float64         `json:"rating,omitempty"`
	Image              *string          `json:"image,omitempty"`
}

// Apply copies the set fields onto b.
func (u BusinessUpdate) Apply(b *Business) {
	if u.Name != nil {
		b.Name = *u.Name
	}
	if u.Category != nil {
		b.Category = *u.Category
	}
	if u.Services != nil {
		b.Services = append([]string(nil), u.Services...)
	}
	if u.Address != nil {
		b.Address = *u.Address
	}
	if u.Phone != nil {
		b.Phone = *u.Phone
	}
	if u.Email != nil {
		b.Email = *u.Email
	}
	if u.Latitude != nil {
		b.Latitude = u.Latitude
	}
	if u.Longitude != nil {
		b.Longitude = u.Longitude
	}
	if u.OpeningHours != nil {
		b.OpeningHours = u.OpeningHours
	}
	if u.AverageServiceTime != nil {
		b.AverageServiceTime = *u.AverageServiceTime
	}
	if u.Rating != nil {
		b.Rating = *u.Rating
	}
	if u.Image != nil {
		b.Image = *u.Image
	}
}
