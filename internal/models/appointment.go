package models

import "time"

type Appointment struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	UserName          string    `json:"userName"`
	UserEmail         string    `json:"userEmail"`
	BusinessID        string    `json:"businessId"`
	BusinessName      string    `json:"businessName"`
	Service           string    `json:"service"`
	AppointmentDate   time.Time `json:"appointmentDate"`
	Status            string    `json:"status"` // pending, confirmed, in-progress, completed, cancelled
	QueuePosition     int       `json:"queuePosition"`
	EstimatedWaitTime int       `json:"estimatedWaitTime"` // minutes, frozen at booking time
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// IsUpcoming reports whether the appointment is confirmed and still ahead of now.
func (a *Appointment) IsUpcoming(now time.Time) bool {
	return a.Status == StatusConfirmed && a.AppointmentDate.After(now)
}

// AppointmentUpdate is a partial update. Nil fields are left untouched.
type AppointmentUpdate struct {
	Service         *string    `json:"service,omitempty"`
	AppointmentDate *time.Time `json:"appointmentDate,omitempty"`
	Status          *string    `json:"status,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	QueuePosition   *int       `json:"queuePosition,omitempty"`
}

func (u AppointmentUpdate) Empty() bool {
	return u.Service == nil && u.AppointmentDate == nil && u.Status == nil && u.Notes == nil && u.QueuePosition == nil
}

// BookingRequest is what a signed-in user submits from the booking form.
type BookingRequest struct {
	BusinessID string `json:"businessId"`
	Service    string `json:"service"`
	Date       string `json:"date"` // YYYY-MM-DD
	Time       string `json:"time"` // HH:MM
	Notes      string `json:"notes,omitempty"`
}

// DashboardStats summarises one user's appointments.
type DashboardStats struct {
	TotalAppointments    int `json:"totalAppointments"`
	UpcomingAppointments int `json:"upcomingAppointments"`
	BusinessesVisited    int `json:"businessesVisited"`
	CurrentQueuePosition int `json:"currentQueuePosition"`
}
