// Package queue derives queue positions, wait times and booking predictions from the
// in-memory appointment and business lists.
package queue

import (
	"fmt"
	"time"

	"queueaway/internal/models"
)

// Position returns the live queue position of the appointment: the number of confirmed
// appointments at the same business scheduled at or before it. Appointments sharing the
// exact same time count each other. Returns 0 if id is not in the list.
func Position(appointments []*models.Appointment, id string) int {
	target := find(appointments, id)
	if target == nil {
		return 0
	}

	position := 0
	for _, a := range appointments {
		if a.BusinessID == target.BusinessID &&
			a.Status == models.StatusConfirmed &&
			!a.AppointmentDate.After(target.AppointmentDate) {
			position++
		}
	}
	return position
}

// WaitTime is the live position times the owning business's average service time, in
// minutes. Returns 0 if the appointment or its business is missing.
func WaitTime(appointments []*models.Appointment, businesses []*models.Business, id string) int {
	target := find(appointments, id)
	if target == nil {
		return 0
	}
	for _, b := range businesses {
		if b.ID == target.BusinessID {
			return Position(appointments, id) * b.AverageServiceTime
		}
	}
	return 0
}

// Prediction is the queue estimate frozen into an appointment when it is booked.
type Prediction struct {
	Position    int `json:"queuePosition"`
	WaitMinutes int `json:"estimatedWaitTime"`
}

// Predict places a new booking at the back of the business's current queue.
func Predict(b *models.Business) Prediction {
	position := b.CurrentQueue + 1
	return Prediction{Position: position, WaitMinutes: position * b.AverageServiceTime}
}

// UserAppointments keeps the appointments owned by uid, preserving order.
func UserAppointments(appointments []*models.Appointment, uid string) []*models.Appointment {
	out := []*models.Appointment{}
	if uid == "" {
		return out
	}
	for _, a := range appointments {
		if a.UserID == uid {
			out = append(out, a)
		}
	}
	return out
}

// Dashboard summarises a user's appointments. The current queue position is the live
// position of the first upcoming appointment in list order.
func Dashboard(userAppointments []*models.Appointment, position func(id string) int, now time.Time) models.DashboardStats {
	stats := models.DashboardStats{TotalAppointments: len(userAppointments)}

	visited := make(map[string]struct{})
	var next *models.Appointment
	for _, a := range userAppointments {
		visited[a.BusinessID] = struct{}{}
		if a.IsUpcoming(now) {
			stats.UpcomingAppointments++
			if next == nil {
				next = a
			}
		}
	}
	stats.BusinessesVisited = len(visited)
	if next != nil && position != nil {
		stats.CurrentQueuePosition = position(next.ID)
	}
	return stats
}

// TimeSlots lists the bookable times of day, 09:00 through 18:30.
func TimeSlots() []string {
	slots := make([]string, 0, (models.SlotEndHour-models.SlotStartHour+1)*60/models.SlotStepMinutes)
	for h := models.SlotStartHour; h <= models.SlotEndHour; h++ {
		for m := 0; m < 60; m += models.SlotStepMinutes {
			slots = append(slots, fmt.Sprintf("%02d:%02d", h, m))
		}
	}
	return slots
}

// IsValidSlot reports whether slot is one of TimeSlots.
func IsValidSlot(slot string) bool {
	for _, s := range TimeSlots() {
		if s == slot {
			return true
		}
	}
	return false
}

// DateOptions returns the next days dates starting today, formatted YYYY-MM-DD.
func DateOptions(now time.Time, days int) []string {
	out := make([]string, 0, days)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for i := 0; i < days; i++ {
		out = append(out, start.AddDate(0, 0, i).Format(time.DateOnly))
	}
	return out
}

// ParseSlot combines a YYYY-MM-DD date and an HH:MM slot in loc.
func ParseSlot(date, slot string, loc *time.Location) (time.Time, error) {
	if !IsValidSlot(slot) {
		return time.Time{}, fmt.Errorf("unknown time slot %q", slot)
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+slot, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse booking time: %w", err)
	}
	return t, nil
}

func find(appointments []*models.Appointment, id string) *models.Appointment {
	for _, a := range appointments {
		if a.ID == id {
			return a
		}
	}
	return nil
}
