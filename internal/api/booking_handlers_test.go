package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"queueaway/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type appointmentBody struct {
	Appointment models.Appointment `json:"appointment"`
	Message     string             `json:"message"`
}

func (a *testAPI) book(t *testing.T, token, businessID, service string) models.Appointment {
	t.Helper()
	var slots struct {
		Dates []string `json:"dates"`
		Times []string `json:"times"`
	}
	require.Equal(t, http.StatusOK, a.call(t, http.MethodGet, "/api/v1/booking/slots", "", nil, &slots))

	var out appointmentBody
	status := a.call(t, http.MethodPost, "/api/v1/appointments", token, models.BookingRequest{
		BusinessID: businessID,
		Service:    service,
		Date:       slots.Dates[1],
		Time:       "10:30",
	}, &out)
	require.Equal(t, http.StatusCreated, status)
	return out.Appointment
}

func TestBookingSlots(t *testing.T) {
	api := newTestAPI(t, testAPIConfig())

	var slots struct {
		Dates []string `json:"dates"`
		Times []string `json:"times"`
	}
	require.Equal(t, http.StatusOK, api.call(t, http.MethodGet, "/api/v1/booking/slots", "", nil, &slots))
	assert.Len(t, slots.Dates, models.BookingWindowDays)
	require.Len(t, slots.Times, 20)
	assert.Equal(t, "09:00", slots.Times[0])
	assert.Equal(t, "18:30", slots.Times[19])
}

func TestBookingFlow(t *testing.T) {
	api := newTestAPI(t, testAPIConfig())
	luxe := api.createBusiness(t, &models.Business{
		Name: "Luxe Hair Studio", Category: models.CategorySalon,
		Services: []string{"Haircut", "Styling"}, AverageServiceTime: 45, CurrentQueue: 3,
	})
	ann := api.signup(t, "ann@example.com", "Ann")
	bob := api.signup(t, "bob@example.com", "Bob")

	appointment := api.book(t, ann.Token, luxe.ID, "Haircut")
	assert.Equal(t, 4, appointment.QueuePosition)
	assert.Equal(t, 180, appointment.EstimatedWaitTime)
	assert.Equal(t, models.StatusConfirmed, appointment.Status)
	assert.Equal(t, "Ann", appointment.UserName)

	t.Run("requires sign-in", func(t *testing.T) {
		status := api.call(t, http.MethodPost, "/api/v1/appointments", "", models.BookingRequest{BusinessID: luxe.ID}, nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("service not offered", func(t *testing.T) {
		var e apiError
		status := api.call(t, http.MethodPost, "/api/v1/appointments", ann.Token, models.BookingRequest{
			BusinessID: luxe.ID, Service: "Tattoo", Date: "2026-01-01", Time: "10:00",
		}, &e)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Service is not offered by this business", e.Error)
	})

	t.Run("slot errors show only the slot text", func(t *testing.T) {
		for _, req := range []models.BookingRequest{
			{BusinessID: luxe.ID, Service: "Haircut", Date: "1999-01-01", Time: "10:00"},
			{BusinessID: luxe.ID, Service: "Haircut", Date: appointment.AppointmentDate.Format("2006-01-02"), Time: "09:15"},
		} {
			var e apiError
			status := api.call(t, http.MethodPost, "/api/v1/appointments", ann.Token, req, &e)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "Time slot is not available", e.Error)
		}
	})

	t.Run("mine", func(t *testing.T) {
		var list struct {
			Appointments []models.Appointment `json:"appointments"`
		}
		require.Equal(t, http.StatusOK, api.call(t, http.MethodGet, "/api/v1/appointments", ann.Token, nil, &list))
		require.Len(t, list.Appointments, 1)
		assert.Equal(t, appointment.ID, list.Appointments[0].ID)

		require.Equal(t, http.StatusOK, api.call(t, http.MethodGet, "/api/v1/appointments", bob.Token, nil, &list))
		assert.Empty(t, list.Appointments)
	})

	t.Run("queue status", func(t *testing.T) {
		var body struct {
			Position       int `json:"position"`
			WaitTime       int `json:"estimatedWaitTime"`
			BookedPosition int `json:"bookedPosition"`
			BookedWaitTime int `json:"bookedWaitTime"`
		}
		require.Eventually(t, func() bool { return len(api.queue.Appointments()) == 1 }, waitTimeout, waitTick)
		require.Equal(t, http.StatusOK, api.call(t, http.MethodGet, "/api/v1/appointments/"+appointment.ID+"/queue", ann.Token, nil, &body))
		assert.Equal(t, 1, body.Position)
		assert.Equal(t, 45, body.WaitTime)
		assert.Equal(t, 4, body.BookedPosition)
		assert.Equal(t, 180, body.BookedWaitTime)
	})

	t.Run("dashboard", func(t *testing.T) {
		var body struct {
			Stats models.DashboardStats `json:"stats"`
		}
		require.Equal(t, http.StatusOK, api.call(t, http.MethodGet, "/api/v1/dashboard", ann.Token, nil, &body))
		assert.Equal(t, 1, body.Stats.TotalAppointments)
		assert.Equal(t, 1, body.Stats.UpcomingAppointments)
		assert.Equal(t, 1, body.Stats.BusinessesVisited)
	})

	t.Run("export", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, api.ts.URL+"/api/v1/appointments/export", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+ann.Token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "appointments_"+ann.User.UID)

		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		f, err := excelize.OpenReader(bytes.NewReader(raw))
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows("Appointments")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Luxe Hair Studio", rows[1][0])
	})

	t.Run("other user cannot touch it", func(t *testing.T) {
		status := api.call(t, http.MethodPost, "/api/v1/appointments/"+appointment.ID+"/cancel", bob.Token, nil, nil)
		assert.Equal(t, http.StatusNotFound, status)
		status = api.call(t, http.MethodDelete, "/api/v1/appointments/"+appointment.ID, bob.Token, nil, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("update", func(t *testing.T) {
		var out appointmentBody
		status := api.call(t, http.MethodPatch, "/api/v1/appointments/"+appointment.ID, ann.Token,
			models.AppointmentUpdate{Notes: ptr("bring photos")}, &out)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "bring photos", out.Appointment.Notes)
		assert.Equal(t, "Appointment updated successfully!", out.Message)

		var e apiError
		status = api.call(t, http.MethodPatch, "/api/v1/appointments/"+appointment.ID, ann.Token, map[string]string{}, &e)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Failed to update appointment", e.Error)
	})

	t.Run("cancel", func(t *testing.T) {
		var body struct {
			Message string `json:"message"`
		}
		status := api.call(t, http.MethodPost, "/api/v1/appointments/"+appointment.ID+"/cancel", ann.Token, nil, &body)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Appointment cancelled successfully!", body.Message)

		stored, err := api.db.GetAppointment(context.Background(), appointment.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, stored.Status)
	})

	t.Run("delete", func(t *testing.T) {
		status := api.call(t, http.MethodDelete, "/api/v1/appointments/"+appointment.ID, ann.Token, nil, nil)
		assert.Equal(t, http.StatusNoContent, status)
		status = api.call(t, http.MethodDelete, "/api/v1/appointments/"+appointment.ID, ann.Token, nil, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}
