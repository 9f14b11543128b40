package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"queueaway/internal/domain"
	"queueaway/internal/events"
	"queueaway/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var bookingNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func newTestBooking(env *testEnv, notifications domain.NotificationQueue) *BookingService {
	s := NewBookingService(env.db, env.db, env.hub, env.bus, notifications, time.UTC, env.logger)
	s.now = func() time.Time { return bookingNow }
	return s
}

var ann = &models.Identity{UID: "ann", DisplayName: "Ann", Email: "ann@example.com"}

func TestBookingService_Book(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	luxe := env.createBusiness(t, "Luxe Hair Studio", 3, 45, "Haircut", "Styling")

	notifications := new(mockNotificationQueue)
	notifications.On("EnqueueNotification", mock.Anything, mock.MatchedBy(func(n models.Notification) bool {
		return n.UserID == "ann" && n.Title == "Booking confirmed"
	})).Return(nil).Once()

	created := record(env.bus, events.EventAppointmentCreated)
	s := newTestBooking(env, notifications)

	appointment, err := s.Book(ctx, ann, models.BookingRequest{
		BusinessID: luxe.ID,
		Service:    "Haircut",
		Date:       "2026-03-12",
		Time:       "10:30",
		Notes:      "  window seat ",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusConfirmed, appointment.Status)
	assert.Equal(t, 4, appointment.QueuePosition)
	assert.Equal(t, 180, appointment.EstimatedWaitTime)
	assert.Equal(t, "Ann", appointment.UserName)
	assert.Equal(t, "ann@example.com", appointment.UserEmail)
	assert.Equal(t, "Luxe Hair Studio", appointment.BusinessName)
	assert.Equal(t, "window seat", appointment.Notes)
	assert.Equal(t, time.Date(2026, 3, 12, 10, 30, 0, 0, time.UTC), appointment.AppointmentDate)

	stored, err := env.db.GetAppointment(ctx, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.QueuePosition)

	var payload events.AppointmentEventPayload
	created.last(t, &payload)
	assert.Equal(t, appointment.ID, payload.AppointmentID)
	assert.Equal(t, 180, payload.WaitMinutes)

	notifications.AssertExpectations(t)
}

func TestBookingService_BookDoesNotChangeQueueCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	shop := env.createBusiness(t, "Shop", 3, 45, "Haircut")
	s := newTestBooking(env, nil)

	for i := 0; i < 2; i++ {
		a, err := s.Book(ctx, ann, models.BookingRequest{BusinessID: shop.ID, Service: "Haircut", Date: "2026-03-10", Time: "09:00"})
		require.NoError(t, err)
		assert.Equal(t, 4, a.QueuePosition)
	}
	b, err := env.db.GetBusiness(ctx, shop.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, b.CurrentQueue)
}

func TestBookingService_BookUserName(t *testing.T) {
	env := newTestEnv(t)
	shop := env.createBusiness(t, "Shop", 0, 20, "Haircut")
	s := newTestBooking(env, nil)
	req := models.BookingRequest{BusinessID: shop.ID, Service: "haircut", Date: "2026-03-11", Time: "18:30"}

	a, err := s.Book(context.Background(), &models.Identity{UID: "x", Email: "x@example.com"}, req)
	require.NoError(t, err)
	assert.Equal(t, "x@example.com", a.UserName)

	a, err = s.Book(context.Background(), &models.Identity{UID: "y"}, req)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultUserName, a.UserName)
}

func TestBookingService_BookRejects(t *testing.T) {
	env := newTestEnv(t)
	shop := env.createBusiness(t, "Shop", 0, 20, "Haircut")
	s := newTestBooking(env, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		identity *models.Identity
		req      models.BookingRequest
		want     error
	}{
		{"signed out", nil, models.BookingRequest{BusinessID: shop.ID, Service: "Haircut", Date: "2026-03-10", Time: "09:00"}, domain.ErrUnauthenticated},
		{"missing service", ann, models.BookingRequest{BusinessID: shop.ID, Date: "2026-03-10", Time: "09:00"}, domain.ErrInvalidInput},
		{"unknown business", ann, models.BookingRequest{BusinessID: "nope", Service: "Haircut", Date: "2026-03-10", Time: "09:00"}, domain.ErrNotFound},
		{"service not offered", ann, models.BookingRequest{BusinessID: shop.ID, Service: "Tattoo", Date: "2026-03-10", Time: "09:00"}, domain.ErrServiceNotOffered},
		{"off-grid time", ann, models.BookingRequest{BusinessID: shop.ID, Service: "Haircut", Date: "2026-03-10", Time: "09:15"}, domain.ErrInvalidSlot},
		{"after last slot", ann, models.BookingRequest{BusinessID: shop.ID, Service: "Haircut", Date: "2026-03-10", Time: "19:00"}, domain.ErrInvalidSlot},
		{"past date", ann, models.BookingRequest{BusinessID: shop.ID, Service: "Haircut", Date: "2026-03-09", Time: "09:00"}, domain.ErrInvalidSlot},
		{"beyond window", ann, models.BookingRequest{BusinessID: shop.ID, Service: "Haircut", Date: "2026-03-24", Time: "09:00"}, domain.ErrInvalidSlot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Book(ctx, tt.identity, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	all, err := env.db.ListAppointments(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestBookingService_NotificationFailureDoesNotFailBooking(t *testing.T) {
	env := newTestEnv(t)
	shop := env.createBusiness(t, "Shop", 0, 20, "Haircut")
	notifications := new(mockNotificationQueue)
	notifications.On("EnqueueNotification", mock.Anything, mock.Anything).Return(errors.New("redis down"))
	s := newTestBooking(env, notifications)

	_, err := s.Book(context.Background(), ann, models.BookingRequest{BusinessID: shop.ID, Service: "Haircut", Date: "2026-03-10", Time: "09:00"})
	assert.NoError(t, err)
}

func TestBookingService_Slots(t *testing.T) {
	env := newTestEnv(t)
	s := newTestBooking(env, nil)
	dates, times := s.Slots()
	require.Len(t, dates, models.BookingWindowDays)
	assert.Equal(t, "2026-03-10", dates[0])
	assert.Equal(t, "2026-03-23", dates[13])
	assert.Len(t, times, 20)
}

func TestBookingService_UpdateCancelDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	shop := env.createBusiness(t, "Shop", 0, 20, "Haircut", "Shave")

	notifications := new(mockNotificationQueue)
	notifications.On("EnqueueNotification", mock.Anything, mock.Anything).Return(nil)
	s := newTestBooking(env, notifications)

	a, err := s.Book(ctx, ann, models.BookingRequest{BusinessID: shop.ID, Service: "Haircut", Date: "2026-03-10", Time: "09:00"})
	require.NoError(t, err)

	t.Run("empty update", func(t *testing.T) {
		_, err := s.Update(ctx, a.ID, models.AppointmentUpdate{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown status", func(t *testing.T) {
		status := "done"
		_, err := s.Update(ctx, a.ID, models.AppointmentUpdate{Status: &status})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("any status is accepted", func(t *testing.T) {
		updated := record(env.bus, events.EventAppointmentUpdated)
		status := models.StatusCompleted
		got, err := s.Update(ctx, a.ID, models.AppointmentUpdate{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)

		status = models.StatusPending
		got, err = s.Update(ctx, a.ID, models.AppointmentUpdate{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, got.Status)
		assert.Equal(t, 2, updated.count())
	})

	t.Run("cancel", func(t *testing.T) {
		cancelled := record(env.bus, events.EventAppointmentCancel)
		require.NoError(t, s.Cancel(ctx, a.ID))
		got, err := s.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, got.Status)
		assert.Equal(t, 1, cancelled.count())
	})

	t.Run("owned", func(t *testing.T) {
		_, err := s.Owned(ctx, "ann", a.ID)
		assert.NoError(t, err)
		_, err = s.Owned(ctx, "bob", a.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, a.ID))
		_, err := s.Get(ctx, a.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, a.ID), domain.ErrNotFound)
	})
}

func TestBookingService_Subscriptions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	shop := env.createBusiness(t, "Shop", 0, 20, "Haircut")
	s := newTestBooking(env, nil)

	mine := make(chan []*models.Appointment, 10)
	sub := s.SubscribeUserAppointments(ctx, "ann", func(list []*models.Appointment) { mine <- list }, nil)
	defer sub.Unsubscribe()

	schedule := make(chan []*models.Appointment, 10)
	sub2 := s.SubscribeBusinessAppointments(ctx, shop.ID, func(list []*models.Appointment) { schedule <- list }, nil)
	defer sub2.Unsubscribe()

	assert.Empty(t, <-mine)
	assert.Empty(t, <-schedule)

	_, err := s.Book(ctx, &models.Identity{UID: "bob"}, models.BookingRequest{BusinessID: shop.ID, Service: "Haircut", Date: "2026-03-10", Time: "11:00"})
	require.NoError(t, err)
	_, err = s.Book(ctx, ann, models.BookingRequest{BusinessID: shop.ID, Service: "Haircut", Date: "2026-03-10", Time: "09:00"})
	require.NoError(t, err)

	var latest []*models.Appointment
	waitFor(t, func() bool {
		for {
			select {
			case latest = <-schedule:
			default:
				return len(latest) == 2
			}
		}
	})
	assert.Equal(t, "ann", latest[0].UserID)

	var own []*models.Appointment
	waitFor(t, func() bool {
		for {
			select {
			case own = <-mine:
			default:
				return len(own) == 1
			}
		}
	})
	assert.Equal(t, "ann", own[0].UserID)
}
