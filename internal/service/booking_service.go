package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"queueaway/internal/domain"
	"queueaway/internal/events"
	"queueaway/internal/metrics"
	"queueaway/internal/models"
	"queueaway/internal/queue"
	"queueaway/internal/realtime"

	"github.com/rs/zerolog"
)

type BookingService struct {
	appointments  domain.AppointmentRepository
	businesses    domain.BusinessRepository
	hub           *realtime.Hub
	eventBus      domain.EventPublisher
	notifications domain.NotificationQueue
	loc           *time.Location
	now           func() time.Time
	logger        *zerolog.Logger
}

// NewBookingService accepts a nil notification queue; bookings are then not announced by push.
func NewBookingService(appointments domain.AppointmentRepository, businesses domain.BusinessRepository, hub *realtime.Hub, eventBus domain.EventPublisher, notifications domain.NotificationQueue, loc *time.Location, logger *zerolog.Logger) *BookingService {
	if loc == nil {
		loc = time.Local
	}
	return &BookingService{
		appointments:  appointments,
		businesses:    businesses,
		hub:           hub,
		eventBus:      eventBus,
		notifications: notifications,
		loc:           loc,
		now:           time.Now,
		logger:        logger,
	}
}

// Slots lists the bookable dates and times of day.
func (s *BookingService) Slots() (dates []string, times []string) {
	return queue.DateOptions(s.now().In(s.loc), models.BookingWindowDays), queue.TimeSlots()
}

// Book writes one confirmed appointment for identity. The queue position and wait stored on
// it are predicted from the business's current queue and are not updated later.
func (s *BookingService) Book(ctx context.Context, identity *models.Identity, req models.BookingRequest) (*models.Appointment, error) {
	if identity == nil || identity.UID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if req.BusinessID == "" || strings.TrimSpace(req.Service) == "" {
		return nil, fmt.Errorf("business and service are required: %w", domain.ErrInvalidInput)
	}

	business, err := s.businesses.GetBusiness(ctx, req.BusinessID)
	if err != nil {
		return nil, err
	}
	if !business.OffersService(req.Service) {
		return nil, domain.ErrServiceNotOffered
	}

	dates, _ := s.Slots()
	if !slices.Contains(dates, req.Date) {
		return nil, fmt.Errorf("date %q: %w", req.Date, domain.ErrInvalidSlot)
	}
	at, err := queue.ParseSlot(req.Date, req.Time, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrInvalidSlot)
	}

	prediction := queue.Predict(business)
	appointment := &models.Appointment{
		UserID:            identity.UID,
		UserName:          identity.BookingName(),
		UserEmail:         identity.Email,
		BusinessID:        business.ID,
		BusinessName:      business.Name,
		Service:           req.Service,
		AppointmentDate:   at,
		Status:            models.StatusConfirmed,
		QueuePosition:     prediction.Position,
		EstimatedWaitTime: prediction.WaitMinutes,
		Notes:             strings.TrimSpace(req.Notes),
	}
	if err := s.appointments.CreateAppointment(ctx, appointment); err != nil {
		return nil, err
	}

	metrics.IncBooking(business.ID)
	s.publishEvent(events.EventAppointmentCreated, appointment)
	s.notify(ctx, appointment.UserID, "Booking confirmed", fmt.Sprintf(
		"%s at %s on %s. You are number %d in the queue, about %d min wait.",
		appointment.Service, appointment.BusinessName, at.Format("Jan 2 15:04"),
		prediction.Position, prediction.WaitMinutes,
	), appointment.ID)

	s.logger.Info().
		Str("appointment_id", appointment.ID).
		Str("business_id", business.ID).
		Str("user_id", identity.UID).
		Int("queue_position", prediction.Position).
		Msg("appointment booked")
	return appointment, nil
}

// Update applies a partial update. Any status may be set.
func (s *BookingService) Update(ctx context.Context, id string, update models.AppointmentUpdate) (*models.Appointment, error) {
	if update.Empty() {
		return nil, fmt.Errorf("nothing to update: %w", domain.ErrInvalidInput)
	}
	if update.Status != nil && !models.IsValidStatus(*update.Status) {
		return nil, fmt.Errorf("status %q: %w", *update.Status, domain.ErrInvalidInput)
	}
	if err := s.appointments.UpdateAppointment(ctx, id, update); err != nil {
		return nil, err
	}

	appointment, err := s.appointments.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishEvent(events.EventAppointmentUpdated, appointment)
	if update.Status != nil {
		s.notify(ctx, appointment.UserID, "", fmt.Sprintf(
			"Your %s appointment at %s is now %s.", appointment.Service, appointment.BusinessName, appointment.Status,
		), appointment.ID)
	}
	return appointment, nil
}

func (s *BookingService) Cancel(ctx context.Context, id string) error {
	if err := s.appointments.CancelAppointment(ctx, id); err != nil {
		return err
	}
	appointment, err := s.appointments.GetAppointment(ctx, id)
	if err != nil {
		return err
	}
	s.publishEvent(events.EventAppointmentCancel, appointment)
	return nil
}

// Delete removes the appointment document.
func (s *BookingService) Delete(ctx context.Context, id string) error {
	appointment, err := s.appointments.GetAppointment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.appointments.DeleteAppointment(ctx, id); err != nil {
		return err
	}
	s.publishEvent(events.EventAppointmentDeleted, appointment)
	return nil
}

func (s *BookingService) Get(ctx context.Context, id string) (*models.Appointment, error) {
	return s.appointments.GetAppointment(ctx, id)
}

// Owned loads the appointment and checks that uid booked it.
func (s *BookingService) Owned(ctx context.Context, uid, id string) (*models.Appointment, error) {
	appointment, err := s.appointments.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment.UserID != uid {
		return nil, fmt.Errorf("appointment %s: %w", id, domain.ErrNotFound)
	}
	return appointment, nil
}

func (s *BookingService) UserAppointments(ctx context.Context, uid string) ([]*models.Appointment, error) {
	return s.appointments.ListUserAppointments(ctx, uid)
}

// SubscribeUserAppointments streams uid's appointments, newest first.
func (s *BookingService) SubscribeUserAppointments(ctx context.Context, uid string, onSnapshot func([]*models.Appointment), onError func(error)) *realtime.Subscription {
	return realtime.Watch(ctx, s.hub, events.CollectionAppointments, func(ctx context.Context) ([]*models.Appointment, error) {
		return s.appointments.ListUserAppointments(ctx, uid)
	}, onSnapshot, onError)
}

// SubscribeBusinessAppointments streams a business's appointments in schedule order.
func (s *BookingService) SubscribeBusinessAppointments(ctx context.Context, businessID string, onSnapshot func([]*models.Appointment), onError func(error)) *realtime.Subscription {
	return realtime.Watch(ctx, s.hub, events.CollectionAppointments, func(ctx context.Context) ([]*models.Appointment, error) {
		return s.appointments.ListBusinessAppointments(ctx, businessID)
	}, onSnapshot, onError)
}

func (s *BookingService) publishEvent(eventType string, a *models.Appointment) {
	if s.eventBus == nil {
		return
	}

	payload := events.AppointmentEventPayload{
		AppointmentID: a.ID,
		UserID:        a.UserID,
		BusinessID:    a.BusinessID,
		BusinessName:  a.BusinessName,
		Service:       a.Service,
		Status:        a.Status,
		Date:          a.AppointmentDate,
		QueuePosition: a.QueuePosition,
		WaitMinutes:   a.EstimatedWaitTime,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("appointment_id", a.ID).Msg("publish event error")
	}
}

func (s *BookingService) notify(ctx context.Context, uid, title, body, appointmentID string) {
	if s.notifications == nil {
		return
	}
	n := models.Notification{
		UserID: uid,
		Title:  title,
		Body:   body,
		Data:   map[string]string{"appointmentId": appointmentID},
	}
	if err := s.notifications.EnqueueNotification(ctx, n); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error().Err(err).Str("appointment_id", appointmentID).Msg("notification enqueue error")
	}
}
