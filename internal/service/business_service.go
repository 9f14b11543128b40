package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"queueaway/internal/catalog"
	"queueaway/internal/domain"
	"queueaway/internal/events"
	"queueaway/internal/geo"
	"queueaway/internal/models"
	"queueaway/internal/realtime"

	"github.com/rs/zerolog"
)

// BrowseQuery narrows the business list the way the browse page does.
type BrowseQuery struct {
	Term     string
	Category string
	Origin   *models.Location
	RadiusKm float64
}

type BusinessService struct {
	repo          domain.BusinessRepository
	appointments  domain.AppointmentRepository
	hub           *realtime.Hub
	notifications domain.NotificationQueue
	now           func() time.Time
	logger        *zerolog.Logger
}

func NewBusinessService(repo domain.BusinessRepository, appointments domain.AppointmentRepository, hub *realtime.Hub, notifications domain.NotificationQueue, logger *zerolog.Logger) *BusinessService {
	return &BusinessService{
		repo:          repo,
		appointments:  appointments,
		hub:           hub,
		notifications: notifications,
		now:           time.Now,
		logger:        logger,
	}
}

func (s *BusinessService) Create(ctx context.Context, b *models.Business) error {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return fmt.Errorf("business name is required: %w", domain.ErrInvalidInput)
	}
	if !models.IsValidCategory(b.Category) {
		return fmt.Errorf("business type %q: %w", b.Category, domain.ErrInvalidInput)
	}
	if b.AverageServiceTime < 0 || b.CurrentQueue < 0 {
		return fmt.Errorf("negative queue figures: %w", domain.ErrInvalidInput)
	}
	if err := s.repo.CreateBusiness(ctx, b); err != nil {
		return err
	}
	s.logger.Info().Str("business_id", b.ID).Str("name", b.Name).Msg("business created")
	return nil
}

func (s *BusinessService) Update(ctx context.Context, id string, update models.BusinessUpdate) (*models.Business, error) {
	if update.Category != nil && !models.IsValidCategory(*update.Category) {
		return nil, fmt.Errorf("business type %q: %w", *update.Category, domain.ErrInvalidInput)
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, fmt.Errorf("business name is required: %w", domain.ErrInvalidInput)
	}
	if err := s.repo.UpdateBusiness(ctx, id, update); err != nil {
		return nil, err
	}
	return s.repo.GetBusiness(ctx, id)
}

// UpdateQueueCount sets the business's queue length and sends a queue update to everyone
// holding an upcoming confirmed appointment there.
func (s *BusinessService) UpdateQueueCount(ctx context.Context, id string, count int) error {
	if count < 0 {
		return fmt.Errorf("queue count %d: %w", count, domain.ErrInvalidInput)
	}
	if err := s.repo.UpdateQueueCount(ctx, id, count); err != nil {
		return err
	}
	s.notifyQueue(ctx, id, count)
	return nil
}

func (s *BusinessService) Get(ctx context.Context, id string) (*models.Business, error) {
	return s.repo.GetBusiness(ctx, id)
}

func (s *BusinessService) List(ctx context.Context) ([]*models.Business, error) {
	return s.repo.ListBusinesses(ctx)
}

// Browse applies the text, category and radius filters to the full list.
func (s *BusinessService) Browse(ctx context.Context, q BrowseQuery) ([]*models.Business, error) {
	businesses, err := s.repo.ListBusinesses(ctx)
	if err != nil {
		return nil, err
	}
	businesses = catalog.Filter(businesses, q.Term, q.Category)
	return geo.FilterWithinRadius(businesses, q.Origin, q.RadiusKm), nil
}

// SubscribeAll streams every business ordered by name.
func (s *BusinessService) SubscribeAll(ctx context.Context, onSnapshot func([]*models.Business), onError func(error)) *realtime.Subscription {
	return realtime.Watch(ctx, s.hub, events.CollectionBusinesses, s.repo.ListBusinesses, onSnapshot, onError)
}

// SubscribeByCategory streams one category, best rated first. "all" streams everything.
func (s *BusinessService) SubscribeByCategory(ctx context.Context, category string, onSnapshot func([]*models.Business), onError func(error)) *realtime.Subscription {
	if category == "" || category == models.CategoryAll {
		return s.SubscribeAll(ctx, onSnapshot, onError)
	}
	return realtime.Watch(ctx, s.hub, events.CollectionBusinesses, func(ctx context.Context) ([]*models.Business, error) {
		return s.repo.ListBusinessesByCategory(ctx, category)
	}, onSnapshot, onError)
}

func (s *BusinessService) notifyQueue(ctx context.Context, businessID string, count int) {
	if s.notifications == nil || s.appointments == nil {
		return
	}
	appointments, err := s.appointments.ListBusinessAppointments(ctx, businessID)
	if err != nil {
		s.logger.Error().Err(err).Str("business_id", businessID).Msg("list appointments for queue update")
		return
	}

	now := s.now()
	notified := make(map[string]bool)
	for _, a := range appointments {
		if !a.IsUpcoming(now) || notified[a.UserID] {
			continue
		}
		notified[a.UserID] = true
		n := models.Notification{
			UserID: a.UserID,
			Body:   fmt.Sprintf("%s now has %d in the queue.", a.BusinessName, count),
			Data:   map[string]string{"businessId": businessID, "appointmentId": a.ID},
		}
		if err := s.notifications.EnqueueNotification(ctx, n); err != nil {
			s.logger.Error().Err(err).Str("user_id", a.UserID).Msg("queue update enqueue error")
		}
	}
}
