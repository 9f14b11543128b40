package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"queueaway/internal/domain"
	"queueaway/internal/events"
	"queueaway/internal/models"
	"queueaway/internal/queue"
	"queueaway/internal/realtime"

	"github.com/rs/zerolog"
)

// QueueStore is what QueueService reads and seeds.
type QueueStore interface {
	domain.AppointmentRepository
	domain.BusinessRepository
}

// QueueService holds live copies of the appointment and business collections and answers
// queue questions against them.
type QueueService struct {
	store    QueueStore
	hub      *realtime.Hub
	seed     func() ([]*models.Business, error)
	logger   *zerolog.Logger
	seeded   atomic.Bool
	loaded   chan struct{}
	loadOnce sync.Once

	mu           sync.RWMutex
	appointments []*models.Appointment
	businesses   []*models.Business
	loading      bool
	subs         []*realtime.Subscription
	listeners    map[int]func()
	nextListener int
}

// NewQueueService takes the catalogue written into an empty businesses collection. A nil
// seed disables seeding.
func NewQueueService(store QueueStore, hub *realtime.Hub, seed func() ([]*models.Business, error), logger *zerolog.Logger) *QueueService {
	return &QueueService{
		store:        store,
		hub:          hub,
		seed:         seed,
		logger:       logger,
		loaded:       make(chan struct{}),
		appointments: []*models.Appointment{},
		businesses:   []*models.Business{},
		loading:      true,
		listeners:    make(map[int]func()),
	}
}

// Start opens both live subscriptions. Snapshots keep arriving until Close or ctx ends.
func (s *QueueService) Start(ctx context.Context) {
	appointments := realtime.Watch(ctx, s.hub, events.CollectionAppointments,
		s.store.ListAppointments,
		func(list []*models.Appointment) {
			s.mu.Lock()
			s.appointments = list
			s.mu.Unlock()
			s.changed()
		}, nil)

	businesses := realtime.Watch(ctx, s.hub, events.CollectionBusinesses,
		s.store.ListBusinesses,
		func(list []*models.Business) {
			s.mu.Lock()
			s.businesses = list
			s.loading = false
			s.mu.Unlock()
			s.loadOnce.Do(func() { close(s.loaded) })
			s.changed()

			if len(list) == 0 {
				s.seedCatalogue(ctx)
			}
		}, nil)

	s.mu.Lock()
	s.subs = append(s.subs, appointments, businesses)
	s.mu.Unlock()
}

// Close releases the subscriptions.
func (s *QueueService) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// Loading is true until the first business snapshot arrives.
func (s *QueueService) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Loaded is closed when the first business snapshot arrives.
func (s *QueueService) Loaded() <-chan struct{} {
	return s.loaded
}

// OnChange registers fn to run after every snapshot. The returned func removes it.
func (s *QueueService) OnChange(fn func()) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *QueueService) Appointments() []*models.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appointments
}

func (s *QueueService) Businesses() []*models.Business {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.businesses
}

// Business finds a business in the live list.
func (s *QueueService) Business(id string) *models.Business {
	for _, b := range s.Businesses() {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (s *QueueService) UserAppointments(uid string) []*models.Appointment {
	return queue.UserAppointments(s.Appointments(), uid)
}

func (s *QueueService) CurrentQueuePosition(appointmentID string) int {
	return queue.Position(s.Appointments(), appointmentID)
}

func (s *QueueService) EstimatedWaitTime(appointmentID string) int {
	s.mu.RLock()
	appointments, businesses := s.appointments, s.businesses
	s.mu.RUnlock()
	return queue.WaitTime(appointments, businesses, appointmentID)
}

func (s *QueueService) Dashboard(uid string, now time.Time) models.DashboardStats {
	all := s.Appointments()
	return queue.Dashboard(queue.UserAppointments(all, uid), func(id string) int {
		return queue.Position(all, id)
	}, now)
}

func (s *QueueService) changed() {
	s.mu.RLock()
	listeners := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}

// seedCatalogue runs until one attempt succeeds; a failed attempt is retried on the next
// empty snapshot. Another process seeding at the same time can still double the catalogue.
func (s *QueueService) seedCatalogue(ctx context.Context) {
	if s.seed == nil || !s.seeded.CompareAndSwap(false, true) {
		return
	}
	businesses, err := s.seed()
	if err != nil {
		s.logger.Error().Err(err).Msg("load seed catalogue")
		s.seeded.Store(false)
		return
	}
	for _, b := range businesses {
		if err := s.store.CreateBusiness(ctx, b); err != nil {
			s.logger.Error().Err(err).Str("business", b.Name).Msg("seed business")
			s.seeded.Store(false)
			return
		}
	}
	s.logger.Info().Int("count", len(businesses)).Msg("seeded business catalogue")
}
