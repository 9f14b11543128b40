package domain

import (
	"context"
	"io"
	"time"

	"queueaway/internal/models"
)

type BusinessRepository interface {
	CreateBusiness(ctx context.Context, business *models.Business) error
	UpdateBusiness(ctx context.Context, id string, update models.BusinessUpdate) error
	UpdateQueueCount(ctx context.Context, id string, count int) error
	GetBusiness(ctx context.Context, id string) (*models.Business, error)
	ListBusinesses(ctx context.Context) ([]*models.Business, error)
	ListBusinessesByCategory(ctx context.Context, category string) ([]*models.Business, error)
	CountBusinesses(ctx context.Context) (int, error)
}

type AppointmentRepository interface {
	CreateAppointment(ctx context.Context, appointment *models.Appointment) error
	UpdateAppointment(ctx context.Context, id string, update models.AppointmentUpdate) error
	CancelAppointment(ctx context.Context, id string) error
	DeleteAppointment(ctx context.Context, id string) error
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	ListAppointments(ctx context.Context) ([]*models.Appointment, error)
	ListUserAppointments(ctx context.Context, userID string) ([]*models.Appointment, error)
	ListBusinessAppointments(ctx context.Context, businessID string) ([]*models.Appointment, error)
}

type ChatRepository interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	UpsertChat(ctx context.Context, chatID string, msg *models.Message) error
	ListConversation(ctx context.Context, userA, userB string) ([]*models.Message, error)
	ListUserChats(ctx context.Context, userID string) ([]*models.Chat, error)
	MarkChatRead(ctx context.Context, chatID, userID string) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUID(ctx context.Context, uid string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, uid string, displayName, photoURL *string) error
	UpsertFederatedUser(ctx context.Context, user *models.User) error
}

// Store is the full document store.
type Store interface {
	BusinessRepository
	AppointmentRepository
	ChatRepository
	UserRepository
}

// PreferencesRepository keeps per-user client state: theme, last location, push token.
type PreferencesRepository interface {
	GetPreferences(ctx context.Context, userID string) (*models.Preferences, error)
	SetPreferences(ctx context.Context, prefs *models.Preferences) error
	ClearPreferences(ctx context.Context, userID string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// FileStore uploads a blob and returns a URL it can be fetched from.
type FileStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

// PushPublisher delivers payloads to a user's push channel.
type PushPublisher interface {
	Publish(ctx context.Context, userID string, payload any) (string, error)
	GrantToken(ctx context.Context, userID string) (string, error)
}

// NotificationQueue hands a notification off for asynchronous delivery.
type NotificationQueue interface {
	EnqueueNotification(ctx context.Context, n models.Notification) error
}
