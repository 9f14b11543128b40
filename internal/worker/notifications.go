package worker

import (
	"context"
	"fmt"

	"queueaway/internal/config"
	"queueaway/internal/domain"
	"queueaway/internal/events"
	"queueaway/internal/metrics"
	"queueaway/internal/models"
	"queueaway/internal/notify"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// NotificationWorker delivers push notifications to the user's PubNub channel and to the
// in-process bus, where connected websocket sessions pick them up.
type NotificationWorker struct {
	push   domain.PushPublisher
	bus    domain.EventPublisher
	policy RetryPolicy
	logger *zerolog.Logger
}

// NewNotificationWorker accepts a nil push publisher when PubNub is not configured.
func NewNotificationWorker(push domain.PushPublisher, bus domain.EventPublisher, policy RetryPolicy, logger *zerolog.Logger) *NotificationWorker {
	return &NotificationWorker{push: push, bus: bus, policy: policy, logger: logger}
}

// Deliver sends one notification now.
func (w *NotificationWorker) Deliver(ctx context.Context, n models.Notification) error {
	if n.UserID == "" {
		return fmt.Errorf("notification without recipient: %w", domain.ErrInvalidInput)
	}
	n.Title = n.TitleOrDefault()

	if err := w.bus.PublishJSON(events.EventNotification, n); err != nil {
		w.logger.Warn().Err(err).Str("user_id", n.UserID).Msg("publish notification event")
	}

	if w.push == nil {
		metrics.IncNotification("local")
		return nil
	}
	timetoken, err := w.push.Publish(ctx, n.UserID, n)
	if err != nil {
		metrics.IncNotification("failed")
		return err
	}
	metrics.IncNotification("sent")
	w.logger.Debug().Str("user_id", n.UserID).Str("timetoken", timetoken).Msg("notification published")
	return nil
}

// HandleTask is the asynq handler for notify:user tasks.
func (w *NotificationWorker) HandleTask(ctx context.Context, t *asynq.Task) error {
	n, err := notify.ParseNotificationTask(t)
	if err != nil {
		w.logger.Error().Err(err).Msg("dropping malformed notification task")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := w.Deliver(ctx, n); err != nil {
		w.logger.Warn().Err(err).Str("user_id", n.UserID).Msg("notification delivery failed")
		return err
	}
	return nil
}

// Mux routes worker task types to their handlers.
func (w *NotificationWorker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(notify.TypeDeliverNotification, w.HandleTask)
	return mux
}

// NewServer builds the asynq server that runs the notification queue.
func (w *NotificationWorker) NewServer(redisOpt asynq.RedisConnOpt, cfg config.NotificationsConfig) *asynq.Server {
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			notify.QueueNotifications: 1,
		},
		RetryDelayFunc: w.policy.DelayFunc(),
		Logger:         asynqLogger{w.logger},
	})
}

// Run processes tasks until ctx is done.
func (w *NotificationWorker) Run(ctx context.Context, srv *asynq.Server) error {
	if err := srv.Start(w.Mux()); err != nil {
		return fmt.Errorf("start notification worker: %w", err)
	}
	w.logger.Info().Msg("notification worker started")
	<-ctx.Done()
	srv.Shutdown()
	w.logger.Info().Msg("notification worker stopped")
	return nil
}

// asynqLogger routes asynq's own logs through zerolog.
type asynqLogger struct {
	l *zerolog.Logger
}

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...interface{}) { a.l.Fatal().Msg(fmt.Sprint(args...)) }
