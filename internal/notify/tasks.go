package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"queueaway/internal/domain"
	"queueaway/internal/models"

	"github.com/hibiken/asynq"
)

// TypeDeliverNotification is the asynq task type of a push notification.
const TypeDeliverNotification = "notify:user"

const QueueNotifications = "notifications"

func NewNotificationTask(n models.Notification) (*asynq.Task, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	return asynq.NewTask(TypeDeliverNotification, payload), nil
}

// ParseNotificationTask decodes the payload of a notification task.
func ParseNotificationTask(t *asynq.Task) (models.Notification, error) {
	var n models.Notification
	if err := json.Unmarshal(t.Payload(), &n); err != nil {
		return n, fmt.Errorf("decode notification task: %w", err)
	}
	return n, nil
}

// TaskQueue enqueues notifications for the asynq worker.
type TaskQueue struct {
	client   *asynq.Client
	maxRetry int
}

var _ domain.NotificationQueue = (*TaskQueue)(nil)

func NewTaskQueue(client *asynq.Client, maxRetry int) *TaskQueue {
	return &TaskQueue{client: client, maxRetry: maxRetry}
}

func (q *TaskQueue) EnqueueNotification(ctx context.Context, n models.Notification) error {
	task, err := NewNotificationTask(n)
	if err != nil {
		return err
	}
	if _, err := q.client.EnqueueContext(ctx, task, asynq.Queue(QueueNotifications), asynq.MaxRetry(q.maxRetry)); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// DeliverFunc delivers one notification synchronously.
type DeliverFunc func(ctx context.Context, n models.Notification) error

// InlineQueue delivers immediately. Used when no Redis is configured.
type InlineQueue struct {
	deliver DeliverFunc
}

var _ domain.NotificationQueue = (*InlineQueue)(nil)

func NewInlineQueue(deliver DeliverFunc) *InlineQueue {
	return &InlineQueue{deliver: deliver}
}

func (q *InlineQueue) EnqueueNotification(ctx context.Context, n models.Notification) error {
	return q.deliver(ctx, n)
}
