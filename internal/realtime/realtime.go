// Package realtime turns store change events into live snapshot subscriptions.
package realtime

import (
	"context"
	"sync"

	"queueaway/internal/events"
	"queueaway/internal/metrics"

	"github.com/rs/zerolog"
)

// ChangeFeed is the part of the event bus a subscription listens on.
type ChangeFeed interface {
	Subscribe(eventType string, handler events.EventHandler) func()
}

// Query loads a full snapshot of a collection.
type Query[T any] func(ctx context.Context) ([]T, error)

// Hub opens live subscriptions over a change feed.
type Hub struct {
	feed   ChangeFeed
	logger *zerolog.Logger
}

func NewHub(feed ChangeFeed, logger *zerolog.Logger) *Hub {
	return &Hub{feed: feed, logger: logger}
}

// Subscription is a cancellable handle to a live query.
type Subscription struct {
	collection  string
	cancel      context.CancelFunc
	unsubscribe func()
	once        sync.Once
	done        chan struct{}
}

// Unsubscribe stops further deliveries. Safe to call more than once and from inside a
// snapshot callback; a delivery already running is not interrupted.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.unsubscribe()
		s.cancel()
	})
}

// Done is closed once the delivery goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) Collection() string {
	return s.collection
}

// Watch delivers an initial snapshot of collection and then a fresh snapshot after every
// change to it. Deliveries happen in order on one goroutine; changes that arrive while a
// query runs are folded into a single follow-up query. A failed query is reported to
// onError and the subscription stays open, so the next change retries.
func Watch[T any](ctx context.Context, h *Hub, collection string, query Query[T], onSnapshot func([]T), onError func(error)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	pending := make(chan struct{}, 1)

	unsubscribe := h.feed.Subscribe(events.EventCollectionChanged, func(e *events.Event) error {
		var change events.CollectionChangePayload
		if err := e.Decode(&change); err != nil {
			return err
		}
		if change.Collection != collection {
			return nil
		}
		select {
		case pending <- struct{}{}:
		default:
		}
		return nil
	})

	sub := &Subscription{
		collection:  collection,
		cancel:      cancel,
		unsubscribe: unsubscribe,
		done:        make(chan struct{}),
	}

	logger := h.logger.With().Str("collection", collection).Logger()
	metrics.SubscriptionOpened(collection)

	go func() {
		defer close(sub.done)
		defer metrics.SubscriptionClosed(collection)
		defer sub.Unsubscribe()

		deliver := func() {
			items, err := query(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				metrics.IncSubscriptionError(collection)
				logger.Error().Err(err).Msg("live query failed")
				if onError != nil {
					onError(err)
				}
				return
			}
			onSnapshot(items)
		}

		deliver()
		for {
			select {
			case <-ctx.Done():
				return
			case <-pending:
				deliver()
			}
		}
	}()

	return sub
}
