package geo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"queueaway/internal/models"
)

var (
	ErrUnsupported         = errors.New("geolocation is not supported")
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrTimeout             = errors.New("location request timed out")
)

// User-facing texts for location failures.
const (
	MsgUnsupported      = "Geolocation is not supported by this browser"
	MsgPermissionDenied = "Location access denied by user"
	MsgUnavailable      = "Location information unavailable"
	MsgTimeout          = "Location request timed out"
	MsgUnknown          = "An unknown error occurred"
)

// Message maps a Locate error to the text shown to the user.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupported):
		return MsgUnsupported
	case errors.Is(err, ErrPermissionDenied):
		return MsgPermissionDenied
	case errors.Is(err, ErrPositionUnavailable):
		return MsgUnavailable
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return MsgTimeout
	}
	return MsgUnknown
}

// ErrorFromCode converts a client-reported failure code into one of the locator errors.
func ErrorFromCode(code string) error {
	switch code {
	case "unsupported":
		return ErrUnsupported
	case "permission_denied":
		return ErrPermissionDenied
	case "position_unavailable":
		return ErrPositionUnavailable
	case "timeout":
		return ErrTimeout
	}
	return fmt.Errorf("location error %q", code)
}

// Source produces one device position.
type Source interface {
	Position(ctx context.Context) (models.Location, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (models.Location, error)

func (f SourceFunc) Position(ctx context.Context) (models.Location, error) {
	return f(ctx)
}

// Locator asks its source for a position once per call, with a deadline, and reuses a fix
// while it is younger than MaxAge.
type Locator struct {
	source  Source
	timeout time.Duration
	maxAge  time.Duration
	onFix   func(ctx context.Context, loc models.Location) error
	now     func() time.Time

	mu   sync.Mutex
	last *models.Location
}

type LocatorOption func(*Locator)

// WithFixHandler registers a callback that persists every fresh fix.
func WithFixHandler(fn func(ctx context.Context, loc models.Location) error) LocatorOption {
	return func(l *Locator) { l.onFix = fn }
}

// WithLastKnown seeds the cache with a previously stored fix.
func WithLastKnown(loc *models.Location) LocatorOption {
	return func(l *Locator) {
		if loc != nil {
			cp := *loc
			l.last = &cp
		}
	}
}

func NewLocator(source Source, timeout, maxAge time.Duration, opts ...LocatorOption) *Locator {
	l := &Locator{source: source, timeout: timeout, maxAge: maxAge, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Locate returns the cached fix when fresh, otherwise one position from the source.
// Failures are not retried.
func (l *Locator) Locate(ctx context.Context) (models.Location, error) {
	if l.source == nil {
		return models.Location{}, ErrUnsupported
	}

	l.mu.Lock()
	if l.last != nil && l.maxAge > 0 && l.now().Sub(l.last.ObtainedAt) < l.maxAge {
		loc := *l.last
		l.mu.Unlock()
		return loc, nil
	}
	l.mu.Unlock()

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	type result struct {
		loc models.Location
		err error
	}
	ch := make(chan result, 1)
	go func() {
		loc, err := l.source.Position(ctx)
		ch <- result{loc, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return models.Location{}, ErrTimeout
	case res = <-ch:
	}
	if res.err != nil {
		return models.Location{}, res.err
	}

	loc := res.loc
	if loc.ObtainedAt.IsZero() {
		loc.ObtainedAt = l.now()
	}

	l.mu.Lock()
	l.last = &loc
	l.mu.Unlock()

	if l.onFix != nil {
		if err := l.onFix(ctx, loc); err != nil {
			return loc, fmt.Errorf("store location: %w", err)
		}
	}
	return loc, nil
}

// Last returns the most recent fix, if any.
func (l *Locator) Last() *models.Location {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last == nil {
		return nil
	}
	loc := *l.last
	return &loc
}
