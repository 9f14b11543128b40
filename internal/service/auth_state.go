package service

import (
	"context"
	"sync"

	"queueaway/internal/domain"
	"queueaway/internal/events"
	"queueaway/internal/models"
	"queueaway/internal/realtime"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	NoticeSuccess = "success"
	NoticeError   = "error"
	NoticeInfo    = "info"
)

// Notice is a short user-facing message (a toast).
type Notice struct {
	Kind    string `json:"kind"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
}

// AuthState tracks the signed-in identity of one client session. The identity only ever
// changes through auth_state_changed events addressed to this session (or, for profile
// refreshes, to its user); the login methods merely trigger those events.
type AuthState struct {
	auth   *AuthService
	feed   realtime.ChangeFeed
	logger *zerolog.Logger

	sessionID string

	mu          sync.RWMutex
	current     *models.Identity
	token       string
	unsubscribe func()
	onNotice    func(Notice)
	onChange    func(*models.Identity)

	ready     chan struct{}
	readyOnce sync.Once
}

type AuthStateOption func(*AuthState)

// WithNoticeHandler receives the success and error notices of login, signup and logout.
func WithNoticeHandler(fn func(Notice)) AuthStateOption {
	return func(s *AuthState) { s.onNotice = fn }
}

// WithIdentityHandler is called after every identity change, including the first resolution.
func WithIdentityHandler(fn func(*models.Identity)) AuthStateOption {
	return func(s *AuthState) { s.onChange = fn }
}

func NewAuthState(auth *AuthService, feed realtime.ChangeFeed, logger *zerolog.Logger, opts ...AuthStateOption) *AuthState {
	s := &AuthState{
		auth:      auth,
		feed:      feed,
		logger:    logger,
		sessionID: uuid.NewString(),
		ready:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AuthState) SessionID() string {
	return s.sessionID
}

// Start subscribes to the identity stream and resolves the initial identity from token
// (which may be empty).
func (s *AuthState) Start(ctx context.Context, token string) error {
	unsubscribe := s.feed.Subscribe(events.EventAuthStateChanged, s.handle)
	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.token = token
	s.mu.Unlock()

	if _, err := s.auth.Resolve(ctx, s.sessionID, token); err != nil {
		s.logger.Error().Err(err).Str("session_id", s.sessionID).Msg("resolve initial identity")
		return err
	}
	return nil
}

// Ready is closed once the initial identity has been resolved.
func (s *AuthState) Ready() <-chan struct{} {
	return s.ready
}

// Current returns the signed-in identity, or nil.
func (s *AuthState) Current() *models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Token returns the bearer token of the current sign-in.
func (s *AuthState) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *AuthState) Login(ctx context.Context, email, password string) (*Session, error) {
	session, err := s.auth.Login(ctx, Credentials{SessionID: s.sessionID, Email: email, Password: password})
	return s.finish(session, err, domain.MsgLoginSuccess, domain.MsgLoginFailed)
}

func (s *AuthState) Signup(ctx context.Context, email, password, displayName string) (*Session, error) {
	session, err := s.auth.Signup(ctx, Credentials{
		SessionID:   s.sessionID,
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
	return s.finish(session, err, domain.MsgSignupSuccess, domain.MsgSignupFailed)
}

// FederatedLogin completes a Google redirect sign-in.
func (s *AuthState) FederatedLogin(ctx context.Context, code string) (*Session, error) {
	session, err := s.auth.CompleteFederatedLogin(ctx, s.sessionID, code)
	return s.finish(session, err, domain.MsgGoogleLoginSuccess, domain.MsgLoginFailed)
}

// Adopt binds a session obtained elsewhere (for example over HTTP) to this client.
func (s *AuthState) Adopt(ctx context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	_, err := s.auth.Resolve(ctx, s.sessionID, token)
	return err
}

func (s *AuthState) Logout(ctx context.Context) error {
	token := s.Token()
	var err error
	if token == "" {
		err = domain.ErrUnauthenticated
	} else {
		err = s.auth.Logout(ctx, token)
	}
	if err != nil {
		s.notify(Notice{Kind: NoticeError, Message: domain.UserMessage(err, domain.MsgLogoutFailed)})
		return err
	}
	// the token was issued to another session id when it was adopted from HTTP
	s.auth.announce(events.AuthStatePayload{SessionID: s.sessionID})
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	s.notify(Notice{Kind: NoticeSuccess, Message: domain.MsgLogoutSuccess})
	return nil
}

// Close releases the stream subscription.
func (s *AuthState) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *AuthState) finish(session *Session, err error, success, fallback string) (*Session, error) {
	if err != nil {
		s.notify(Notice{Kind: NoticeError, Message: domain.UserMessage(err, fallback)})
		return nil, err
	}
	s.mu.Lock()
	s.token = session.Token
	s.mu.Unlock()
	s.notify(Notice{Kind: NoticeSuccess, Message: success})
	return session, nil
}

func (s *AuthState) handle(e *events.Event) error {
	var payload events.AuthStatePayload
	if err := e.Decode(&payload); err != nil {
		return err
	}

	s.mu.Lock()
	switch {
	case payload.SessionID == s.sessionID:
	case payload.SessionID == "" && s.current != nil && payload.UID == s.current.UID:
	default:
		s.mu.Unlock()
		return nil
	}
	s.current = payload.Identity
	onChange := s.onChange
	s.mu.Unlock()

	s.readyOnce.Do(func() { close(s.ready) })
	if onChange != nil {
		onChange(payload.Identity)
	}
	return nil
}

func (s *AuthState) notify(n Notice) {
	if s.onNotice != nil {
		s.onNotice(n)
	}
}
