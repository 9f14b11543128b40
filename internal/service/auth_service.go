package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"queueaway/internal/config"
	"queueaway/internal/domain"
	"queueaway/internal/events"
	"queueaway/internal/models"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauthapi "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// Claims is the payload of a session token.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// Credentials is a password sign-in or sign-up attempt. SessionID names the client session
// the resulting token belongs to; a fresh one is generated when empty.
type Credentials struct {
	SessionID   string
	Email       string
	Password    string
	DisplayName string
}

// Session is a signed-in client: the bearer token plus the identity it was issued for.
type Session struct {
	Token     string           `json:"token"`
	SessionID string           `json:"sessionId"`
	ExpiresAt time.Time        `json:"expiresAt"`
	Identity  *models.Identity `json:"user"`
}

// AuthService is the account boundary: password accounts, Google sign-in and session tokens.
// Every change of identity is announced on the bus as auth_state_changed.
type AuthService struct {
	users       domain.UserRepository
	bus         domain.EventPublisher
	secret      []byte
	ttl         time.Duration
	minPassword int
	oauth       *oauth2.Config
	logger      *zerolog.Logger
	now         func() time.Time

	// userinfoEndpoint overrides the Google API base URL.
	userinfoEndpoint string

	mu      sync.Mutex
	revoked map[string]time.Time // token -> expiry
}

func NewAuthService(users domain.UserRepository, bus domain.EventPublisher, cfg config.AuthConfig, logger *zerolog.Logger) *AuthService {
	s := &AuthService{
		users:       users,
		bus:         bus,
		secret:      []byte(cfg.JWTSecret),
		ttl:         config.Duration(cfg.TokenTTL),
		minPassword: cfg.MinPasswordLength,
		logger:      logger,
		now:         time.Now,
		revoked:     make(map[string]time.Time),
	}
	if s.ttl <= 0 {
		s.ttl = 7 * 24 * time.Hour
	}
	if s.minPassword <= 0 {
		s.minPassword = 6
	}
	if cfg.Google.Enabled() {
		s.oauth = &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
			Scopes:       []string{"openid", oauthapi.UserinfoEmailScope, oauthapi.UserinfoProfileScope},
			Endpoint:     google.Endpoint,
		}
	}
	return s
}

// Signup creates a password account and signs it in.
func (s *AuthService) Signup(ctx context.Context, c Credentials) (*Session, error) {
	email := strings.TrimSpace(c.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("email %q: %w", email, domain.ErrInvalidInput)
	}
	if len(c.Password) < s.minPassword {
		return nil, domain.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		DisplayName:  strings.TrimSpace(c.DisplayName),
		Provider:     models.ProviderPassword,
		PasswordHash: string(hash),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("uid", user.UID).Msg("account created")
	return s.openSession(c.SessionID, user.Identity())
}

// Login checks email and password. Unknown emails and wrong passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, c Credentials) (*Session, error) {
	user, err := s.users.GetUserByEmail(ctx, c.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(c.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return s.openSession(c.SessionID, user.Identity())
}

// Logout revokes the session's token and announces the signed-out state.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.ParseToken(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.revoked[token] = claims.ExpiresAt.Time
	s.pruneRevokedLocked()
	s.mu.Unlock()

	s.announce(events.AuthStatePayload{SessionID: claims.ID, UID: claims.UserID})
	return nil
}

// FederatedEnabled reports whether Google sign-in is configured.
func (s *AuthService) FederatedEnabled() bool {
	return s.oauth != nil
}

// FederatedLoginURL is where the client is redirected to sign in with Google.
func (s *AuthService) FederatedLoginURL(state string) (string, error) {
	if s.oauth == nil {
		return "", domain.ErrFederatedDisabled
	}
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// CompleteFederatedLogin exchanges the redirect code, reads the Google profile and signs
// the account in, creating it on first use.
func (s *AuthService) CompleteFederatedLogin(ctx context.Context, sessionID, code string) (*Session, error) {
	if s.oauth == nil {
		return nil, domain.ErrFederatedDisabled
	}
	if code == "" {
		return nil, fmt.Errorf("empty authorization code: %w", domain.ErrInvalidInput)
	}

	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	opts := []option.ClientOption{option.WithHTTPClient(s.oauth.Client(ctx, tok))}
	if s.userinfoEndpoint != "" {
		opts = append(opts, option.WithEndpoint(s.userinfoEndpoint))
	}
	svc, err := oauthapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create userinfo client: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetch google profile: %w", err)
	}

	user := &models.User{
		UID:         models.ProviderGoogle + ":" + info.Id,
		Email:       info.Email,
		DisplayName: info.Name,
		PhotoURL:    info.Picture,
		Provider:    models.ProviderGoogle,
	}
	if err := s.users.UpsertFederatedUser(ctx, user); err != nil {
		return nil, err
	}
	stored, err := s.users.GetUserByUID(ctx, user.UID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("uid", stored.UID).Msg("google sign-in")
	return s.openSession(sessionID, stored.Identity())
}

// ParseToken validates a bearer token and returns its claims.
func (s *AuthService) ParseToken(token string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrUnauthenticated)
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, domain.ErrUnauthenticated
	}

	s.mu.Lock()
	_, revoked := s.revoked[token]
	s.mu.Unlock()
	if revoked {
		return nil, domain.ErrUnauthenticated
	}
	return claims, nil
}

// Identity loads the current profile of uid.
func (s *AuthService) Identity(ctx context.Context, uid string) (*models.Identity, error) {
	user, err := s.users.GetUserByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return user.Identity(), nil
}

// Resolve announces to sessionID the identity behind token, or the signed-out state when the
// token is empty or no longer valid.
func (s *AuthService) Resolve(ctx context.Context, sessionID, token string) (*models.Identity, error) {
	var identity *models.Identity
	var resolveErr error
	if token != "" {
		claims, err := s.ParseToken(token)
		if err == nil {
			identity, err = s.Identity(ctx, claims.UserID)
		}
		if err != nil && !errors.Is(err, domain.ErrUnauthenticated) && !errors.Is(err, domain.ErrNotFound) {
			resolveErr = err
		}
	}
	payload := events.AuthStatePayload{SessionID: sessionID, Identity: identity}
	if identity != nil {
		payload.UID = identity.UID
	}
	s.announce(payload)
	return identity, resolveErr
}

// RefreshIdentity re-announces uid's profile to every session of that user.
func (s *AuthService) RefreshIdentity(ctx context.Context, uid string) (*models.Identity, error) {
	identity, err := s.Identity(ctx, uid)
	if err != nil {
		return nil, err
	}
	s.announce(events.AuthStatePayload{UID: uid, Identity: identity})
	return identity, nil
}

func (s *AuthService) openSession(sid string, identity *models.Identity) (*Session, error) {
	now := s.now()
	if sid == "" {
		sid = uuid.NewString()
	}
	expires := now.Add(s.ttl)

	claims := Claims{
		UserID: identity.UID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sid,
			Subject:   identity.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	s.announce(events.AuthStatePayload{SessionID: sid, UID: identity.UID, Identity: identity})
	return &Session{Token: signed, SessionID: sid, ExpiresAt: expires, Identity: identity}, nil
}

func (s *AuthService) announce(payload events.AuthStatePayload) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishJSON(events.EventAuthStateChanged, payload); err != nil {
		s.logger.Error().Err(err).Str("uid", payload.UID).Msg("publish auth state")
	}
}

func (s *AuthService) pruneRevokedLocked() {
	now := s.now()
	for token, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, token)
		}
	}
}
