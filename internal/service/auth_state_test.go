package service

import (
	"context"
	"sync"
	"testing"

	"queueaway/internal/config"
	"queueaway/internal/domain"
	"queueaway/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

func (l *noticeLog) add(n Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, n)
}

func (l *noticeLog) last() Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.notices) == 0 {
		return Notice{}
	}
	return l.notices[len(l.notices)-1]
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestAuthState_StartsSignedOut(t *testing.T) {
	env := newTestEnv(t)
	auth := newTestAuth(t, env, config.GoogleOAuthConfig{})
	state := NewAuthState(auth, env.bus, env.logger)
	defer state.Close()

	assert.False(t, isClosed(state.Ready()))
	require.NoError(t, state.Start(context.Background(), ""))
	assert.True(t, isClosed(state.Ready()))
	assert.Nil(t, state.Current())
}

func TestAuthState_ResumesFromToken(t *testing.T) {
	env := newTestEnv(t)
	auth := newTestAuth(t, env, config.GoogleOAuthConfig{})
	ctx := context.Background()

	session, err := auth.Signup(ctx, Credentials{Email: "ann@example.com", Password: "secret1", DisplayName: "Ann"})
	require.NoError(t, err)

	var seen []*models.Identity
	state := NewAuthState(auth, env.bus, env.logger, WithIdentityHandler(func(i *models.Identity) {
		seen = append(seen, i)
	}))
	defer state.Close()

	require.NoError(t, state.Start(ctx, session.Token))
	require.NotNil(t, state.Current())
	assert.Equal(t, "Ann", state.Current().DisplayName)
	require.Len(t, seen, 1)
}

func TestAuthState_LoginLogout(t *testing.T) {
	env := newTestEnv(t)
	auth := newTestAuth(t, env, config.GoogleOAuthConfig{})
	ctx := context.Background()

	_, err := auth.Signup(ctx, Credentials{Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	notices := &noticeLog{}
	state := NewAuthState(auth, env.bus, env.logger, WithNoticeHandler(notices.add))
	defer state.Close()
	require.NoError(t, state.Start(ctx, ""))

	t.Run("failed login keeps state and surfaces message", func(t *testing.T) {
		_, err := state.Login(ctx, "ann@example.com", "wrong-password")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		assert.Nil(t, state.Current())
		assert.Equal(t, Notice{Kind: NoticeError, Message: "Invalid email or password"}, notices.last())
	})

	t.Run("login", func(t *testing.T) {
		session, err := state.Login(ctx, "ann@example.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, state.SessionID(), session.SessionID)
		require.NotNil(t, state.Current())
		assert.Equal(t, "ann@example.com", state.Current().Email)
		assert.Equal(t, session.Token, state.Token())
		assert.Equal(t, domain.MsgLoginSuccess, notices.last().Message)
	})

	t.Run("logout", func(t *testing.T) {
		require.NoError(t, state.Logout(ctx))
		assert.Nil(t, state.Current())
		assert.Empty(t, state.Token())
		assert.Equal(t, domain.MsgLogoutSuccess, notices.last().Message)
	})

	t.Run("logout when signed out", func(t *testing.T) {
		assert.ErrorIs(t, state.Logout(ctx), domain.ErrUnauthenticated)
		assert.Equal(t, NoticeError, notices.last().Kind)
	})
}

func TestAuthState_Signup(t *testing.T) {
	env := newTestEnv(t)
	auth := newTestAuth(t, env, config.GoogleOAuthConfig{})
	ctx := context.Background()

	notices := &noticeLog{}
	state := NewAuthState(auth, env.bus, env.logger, WithNoticeHandler(notices.add))
	defer state.Close()
	require.NoError(t, state.Start(ctx, ""))

	_, err := state.Signup(ctx, "ann@example.com", "123", "Ann")
	assert.ErrorIs(t, err, domain.ErrWeakPassword)
	assert.Equal(t, "Password should be at least 6 characters", notices.last().Message)

	_, err = state.Signup(ctx, "ann@example.com", "secret1", "Ann")
	require.NoError(t, err)
	assert.Equal(t, domain.MsgSignupSuccess, notices.last().Message)
	require.NotNil(t, state.Current())
	assert.Equal(t, "Ann", state.Current().DisplayName)
}

func TestAuthState_IgnoresOtherSessions(t *testing.T) {
	env := newTestEnv(t)
	auth := newTestAuth(t, env, config.GoogleOAuthConfig{})
	ctx := context.Background()

	_, err := auth.Signup(ctx, Credentials{Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	first := NewAuthState(auth, env.bus, env.logger)
	second := NewAuthState(auth, env.bus, env.logger)
	defer first.Close()
	defer second.Close()
	require.NoError(t, first.Start(ctx, ""))
	require.NoError(t, second.Start(ctx, ""))

	_, err = first.Login(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	assert.NotNil(t, first.Current())
	assert.Nil(t, second.Current())
}

func TestAuthState_ProfileRefresh(t *testing.T) {
	env := newTestEnv(t)
	auth := newTestAuth(t, env, config.GoogleOAuthConfig{})
	ctx := context.Background()

	session, err := auth.Signup(ctx, Credentials{Email: "ann@example.com", Password: "secret1", DisplayName: "Ann"})
	require.NoError(t, err)

	state := NewAuthState(auth, env.bus, env.logger)
	defer state.Close()
	require.NoError(t, state.Start(ctx, session.Token))

	name := "Annie"
	require.NoError(t, env.db.UpdateUserProfile(ctx, session.Identity.UID, &name, nil))
	_, err = auth.RefreshIdentity(ctx, session.Identity.UID)
	require.NoError(t, err)

	assert.Equal(t, "Annie", state.Current().DisplayName)
}

func TestAuthState_CloseStopsUpdates(t *testing.T) {
	env := newTestEnv(t)
	auth := newTestAuth(t, env, config.GoogleOAuthConfig{})
	ctx := context.Background()

	_, err := auth.Signup(ctx, Credentials{Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	state := NewAuthState(auth, env.bus, env.logger)
	require.NoError(t, state.Start(ctx, ""))
	state.Close()
	state.Close()

	_, err = auth.Login(ctx, Credentials{SessionID: state.SessionID(), Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Nil(t, state.Current())
}
