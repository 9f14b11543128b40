package api

import (
	"net/http"

	"queueaway/internal/domain"
	"queueaway/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	oauthStateCookie   = "qa_oauth_state"
	oauthSessionCookie = "qa_oauth_session"
	oauthCookieMaxAge  = 600
)

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	// SessionID binds the sign-in to an open websocket session.
	SessionID string `json:"sessionId"`
}

type sessionResponse struct {
	*service.Session
	Message string `json:"message"`
}

func (s *Server) handleSignup(c *gin.Context) {
	var req credentialsRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := s.svc.Auth.Signup(c.Request.Context(), service.Credentials{
		SessionID:   req.SessionID,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		s.fail(c, err, domain.MsgSignupFailed)
		return
	}
	writeJSON(c, http.StatusCreated, sessionResponse{Session: session, Message: domain.MsgSignupSuccess})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := s.svc.Auth.Login(c.Request.Context(), service.Credentials{
		SessionID: req.SessionID,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		s.fail(c, err, domain.MsgLoginFailed)
		return
	}
	writeJSON(c, http.StatusOK, sessionResponse{Session: session, Message: domain.MsgLoginSuccess})
}

func (s *Server) handleLogout(c *gin.Context) {
	if err := s.svc.Auth.Logout(c.Request.Context(), c.GetString(ctxTokenKey)); err != nil {
		s.fail(c, err, domain.MsgLogoutFailed)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"message": domain.MsgLogoutSuccess})
}

// handleGoogleLogin starts the redirect flow. ?session= ties the result to a websocket
// session; ?redirect=1 answers with a 302 instead of the URL.
func (s *Server) handleGoogleLogin(c *gin.Context) {
	state := uuid.NewString()
	url, err := s.svc.Auth.FederatedLoginURL(state)
	if err != nil {
		s.fail(c, err, domain.MsgLoginFailed)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, oauthCookieMaxAge, "/", "", false, true)
	c.SetCookie(oauthSessionCookie, c.Query("session"), oauthCookieMaxAge, "/", "", false, true)

	if c.Query("redirect") != "" {
		c.Redirect(http.StatusFound, url)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"url": url})
}

func (s *Server) handleGoogleCallback(c *gin.Context) {
	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		writeError(c, http.StatusBadRequest, "invalid oauth state")
		return
	}
	code := c.Query("code")
	if code == "" {
		writeError(c, http.StatusBadRequest, domain.MsgLoginFailed)
		return
	}
	sessionID, _ := c.Cookie(oauthSessionCookie)

	c.SetCookie(oauthStateCookie, "", -1, "/", "", false, true)
	c.SetCookie(oauthSessionCookie, "", -1, "/", "", false, true)

	session, err := s.svc.Auth.CompleteFederatedLogin(c.Request.Context(), sessionID, code)
	if err != nil {
		s.fail(c, err, domain.MsgLoginFailed)
		return
	}
	writeJSON(c, http.StatusOK, sessionResponse{Session: session, Message: domain.MsgGoogleLoginSuccess})
}

func (s *Server) handleMe(c *gin.Context) {
	writeJSON(c, http.StatusOK, caller(c))
}
