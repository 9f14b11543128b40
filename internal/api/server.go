package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"queueaway/internal/config"
	"queueaway/internal/realtime"
	"queueaway/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Services are the application services the API is a thin shell over.
type Services struct {
	Auth          *service.AuthService
	Queue         *service.QueueService
	Booking       *service.BookingService
	Businesses    *service.BusinessService
	Chat          *service.ChatService
	Profile       *service.ProfileService
	Preferences   *service.PreferenceService
	Notifications *service.NotificationService
	// Feed carries identity changes and delivered notifications to websocket sessions.
	Feed realtime.ChangeFeed
	// FilesDir is served under /files when uploads are stored on local disk.
	FilesDir string
	Location *time.Location
}

// Server exposes the HTTP API and websocket sessions.
type Server struct {
	cfg     config.APIConfig
	svc     Services
	router  *gin.Engine
	server  *http.Server
	limiter *rateLimiter
	logger  zerolog.Logger
	now     func() time.Time
}

func New(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *Server {
	if cfg.HTTP.Mode != "" {
		gin.SetMode(cfg.HTTP.Mode)
	}
	if svc.Location == nil {
		svc.Location = time.Local
	}

	s := &Server{
		cfg:     cfg,
		svc:     svc,
		limiter: newRateLimiter(cfg.RateLimit),
		logger:  logger.With().Str("component", "api").Logger(),
		now:     time.Now,
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.requestLogger(), s.cors(), s.rateLimit())
	s.routes(r)
	s.router = r

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return s
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "loading": s.svc.Queue.Loading()})
	})
	r.GET("/ws", s.handleWebSocket)
	if s.svc.FilesDir != "" {
		r.Static("/files", s.svc.FilesDir)
	}

	v1 := r.Group("/api/v1")
	auth := s.requireAuth()

	v1.POST("/auth/signup", s.handleSignup)
	v1.POST("/auth/login", s.handleLogin)
	v1.POST("/auth/logout", auth, s.handleLogout)
	v1.GET("/auth/google", s.handleGoogleLogin)
	v1.GET("/auth/google/callback", s.handleGoogleCallback)
	v1.GET("/me", auth, s.handleMe)

	v1.GET("/businesses", s.handleListBusinesses)
	v1.GET("/regions", s.handleRegions)
	v1.GET("/businesses/:id", s.handleGetBusiness)
	v1.POST("/businesses", auth, s.handleCreateBusiness)
	v1.PATCH("/businesses/:id", auth, s.handleUpdateBusiness)
	v1.PUT("/businesses/:id/queue", auth, s.handleUpdateQueue)

	v1.GET("/booking/slots", s.handleSlots)
	v1.POST("/appointments", auth, s.handleBook)
	v1.GET("/appointments", auth, s.handleMyAppointments)
	v1.GET("/appointments/export", auth, s.handleExport)
	v1.PATCH("/appointments/:id", auth, s.handleUpdateAppointment)
	v1.POST("/appointments/:id/cancel", auth, s.handleCancelAppointment)
	v1.DELETE("/appointments/:id", auth, s.handleDeleteAppointment)
	v1.GET("/appointments/:id/queue", auth, s.handleQueueStatus)
	v1.GET("/dashboard", auth, s.handleDashboard)

	v1.POST("/messages", auth, s.handleSendMessage)
	v1.GET("/messages/:other", auth, s.handleConversation)
	v1.GET("/chats", auth, s.handleChats)
	v1.POST("/chats/:other/read", auth, s.handleMarkRead)

	v1.POST("/profile/photo", auth, s.handleUploadPhoto)
	v1.PATCH("/profile", auth, s.handleUpdateProfile)

	v1.GET("/preferences/theme", auth, s.handleGetTheme)
	v1.PUT("/preferences/theme", auth, s.handleSetTheme)
	v1.POST("/preferences/theme/toggle", auth, s.handleToggleTheme)
	v1.GET("/preferences/location", auth, s.handleGetLocation)
	v1.PUT("/preferences/location", auth, s.handleSaveLocation)

	v1.POST("/notifications/permission", auth, s.handlePermission)
	v1.DELETE("/notifications/permission", auth, s.handleDisableNotifications)

	v1.GET("/geo/distance", s.handleDistance)
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
