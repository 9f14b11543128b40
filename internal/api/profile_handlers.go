package api

import (
	"context"
	"net/http"
	"strconv"

	"queueaway/internal/domain"
	"queueaway/internal/geo"
	"queueaway/internal/models"

	"github.com/gin-gonic/gin"
)

const maxPhotoBytes = 5 << 20

func (s *Server) handleUploadPhoto(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPhotoBytes)
	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		writeError(c, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()

	identity, err := s.svc.Profile.UploadPhoto(c.Request.Context(), caller(c).UID, file, header.Header.Get("Content-Type"))
	if err != nil {
		s.fail(c, err, domain.MsgPhotoUpdateFailed)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"user": identity, "message": domain.MsgPhotoUpdated})
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req struct {
		DisplayName string `json:"displayName"`
	}
	if !bindJSON(c, &req) {
		return
	}
	identity, err := s.svc.Profile.UpdateDisplayName(c.Request.Context(), caller(c).UID, req.DisplayName)
	if err != nil {
		s.fail(c, err, domain.MsgProfileUpdateFailed)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"user": identity, "message": domain.MsgProfileUpdated})
}

func (s *Server) handleGetTheme(c *gin.Context) {
	theme, err := s.svc.Preferences.Theme(c.Request.Context(), caller(c).UID)
	if err != nil {
		s.fail(c, err, "")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"theme": theme})
}

func (s *Server) handleSetTheme(c *gin.Context) {
	var req struct {
		Theme string `json:"theme"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := s.svc.Preferences.SetTheme(c.Request.Context(), caller(c).UID, req.Theme); err != nil {
		s.fail(c, err, "Theme must be light or dark")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"theme": req.Theme})
}

func (s *Server) handleToggleTheme(c *gin.Context) {
	theme, err := s.svc.Preferences.ToggleTheme(c.Request.Context(), caller(c).UID)
	if err != nil {
		s.fail(c, err, "")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"theme": theme})
}

func (s *Server) handleGetLocation(c *gin.Context) {
	loc, err := s.svc.Preferences.LastLocation(c.Request.Context(), caller(c).UID)
	if err != nil {
		s.fail(c, err, "")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"location": loc})
}

// locationReport is one answer from the client's position provider: either a fix or the
// failure code it reported.
type locationReport struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  float64  `json:"accuracy"`
	Error     string   `json:"error"`
}

// handleSaveLocation runs the reported fix through the user's locator, which keeps a fresh
// cached fix instead and stores whatever it accepts.
func (s *Server) handleSaveLocation(c *gin.Context) {
	var report locationReport
	if !bindJSON(c, &report) {
		return
	}

	source := geo.SourceFunc(func(context.Context) (models.Location, error) {
		if report.Error != "" {
			return models.Location{}, geo.ErrorFromCode(report.Error)
		}
		if report.Latitude == nil || report.Longitude == nil {
			return models.Location{}, geo.ErrPositionUnavailable
		}
		return models.Location{Latitude: *report.Latitude, Longitude: *report.Longitude, Accuracy: report.Accuracy}, nil
	})

	ctx := c.Request.Context()
	loc, err := s.svc.Preferences.Locator(ctx, caller(c).UID, source).Locate(ctx)
	if err != nil {
		s.fail(c, err, geo.MsgUnknown)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"location": loc, "message": domain.MsgLocationObtained})
}

func (s *Server) handlePermission(c *gin.Context) {
	var req struct {
		Granted bool `json:"granted"`
	}
	if !bindJSON(c, &req) {
		return
	}
	grant, err := s.svc.Notifications.RequestPermission(c.Request.Context(), caller(c).UID, req.Granted)
	if err != nil {
		s.fail(c, err, domain.MsgNotificationsFailed)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"grant": grant, "message": domain.MsgNotificationsEnabled})
}

func (s *Server) handleDisableNotifications(c *gin.Context) {
	if err := s.svc.Notifications.Disable(c.Request.Context(), caller(c).UID); err != nil {
		s.fail(c, err, "")
		return
	}
	c.Status(http.StatusNoContent)
}

// handleDistance answers GET /geo/distance?lat1=&lng1=&lat2=&lng2= in kilometres.
func (s *Server) handleDistance(c *gin.Context) {
	var coords [4]float64
	for i, key := range []string{"lat1", "lng1", "lat2", "lng2"} {
		v, err := strconv.ParseFloat(c.Query(key), 64)
		if err != nil {
			writeError(c, http.StatusBadRequest, key+" must be a number")
			return
		}
		coords[i] = v
	}
	writeJSON(c, http.StatusOK, gin.H{"km": geo.Distance(coords[0], coords[1], coords[2], coords[3])})
}
