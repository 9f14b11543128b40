package api

import (
	"net/http"
	"strconv"
	"strings"

	"queueaway/internal/catalog"
	"queueaway/internal/domain"
	"queueaway/internal/models"
	"queueaway/internal/service"

	"github.com/gin-gonic/gin"
)

const regionSuggestions = 5

// handleListBusinesses answers GET /businesses?q=&category=&lat=&lng=&radius=. q matches
// name or address; search= also matches the category and the offered services.
func (s *Server) handleListBusinesses(c *gin.Context) {
	q := service.BrowseQuery{
		Term:     strings.TrimSpace(c.Query("q")),
		Category: c.Query("category"),
	}

	if c.Query("lat") != "" || c.Query("lng") != "" {
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
		if errLat != nil || errLng != nil {
			writeError(c, http.StatusBadRequest, "lat and lng must be numbers")
			return
		}
		q.Origin = &models.Location{Latitude: lat, Longitude: lng}
		q.RadiusKm = s.svc.Preferences.DefaultRadiusKm()
		if raw := c.Query("radius"); raw != "" {
			radius, err := strconv.ParseFloat(raw, 64)
			if err != nil || radius <= 0 {
				writeError(c, http.StatusBadRequest, "radius must be a positive number")
				return
			}
			q.RadiusKm = radius
		}
	}

	businesses, err := s.svc.Businesses.Browse(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err, "")
		return
	}
	if term := strings.TrimSpace(c.Query("search")); term != "" {
		businesses = catalog.Search(businesses, term)
	}
	writeJSON(c, http.StatusOK, gin.H{
		"businesses":    businesses,
		"count":         len(businesses),
		"averageRating": catalog.AverageRating(businesses),
	})
}

func (s *Server) handleRegions(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"regions": catalog.SuggestRegions(c.Query("q"), regionSuggestions)})
}

func (s *Server) handleGetBusiness(c *gin.Context) {
	b, err := s.svc.Businesses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err, "")
		return
	}
	writeJSON(c, http.StatusOK, b)
}

func (s *Server) handleCreateBusiness(c *gin.Context) {
	var b models.Business
	if !bindJSON(c, &b) {
		return
	}
	b.ID = ""
	if err := s.svc.Businesses.Create(c.Request.Context(), &b); err != nil {
		s.fail(c, err, domain.MsgBusinessCreateFailed)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"business": b, "message": domain.MsgBusinessCreated})
}

func (s *Server) handleUpdateBusiness(c *gin.Context) {
	var update models.BusinessUpdate
	if !bindJSON(c, &update) {
		return
	}
	b, err := s.svc.Businesses.Update(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		s.fail(c, err, domain.MsgBusinessUpdateFailed)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"business": b, "message": domain.MsgBusinessUpdated})
}

func (s *Server) handleUpdateQueue(c *gin.Context) {
	var req struct {
		Count *int `json:"count"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.Count == nil {
		writeError(c, http.StatusBadRequest, "count is required")
		return
	}
	ctx := c.Request.Context()
	if err := s.svc.Businesses.UpdateQueueCount(ctx, c.Param("id"), *req.Count); err != nil {
		s.fail(c, err, domain.MsgBusinessUpdateFailed)
		return
	}
	b, err := s.svc.Businesses.Get(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, err, "")
		return
	}
	writeJSON(c, http.StatusOK, b)
}
