package api

import (
	"bytes"
	"fmt"
	"net/http"

	"queueaway/internal/domain"
	"queueaway/internal/export"
	"queueaway/internal/models"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleSlots(c *gin.Context) {
	dates, times := s.svc.Booking.Slots()
	writeJSON(c, http.StatusOK, gin.H{"dates": dates, "times": times})
}

func (s *Server) handleBook(c *gin.Context) {
	var req models.BookingRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := s.svc.Booking.Book(c.Request.Context(), caller(c), req)
	if err != nil {
		s.fail(c, err, domain.MsgBookingFailed)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"appointment": a, "message": domain.MsgBookingSuccess})
}

func (s *Server) handleMyAppointments(c *gin.Context) {
	list, err := s.svc.Booking.UserAppointments(c.Request.Context(), caller(c).UID)
	if err != nil {
		s.fail(c, err, "")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"appointments": list})
}

func (s *Server) handleUpdateAppointment(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := s.svc.Booking.Owned(ctx, caller(c).UID, c.Param("id")); err != nil {
		s.fail(c, err, domain.MsgAppointmentUpdateErr)
		return
	}
	var update models.AppointmentUpdate
	if !bindJSON(c, &update) {
		return
	}
	a, err := s.svc.Booking.Update(ctx, c.Param("id"), update)
	if err != nil {
		s.fail(c, err, domain.MsgAppointmentUpdateErr)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"appointment": a, "message": domain.MsgAppointmentUpdated})
}

func (s *Server) handleCancelAppointment(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := s.svc.Booking.Owned(ctx, caller(c).UID, c.Param("id")); err != nil {
		s.fail(c, err, domain.MsgCancelFailed)
		return
	}
	if err := s.svc.Booking.Cancel(ctx, c.Param("id")); err != nil {
		s.fail(c, err, domain.MsgCancelFailed)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"message": domain.MsgAppointmentCancelled})
}

func (s *Server) handleDeleteAppointment(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := s.svc.Booking.Owned(ctx, caller(c).UID, c.Param("id")); err != nil {
		s.fail(c, err, "")
		return
	}
	if err := s.svc.Booking.Delete(ctx, c.Param("id")); err != nil {
		s.fail(c, err, "")
		return
	}
	c.Status(http.StatusNoContent)
}

// handleQueueStatus reports both the live position and the prediction frozen at booking.
func (s *Server) handleQueueStatus(c *gin.Context) {
	a, err := s.svc.Booking.Owned(c.Request.Context(), caller(c).UID, c.Param("id"))
	if err != nil {
		s.fail(c, err, "")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"appointmentId":     a.ID,
		"position":          s.svc.Queue.CurrentQueuePosition(a.ID),
		"estimatedWaitTime": s.svc.Queue.EstimatedWaitTime(a.ID),
		"bookedPosition":    a.QueuePosition,
		"bookedWaitTime":    a.EstimatedWaitTime,
	})
}

func (s *Server) handleDashboard(c *gin.Context) {
	uid := caller(c).UID
	writeJSON(c, http.StatusOK, gin.H{
		"stats":        s.svc.Queue.Dashboard(uid, s.now()),
		"appointments": s.svc.Queue.UserAppointments(uid),
		"loading":      s.svc.Queue.Loading(),
	})
}

func (s *Server) handleExport(c *gin.Context) {
	uid := caller(c).UID
	list, err := s.svc.Booking.UserAppointments(c.Request.Context(), uid)
	if err != nil {
		s.fail(c, err, "")
		return
	}

	var buf bytes.Buffer
	if err := export.Appointments(&buf, list, s.svc.Location); err != nil {
		s.fail(c, err, "")
		return
	}
	name := export.FileName(uid, s.now().In(s.svc.Location))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
