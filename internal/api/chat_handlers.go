package api

import (
	"net/http"

	"queueaway/internal/domain"
	"queueaway/internal/service"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleSendMessage(c *gin.Context) {
	var in service.SendMessageInput
	if !bindJSON(c, &in) {
		return
	}
	me := caller(c)
	in.SenderID = me.UID
	in.SenderName = me.BookingName()

	msg, err := s.svc.Chat.SendMessage(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err, domain.MsgMessageFailed)
		return
	}
	writeJSON(c, http.StatusCreated, msg)
}

func (s *Server) handleConversation(c *gin.Context) {
	messages, err := s.svc.Chat.Conversation(c.Request.Context(), caller(c).UID, c.Param("other"))
	if err != nil {
		s.fail(c, err, "")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"chatId": service.ChatID(caller(c).UID, c.Param("other")), "messages": messages})
}

func (s *Server) handleChats(c *gin.Context) {
	chats, err := s.svc.Chat.Chats(c.Request.Context(), caller(c).UID)
	if err != nil {
		s.fail(c, err, "")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"chats": chats})
}

// handleMarkRead never fails; a missing chat is only logged.
func (s *Server) handleMarkRead(c *gin.Context) {
	s.svc.Chat.MarkRead(c.Request.Context(), caller(c).UID, c.Param("other"))
	c.Status(http.StatusNoContent)
}
