package models

import "time"

type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	ReceiverID string    `json:"receiverId"`
	Body       string    `json:"message"`
	Type       string    `json:"type"` // text, image, file
	Timestamp  time.Time `json:"timestamp"`
	Read       bool      `json:"read"`
}

// Chat is the per-pair conversation summary.
type Chat struct {
	ID              string         `json:"id"`
	Participants    []string       `json:"participants"`
	LastMessage     string         `json:"lastMessage"`
	LastMessageTime time.Time      `json:"lastMessageTime"`
	LastSenderID    string         `json:"lastSenderId"`
	Unread          map[string]int `json:"unread"`
}

// Other returns the participant that is not uid.
func (c *Chat) Other(uid string) string {
	for _, p := range c.Participants {
		if p != uid {
			return p
		}
	}
	return ""
}

// ChatSummary is a chat as seen by one participant.
type ChatSummary struct {
	ID              string    `json:"id"`
	OtherUserID     string    `json:"otherUserId"`
	LastMessage     string    `json:"lastMessage"`
	LastMessageTime time.Time `json:"lastMessageTime"`
	LastSenderID    string    `json:"lastSenderId"`
	UnreadCount     int       `json:"unreadCount"`
}

// SummaryFor projects the chat onto uid's point of view.
func (c *Chat) SummaryFor(uid string) ChatSummary {
	return ChatSummary{
		ID:              c.ID,
		OtherUserID:     c.Other(uid),
		LastMessage:     c.LastMessage,
		LastMessageTime: c.LastMessageTime,
		LastSenderID:    c.LastSenderID,
		UnreadCount:     c.Unread[uid],
	}
}
