package database

import (
	"context"
	"fmt"

	"queueaway/internal/events"
	"queueaway/internal/models"
)

func (db *DB) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = newID()
	}
	if msg.Type == "" {
		msg.Type = models.MessageText
	}
	msg.Timestamp = db.timestamp()
	msg.Read = false

	query := `INSERT INTO messages (id, sender_id, sender_name, receiver_id, body, type, timestamp, read)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		msg.ID, msg.SenderID, msg.SenderName, msg.ReceiverID, msg.Body, msg.Type, msg.Timestamp, msg.Read)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	db.changed(events.CollectionMessages, msg.ID, "create")
	return nil
}

// UpsertChat records msg as the chat's latest message: the recipient's unread counter is
// incremented and the sender's is reset. The read and the write happen in one statement
// inside a transaction, so two first messages racing from both sides end up in one row.
func (db *DB) UpsertChat(ctx context.Context, chatID string, msg *models.Message) error {
	a, b := msg.SenderID, msg.ReceiverID
	if b < a {
		a, b = b, a
	}
	senderIsA := msg.SenderID == a

	unreadA, unreadB := 0, 1
	if !senderIsA {
		unreadA, unreadB = 1, 0
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = db.timestamp()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO chats (id, participant_a, participant_b, last_message, last_message_time, last_sender_id, unread_a, unread_b)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	          ON CONFLICT(id) DO UPDATE SET
	            last_message = excluded.last_message,
	            last_message_time = excluded.last_message_time,
	            last_sender_id = excluded.last_sender_id,
	            unread_a = CASE WHEN ? THEN 0 ELSE chats.unread_a + 1 END,
	            unread_b = CASE WHEN ? THEN chats.unread_b + 1 ELSE 0 END`
	_, err = tx.ExecContext(ctx, query,
		chatID, a, b, msg.Body, ts, msg.SenderID, unreadA, unreadB,
		senderIsA, senderIsA,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert chat: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chat upsert: %w", err)
	}

	db.changed(events.CollectionChats, chatID, "update")
	return nil
}

// ListConversation returns the messages exchanged between two users in both directions,
// oldest first.
func (db *DB) ListConversation(ctx context.Context, userA, userB string) ([]*models.Message, error) {
	query := `SELECT id, sender_id, sender_name, receiver_id, body, type, timestamp, read
	          FROM messages
	          WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
	          ORDER BY timestamp ASC, rowid ASC`
	rows, err := db.QueryContext(ctx, query, userA, userB, userB, userA)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.SenderName, &m.ReceiverID, &m.Body, &m.Type, &m.Timestamp, &m.Read); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

// ListUserChats returns the chats userID takes part in, most recent first.
func (db *DB) ListUserChats(ctx context.Context, userID string) ([]*models.Chat, error) {
	query := `SELECT id, participant_a, participant_b, last_message, last_message_time, last_sender_id, unread_a, unread_b
	          FROM chats
	          WHERE participant_a = ? OR participant_b = ?
	          ORDER BY last_message_time DESC, id ASC`
	rows, err := db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	chats := []*models.Chat{}
	for rows.Next() {
		var (
			c                models.Chat
			a, b             string
			unreadA, unreadB int
		)
		if err := rows.Scan(&c.ID, &a, &b, &c.LastMessage, &c.LastMessageTime, &c.LastSenderID, &unreadA, &unreadB); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		c.Participants = []string{a, b}
		c.Unread = map[string]int{a: unreadA, b: unreadB}
		chats = append(chats, &c)
	}
	return chats, rows.Err()
}

// MarkChatRead resets userID's unread counter in the chat.
func (db *DB) MarkChatRead(ctx context.Context, chatID, userID string) error {
	query := `UPDATE chats SET
	            unread_a = CASE WHEN participant_a = ? THEN 0 ELSE unread_a END,
	            unread_b = CASE WHEN participant_b = ? THEN 0 ELSE unread_b END
	          WHERE id = ?`
	res, err := db.ExecContext(ctx, query, userID, userID, chatID)
	if err != nil {
		return fmt.Errorf("failed to mark chat read: %w", err)
	}
	if err := checkAffected(res, "chat", chatID); err != nil {
		return err
	}

	db.changed(events.CollectionChats, chatID, "update")
	return nil
}
