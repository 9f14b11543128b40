package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"queueaway/internal/domain"
	"queueaway/internal/events"
	"queueaway/internal/models"

	"github.com/mattn/go-sqlite3"
)

const userColumns = `uid, email, display_name, photo_url, provider, password_hash, created_at, updated_at`

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	if user.UID == "" {
		user.UID = newID()
	}
	now := db.timestamp()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Email = strings.TrimSpace(user.Email)

	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		user.UID, user.Email, user.DisplayName, user.PhotoURL, user.Provider, user.PasswordHash, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	db.changed(events.CollectionUsers, user.UID, "create")
	return nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.TrimSpace(email))
}

func (db *DB) GetUserByUID(ctx context.Context, uid string) (*models.User, error) {
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE uid = ?`, uid)
}

func (db *DB) queryUser(ctx context.Context, query string, key string) (*models.User, error) {
	var user models.User
	err := db.QueryRowContext(ctx, query, key).Scan(
		&user.UID, &user.Email, &user.DisplayName, &user.PhotoURL, &user.Provider, &user.PasswordHash,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("user", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// UpdateUserProfile sets the non-nil profile fields.
func (db *DB) UpdateUserProfile(ctx context.Context, uid string, displayName, photoURL *string) error {
	sets := []string{"updated_at = ?"}
	args := []any{db.timestamp()}
	if displayName != nil {
		sets = append(sets, "display_name = ?")
		args = append(args, *displayName)
	}
	if photoURL != nil {
		sets = append(sets, "photo_url = ?")
		args = append(args, *photoURL)
	}
	args = append(args, uid)

	res, err := db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE uid = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	if err := checkAffected(res, "user", uid); err != nil {
		return err
	}

	db.changed(events.CollectionUsers, uid, "update")
	return nil
}

// UpsertFederatedUser creates or refreshes an account coming from an external identity
// provider. A locally edited display name or photo is kept.
func (db *DB) UpsertFederatedUser(ctx context.Context, user *models.User) error {
	now := db.timestamp()
	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, '', ?, ?)
	          ON CONFLICT(uid) DO UPDATE SET
	            email = excluded.email,
	            display_name = CASE WHEN users.display_name = '' THEN excluded.display_name ELSE users.display_name END,
	            photo_url = CASE WHEN users.photo_url = '' THEN excluded.photo_url ELSE users.photo_url END,
	            updated_at = excluded.updated_at`
	_, err := db.ExecContext(ctx, query,
		user.UID, strings.TrimSpace(user.Email), user.DisplayName, user.PhotoURL, user.Provider, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("failed to upsert federated user: %w", err)
	}

	db.changed(events.CollectionUsers, user.UID, "update")
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
