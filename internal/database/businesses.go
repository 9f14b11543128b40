package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"queueaway/internal/events"
	"queueaway/internal/models"
)

const businessColumns = `id, name, category, services, address, phone, email, latitude, longitude,
	opening_hours, average_service_time, current_queue, rating, image, created_at, updated_at`

func (db *DB) CreateBusiness(ctx context.Context, business *models.Business) error {
	if business.ID == "" {
		business.ID = newID()
	}
	now := db.timestamp()
	business.CreatedAt = now
	business.UpdatedAt = now

	services, hours, err := encodeBusinessFields(business)
	if err != nil {
		return err
	}

	query := `INSERT INTO businesses (` + businessColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = db.ExecContext(ctx, query,
		business.ID,
		business.Name,
		business.Category,
		services,
		business.Address,
		business.Phone,
		business.Email,
		nullFloat(business.Latitude),
		nullFloat(business.Longitude),
		hours,
		business.AverageServiceTime,
		business.CurrentQueue,
		business.Rating,
		business.Image,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create business: %w", err)
	}

	db.changed(events.CollectionBusinesses, business.ID, "create")
	return nil
}

func (db *DB) UpdateBusiness(ctx context.Context, id string, update models.BusinessUpdate) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	business, err := scanBusiness(tx.QueryRowContext(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("business", id)
	}
	if err != nil {
		return fmt.Errorf("failed to load business: %w", err)
	}

	update.Apply(business)
	business.UpdatedAt = db.timestamp()

	services, hours, err := encodeBusinessFields(business)
	if err != nil {
		return err
	}

	query := `UPDATE businesses SET name = ?, category = ?, services = ?, address = ?, phone = ?, email = ?,
	          latitude = ?, longitude = ?, opening_hours = ?, average_service_time = ?, rating = ?, image = ?,
	          updated_at = ? WHERE id = ?`
	_, err = tx.ExecContext(ctx, query,
		business.Name,
		business.Category,
		services,
		business.Address,
		business.Phone,
		business.Email,
		nullFloat(business.Latitude),
		nullFloat(business.Longitude),
		hours,
		business.AverageServiceTime,
		business.Rating,
		business.Image,
		business.UpdatedAt,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update business: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit business update: %w", err)
	}

	db.changed(events.CollectionBusinesses, id, "update")
	return nil
}

// UpdateQueueCount overwrites the business's current queue length.
func (db *DB) UpdateQueueCount(ctx context.Context, id string, count int) error {
	if count < 0 {
		return fmt.Errorf("queue count must not be negative: %d", count)
	}
	res, err := db.ExecContext(ctx, `UPDATE businesses SET current_queue = ?, updated_at = ? WHERE id = ?`,
		count, db.timestamp(), id)
	if err != nil {
		return fmt.Errorf("failed to update queue count: %w", err)
	}
	if err := checkAffected(res, "business", id); err != nil {
		return err
	}

	db.changed(events.CollectionBusinesses, id, "update")
	return nil
}

func (db *DB) GetBusiness(ctx context.Context, id string) (*models.Business, error) {
	business, err := scanBusiness(db.QueryRowContext(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("business", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get business: %w", err)
	}
	return business, nil
}

// ListBusinesses returns every business ordered by name.
func (db *DB) ListBusinesses(ctx context.Context) ([]*models.Business, error) {
	return db.queryBusinesses(ctx, `SELECT `+businessColumns+` FROM businesses ORDER BY name ASC, id ASC`)
}

// ListBusinessesByCategory returns the category's businesses, best rated first.
func (db *DB) ListBusinessesByCategory(ctx context.Context, category string) ([]*models.Business, error) {
	return db.queryBusinesses(ctx,
		`SELECT `+businessColumns+` FROM businesses WHERE category = ? ORDER BY rating DESC, name ASC`, category)
}

func (db *DB) CountBusinesses(ctx context.Context) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM businesses`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count businesses: %w", err)
	}
	return count, nil
}

func (db *DB) queryBusinesses(ctx context.Context, query string, args ...any) ([]*models.Business, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query businesses: %w", err)
	}
	defer rows.Close()

	businesses := []*models.Business{}
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan business: %w", err)
		}
		businesses = append(businesses, b)
	}
	return businesses, rows.Err()
}

func scanBusiness(row rowScanner) (*models.Business, error) {
	var (
		b        models.Business
		services string
		hours    string
		lat, lng sql.NullFloat64
	)
	err := row.Scan(
		&b.ID, &b.Name, &b.Category, &services, &b.Address, &b.Phone, &b.Email, &lat, &lng,
		&hours, &b.AverageServiceTime, &b.CurrentQueue, &b.Rating, &b.Image, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(services), &b.Services); err != nil {
		return nil, fmt.Errorf("decode services: %w", err)
	}
	if err := json.Unmarshal([]byte(hours), &b.OpeningHours); err != nil {
		return nil, fmt.Errorf("decode opening hours: %w", err)
	}
	if lat.Valid {
		b.Latitude = &lat.Float64
	}
	if lng.Valid {
		b.Longitude = &lng.Float64
	}
	return &b, nil
}

func encodeBusinessFields(b *models.Business) (string, string, error) {
	services := b.Services
	if services == nil {
		services = []string{}
	}
	rawServices, err := json.Marshal(services)
	if err != nil {
		return "", "", fmt.Errorf("encode services: %w", err)
	}
	hours := b.OpeningHours
	if hours == nil {
		hours = map[string]models.Hours{}
	}
	rawHours, err := json.Marshal(hours)
	if err != nil {
		return "", "", fmt.Errorf("encode opening hours: %w", err)
	}
	return string(rawServices), string(rawHours), nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
