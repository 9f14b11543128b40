package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"queueaway/internal/events"
	"queueaway/internal/models"
)

const appointmentColumns = `id, user_id, user_name, user_email, business_id, business_name, service,
	appointment_date, status, queue_position, estimated_wait_time, notes, created_at, updated_at`

func (db *DB) CreateAppointment(ctx context.Context, appointment *models.Appointment) error {
	if appointment.ID == "" {
		appointment.ID = newID()
	}
	now := db.timestamp()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now
	appointment.AppointmentDate = appointment.AppointmentDate.UTC()

	query := `INSERT INTO appointments (` + appointmentColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		appointment.ID,
		appointment.UserID,
		appointment.UserName,
		appointment.UserEmail,
		appointment.BusinessID,
		appointment.BusinessName,
		appointment.Service,
		appointment.AppointmentDate,
		appointment.Status,
		appointment.QueuePosition,
		appointment.EstimatedWaitTime,
		appointment.Notes,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	db.changed(events.CollectionAppointments, appointment.ID, "create")
	return nil
}

// UpdateAppointment applies a partial update. Status values are not checked against
// the current status.
func (db *DB) UpdateAppointment(ctx context.Context, id string, update models.AppointmentUpdate) error {
	sets := []string{}
	args := []any{}
	if update.Service != nil {
		sets = append(sets, "service = ?")
		args = append(args, *update.Service)
	}
	if update.AppointmentDate != nil {
		sets = append(sets, "appointment_date = ?")
		args = append(args, update.AppointmentDate.UTC())
	}
	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *update.Status)
	}
	if update.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *update.Notes)
	}
	if update.QueuePosition != nil {
		sets = append(sets, "queue_position = ?")
		args = append(args, *update.QueuePosition)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, db.timestamp(), id)

	query := `UPDATE appointments SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	if err := checkAffected(res, "appointment", id); err != nil {
		return err
	}

	db.changed(events.CollectionAppointments, id, "update")
	return nil
}

func (db *DB) CancelAppointment(ctx context.Context, id string) error {
	status := models.StatusCancelled
	return db.UpdateAppointment(ctx, id, models.AppointmentUpdate{Status: &status})
}

func (db *DB) DeleteAppointment(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM appointments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	if err := checkAffected(res, "appointment", id); err != nil {
		return err
	}

	db.changed(events.CollectionAppointments, id, "delete")
	return nil
}

func (db *DB) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	a, err := scanAppointment(db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("appointment", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return a, nil
}

// ListAppointments returns all appointments, newest first.
func (db *DB) ListAppointments(ctx context.Context) ([]*models.Appointment, error) {
	return db.queryAppointments(ctx,
		`SELECT `+appointmentColumns+` FROM appointments ORDER BY created_at DESC, rowid DESC`)
}

// ListUserAppointments returns the user's appointments, newest first.
func (db *DB) ListUserAppointments(ctx context.Context, userID string) ([]*models.Appointment, error) {
	return db.queryAppointments(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
}

// ListBusinessAppointments returns a business's appointments in schedule order.
func (db *DB) ListBusinessAppointments(ctx context.Context, businessID string) ([]*models.Appointment, error) {
	return db.queryAppointments(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE business_id = ? ORDER BY appointment_date ASC, rowid ASC`, businessID)
}

func (db *DB) queryAppointments(ctx context.Context, query string, args ...any) ([]*models.Appointment, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	appointments := []*models.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}

func scanAppointment(row rowScanner) (*models.Appointment, error) {
	var a models.Appointment
	err := row.Scan(
		&a.ID, &a.UserID, &a.UserName, &a.UserEmail, &a.BusinessID, &a.BusinessName, &a.Service,
		&a.AppointmentDate, &a.Status, &a.QueuePosition, &a.EstimatedWaitTime, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
