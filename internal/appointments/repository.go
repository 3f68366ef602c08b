package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the slice of pgxpool the repository needs; pgxmock satisfies it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores appointments in the relational database.
type Repository struct {
	db DB
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db DB) *Repository {
	return &Repository{db: db}
}

const appointmentColumns = `id, site_id, full_name, contact_number, email, appointment_date,
	preferred_window, appointment_time, time_minutes, appointment_number,
	assigned_practitioner, reason, diagnosis, created_at, updated_at`

// Create inserts a new appointment row.
func (r *Repository) Create(ctx context.Context, a *Appointment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	query := `
		INSERT INTO appointments (id, site_id, full_name, contact_number, email,
			appointment_date, preferred_window, appointment_time, time_minutes,
			appointment_number, assigned_practitioner, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`
	practitionerID, assigned := a.Practitioner.ID()
	var pract *string
	if assigned {
		pract = &practitionerID
	}
	if err := r.db.QueryRow(ctx, query,
		a.ID,
		a.SiteID,
		a.FullName,
		a.ContactNumber,
		a.Email,
		a.Date,
		a.Window,
		a.TimeLabel,
		a.TimeMinutes,
		a.Number,
		pract,
		a.Reason,
	).Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("appointments: insert failed: %w", err)
	}
	return nil
}

// GetByID fetches a single appointment.
func (r *Repository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	a, err := scanAppointment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return a, nil
}

// FindDuplicate looks for an existing appointment for the same trimmed,
// case-insensitive name at the same site on the same date. Exact match,
// never substring.
func (r *Repository) FindDuplicate(ctx context.Context, fullName, siteID, date string) (*Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE lower(full_name) = lower(btrim($1)) AND site_id = $2 AND appointment_date = $3
		LIMIT 1
	`
	a, err := scanAppointment(r.db.QueryRow(ctx, query, fullName, siteID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("appointments: duplicate lookup failed: %w", err)
	}
	return a, nil
}

// ListQueue returns the occupants of one (site, date, window, practitioner)
// queue ordered by assigned time.
func (r *Repository) ListQueue(ctx context.Context, siteID, date, window string, p Practitioner) ([]*Appointment, error) {
	practitionerID, assigned := p.ID()
	var (
		rows pgx.Rows
		err  error
	)
	if assigned {
		query := `
			SELECT ` + appointmentColumns + `
			FROM appointments
			WHERE site_id = $1 AND appointment_date = $2 AND preferred_window = $3
			  AND assigned_practitioner = $4
			ORDER BY time_minutes
		`
		rows, err = r.db.Query(ctx, query, siteID, date, window, practitionerID)
	} else {
		query := `
			SELECT ` + appointmentColumns + `
			FROM appointments
			WHERE site_id = $1 AND appointment_date = $2 AND preferred_window = $3
			  AND assigned_practitioner IS NULL
			ORDER BY time_minutes
		`
		rows, err = r.db.Query(ctx, query, siteID, date, window)
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: queue query failed: %w", err)
	}
	return collectAppointments(rows)
}

// ListWindowOccupants returns every appointment in a window regardless of
// practitioner, excluding one id. The reschedule heuristic reads this.
func (r *Repository) ListWindowOccupants(ctx context.Context, siteID, date, window, excludeID string) ([]*Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE site_id = $1 AND appointment_date = $2 AND preferred_window = $3 AND id != $4
		ORDER BY time_minutes
	`
	rows, err := r.db.Query(ctx, query, siteID, date, window, excludeID)
	if err != nil {
		return nil, fmt.Errorf("appointments: occupants query failed: %w", err)
	}
	return collectAppointments(rows)
}

// ListAssignedForDate returns a site's appointments for the date that have
// a named practitioner, ordered for delay grouping.
func (r *Repository) ListAssignedForDate(ctx context.Context, siteID, date string) ([]*Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE site_id = $1 AND appointment_date = $2 AND assigned_practitioner IS NOT NULL
		ORDER BY assigned_practitioner, preferred_window, time_minutes
	`
	rows, err := r.db.Query(ctx, query, siteID, date)
	if err != nil {
		return nil, fmt.Errorf("appointments: assigned query failed: %w", err)
	}
	return collectAppointments(rows)
}

// ListBySite returns all of a site's appointments, newest date first.
func (r *Repository) ListBySite(ctx context.Context, siteID string) ([]*Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE site_id = $1
		ORDER BY appointment_date DESC, time_minutes
	`
	rows, err := r.db.Query(ctx, query, siteID)
	if err != nil {
		return nil, fmt.Errorf("appointments: site query failed: %w", err)
	}
	return collectAppointments(rows)
}

// ListByPractitioner returns a practitioner's queue across dates.
func (r *Repository) ListByPractitioner(ctx context.Context, practitionerID string) ([]*Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE assigned_practitioner = $1
		ORDER BY appointment_date DESC, time_minutes
	`
	rows, err := r.db.Query(ctx, query, practitionerID)
	if err != nil {
		return nil, fmt.Errorf("appointments: practitioner query failed: %w", err)
	}
	return collectAppointments(rows)
}

// UpdateSchedule moves an appointment to a new window and time.
func (r *Repository) UpdateSchedule(ctx context.Context, id, window, timeLabel string, timeMinutes int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET preferred_window = $2, appointment_time = $3, time_minutes = $4, updated_at = now()
		WHERE id = $1
	`, id, window, timeLabel, timeMinutes)
	if err != nil {
		return fmt.Errorf("appointments: schedule update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

// SavePrescription attaches a prescription payload and diagnosis.
func (r *Repository) SavePrescription(ctx context.Context, id string, p *Prescription) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET prescription = $2, prescription_content_type = $3, diagnosis = $4, updated_at = now()
		WHERE id = $1
	`, id, p.Data, p.ContentType, p.Diagnosis)
	if err != nil {
		return fmt.Errorf("appointments: prescription update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

// Delete removes an appointment. The core never calls this on its own;
// it backs the administrative endpoint only.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("appointments: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a     Appointment
		date  time.Time
		pract *string
	)
	if err := row.Scan(
		&a.ID,
		&a.SiteID,
		&a.FullName,
		&a.ContactNumber,
		&a.Email,
		&date,
		&a.Window,
		&a.TimeLabel,
		&a.TimeMinutes,
		&a.Number,
		&pract,
		&a.Reason,
		&a.Diagnosis,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Date = date.Format("2006-01-02")
	if pract != nil {
		a.Practitioner = Assigned(*pract)
	}
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]*Appointment, error) {
	defer rows.Close()
	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: rows failed: %w", err)
	}
	return out, nil
}
