// Package ledger persists which notices were already sent. One row per
// (appointment id, notice type); rows are written only after a successful
// dispatch, which is what makes the whole pipeline idempotent: no row means
// "retry next cycle", a row means "covered".
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Entry is the last notice of a given type successfully sent for an
// appointment. Date and Time snapshot the appointment state at send time so
// later snapshots can be diffed against them.
type Entry struct {
	AppointmentID      int64
	NoticeType         string
	Date               string
	Time               string
	ConsultationTypeID *int64
	CreatedAt          time.Time
}

// Store provides upsert-style access to the notice ledger.
type Store struct {
	db DB
}

// NewStore creates a ledger store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Get returns the entry for (appointmentID, noticeType), or nil when no
// notice of that type was ever recorded.
func (s *Store) Get(ctx context.Context, appointmentID int64, noticeType string) (*Entry, error) {
	row := s.db.QueryRow(ctx, `
		SELECT appointment_id, notice_type, appt_date, appt_time, consultation_type_id, created_at
		FROM notice_ledger
		WHERE appointment_id = $1 AND notice_type = $2`, appointmentID, noticeType)

	var e Entry
	err := row.Scan(&e.AppointmentID, &e.NoticeType, &e.Date, &e.Time, &e.ConsultationTypeID, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: get entry: %w", err)
	}
	return &e, nil
}

// Upsert inserts the entry or overwrites the existing row in place. The
// ledger never keeps history: a confirmation row always reflects the latest
// delivered state.
func (s *Store) Upsert(ctx context.Context, e Entry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notice_ledger (appointment_id, notice_type, appt_date, appt_time, consultation_type_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (appointment_id, notice_type)
		DO UPDATE SET appt_date = EXCLUDED.appt_date,
		              appt_time = EXCLUDED.appt_time,
		              consultation_type_id = EXCLUDED.consultation_type_id`,
		e.AppointmentID, e.NoticeType, e.Date, e.Time, e.ConsultationTypeID)
	if err != nil {
		return fmt.Errorf("ledger: upsert entry: %w", err)
	}
	return nil
}

// Delete removes the entry for (appointmentID, noticeType). Deleting a
// missing row is not an error.
func (s *Store) Delete(ctx context.Context, appointmentID int64, noticeType string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM notice_ledger
		WHERE appointment_id = $1 AND notice_type = $2`, appointmentID, noticeType)
	if err != nil {
		return fmt.Errorf("ledger: delete entry: %w", err)
	}
	return nil
}

// List returns entries ordered by creation time, newest first, optionally
// filtered by notice type. Used by the inspection CLI.
func (s *Store) List(ctx context.Context, noticeType string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows pgx.Rows
	var err error
	if noticeType != "" {
		rows, err = s.db.Query(ctx, `
			SELECT appointment_id, notice_type, appt_date, appt_time, consultation_type_id, created_at
			FROM notice_ledger
			WHERE notice_type = $1
			ORDER BY created_at DESC LIMIT $2`, noticeType, limit)
	} else {
		rows, err = s.db.Query(ctx, `
			SELECT appointment_id, notice_type, appt_date, appt_time, consultation_type_id, created_at
			FROM notice_ledger
			ORDER BY created_at DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: list entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// CountByType returns how many entries exist per notice type.
func (s *Store) CountByType(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT notice_type, COUNT(*)
		FROM notice_ledger
		GROUP BY notice_type
		ORDER BY notice_type`)
	if err != nil {
		return nil, fmt.Errorf("ledger: count by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var t string
		var n int64
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("ledger: scan count: %w", err)
		}
		counts[t] = n
	}
	return counts, rows.Err()
}

// Clear deletes entries: every row when both filters are zero, otherwise
// restricted by notice type and/or appointment id. Returns rows removed.
func (s *Store) Clear(ctx context.Context, noticeType string, appointmentID int64) (int64, error) {
	query := `DELETE FROM notice_ledger`
	var args []any
	switch {
	case noticeType != "" && appointmentID != 0:
		query += ` WHERE notice_type = $1 AND appointment_id = $2`
		args = []any{noticeType, appointmentID}
	case noticeType != "":
		query += ` WHERE notice_type = $1`
		args = []any{noticeType}
	case appointmentID != 0:
		query += ` WHERE appointment_id = $1`
		args = []any{appointmentID}
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("ledger: clear: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var result []Entry
	for rows.Next() {
		var e Entry
		err := rows.Scan(&e.AppointmentID, &e.NoticeType, &e.Date, &e.Time, &e.ConsultationTypeID, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("ledger: scan entry: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
