package ledger

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Delivery is one successfully dispatched notification. Unlike the ledger
// proper this table is append-only: it exists for support queries and the
// inspection CLI, not for reconciliation.
type Delivery struct {
	ID            uuid.UUID
	AppointmentID int64
	NoticeType    string
	Decision      string
	Phone         string
	Excerpt       string
	SentAt        time.Time
}

// DeliveryLog records successful sends.
type DeliveryLog struct {
	db DB
}

// NewDeliveryLog creates a delivery log over the given database.
func NewDeliveryLog(db DB) *DeliveryLog {
	return &DeliveryLog{db: db}
}

const excerptLimit = 120

// Record appends a delivery row. The message body is truncated to an excerpt.
func (l *DeliveryLog) Record(ctx context.Context, d Delivery) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.Excerpt = truncateExcerpt(d.Excerpt)
	_, err := l.db.Exec(ctx, `
		INSERT INTO deliveries (id, appointment_id, notice_type, decision, phone, excerpt, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		d.ID, d.AppointmentID, d.NoticeType, d.Decision, d.Phone, d.Excerpt)
	if err != nil {
		return fmt.Errorf("ledger: record delivery: %w", err)
	}
	return nil
}

// truncateExcerpt cuts the body to the excerpt limit without splitting a
// rune. Message templates carry multibyte characters.
func truncateExcerpt(s string) string {
	if len(s) <= excerptLimit {
		return s
	}
	cut := excerptLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Recent returns the latest deliveries, newest first.
func (l *DeliveryLog) Recent(ctx context.Context, limit int) ([]Delivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.Query(ctx, `
		SELECT id, appointment_id, notice_type, decision, phone, excerpt, sent_at
		FROM deliveries
		ORDER BY sent_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: recent deliveries: %w", err)
	}
	defer rows.Close()

	var result []Delivery
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(&d.ID, &d.AppointmentID, &d.NoticeType, &d.Decision, &d.Phone, &d.Excerpt, &d.SentAt); err != nil {
			return nil, fmt.Errorf("ledger: scan delivery: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}
