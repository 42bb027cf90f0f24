package store

import (
	"context"
	"database/sql"
)

// MessageLogRepo provides data access to the message_logs table.
type MessageLogRepo struct {
	db *sql.DB
}

// NewMessageLogRepo returns a new MessageLogRepo bound to the given database.
func NewMessageLogRepo(db *sql.DB) *MessageLogRepo { return &MessageLogRepo{db: db} }

// Create records an inbound chat webhook payload. external_message_id is
// unique per source so a duplicate webhook delivery is a harmless no-op at
// the database level, independent of the idempotency ledger check upstream.
func (r *MessageLogRepo) Create(ctx context.Context, m MessageLog) (uint64, error) {
	const q = `INSERT IGNORE INTO message_logs
		(source, external_message_id, message_type, from_phone, body_snapshot)
		VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, m.Source, m.ExternalMessageID, m.MessageType, m.FromPhone, m.BodySnapshot)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ListByPhone returns the recent message history for a customer phone
// number, most recent first.
func (r *MessageLogRepo) ListByPhone(ctx context.Context, phone string, limit int) ([]MessageLog, error) {
	const q = `SELECT id, source, external_message_id, message_type, from_phone, body_snapshot, created_at
		FROM message_logs WHERE from_phone = ? ORDER BY id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, phone, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MessageLog
	for rows.Next() {
		var m MessageLog
		if err := rows.Scan(&m.ID, &m.Source, &m.ExternalMessageID, &m.MessageType, &m.FromPhone, &m.BodySnapshot, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
