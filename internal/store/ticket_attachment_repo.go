package store

import (
	"context"
	"database/sql"
	"time"
)

// TicketAttachmentRepo provides data access to the ticket_attachments table.
type TicketAttachmentRepo struct {
	db *sql.DB
}

// NewTicketAttachmentRepo returns a new TicketAttachmentRepo bound to the given database.
func NewTicketAttachmentRepo(db *sql.DB) *TicketAttachmentRepo { return &TicketAttachmentRepo{db: db} }

// CreateTx records an operator-issued ticket attachment inside tx, called by
// the confirm-with-ticket coordinator before flipping the booking to CONFIRMED.
func (r *TicketAttachmentRepo) CreateTx(ctx context.Context, tx *sql.Tx, bookingID, operatorID uint64, fileRef string, receivedAt time.Time) (uint64, error) {
	const q = `INSERT INTO ticket_attachments (booking_id, operator_id, file_ref, received_at) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, bookingID, operatorID, fileRef, receivedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a ticket attachment by id.
func (r *TicketAttachmentRepo) GetByID(ctx context.Context, id uint64) (*TicketAttachment, error) {
	const q = `SELECT id, booking_id, operator_id, file_ref, received_at FROM ticket_attachments WHERE id = ?`
	row := r.db.QueryRowContext(ctx, q, id)
	var t TicketAttachment
	if err := row.Scan(&t.ID, &t.BookingID, &t.OperatorID, &t.FileRef, &t.ReceivedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
