package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// AuditRepo provides data access to the audit_events table. It backs both
// the audit trail (C10) and the idempotency ledger (C4): the unique key on
// (source, event_type, idempotency_key) is what makes a retried request a
// no-op instead of a duplicate side effect.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo returns a new AuditRepo bound to the given database.
func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// TryStartTx inserts a "started" row for (source, eventType, idempotencyKey)
// inside tx. If a row already exists the insert is skipped and the existing
// row is returned with existed=true so the caller can decide whether to
// replay a cached response, wait out a stale takeover, or reject outright.
func (r *AuditRepo) TryStartTx(ctx context.Context, tx *sql.Tx, source, eventType, idempotencyKey, requestHash string, sessionID *string, operatorID *uint64, payload []byte) (event *AuditEvent, existed bool, err error) {
	existing, err := r.GetByKeyTx(ctx, tx, source, eventType, idempotencyKey)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	const q = `INSERT INTO audit_events
		(source, event_type, idempotency_key, status, request_hash, session_id, operator_id, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, insErr := tx.ExecContext(ctx, q, source, eventType, idempotencyKey, string(AuditStarted), requestHash, sessionID, operatorID, payload)
	if insErr != nil {
		if isDuplicateKeyErr(insErr) {
			// Lost the insert race to a concurrent TryStartTx on the same
			// key: fall into the same existing-row branch as the lookup
			// above instead of surfacing the raw driver error.
			existing, getErr := r.GetByKeyTx(ctx, tx, source, eventType, idempotencyKey)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, true, nil
		}
		return nil, false, insErr
	}
	id, insErr := res.LastInsertId()
	if insErr != nil {
		return nil, false, insErr
	}
	return r.GetByIDTx(ctx, tx, uint64(id))
}

// isDuplicateKeyErr reports whether err is a MySQL ER_DUP_ENTRY (1062)
// error, the signature of two transactions racing to insert the same
// (source, event_type, idempotency_key) row.
func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// RecordTx inserts a one-shot completed audit-trail row (e.g.
// PAYMENT_SUCCEEDED, BOOKING_CANCELLED) directly, without the started/retry
// lifecycle TryStartTx implements. Callers use this for domain-event
// logging inside a handler that is already running under C4 protection, so
// a second insert race cannot happen for the same (source, event_type, key).
func (r *AuditRepo) RecordTx(ctx context.Context, tx *sql.Tx, source, eventType, idempotencyKey string, sessionID *string, operatorID *uint64, payload []byte) (uint64, error) {
	const q = `INSERT INTO audit_events
		(source, event_type, idempotency_key, status, request_hash, session_id, operator_id, payload, completed_at)
		VALUES (?, ?, ?, ?, '', ?, ?, ?, CURRENT_TIMESTAMP)`
	res, err := tx.ExecContext(ctx, q, source, eventType, idempotencyKey, string(AuditCompleted), sessionID, operatorID, payload)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CompleteTx marks a started event completed and stores the response
// snapshot that a replayed request will be served back.
func (r *AuditRepo) CompleteTx(ctx context.Context, tx *sql.Tx, id uint64, responseSnapshot []byte) error {
	const q = `UPDATE audit_events SET status = ?, response_snapshot = ?, completed_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, string(AuditCompleted), responseSnapshot, id)
	return err
}

// FailTx marks a started event failed, recording the error for diagnosis.
// A failed event does not block a future retry with the same key: callers
// should treat AuditFailed as equivalent to "not started" for retry purposes.
func (r *AuditRepo) FailTx(ctx context.Context, tx *sql.Tx, id uint64, errorSnapshot []byte) error {
	const q = `UPDATE audit_events SET status = ?, error_snapshot = ?, completed_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, string(AuditFailed), errorSnapshot, id)
	return err
}

// GetByKeyTx fetches the ledger row for (source, eventType, idempotencyKey),
// if any, under the transaction's isolation.
func (r *AuditRepo) GetByKeyTx(ctx context.Context, tx *sql.Tx, source, eventType, idempotencyKey string) (*AuditEvent, error) {
	const q = auditSelectCols + ` FROM audit_events WHERE source = ? AND event_type = ? AND idempotency_key = ? FOR UPDATE`
	return scanAuditEvent(tx.QueryRowContext(ctx, q, source, eventType, idempotencyKey))
}

// GetByIDTx fetches a ledger row by id inside tx.
func (r *AuditRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*AuditEvent, error) {
	const q = auditSelectCols + ` FROM audit_events WHERE id = ?`
	return scanAuditEvent(tx.QueryRowContext(ctx, q, id))
}

// ListBySession returns every audit event tied to a chat session, most
// recent first, used by the audit query surface (C10).
func (r *AuditRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]AuditEvent, error) {
	const q = auditSelectCols + ` FROM audit_events WHERE session_id = ? ORDER BY id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEvent
	for rows.Next() {
		e, err := scanAuditEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

const auditSelectCols = `SELECT
	id, source, event_type, idempotency_key, status, request_hash,
	response_snapshot, error_snapshot, created_at, completed_at, session_id, operator_id, payload`

func scanAuditEvent(row rowScanner) (*AuditEvent, error) {
	var e AuditEvent
	var rawStatus string
	err := row.Scan(
		&e.ID, &e.Source, &e.EventType, &e.IdempotencyKey, &rawStatus, &e.RequestHash,
		&e.ResponseSnapshot, &e.ErrorSnapshot, &e.CreatedAt, &e.CompletedAt, &e.SessionID, &e.OperatorID, &e.Payload,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	e.Status = AuditStatus(rawStatus)
	return &e, nil
}
