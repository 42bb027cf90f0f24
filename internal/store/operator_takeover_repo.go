package store

import (
	"context"
	"database/sql"
	"errors"
)

// OperatorTakeoverRepo provides data access to the operator_takeovers table.
type OperatorTakeoverRepo struct {
	db *sql.DB
}

// NewOperatorTakeoverRepo returns a new OperatorTakeoverRepo bound to the given database.
func NewOperatorTakeoverRepo(db *sql.DB) *OperatorTakeoverRepo { return &OperatorTakeoverRepo{db: db} }

// StartTx records an operator claiming a session inside tx. Any prior
// takeover on the same session is released first so at most one row per
// session has released_at NULL.
func (r *OperatorTakeoverRepo) StartTx(ctx context.Context, tx *sql.Tx, sessionID string, operatorID uint64) (uint64, error) {
	const release = `UPDATE operator_takeovers SET released_at = CURRENT_TIMESTAMP WHERE session_id = ? AND released_at IS NULL`
	if _, err := tx.ExecContext(ctx, release, sessionID); err != nil {
		return 0, err
	}

	const insert = `INSERT INTO operator_takeovers (session_id, operator_id) VALUES (?, ?)`
	res, err := tx.ExecContext(ctx, insert, sessionID, operatorID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ReleaseTx clears the active takeover for a session, if any.
func (r *OperatorTakeoverRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, sessionID string) error {
	const q = `UPDATE operator_takeovers SET released_at = CURRENT_TIMESTAMP WHERE session_id = ? AND released_at IS NULL`
	_, err := tx.ExecContext(ctx, q, sessionID)
	return err
}

// ActiveBySession returns the current active takeover for a session, if any.
func (r *OperatorTakeoverRepo) ActiveBySession(ctx context.Context, sessionID string) (*OperatorTakeover, error) {
	const q = `SELECT id, session_id, operator_id, started_at, released_at
		FROM operator_takeovers WHERE session_id = ? AND released_at IS NULL`
	row := r.db.QueryRowContext(ctx, q, sessionID)
	return scanTakeover(row)
}

// ActiveByOperatorID returns the session an operator currently holds a
// takeover on, if any. StartTx only releases earlier takeovers of the same
// session, so an operator can hold active takeovers on several sessions;
// the most recently started one is returned.
func (r *OperatorTakeoverRepo) ActiveByOperatorID(ctx context.Context, operatorID uint64) (*OperatorTakeover, error) {
	const q = `SELECT id, session_id, operator_id, started_at, released_at
		FROM operator_takeovers WHERE operator_id = ? AND released_at IS NULL
		ORDER BY started_at DESC LIMIT 1`
	row := r.db.QueryRowContext(ctx, q, operatorID)
	return scanTakeover(row)
}

func scanTakeover(row *sql.Row) (*OperatorTakeover, error) {
	var t OperatorTakeover
	if err := row.Scan(&t.ID, &t.SessionID, &t.OperatorID, &t.StartedAt, &t.ReleasedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
