package store

import (
	"context"
	"database/sql"
	"errors"
)

// OperatorRepo provides data access to the operators table.
type OperatorRepo struct {
	db *sql.DB
}

// NewOperatorRepo returns a new OperatorRepo bound to the given database.
func NewOperatorRepo(db *sql.DB) *OperatorRepo { return &OperatorRepo{db: db} }

// Create inserts a new operator. phoneNormalized must already be in
// normalized form; callers should not insert raw user-supplied phone text.
func (r *OperatorRepo) Create(ctx context.Context, phoneNormalized, name, passwordHash string) (uint64, error) {
	const q = `INSERT INTO operators (phone_normalized, name, password_hash, approved) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, phoneNormalized, name, passwordHash, false)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches an operator by id.
func (r *OperatorRepo) GetByID(ctx context.Context, id uint64) (*Operator, error) {
	const q = `SELECT id, phone_normalized, name, password_hash, approved, created_at FROM operators WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

// GetByPhone fetches an operator by normalized phone number, used for login.
func (r *OperatorRepo) GetByPhone(ctx context.Context, phoneNormalized string) (*Operator, error) {
	const q = `SELECT id, phone_normalized, name, password_hash, approved, created_at FROM operators WHERE phone_normalized = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, phoneNormalized))
}

// OwnsRoute reports whether the given operator owns routeID.
func (r *OperatorRepo) OwnsRoute(ctx context.Context, operatorID, routeID uint64) (bool, error) {
	const q = `SELECT 1 FROM routes WHERE id = ? AND operator_id = ?`
	var one int
	err := r.db.QueryRowContext(ctx, q, routeID, operatorID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *OperatorRepo) scanOne(row *sql.Row) (*Operator, error) {
	var o Operator
	if err := row.Scan(&o.ID, &o.PhoneNormalized, &o.Name, &o.PasswordHash, &o.Approved, &o.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}
