// Package audit is C10, a thin query surface over the audit_events ledger
// that internal/idempotency and internal/coordinator write to. It exists
// so operator tooling and the reconciliation loop can read the trail
// without importing store internals directly.
package audit

import (
	"context"

	"github.com/iliyamo/seatcore/internal/store"
)

// Reader exposes read-only access to the audit trail.
type Reader struct {
	repo *store.AuditRepo
}

// New returns a Reader over the given audit repository.
func New(repo *store.AuditRepo) *Reader { return &Reader{repo: repo} }

// SessionHistory returns the most recent audit events tied to a chat
// session, newest first, capped at limit.
func (r *Reader) SessionHistory(ctx context.Context, sessionID string, limit int) ([]store.AuditEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return r.repo.ListBySession(ctx, sessionID, limit)
}
