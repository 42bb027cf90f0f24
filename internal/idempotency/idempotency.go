// Package idempotency is C4, the at-most-once envelope every mutating
// operation runs through. It is grounded in the audit_events table's
// uniqueness constraint on (source, event_type, idempotency_key): the
// insert race itself is what picks the single caller that gets to run the
// handler, exactly the pattern the teacher's repository layer uses for
// every other uniqueness-guarded write.
package idempotency

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/iliyamo/seatcore/internal/store"
)

// ErrRetryLater signals that a request with the same key is already running
// and has not been running long enough to be considered stale.
var ErrRetryLater = errors.New("idempotency: retry later")

// Envelope runs handlers through the audit_events ledger.
type Envelope struct {
	db          *sql.DB
	audit       *store.AuditRepo
	startedTTL  time.Duration
}

// New returns an Envelope. startedTTL is how long a "started" row is
// honored before a new caller is allowed to take it over and re-run the
// handler (spec default: 300s).
func New(db *sql.DB, audit *store.AuditRepo, startedTTL time.Duration) *Envelope {
	return &Envelope{db: db, audit: audit, startedTTL: startedTTL}
}

// Request is the stably-serializable input whose hash is recorded
// alongside the ledger row for drift detection.
type Request = interface{}

// Handler performs the domain effect and returns a JSON-serializable
// response, or an error if the effect failed.
type Handler func(ctx context.Context, tx *sql.Tx) (response interface{}, err error)

// Outcome describes what Run actually did, for callers (e.g. HTTP handlers)
// that need to distinguish a replayed response from a freshly computed one.
type Outcome struct {
	Response interface{}
	Replayed bool
}

// Run executes handler under the idempotency envelope for
// (source, event_type, key). req is hashed for drift detection only; it
// never gates execution. sessionID and operatorID are optional audit
// metadata.
func (e *Envelope) Run(ctx context.Context, source, eventType, key string, req Request, sessionID *string, operatorID *uint64, handler Handler) (Outcome, error) {
	hash, payload, err := hashRequest(req)
	if err != nil {
		return Outcome{}, err
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return Outcome{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	event, existed, err := e.audit.TryStartTx(ctx, tx, source, eventType, key, hash, sessionID, operatorID, payload)
	if err != nil {
		return Outcome{}, err
	}

	if existed {
		switch event.Status {
		case store.AuditCompleted:
			var resp interface{}
			if len(event.ResponseSnapshot) > 0 {
				if err := json.Unmarshal(event.ResponseSnapshot, &resp); err != nil {
					return Outcome{}, err
				}
			}
			if err := tx.Commit(); err != nil {
				return Outcome{}, err
			}
			committed = true
			return Outcome{Response: resp, Replayed: true}, nil
		case store.AuditFailed:
			// A failed row behaves like "not started" for retry purposes:
			// fall through and re-run the handler under the same row.
		case store.AuditStarted:
			if time.Since(event.CreatedAt) < e.startedTTL {
				return Outcome{}, ErrRetryLater
			}
			// Stale takeover: proceed and overwrite this row's outcome below.
		}
	}

	resp, handlerErr := handler(ctx, tx)
	if handlerErr != nil {
		errSnap, _ := json.Marshal(map[string]string{"error": handlerErr.Error()})
		if err := e.audit.FailTx(ctx, tx, event.ID, errSnap); err != nil {
			return Outcome{}, err
		}
		if err := tx.Commit(); err != nil {
			return Outcome{}, err
		}
		committed = true
		return Outcome{}, handlerErr
	}

	respSnap, err := json.Marshal(resp)
	if err != nil {
		return Outcome{}, err
	}
	if err := e.audit.CompleteTx(ctx, tx, event.ID, respSnap); err != nil {
		return Outcome{}, err
	}
	if err := tx.Commit(); err != nil {
		return Outcome{}, err
	}
	committed = true
	return Outcome{Response: resp, Replayed: false}, nil
}

// hashRequest stably serializes req with encoding/json (map keys sorted,
// struct fields in declaration order) and returns its SHA-256 hex
// digest plus the serialized bytes for storage as the audit payload.
func hashRequest(req Request) (string, []byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", nil, err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), payload, nil
}
