package httpapi

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seatcore/internal/coordinator"
	"github.com/iliyamo/seatcore/internal/idempotency"
	"github.com/iliyamo/seatcore/internal/intake"
	"github.com/iliyamo/seatcore/internal/store"
)

// WebhookHandler serves /webhooks/chat and /webhooks/payment.
type WebhookHandler struct {
	deps     *Deps
	messages *store.MessageLogRepo
	idem     *idempotency.Envelope
}

// NewWebhookHandler constructs a WebhookHandler. Panics if any dependency
// is nil.
func NewWebhookHandler(deps *Deps, messages *store.MessageLogRepo, idem *idempotency.Envelope) *WebhookHandler {
	if deps == nil || messages == nil || idem == nil {
		panic("nil dependency passed to NewWebhookHandler")
	}
	return &WebhookHandler{deps: deps, messages: messages, idem: idem}
}

// Chat handles POST /webhooks/chat: HMAC-verify, replay-check on the
// provider message id, idempotently record the message, then dispatch it
// to C8 if it's a recognized hold command or operator ticket upload.
func (h *WebhookHandler) Chat(c echo.Context) error {
	ctx := c.Request().Context()
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "BAD_REQUEST", "could not read body")
	}

	sig := c.Request().Header.Get("x-hub-signature-256")
	if !intake.VerifyChatSignature(h.deps.WhatsappWebhookSecret, body, sig) {
		return errJSON(c, http.StatusUnauthorized, "INVALID_SIGNATURE", "signature verification failed")
	}

	msg, err := intake.ParseChatMessage(body)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "BAD_REQUEST", err.Error())
	}

	nonceScope := "chat:" + msg.Type
	fresh, err := h.deps.Locks.ClaimNonce(ctx, nonceScope, msg.ID, h.deps.NonceTTL)
	if err != nil {
		return errJSON(c, http.StatusServiceUnavailable, "RETRY_LATER", "replay check unavailable")
	}
	if !fresh {
		return errJSON(c, http.StatusUnauthorized, "REPLAY_DETECTED", "message already processed")
	}

	idemKey := fmt.Sprintf("%s:%s", msg.ID, msg.Type)
	_, err = h.idem.Run(ctx, "whatsapp", "inbound_message", idemKey, msg, nil, nil,
		func(ctx context.Context, tx *sql.Tx) (interface{}, error) {
			snapshot, _ := jsonMarshal(msg)
			if _, err := h.messages.Create(ctx, store.MessageLog{
				Source: "whatsapp", ExternalMessageID: msg.ID, MessageType: msg.Type,
				FromPhone: msg.From, BodySnapshot: snapshot,
			}); err != nil {
				return nil, err
			}
			return map[string]bool{"received": true}, nil
		})
	if err != nil {
		if err == idempotency.ErrRetryLater {
			return errJSON(c, http.StatusServiceUnavailable, "RETRY_LATER", "duplicate in flight")
		}
		return errJSON(c, http.StatusServiceUnavailable, "RETRY_LATER", "infra outage")
	}

	h.dispatch(ctx, idemKey, msg)

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// dispatch routes a logged chat message to the domain service it triggers,
// if any. A message-log row always gets written regardless of whether it
// turns out to carry a recognized command, so dispatch failures are
// best-effort and never turn an already-acknowledged webhook into an error:
// the sender has no way to "retry harder" than resending the same message,
// which idempotency already makes a no-op.
func (h *WebhookHandler) dispatch(ctx context.Context, idemKey string, msg intake.ChatMessage) {
	switch msg.Type {
	case "text":
		h.dispatchHoldCommand(ctx, idemKey, msg)
	case "image", "document":
		h.dispatchTicketConfirm(ctx, idemKey, msg)
	}
}

// dispatchHoldCommand recognizes the fixed HOLD command grammar on a
// customer's text message and creates a hold via C8. Free-form text that
// doesn't match the grammar is left alone — parsing it further is out of
// scope.
func (h *WebhookHandler) dispatchHoldCommand(ctx context.Context, idemKey string, msg intake.ChatMessage) {
	cmd, err := intake.ParseHoldCommand(msg.Text)
	if err != nil {
		return
	}

	_, _, err = h.deps.Coord.CreateHold(ctx, idemKey, coordinator.CreateHoldRequest{
		TripID:        cmd.TripID,
		SeatCount:     cmd.SeatCount,
		CustomerPhone: msg.From,
		SessionID:     msg.From,
	})
	if err != nil {
		h.deps.Log.Warn().Err(err).Str("from", msg.From).Msg("chat: hold command failed")
	}
}

// dispatchTicketConfirm routes an operator's ticket image/document to C8's
// confirm-with-ticket operation. The operator is identified by the sending
// phone number; the booking is whichever HOLD the operator's active
// takeover session points at. A message from an unrecognized phone, or one
// with no active takeover, isn't a ticket confirmation at all and is
// silently ignored — the chat surface has no way to tell a customer's
// stray photo from an operator's ticket otherwise.
func (h *WebhookHandler) dispatchTicketConfirm(ctx context.Context, idemKey string, msg intake.ChatMessage) {
	operator, err := h.deps.Operators.GetByPhone(ctx, msg.From)
	if err != nil || !operator.Approved {
		return
	}

	takeover, err := h.deps.Takeovers.ActiveByOperatorID(ctx, operator.ID)
	if err != nil {
		return
	}

	b, err := h.deps.Bookings.ActiveHoldBySessionID(ctx, takeover.SessionID)
	if err != nil {
		return
	}

	_, _, err = h.deps.Coord.ConfirmWithTicket(ctx, idemKey, coordinator.ConfirmWithTicketRequest{
		BookingID:  b.ID,
		OperatorID: operator.ID,
		FileRef:    msg.MediaID,
	})
	if err != nil {
		h.deps.Log.Warn().Err(err).Uint64("booking_id", b.ID).Msg("chat: ticket confirm failed")
	}
}

// Payment handles POST /webhooks/payment: timestamped-HMAC verify, then
// map the external status onto the booking via the coordinator.
func (h *WebhookHandler) Payment(c echo.Context) error {
	ctx := c.Request().Context()
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "BAD_REQUEST", "could not read body")
	}

	timestamp := c.Request().Header.Get("x-payment-timestamp")
	sig := c.Request().Header.Get("x-payment-signature")
	if !intake.VerifyPaymentSignature(h.deps.PaymentWebhookSecret, timestamp, body, sig, h.deps.PaymentSignatureTolerance, time.Now()) {
		return errJSON(c, http.StatusUnauthorized, "INVALID_SIGNATURE", "signature verification failed")
	}

	ev, err := intake.ParsePaymentEvent(body)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "BAD_REQUEST", err.Error())
	}

	resp, _, err := h.deps.Coord.PaymentApply(ctx, coordinator.PaymentApplyRequest{
		GatewayEventID: ev.GatewayEventID,
		BookingID:      ev.Metadata.BookingID,
		Status:         ev.Status,
	})
	if err != nil {
		return mapCoordinatorError(c, err)
	}

	if resp.Status == store.BookingConfirmed && h.deps.Events != nil {
		b, err := h.deps.Bookings.GetByID(ctx, resp.BookingID)
		if err == nil {
			_ = h.deps.Events.PublishBookingConfirmed(ctx, eventsBookingConfirmed(b))
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "booking_id": resp.BookingID, "status": resp.Status})
}
