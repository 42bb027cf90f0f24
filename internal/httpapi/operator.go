package httpapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seatcore/internal/httpapi/middleware"
	"github.com/iliyamo/seatcore/internal/store"
	"github.com/iliyamo/seatcore/internal/utils"
)

// OperatorHandler serves operator registration/login and the takeover
// endpoints a dashboard uses to pause automated chat replies for a session.
type OperatorHandler struct {
	deps      *Deps
	takeovers *store.OperatorTakeoverRepo
	tokenTTL  time.Duration
	bcryptCost int
}

// NewOperatorHandler constructs an OperatorHandler. Panics if a dependency
// is nil.
func NewOperatorHandler(deps *Deps, takeovers *store.OperatorTakeoverRepo, tokenTTL time.Duration, bcryptCost int) *OperatorHandler {
	if deps == nil || takeovers == nil {
		panic("nil dependency passed to NewOperatorHandler")
	}
	return &OperatorHandler{deps: deps, takeovers: takeovers, tokenTTL: tokenTTL, bcryptCost: bcryptCost}
}

type registerBody struct {
	Phone    string `json:"phone"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Register handles POST /operators/register.
func (h *OperatorHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	var body registerBody
	if err := c.Bind(&body); err != nil || body.Phone == "" || body.Password == "" {
		return errJSON(c, http.StatusBadRequest, "BAD_REQUEST", "phone, name and password are required")
	}

	hash, err := utils.HashPassword(body.Password, h.bcryptCost)
	if err != nil {
		return errJSON(c, http.StatusServiceUnavailable, "RETRY_LATER", "could not hash password")
	}

	id, err := h.deps.Operators.Create(ctx, body.Phone, body.Name, hash)
	if err != nil {
		return errJSON(c, http.StatusConflict, "CONFLICT", "operator already exists")
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "operator_id": id})
}

type loginBody struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Login handles POST /operators/login, returning a short-lived JWT used by
// the other operator-facing endpoints.
func (h *OperatorHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	var body loginBody
	if err := c.Bind(&body); err != nil {
		return errJSON(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
	}

	op, err := h.deps.Operators.GetByPhone(ctx, body.Phone)
	if err != nil || !utils.VerifyPassword(op.PasswordHash, body.Password) {
		return errJSON(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "phone or password incorrect")
	}
	if !op.Approved {
		return errJSON(c, http.StatusForbidden, "OPERATOR_NOT_APPROVED", "account pending approval")
	}

	token, err := utils.NewOperatorToken(h.deps.JWTSecret, op.ID, h.tokenTTL)
	if err != nil {
		return errJSON(c, http.StatusServiceUnavailable, "RETRY_LATER", "could not sign token")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"token":      token.Token,
		"expires_at": token.Exp,
	})
}

type takeoverBody struct {
	SessionID string `json:"session_id"`
}

// StartTakeover handles POST /operators/takeover: an operator claims
// exclusive control of a customer session's automated replies. The operator
// identity comes from the bearer token OperatorAuth already verified, never
// from the request body, so a caller can't claim a takeover on another
// operator's behalf by forging a JSON field.
func (h *OperatorHandler) StartTakeover(c echo.Context) error {
	ctx := c.Request().Context()
	var body takeoverBody
	if err := c.Bind(&body); err != nil || body.SessionID == "" {
		return errJSON(c, http.StatusBadRequest, "BAD_REQUEST", "session_id is required")
	}

	operatorID, ok := middleware.OperatorID(c)
	if !ok {
		return errJSON(c, http.StatusUnauthorized, "MISSING_TOKEN", "authenticated operator required")
	}

	tx, err := h.deps.DB.BeginTx(ctx, nil)
	if err != nil {
		return errJSON(c, http.StatusServiceUnavailable, "RETRY_LATER", "database unavailable")
	}
	defer func() { _ = tx.Rollback() }()

	id, err := h.takeovers.StartTx(ctx, tx, body.SessionID, operatorID)
	if err != nil {
		return errJSON(c, http.StatusServiceUnavailable, "RETRY_LATER", "could not start takeover")
	}
	if err := tx.Commit(); err != nil {
		return errJSON(c, http.StatusServiceUnavailable, "RETRY_LATER", "commit failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "takeover_id": id})
}

// ReleaseTakeover handles POST /operators/takeover/:session_id/release: hands the
// session's automated replies back to the chat bot.
func (h *OperatorHandler) ReleaseTakeover(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session_id")
	if sessionID == "" {
		return errJSON(c, http.StatusBadRequest, "BAD_REQUEST", "session_id is required")
	}

	tx, err := h.deps.DB.BeginTx(ctx, nil)
	if err != nil {
		return errJSON(c, http.StatusServiceUnavailable, "RETRY_LATER", "database unavailable")
	}
	defer func() { _ = tx.Rollback() }()

	if err := h.takeovers.ReleaseTx(ctx, tx, sessionID); err != nil {
		return errJSON(c, http.StatusServiceUnavailable, "RETRY_LATER", "could not release takeover")
	}
	if err := tx.Commit(); err != nil {
		return errJSON(c, http.StatusServiceUnavailable, "RETRY_LATER", "commit failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
