package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// OperatorAuth validates a Bearer access token issued at operator login and
// injects the operator id (the token's sub claim) into the request context.
func OperatorAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "MISSING_TOKEN"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "INVALID_TOKEN"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "INVALID_TOKEN"})
			}

			c.Set("operator_id", claims["sub"])
			return next(c)
		}
	}
}

// OptionalOperatorAuth behaves like OperatorAuth when a Bearer token is
// present, stashing the operator id for OperatorID to read, but lets the
// request through unauthenticated when the header is absent. Routes that
// serve both customers (no token) and operators (bearer token) use this so
// an operator-claimed action can still be tied to a verified identity
// without forcing every customer request through a login flow.
func OptionalOperatorAuth(secret string) echo.MiddlewareFunc {
	auth := OperatorAuth(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		authed := auth(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") == "" {
				return next(c)
			}
			return authed(c)
		}
	}
}

// OperatorID reads the operator id stashed by OperatorAuth. Returns 0, false
// when no authenticated operator is present on the context.
func OperatorID(c echo.Context) (uint64, bool) {
	v := c.Get("operator_id")
	if v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return uint64(n), true
	case uint64:
		return n, true
	}
	return 0, false
}
