package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"
)

// defaultUserID is the conversation identity for anonymous callers.
const defaultUserID = "default_user"

// requestUserID resolves the caller identity used to key conversation
// memory. Priority: X-User-ID header, then the user_id query parameter,
// then defaultUserID.
func requestUserID(c *echo.Context) string {
	if id := strings.TrimSpace(c.Request().Header.Get("X-User-ID")); id != "" {
		return id
	}
	if id := strings.TrimSpace(c.QueryParam("user_id")); id != "" {
		return id
	}
	return defaultUserID
}

// debugToken returns middleware gating debug endpoints behind a bearer
// token. While no token is configured the endpoints stay hidden behind
// a 404.
func (s *Server) debugToken() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			token := s.cfg.Dispatch.DebugToken()
			if token == "" {
				return echo.NewHTTPError(http.StatusNotFound, "not found")
			}
			auth := c.Request().Header.Get("Authorization")
			want := "Bearer " + token
			if subtle.ConstantTimeCompare([]byte(auth), []byte(want)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid debug token")
			}
			return next(c)
		}
	}
}
