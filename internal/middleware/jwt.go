package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fieldops/internal/model"
)

// JWTAuth validates a Bearer access token and stores its subject and role
// in the context.  Handlers read them through UserID and Role.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			uid, role, err := parseAccess(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			}
			c.Set(ctxUserID, uid)
			c.Set(ctxRole, role)
			return next(c)
		}
	}
}

// OptionalJWT is JWTAuth for routes that also serve anonymous callers: a
// valid token sets the identity, anything else is ignored.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				if uid, role, err := parseAccess(secret, strings.TrimPrefix(auth, "Bearer ")); err == nil {
					c.Set(ctxUserID, uid)
					c.Set(ctxRole, role)
				}
			}
			return next(c)
		}
	}
}

func parseAccess(secret, raw string) (uint64, model.Role, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return 0, "", errors.New("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", errors.New("invalid claims")
	}
	if typ, _ := claims["typ"].(string); typ != "" && typ != "access" {
		return 0, "", errors.New("not an access token")
	}
	// Numeric claims decode as float64.
	sub, ok := claims["sub"].(float64)
	if !ok || sub < 1 {
		return 0, "", errors.New("invalid subject")
	}
	role, ok := model.ParseRole(asString(claims["role"]))
	if !ok {
		return 0, "", errors.New("invalid role")
	}
	return uint64(sub), role, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
