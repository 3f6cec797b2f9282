package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that checks if the user has at least one of the specified roles.
// Admin passes every check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, required := range roles {
				for _, has := range userRoles {
					if has == required || has == RoleAdmin {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// RequireSelf rejects callers acting on a doctor or patient other than
// themselves. Admins may act on anyone.
func RequireSelf(c echo.Context, subjectID string) error {
	ctx := c.Request().Context()
	for _, r := range RolesFromContext(ctx) {
		if r == RoleAdmin {
			return nil
		}
	}
	if UserIDFromContext(ctx) != subjectID {
		return echo.NewHTTPError(http.StatusForbidden, "cannot act on behalf of another user")
	}
	return nil
}
