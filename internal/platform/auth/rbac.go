package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// HasRole reports whether roles grants one of required. Admin grants all.
func HasRole(roles []string, required ...string) bool {
	for _, has := range roles {
		if has == RoleAdmin {
			return true
		}
		for _, r := range required {
			if has == r {
				return true
			}
		}
	}
	return false
}

// RequireRole rejects callers holding none of the given roles with 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if HasRole(RolesFromContext(c.Request().Context()), roles...) {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// CanManageAgenda reports whether the caller may change the agenda of the
// given practitioner. Reception manages every agenda; a practitioner only
// the one matching their token subject.
func CanManageAgenda(ctx context.Context, practitionerID string) bool {
	roles := RolesFromContext(ctx)
	if HasRole(roles, RoleReceptionist) {
		return true
	}
	return HasRole(roles, RolePractitioner) && practitionerID != "" && UserIDFromContext(ctx) == practitionerID
}

// RequireAgendaAccess applies CanManageAgenda to the practitioner id held
// in the named path parameter.
func RequireAgendaAccess(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !CanManageAgenda(c.Request().Context(), c.Param(param)) {
				return echo.NewHTTPError(http.StatusForbidden, "agenda belongs to another practitioner")
			}
			return next(c)
		}
	}
}
