// Package handler exposes the HTTP handlers that sit between the router
// and the catalog store. Handlers translate the store's error taxonomy
// into HTTP statuses and never reach around the store to storage or the
// upstream directly.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/davitm/cinehub/internal/catalog"
	"github.com/davitm/cinehub/internal/middleware"
	"github.com/davitm/cinehub/internal/model"
)

// staleHeader is set on list responses served from a snapshot whose last
// refresh failed. The body is still the last-known-good data.
const staleHeader = "X-Catalog-Stale"

// idParam parses the named path parameter as an identifier.
func idParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// sessionEmail returns the holder email stored in the context by JWTAuth.
func sessionEmail(c echo.Context) (string, bool) {
	email, ok := c.Get(middleware.CtxEmail).(string)
	return email, ok && email != ""
}

// sessionRole returns the role stored in the context by JWTAuth.
func sessionRole(c echo.Context) model.Role {
	role, _ := c.Get(middleware.CtxRole).(string)
	return model.Role(role)
}

// markStale flags the response when the store's observable error flag is
// set.
func markStale(c echo.Context, store catalog.Store) {
	if store.Err() != nil {
		c.Response().Header().Set(staleHeader, "true")
	}
}

// writeStoreError maps the catalog error taxonomy onto HTTP responses.
func writeStoreError(c echo.Context, err error) error {
	var verr *model.ValidationError
	var perr *model.PersistenceError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Error()})
	case errors.Is(err, model.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, model.ErrInsufficientSeats):
		return c.JSON(http.StatusConflict, echo.Map{"error": "insufficient seats"})
	case errors.As(err, &perr):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "persistence failed"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
