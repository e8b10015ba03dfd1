package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/davitm/cinehub/internal/catalog"
	"github.com/davitm/cinehub/internal/model"
)

// ShowtimeHandler serves showtime browsing and the admin showtime CRUD.
type ShowtimeHandler struct {
	Store catalog.Store
	Log   *logrus.Logger
}

func NewShowtimeHandler(store catalog.Store, log *logrus.Logger) *ShowtimeHandler {
	return &ShowtimeHandler{Store: store, Log: log}
}

// ListByMovie refreshes and returns the showtimes scheduled for one movie.
func (h *ShowtimeHandler) ListByMovie(c echo.Context) error {
	movieID, err := idParam(c, "movieId")
	if err != nil {
		return err
	}
	if err := h.Store.RefreshShowtimes(c.Request().Context(), movieID); err != nil {
		h.Log.WithError(err).Warn("showtime refresh failed, serving snapshot")
	}
	markStale(c, h.Store)
	showtimes := h.Store.ShowtimesForMovie(movieID)
	if showtimes == nil {
		showtimes = []model.Showtime{}
	}
	return c.JSON(http.StatusOK, showtimes)
}

// Create schedules a showtime for a movie.
func (h *ShowtimeHandler) Create(c echo.Context) error {
	var st model.Showtime
	if err := c.Bind(&st); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	created, err := h.Store.CreateShowtime(c.Request().Context(), st)
	if err != nil {
		return writeStoreError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// Update merges a partial update into an existing showtime.
func (h *ShowtimeHandler) Update(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var patch model.ShowtimePatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	updated, err := h.Store.UpdateShowtime(c.Request().Context(), id, patch)
	if err != nil {
		return writeStoreError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete removes a showtime. Existing reservations keep their snapshot.
func (h *ShowtimeHandler) Delete(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Store.DeleteShowtime(c.Request().Context(), id); err != nil {
		return writeStoreError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
