package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/davitm/cinehub/internal/catalog"
	"github.com/davitm/cinehub/internal/model"
)

// MovieHandler serves the movie catalog endpoints. Reads are available to
// every authenticated session; writes are registered behind the admin role
// gate by the router.
type MovieHandler struct {
	Store catalog.Store
	Log   *logrus.Logger
}

func NewMovieHandler(store catalog.Store, log *logrus.Logger) *MovieHandler {
	return &MovieHandler{Store: store, Log: log}
}

// List refreshes the movie collection and returns the snapshot. A failed
// refresh still serves the last-known-good snapshot, flagged stale.
func (h *MovieHandler) List(c echo.Context) error {
	if err := h.Store.RefreshMovies(c.Request().Context()); err != nil {
		h.Log.WithError(err).Warn("movie refresh failed, serving snapshot")
	}
	markStale(c, h.Store)
	movies := h.Store.Movies()
	if movies == nil {
		movies = []model.Movie{}
	}
	return c.JSON(http.StatusOK, movies)
}

// Create adds a movie to the catalog.
func (h *MovieHandler) Create(c echo.Context) error {
	var m model.Movie
	if err := c.Bind(&m); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	created, err := h.Store.CreateMovie(c.Request().Context(), m)
	if err != nil {
		return writeStoreError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// Update merges a partial update into an existing movie.
func (h *MovieHandler) Update(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var patch model.MoviePatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	updated, err := h.Store.UpdateMovie(c.Request().Context(), id, patch)
	if err != nil {
		return writeStoreError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete removes a movie and, by cascade, its showtimes.
func (h *MovieHandler) Delete(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Store.DeleteMovie(c.Request().Context(), id); err != nil {
		return writeStoreError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
