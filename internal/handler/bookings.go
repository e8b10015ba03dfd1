package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/davitm/cinehub/internal/catalog"
	"github.com/davitm/cinehub/internal/model"
	"github.com/davitm/cinehub/internal/queue"
	queue_publisher "github.com/davitm/cinehub/internal/service"
)

// BookingHandler serves reservation listing, creation and deletion. The
// router gates creation to the user role and deletion to admins; listing
// is scoped here by role — admins see everything, users only their own
// records.
type BookingHandler struct {
	Store     catalog.Store
	Publisher *queue_publisher.Publisher
	Log       *logrus.Logger
}

func NewBookingHandler(store catalog.Store, pub *queue_publisher.Publisher, log *logrus.Logger) *BookingHandler {
	return &BookingHandler{Store: store, Publisher: pub, Log: log}
}

// List returns reservations, refreshed from the authoritative source.
// Admins get the full collection and may filter by ?userEmail=; users are
// always scoped to their own holder identity.
func (h *BookingHandler) List(c echo.Context) error {
	email, ok := sessionEmail(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.Store.RefreshReservations(c.Request().Context()); err != nil {
		h.Log.WithError(err).Warn("reservation refresh failed, serving snapshot")
	}
	markStale(c, h.Store)

	var out []model.Reservation
	if sessionRole(c) == model.RoleAdmin {
		if filter := c.QueryParam("userEmail"); filter != "" {
			out = h.Store.ReservationsForHolder(filter)
		} else {
			out = h.Store.Reservations()
		}
	} else {
		out = h.Store.ReservationsForHolder(email)
	}
	if out == nil {
		out = []model.Reservation{}
	}
	return c.JSON(http.StatusOK, out)
}

// Create books seats. The holder identity always comes from the session
// token, never from the request body. A confirmed booking answers 201 and
// publishes a reservation.created event; the soft-failure path — request
// sent, outcome unconfirmed — answers 202 so the client knows to re-check
// rather than retry blindly.
func (h *BookingHandler) Create(c echo.Context) error {
	email, ok := sessionEmail(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req catalog.BookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.HolderEmail = email

	res, err := h.Store.CreateReservation(c.Request().Context(), req)
	if err != nil {
		return writeStoreError(c, err)
	}
	if res == nil {
		return c.JSON(http.StatusAccepted, echo.Map{
			"status":  "unconfirmed",
			"message": "booking was submitted but could not be confirmed; check your reservations",
		})
	}

	if err := h.Publisher.PublishReservationCreated(c.Request().Context(), queue.ReservationCreatedEvent{
		ReservationID: res.ID,
		HolderEmail:   res.HolderEmail,
		MovieTitle:    res.MovieTitle,
		Seats:         res.Seats,
		TotalPrice:    res.TotalPrice,
		CreatedAt:     res.CreatedAt.UTC().Format(time.RFC3339),
	}); err != nil {
		h.Log.WithError(err).Warn("reservation event publish failed")
	}
	return c.JSON(http.StatusCreated, res)
}

// Delete removes a reservation record (admin cleanup; not a cancellation).
func (h *BookingHandler) Delete(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Store.DeleteReservation(c.Request().Context(), id); err != nil {
		return writeStoreError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
