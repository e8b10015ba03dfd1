// Package catalog defines the contract for the in-memory catalog store,
// the single source of truth for movies, showtimes and reservations during
// a session. Two implementations exist: local (collections owned outright,
// persisted to durable key-value storage) and remote (a client-side mirror
// of the remote booking API). A process runs exactly one of them.
package catalog

import (
	"context"

	"github.com/davitm/cinehub/internal/model"
)

// MaxSeatsPerBooking caps a single reservation regardless of remaining
// capacity. The effective maximum is min(availableSeats, MaxSeatsPerBooking).
const MaxSeatsPerBooking = 10

// BookingRequest is the input to CreateReservation. TotalPrice is trusted
// as submitted in remote mode (the upstream is authoritative) and
// recomputed from the showtime price in local mode.
type BookingRequest struct {
	MovieID     int64   `json:"movieId"`
	ShowtimeID  int64   `json:"showtimeId,omitempty"`
	HolderEmail string  `json:"userEmail"`
	Seats       int     `json:"seats"`
	TotalPrice  float64 `json:"totalPrice"`
}

// Store is the catalog contract consumed by the transport layer.
//
// Accessors (Movies, ShowtimesForMovie, Reservations, ...) return the
// current in-memory snapshot without blocking; the snapshot may be stale
// until a Refresh* call completes. Refresh* calls block until the
// authoritative source answers: on success the collection is replaced
// wholesale, on failure the prior snapshot stays untouched and Err()
// reports the failure until the next successful refresh.
//
// CreateReservation returns (nil, nil) when the request was sent but the
// outcome could not be confirmed — a deliberately soft failure, because the
// write may have succeeded on the authoritative side.
type Store interface {
	Movies() []model.Movie
	RefreshMovies(ctx context.Context) error
	CreateMovie(ctx context.Context, m model.Movie) (*model.Movie, error)
	UpdateMovie(ctx context.Context, id int64, patch model.MoviePatch) (*model.Movie, error)
	DeleteMovie(ctx context.Context, id int64) error

	ShowtimesForMovie(movieID int64) []model.Showtime
	RefreshShowtimes(ctx context.Context, movieID int64) error
	CreateShowtime(ctx context.Context, s model.Showtime) (*model.Showtime, error)
	UpdateShowtime(ctx context.Context, id int64, patch model.ShowtimePatch) (*model.Showtime, error)
	DeleteShowtime(ctx context.Context, id int64) error

	Reservations() []model.Reservation
	ReservationsForHolder(email string) []model.Reservation
	RefreshReservations(ctx context.Context) error
	CreateReservation(ctx context.Context, req BookingRequest) (*model.Reservation, error)
	DeleteReservation(ctx context.Context, id int64) error

	// Err reports the observable error flag set by a failed refresh, or nil
	// when the last refresh of every collection succeeded.
	Err() error
	Close() error
}

// Identity authenticates and registers users against whichever credential
// source the catalog mode dictates: the key-value credential collection in
// local mode, the upstream auth endpoints in remote mode.
type Identity interface {
	Register(ctx context.Context, name, email, password string) (*model.User, error)
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	Logout(ctx context.Context) error
}

// ValidateSeats applies the per-booking seat policy shared by both store
// variants. Range errors on the request itself are ValidationErrors;
// exceeding the remaining capacity is ErrInsufficientSeats.
func ValidateSeats(seats, available int) error {
	if seats < 1 {
		return &model.ValidationError{Field: "seats", Reason: "must be at least 1"}
	}
	if seats > MaxSeatsPerBooking {
		return &model.ValidationError{Field: "seats", Reason: "exceeds per-booking maximum"}
	}
	if seats > available {
		return model.ErrInsufficientSeats
	}
	return nil
}
