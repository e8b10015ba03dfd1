// Package remote implements the catalog store variant that mirrors a
// remote booking API. The in-memory collections are a client-side cache:
// every mutation is a network round-trip, and the cache is reconciled
// against the authoritative response. Creation of a reservation follows an
// explicit two-phase protocol — tentative local adoption, authoritative
// request, reconcile-or-revert — with a fallback match when the upstream
// response is ambiguous.
package remote

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/davitm/cinehub/internal/catalog"
	"github.com/davitm/cinehub/internal/model"
	"github.com/davitm/cinehub/internal/upstream"
)

// Store is the remote catalog variant. It implements catalog.Store and
// catalog.Identity.
type Store struct {
	api *upstream.Client
	log *logrus.Logger

	mu           sync.RWMutex
	movies       []model.Movie
	showtimes    []model.Showtime
	reservations []model.Reservation
	lastErr      error
}

var (
	_ catalog.Store    = (*Store)(nil)
	_ catalog.Identity = (*Store)(nil)
)

// New returns an empty mirror bound to the given API client. Callers
// usually follow up with RefreshMovies and RefreshReservations to warm the
// cache; a failed warm-up is not fatal, the mirror just starts stale.
func New(api *upstream.Client, log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{api: api, log: log}
}

// translate maps upstream sentinels onto the domain error taxonomy and
// wraps everything else as a persistence failure.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, upstream.ErrNotFound):
		return model.ErrNotFound
	case errors.Is(err, upstream.ErrConflict):
		return model.ErrEmailExists
	case errors.Is(err, upstream.ErrUnauthorized):
		return model.ErrInvalidCredentials
	default:
		return &model.PersistenceError{Op: op, Err: err}
	}
}

// ----- movies -----

func (s *Store) Movies() []model.Movie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.movies)
}

// RefreshMovies replaces the movie mirror with the upstream collection.
// On failure the prior mirror stays in place and Err() reports the cause.
func (s *Store) RefreshMovies(ctx context.Context) error {
	fresh, err := s.api.Movies(ctx)
	if err != nil {
		err = translate("refresh movies", err)
		s.setErr(err)
		return err
	}
	s.mu.Lock()
	s.movies = fresh
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// CreateMovie is transactional against the upstream: the mirror only
// changes when the round-trip succeeds.
func (s *Store) CreateMovie(ctx context.Context, m model.Movie) (*model.Movie, error) {
	created, err := s.api.CreateMovie(ctx, m)
	if err != nil {
		return nil, translate("create movie", err)
	}
	s.mu.Lock()
	s.movies = append(s.movies, *created)
	s.mu.Unlock()
	return created, nil
}

// UpdateMovie round-trips the patch and merges the server's record into
// the mirror.
func (s *Store) UpdateMovie(ctx context.Context, id int64, patch model.MoviePatch) (*model.Movie, error) {
	updated, err := s.api.UpdateMovie(ctx, id, patch)
	if err != nil {
		return nil, translate("update movie", err)
	}
	s.mu.Lock()
	if i := slices.IndexFunc(s.movies, func(m model.Movie) bool { return m.ID == id }); i >= 0 {
		s.movies[i] = *updated
	}
	s.mu.Unlock()
	return updated, nil
}

// DeleteMovie removes the movie upstream, then drops it and its showtimes
// from the mirror to match the upstream cascade.
func (s *Store) DeleteMovie(ctx context.Context, id int64) error {
	if err := s.api.DeleteMovie(ctx, id); err != nil {
		return translate("delete movie", err)
	}
	s.mu.Lock()
	s.movies = slices.DeleteFunc(s.movies, func(m model.Movie) bool { return m.ID == id })
	s.showtimes = slices.DeleteFunc(s.showtimes, func(st model.Showtime) bool { return st.MovieID == id })
	s.mu.Unlock()
	return nil
}

// ----- showtimes -----

func (s *Store) ShowtimesForMovie(movieID int64) []model.Showtime {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Showtime
	for _, st := range s.showtimes {
		if st.MovieID == movieID {
			out = append(out, st)
		}
	}
	return out
}

// RefreshShowtimes re-fetches one movie's showtimes and replaces only that
// movie's entries in the mirror, leaving other movies' showtimes as they
// were.
func (s *Store) RefreshShowtimes(ctx context.Context, movieID int64) error {
	fresh, err := s.api.ShowtimesByMovie(ctx, movieID)
	if err != nil {
		err = translate("refresh showtimes", err)
		s.setErr(err)
		return err
	}
	s.mu.Lock()
	kept := slices.DeleteFunc(slices.Clone(s.showtimes), func(st model.Showtime) bool {
		return st.MovieID == movieID
	})
	s.showtimes = append(kept, fresh...)
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

func (s *Store) CreateShowtime(ctx context.Context, st model.Showtime) (*model.Showtime, error) {
	created, err := s.api.CreateShowtime(ctx, st)
	if err != nil {
		return nil, translate("create showtime", err)
	}
	s.mu.Lock()
	s.showtimes = append(s.showtimes, *created)
	s.mu.Unlock()
	return created, nil
}

func (s *Store) UpdateShowtime(ctx context.Context, id int64, patch model.ShowtimePatch) (*model.Showtime, error) {
	updated, err := s.api.UpdateShowtime(ctx, id, patch)
	if err != nil {
		return nil, translate("update showtime", err)
	}
	s.mu.Lock()
	if i := slices.IndexFunc(s.showtimes, func(st model.Showtime) bool { return st.ID == id }); i >= 0 {
		s.showtimes[i] = *updated
	}
	s.mu.Unlock()
	return updated, nil
}

func (s *Store) DeleteShowtime(ctx context.Context, id int64) error {
	if err := s.api.DeleteShowtime(ctx, id); err != nil {
		return translate("delete showtime", err)
	}
	s.mu.Lock()
	s.showtimes = slices.DeleteFunc(s.showtimes, func(st model.Showtime) bool { return st.ID == id })
	s.mu.Unlock()
	return nil
}

// ----- reservations -----

func (s *Store) Reservations() []model.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.reservations)
}

func (s *Store) ReservationsForHolder(email string) []model.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Reservation
	for _, r := range s.reservations {
		if strings.EqualFold(r.HolderEmail, email) {
			out = append(out, r)
		}
	}
	return out
}

// RefreshReservations replaces the reservation mirror with the upstream
// collection.
func (s *Store) RefreshReservations(ctx context.Context) error {
	fresh, err := s.api.Bookings(ctx)
	if err != nil {
		err = translate("refresh reservations", err)
		s.setErr(err)
		return err
	}
	s.mu.Lock()
	s.reservations = fresh
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// CreateReservation submits the booking upstream and resolves the created
// record:
//
//  1. a well-formed response is adopted into the mirror directly;
//  2. an empty or malformed response triggers a re-fetch of the
//     authoritative collection and a match on
//     (movie, holder, seats, total price within tolerance);
//  3. no match yields (nil, nil) — the booking may exist upstream but
//     could not be confirmed, and the mirror equals the fetched set.
//
// The reservation collection is re-fetched after every attempt, so the
// mirror never trails the upstream by more than one round trip.
func (s *Store) CreateReservation(ctx context.Context, req catalog.BookingRequest) (*model.Reservation, error) {
	if err := s.validateBooking(req); err != nil {
		return nil, err
	}

	created, err := s.api.CreateBooking(ctx, upstream.BookingRequest{
		MovieID:     req.MovieID,
		HolderEmail: req.HolderEmail,
		Seats:       req.Seats,
		TotalPrice:  req.TotalPrice,
	})
	if err != nil {
		if rerr := s.RefreshReservations(ctx); rerr != nil {
			s.log.WithError(rerr).Warn("reservation re-fetch after failed create failed")
		}
		return nil, translate("create reservation", err)
	}

	if created != nil {
		// adopt optimistically, then re-sync with the authoritative source
		s.mu.Lock()
		s.reservations = append([]model.Reservation{*created}, s.reservations...)
		s.mu.Unlock()
		if rerr := s.RefreshReservations(ctx); rerr != nil {
			s.log.WithError(rerr).Warn("reservation re-fetch after create failed")
		}
		return created, nil
	}

	// ambiguous response: the fresh authoritative set decides
	if rerr := s.RefreshReservations(ctx); rerr != nil {
		s.log.WithError(rerr).Warn("reservation re-fetch for reconciliation failed")
		return nil, nil
	}
	s.mu.RLock()
	matched := catalog.MatchReservation(s.reservations, req)
	s.mu.RUnlock()
	if matched == nil {
		return nil, nil
	}
	found := *matched
	return &found, nil
}

// validateBooking applies the request-range checks before any network
// traffic. When the showtime is present in the mirror its availability is
// consulted too; otherwise the upstream is the only judge of capacity.
func (s *Store) validateBooking(req catalog.BookingRequest) error {
	available := catalog.MaxSeatsPerBooking
	s.mu.RLock()
	if i := slices.IndexFunc(s.showtimes, func(st model.Showtime) bool { return st.ID == req.ShowtimeID }); i >= 0 {
		available = s.showtimes[i].AvailableSeats
	}
	s.mu.RUnlock()
	return catalog.ValidateSeats(req.Seats, available)
}

// DeleteReservation removes the booking upstream and drops it from the
// mirror.
func (s *Store) DeleteReservation(ctx context.Context, id int64) error {
	if err := s.api.DeleteBooking(ctx, id); err != nil {
		return translate("delete reservation", err)
	}
	s.mu.Lock()
	s.reservations = slices.DeleteFunc(s.reservations, func(r model.Reservation) bool { return r.ID == id })
	s.mu.Unlock()
	return nil
}

// ----- identity -----

// Register proxies account creation to the upstream auth endpoint.
func (s *Store) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	u, err := s.api.RegisterUser(ctx, name, email, password)
	if err != nil {
		return nil, translate("register", err)
	}
	return u, nil
}

// Authenticate proxies the login to the upstream auth endpoint.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, translate("login", err)
	}
	return u, nil
}

// Logout is a no-op in remote mode; the upstream holds no session state
// for this client.
func (s *Store) Logout(ctx context.Context) error { return nil }

// ----- misc -----

func (s *Store) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// Err reports the last failed refresh, or nil after a successful one.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Close is a no-op; the HTTP client holds no resources worth tearing down.
func (s *Store) Close() error { return nil }
