// Package local implements the catalog store that owns its data outright.
// Collections live in memory and are persisted wholesale, JSON-encoded, to
// durable key-value storage under one key per collection. Identifiers come
// from monotonic counters seeded from the highest persisted ID.
//
// Mutations are staged: a new copy of the affected collections is built,
// written to storage, and only then committed to memory. A failed durable
// write therefore leaves the in-memory snapshot untouched. Seat decrement
// and reservation creation form a single such unit, so availability can
// never diverge from the reservation collection.
package local

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/davitm/cinehub/internal/catalog"
	"github.com/davitm/cinehub/internal/kv"
	"github.com/davitm/cinehub/internal/model"
	"github.com/davitm/cinehub/internal/utils"
)

// Storage keys, one JSON-encoded record per collection.
const (
	keyMovies       = "movies"
	keyShowtimes    = "showtimes"
	keyReservations = "reservations"
	keyUsers        = "registered_users"
	keySession      = "current_session_user"
)

// userRecord mirrors the persisted shape of a registered user. Business
// logic uses model.User, which never carries the password hash across the
// API boundary; this record is what actually lands in storage.
type userRecord struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         model.Role `json:"role"`
	PasswordHash string     `json:"passwordHash"`
}

func (u userRecord) user() model.User {
	return model.User{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// Options tunes store construction.
type Options struct {
	// AdminEmail grants the admin role to the registration using this email.
	AdminEmail string
	// BcryptCost is the hashing cost for stored credentials.
	BcryptCost int
	Logger     *logrus.Logger
}

// Store is the local catalog variant. It implements catalog.Store and
// catalog.Identity.
type Store struct {
	kv   kv.Store
	log  *logrus.Logger
	opts Options

	mu           sync.RWMutex
	movies       []model.Movie
	showtimes    []model.Showtime
	reservations []model.Reservation
	users        []userRecord

	nextMovieID       int64
	nextShowtimeID    int64
	nextReservationID int64
	nextUserID        int64

	lastErr error
}

var (
	_ catalog.Store    = (*Store)(nil)
	_ catalog.Identity = (*Store)(nil)
)

// New loads every collection from storage and seeds the ID counters.
// Absent keys start as empty collections.
func New(ctx context.Context, store kv.Store, opts Options) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.BcryptCost <= 0 {
		opts.BcryptCost = 10
	}
	s := &Store{kv: store, log: opts.Logger, opts: opts}
	if err := s.loadAll(ctx); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"movies":       len(s.movies),
		"showtimes":    len(s.showtimes),
		"reservations": len(s.reservations),
		"users":        len(s.users),
	}).Info("local catalog loaded")
	return s, nil
}

func (s *Store) loadAll(ctx context.Context) error {
	if err := loadKey(ctx, s.kv, keyMovies, &s.movies); err != nil {
		return err
	}
	if err := loadKey(ctx, s.kv, keyShowtimes, &s.showtimes); err != nil {
		return err
	}
	if err := loadKey(ctx, s.kv, keyReservations, &s.reservations); err != nil {
		return err
	}
	if err := loadKey(ctx, s.kv, keyUsers, &s.users); err != nil {
		return err
	}
	for _, m := range s.movies {
		s.nextMovieID = max(s.nextMovieID, m.ID)
	}
	for _, st := range s.showtimes {
		s.nextShowtimeID = max(s.nextShowtimeID, st.ID)
	}
	for _, r := range s.reservations {
		s.nextReservationID = max(s.nextReservationID, r.ID)
	}
	for _, u := range s.users {
		s.nextUserID = max(s.nextUserID, u.ID)
	}
	return nil
}

func loadKey[T any](ctx context.Context, store kv.Store, key string, dest *[]T) error {
	err := store.Load(ctx, key, dest)
	if errors.Is(err, kv.ErrNoRecord) {
		*dest = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	return nil
}

func (s *Store) persist(ctx context.Context, key string, value any) error {
	if err := s.kv.Save(ctx, key, value); err != nil {
		return &model.PersistenceError{Op: "save " + key, Err: err}
	}
	return nil
}

// ----- movies -----

// Movies returns the current in-memory snapshot. Never blocks on storage.
func (s *Store) Movies() []model.Movie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.movies)
}

// RefreshMovies reloads the movie collection from storage, replacing the
// snapshot wholesale. A failed load keeps the prior snapshot and sets the
// observable error flag.
func (s *Store) RefreshMovies(ctx context.Context) error {
	var fresh []model.Movie
	if err := loadKey(ctx, s.kv, keyMovies, &fresh); err != nil {
		s.setErr(err)
		return err
	}
	s.mu.Lock()
	s.movies = fresh
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// CreateMovie assigns the next identifier, appends the record and persists
// the collection. The in-memory state is only committed once the durable
// write succeeds.
func (s *Store) CreateMovie(ctx context.Context, m model.Movie) (*model.Movie, error) {
	if strings.TrimSpace(m.Title) == "" {
		return nil, &model.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = s.nextMovieID + 1
	staged := append(slices.Clone(s.movies), m)
	if err := s.persist(ctx, keyMovies, staged); err != nil {
		return nil, err
	}
	s.movies = staged
	s.nextMovieID = m.ID
	return &m, nil
}

// UpdateMovie merges the patch into the stored record.
func (s *Store) UpdateMovie(ctx context.Context, id int64, patch model.MoviePatch) (*model.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.movies, func(m model.Movie) bool { return m.ID == id })
	if i < 0 {
		return nil, model.ErrNotFound
	}
	staged := slices.Clone(s.movies)
	patch.Apply(&staged[i])
	if err := s.persist(ctx, keyMovies, staged); err != nil {
		return nil, err
	}
	s.movies = staged
	updated := staged[i]
	return &updated, nil
}

// DeleteMovie removes the movie and cascades to every showtime that
// references it. Reservations keep their denormalized snapshot.
func (s *Store) DeleteMovie(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.movies, func(m model.Movie) bool { return m.ID == id })
	if i < 0 {
		return model.ErrNotFound
	}
	stagedMovies := slices.Delete(slices.Clone(s.movies), i, i+1)
	stagedShowtimes := slices.DeleteFunc(slices.Clone(s.showtimes), func(st model.Showtime) bool {
		return st.MovieID == id
	})
	if err := s.persist(ctx, keyMovies, stagedMovies); err != nil {
		return err
	}
	if err := s.persist(ctx, keyShowtimes, stagedShowtimes); err != nil {
		// restore the movie collection so storage stays consistent
		if rerr := s.persist(ctx, keyMovies, s.movies); rerr != nil {
			s.log.WithError(rerr).Error("rollback of movie collection failed")
		}
		return err
	}
	s.movies = stagedMovies
	s.showtimes = stagedShowtimes
	return nil
}

// ----- showtimes -----

// ShowtimesForMovie filters the in-memory showtime collection. O(n) scan,
// fine for catalogs of tens to low hundreds of records.
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

// RefreshShowtimes reloads the showtime collection from storage. The
// movieID argument exists for contract symmetry with the remote variant;
// local storage always reloads the full collection.
func (s *Store) RefreshShowtimes(ctx context.Context, movieID int64) error {
	var fresh []model.Showtime
	if err := loadKey(ctx, s.kv, keyShowtimes, &fresh); err != nil {
		s.setErr(err)
		return err
	}
	s.mu.Lock()
	s.showtimes = fresh
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// CreateShowtime validates the seat counters, assigns an identifier and
// persists. An omitted AvailableSeats defaults to the full capacity.
func (s *Store) CreateShowtime(ctx context.Context, st model.Showtime) (*model.Showtime, error) {
	if st.TotalSeats < 0 {
		return nil, &model.ValidationError{Field: "totalSeats", Reason: "must not be negative"}
	}
	if st.AvailableSeats == 0 {
		st.AvailableSeats = st.TotalSeats
	}
	if st.AvailableSeats < 0 || st.AvailableSeats > st.TotalSeats {
		return nil, &model.ValidationError{Field: "availableSeats", Reason: "must be within [0, totalSeats]"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.ContainsFunc(s.movies, func(m model.Movie) bool { return m.ID == st.MovieID }) {
		return nil, model.ErrNotFound
	}
	st.ID = s.nextShowtimeID + 1
	staged := append(slices.Clone(s.showtimes), st)
	if err := s.persist(ctx, keyShowtimes, staged); err != nil {
		return nil, err
	}
	s.showtimes = staged
	s.nextShowtimeID = st.ID
	return &st, nil
}

// UpdateShowtime merges the patch and re-checks the capacity invariant.
func (s *Store) UpdateShowtime(ctx context.Context, id int64, patch model.ShowtimePatch) (*model.Showtime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.showtimes, func(st model.Showtime) bool { return st.ID == id })
	if i < 0 {
		return nil, model.ErrNotFound
	}
	staged := slices.Clone(s.showtimes)
	patch.Apply(&staged[i])
	if staged[i].AvailableSeats < 0 || staged[i].AvailableSeats > staged[i].TotalSeats {
		return nil, &model.ValidationError{Field: "availableSeats", Reason: "must be within [0, totalSeats]"}
	}
	if err := s.persist(ctx, keyShowtimes, staged); err != nil {
		return nil, err
	}
	s.showtimes = staged
	updated := staged[i]
	return &updated, nil
}

// DeleteShowtime removes the showtime. Already-created reservations are
// not touched.
func (s *Store) DeleteShowtime(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.showtimes, func(st model.Showtime) bool { return st.ID == id })
	if i < 0 {
		return model.ErrNotFound
	}
	staged := slices.Delete(slices.Clone(s.showtimes), i, i+1)
	if err := s.persist(ctx, keyShowtimes, staged); err != nil {
		return err
	}
	s.showtimes = staged
	return nil
}

// ----- reservations -----

func (s *Store) Reservations() []model.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.reservations)
}

// ReservationsForHolder filters by holder email, case-insensitively.
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

// RefreshReservations reloads the reservation collection from storage.
func (s *Store) RefreshReservations(ctx context.Context) error {
	var fresh []model.Reservation
	if err := loadKey(ctx, s.kv, keyReservations, &fresh); err != nil {
		s.setErr(err)
		return err
	}
	s.mu.Lock()
	s.reservations = fresh
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// CreateReservation books seats on a showtime. The seat decrement and the
// reservation record form one atomic unit: both are staged, persisted, and
// committed together, or neither is. The write lock is held across the
// whole check-decrement-create sequence so two concurrent bookings cannot
// both observe the same free seats.
//
// The reservation collection is re-fetched from storage after every
// attempt, success or not, keeping the snapshot aligned with the
// authoritative source.
func (s *Store) CreateReservation(ctx context.Context, req catalog.BookingRequest) (*model.Reservation, error) {
	res, err := s.createReservation(ctx, req)
	if rerr := s.RefreshReservations(ctx); rerr != nil {
		s.log.WithError(rerr).Warn("reservation re-fetch after create failed")
	}
	return res, err
}

func (s *Store) createReservation(ctx context.Context, req catalog.BookingRequest) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	si := slices.IndexFunc(s.showtimes, func(st model.Showtime) bool { return st.ID == req.ShowtimeID })
	if si < 0 {
		return nil, model.ErrNotFound
	}
	st := s.showtimes[si]
	if req.MovieID != 0 && req.MovieID != st.MovieID {
		return nil, &model.ValidationError{Field: "movieId", Reason: "does not match showtime"}
	}
	mi := slices.IndexFunc(s.movies, func(m model.Movie) bool { return m.ID == st.MovieID })
	if mi < 0 {
		return nil, model.ErrNotFound
	}
	if err := catalog.ValidateSeats(req.Seats, st.AvailableSeats); err != nil {
		return nil, err
	}

	movie := s.movies[mi]
	res := model.Reservation{
		ID:          s.nextReservationID + 1,
		HolderEmail: strings.ToLower(strings.TrimSpace(req.HolderEmail)),
		MovieID:     movie.ID,
		ShowtimeID:  st.ID,
		MovieTitle:  movie.Title,
		Genre:       movie.Genre,
		Seats:       req.Seats,
		TotalPrice:  float64(req.Seats) * st.Price,
		CreatedAt:   time.Now().UTC(),
	}

	stagedShowtimes := slices.Clone(s.showtimes)
	stagedShowtimes[si].AvailableSeats -= req.Seats
	stagedReservations := append(slices.Clone(s.reservations), res)

	if err := s.persist(ctx, keyShowtimes, stagedShowtimes); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, keyReservations, stagedReservations); err != nil {
		if rerr := s.persist(ctx, keyShowtimes, s.showtimes); rerr != nil {
			s.log.WithError(rerr).Error("rollback of showtime collection failed")
		}
		return nil, err
	}
	s.showtimes = stagedShowtimes
	s.reservations = stagedReservations
	s.nextReservationID = res.ID
	return &res, nil
}

// DeleteReservation removes a reservation record. Seats are not returned
// to the showtime: bookings are read-only after creation and deletion is an
// administrative cleanup, not a cancellation.
func (s *Store) DeleteReservation(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.reservations, func(r model.Reservation) bool { return r.ID == id })
	if i < 0 {
		return model.ErrNotFound
	}
	staged := slices.Delete(slices.Clone(s.reservations), i, i+1)
	if err := s.persist(ctx, keyReservations, staged); err != nil {
		return err
	}
	s.reservations = staged
	return nil
}

// ----- identity -----

// Register creates a credential record. The configured admin email is
// granted the admin role; everyone else registers as a plain user.
func (s *Store) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.ContainsFunc(s.users, func(u userRecord) bool { return u.Email == email }) {
		return nil, model.ErrEmailExists
	}
	hash, err := utils.HashPassword(password, s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	role := model.RoleUser
	if s.opts.AdminEmail != "" && email == strings.ToLower(s.opts.AdminEmail) {
		role = model.RoleAdmin
	}
	rec := userRecord{
		ID:           s.nextUserID + 1,
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: hash,
	}
	staged := append(slices.Clone(s.users), rec)
	if err := s.persist(ctx, keyUsers, staged); err != nil {
		return nil, err
	}
	s.users = staged
	s.nextUserID = rec.ID
	u := rec.user()
	return &u, nil
}

// Authenticate verifies credentials and mirrors the signed-in user into the
// session record. A failed session write is logged but does not fail the
// login; the session key is a convenience mirror, not the system of record.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.RLock()
	i := slices.IndexFunc(s.users, func(u userRecord) bool { return u.Email == email })
	var rec userRecord
	if i >= 0 {
		rec = s.users[i]
	}
	s.mu.RUnlock()

	if i < 0 || !utils.VerifyPassword(rec.PasswordHash, password) {
		return nil, model.ErrInvalidCredentials
	}
	u := rec.user()
	if err := s.kv.Save(ctx, keySession, u); err != nil {
		s.log.WithError(err).Warn("session record write failed")
	}
	return &u, nil
}

// Logout clears the session record.
func (s *Store) Logout(ctx context.Context) error {
	return s.kv.Delete(ctx, keySession)
}

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

// Close releases the underlying storage when it owns a connection.
func (s *Store) Close() error {
	if c, ok := s.kv.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
