package local

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davitm/cinehub/internal/catalog"
	"github.com/davitm/cinehub/internal/kv"
	"github.com/davitm/cinehub/internal/model"
)

// failingKV wraps a kv.Store and fails Save for the configured keys,
// letting tests exercise the staged-write rollback paths.
type failingKV struct {
	kv.Store
	failSave map[string]bool
}

func (f *failingKV) Save(ctx context.Context, key string, value any) error {
	if f.failSave[key] {
		return errors.New("disk full")
	}
	return f.Store.Save(ctx, key, value)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestStore(t *testing.T, backing kv.Store) *Store {
	t.Helper()
	s, err := New(context.Background(), backing, Options{
		AdminEmail: "admin@cinehub.test",
		BcryptCost: 4, // keep the hashing cheap in tests
		Logger:     quietLogger(),
	})
	require.NoError(t, err)
	return s
}

func seedCatalog(t *testing.T, s *Store) (model.Movie, model.Showtime) {
	t.Helper()
	ctx := context.Background()
	movie, err := s.CreateMovie(ctx, model.Movie{Title: "Heat", Genre: "Crime"})
	require.NoError(t, err)
	showtime, err := s.CreateShowtime(ctx, model.Showtime{
		MovieID:    movie.ID,
		Date:       "2026-09-01",
		Time:       "20:00:00",
		TotalSeats: 50,
		Price:      12.50,
	})
	require.NoError(t, err)
	return *movie, *showtime
}

func TestCreateReservationDecrementsSeats(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	_, showtime := seedCatalog(t, s)
	ctx := context.Background()

	res, err := s.CreateReservation(ctx, catalog.BookingRequest{
		ShowtimeID:  showtime.ID,
		HolderEmail: "Alice@Example.com",
		Seats:       3,
	})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, "alice@example.com", res.HolderEmail)
	assert.Equal(t, showtime.MovieID, res.MovieID)
	assert.Equal(t, "Heat", res.MovieTitle)
	assert.Equal(t, "Crime", res.Genre)
	assert.Equal(t, 3, res.Seats)
	assert.InDelta(t, 37.50, res.TotalPrice, 0.0001)
	assert.False(t, res.CreatedAt.IsZero())

	got := s.ShowtimesForMovie(showtime.MovieID)
	require.Len(t, got, 1)
	assert.Equal(t, 47, got[0].AvailableSeats)

	listed := s.ReservationsForHolder("alice@example.com")
	require.Len(t, listed, 1)
	assert.Equal(t, res.ID, listed[0].ID)
}

func TestCreateReservationInsufficientSeatsMutatesNothing(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	_, showtime := seedCatalog(t, s)
	ctx := context.Background()

	_, err := s.UpdateShowtime(ctx, showtime.ID, model.ShowtimePatch{
		AvailableSeats: intPtr(2),
	})
	require.NoError(t, err)

	res, err := s.CreateReservation(ctx, catalog.BookingRequest{
		ShowtimeID:  showtime.ID,
		HolderEmail: "alice@example.com",
		Seats:       3,
	})
	assert.ErrorIs(t, err, model.ErrInsufficientSeats)
	assert.Nil(t, res)

	got := s.ShowtimesForMovie(showtime.MovieID)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].AvailableSeats)
	assert.Empty(t, s.Reservations())
}

func TestCreateReservationSeatPolicy(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	_, showtime := seedCatalog(t, s)
	ctx := context.Background()

	for _, seats := range []int{0, -1, 11} {
		res, err := s.CreateReservation(ctx, catalog.BookingRequest{
			ShowtimeID:  showtime.ID,
			HolderEmail: "alice@example.com",
			Seats:       seats,
		})
		var verr *model.ValidationError
		assert.ErrorAs(t, err, &verr, "seats=%d", seats)
		assert.Nil(t, res)
	}
	assert.Empty(t, s.Reservations())
}

func TestCreateReservationUnknownShowtime(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	seedCatalog(t, s)

	res, err := s.CreateReservation(context.Background(), catalog.BookingRequest{
		ShowtimeID:  404,
		HolderEmail: "alice@example.com",
		Seats:       1,
	})
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Nil(t, res)
}

func TestCreateReservationMovieShowtimeMismatch(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	_, showtime := seedCatalog(t, s)

	res, err := s.CreateReservation(context.Background(), catalog.BookingRequest{
		MovieID:     showtime.MovieID + 1,
		ShowtimeID:  showtime.ID,
		HolderEmail: "alice@example.com",
		Seats:       1,
	})
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Nil(t, res)
}

func TestCreateReservationPersistFailureRollsBack(t *testing.T) {
	backing := kv.NewMemory()
	s := newTestStore(t, backing)
	_, showtime := seedCatalog(t, s)
	ctx := context.Background()

	// fail the reservation write, after the showtime write succeeded
	s.kv = &failingKV{Store: backing, failSave: map[string]bool{keyReservations: true}}

	res, err := s.CreateReservation(ctx, catalog.BookingRequest{
		ShowtimeID:  showtime.ID,
		HolderEmail: "alice@example.com",
		Seats:       3,
	})
	var perr *model.PersistenceError
	assert.ErrorAs(t, err, &perr)
	assert.Nil(t, res)

	// in-memory snapshot is untouched
	got := s.ShowtimesForMovie(showtime.MovieID)
	require.Len(t, got, 1)
	assert.Equal(t, 50, got[0].AvailableSeats)
	assert.Empty(t, s.Reservations())

	// storage was rolled back too: a reload sees the original seat count
	s.kv = backing
	reloaded := newTestStore(t, backing)
	got = reloaded.ShowtimesForMovie(showtime.MovieID)
	require.Len(t, got, 1)
	assert.Equal(t, 50, got[0].AvailableSeats)
	assert.Empty(t, reloaded.Reservations())
}

func TestStateSurvivesReload(t *testing.T) {
	backing := kv.NewMemory()
	s := newTestStore(t, backing)
	_, showtime := seedCatalog(t, s)
	ctx := context.Background()

	res, err := s.CreateReservation(ctx, catalog.BookingRequest{
		ShowtimeID:  showtime.ID,
		HolderEmail: "alice@example.com",
		Seats:       2,
	})
	require.NoError(t, err)

	reloaded := newTestStore(t, backing)
	require.Len(t, reloaded.Movies(), 1)
	got := reloaded.ShowtimesForMovie(showtime.MovieID)
	require.Len(t, got, 1)
	assert.Equal(t, 48, got[0].AvailableSeats)
	all := reloaded.Reservations()
	require.Len(t, all, 1)
	assert.Equal(t, res.ID, all[0].ID)

	// ID counters continue past the persisted maximum
	next, err := reloaded.CreateReservation(ctx, catalog.BookingRequest{
		ShowtimeID:  showtime.ID,
		HolderEmail: "bob@example.com",
		Seats:       1,
	})
	require.NoError(t, err)
	assert.Equal(t, res.ID+1, next.ID)
}

func TestDeleteMovieCascadesShowtimes(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	movie, showtime := seedCatalog(t, s)
	ctx := context.Background()

	other, err := s.CreateMovie(ctx, model.Movie{Title: "Ronin"})
	require.NoError(t, err)
	kept, err := s.CreateShowtime(ctx, model.Showtime{
		MovieID: other.ID, Date: "2026-09-02", Time: "18:00:00", TotalSeats: 30, Price: 10,
	})
	require.NoError(t, err)

	res, err := s.CreateReservation(ctx, catalog.BookingRequest{
		ShowtimeID:  showtime.ID,
		HolderEmail: "alice@example.com",
		Seats:       2,
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteMovie(ctx, movie.ID))

	assert.Empty(t, s.ShowtimesForMovie(movie.ID))
	assert.Len(t, s.ShowtimesForMovie(other.ID), 1)
	assert.Equal(t, kept.ID, s.ShowtimesForMovie(other.ID)[0].ID)

	// the reservation keeps its denormalized movie snapshot
	all := s.Reservations()
	require.Len(t, all, 1)
	assert.Equal(t, res.ID, all[0].ID)
	assert.Equal(t, "Heat", all[0].MovieTitle)

	assert.ErrorIs(t, s.DeleteMovie(ctx, movie.ID), model.ErrNotFound)
}

func TestUpdateMoviePatchesOnlyProvidedFields(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	movie, _ := seedCatalog(t, s)

	updated, err := s.UpdateMovie(context.Background(), movie.ID, model.MoviePatch{
		Rating: float64Ptr(8.3),
	})
	require.NoError(t, err)
	assert.Equal(t, "Heat", updated.Title)
	assert.Equal(t, "Crime", updated.Genre)
	assert.InDelta(t, 8.3, updated.Rating, 0.0001)
}

func TestCreateShowtimeValidation(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	movie, _ := seedCatalog(t, s)
	ctx := context.Background()

	_, err := s.CreateShowtime(ctx, model.Showtime{MovieID: 404, TotalSeats: 10})
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = s.CreateShowtime(ctx, model.Showtime{MovieID: movie.ID, TotalSeats: -1})
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)

	// omitted AvailableSeats defaults to full capacity
	st, err := s.CreateShowtime(ctx, model.Showtime{MovieID: movie.ID, TotalSeats: 40, Price: 9})
	require.NoError(t, err)
	assert.Equal(t, 40, st.AvailableSeats)
}

func TestRefreshFailureKeepsSnapshotAndSetsErr(t *testing.T) {
	backing := kv.NewMemory()
	s := newTestStore(t, backing)
	movie, _ := seedCatalog(t, s)

	s.kv = &brokenLoadKV{Store: backing}
	err := s.RefreshMovies(context.Background())
	require.Error(t, err)
	assert.Error(t, s.Err())
	require.Len(t, s.Movies(), 1)
	assert.Equal(t, movie.ID, s.Movies()[0].ID)

	// a successful refresh clears the flag
	s.kv = backing
	require.NoError(t, s.RefreshMovies(context.Background()))
	assert.NoError(t, s.Err())
}

type brokenLoadKV struct {
	kv.Store
}

func (b *brokenLoadKV) Load(ctx context.Context, key string, dest any) error {
	return errors.New("connection refused")
}

func TestRegisterAndAuthenticate(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	ctx := context.Background()

	u, err := s.Register(ctx, "Alice", "Alice@Example.com", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, model.RoleUser, u.Role)

	_, err = s.Register(ctx, "Alice again", "alice@example.com", "other")
	assert.ErrorIs(t, err, model.ErrEmailExists)

	admin, err := s.Register(ctx, "Root", "admin@cinehub.test", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)

	got, err := s.Authenticate(ctx, "ALICE@example.com", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Empty(t, got.PasswordHash)

	_, err = s.Authenticate(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	_, err = s.Authenticate(ctx, "nobody@example.com", "s3cret!")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	require.NoError(t, s.Logout(ctx))
}

func TestDeleteReservationKeepsSeats(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	_, showtime := seedCatalog(t, s)
	ctx := context.Background()

	res, err := s.CreateReservation(ctx, catalog.BookingRequest{
		ShowtimeID:  showtime.ID,
		HolderEmail: "alice@example.com",
		Seats:       4,
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteReservation(ctx, res.ID))
	assert.Empty(t, s.Reservations())

	// administrative cleanup, not a cancellation: seats stay booked
	got := s.ShowtimesForMovie(showtime.MovieID)
	require.Len(t, got, 1)
	assert.Equal(t, 46, got[0].AvailableSeats)

	assert.ErrorIs(t, s.DeleteReservation(ctx, res.ID), model.ErrNotFound)
}

func intPtr(v int) *int             { return &v }
func float64Ptr(v float64) *float64 { return &v }
