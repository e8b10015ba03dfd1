package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davitm/cinehub/internal/catalog"
	"github.com/davitm/cinehub/internal/catalog/local"
	"github.com/davitm/cinehub/internal/config"
	"github.com/davitm/cinehub/internal/handler"
	"github.com/davitm/cinehub/internal/kv"
	"github.com/davitm/cinehub/internal/model"
	"github.com/davitm/cinehub/internal/router"
	queue_publisher "github.com/davitm/cinehub/internal/service"
	"github.com/davitm/cinehub/internal/utils"
)

const testSecret = "test-secret"

// newTestServer wires the full HTTP surface over a local catalog store
// backed by an in-memory key-value map, seeded with one movie and one
// showtime.
func newTestServer(t *testing.T) (*echo.Echo, *local.Store, model.Showtime) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	store, err := local.New(context.Background(), kv.NewMemory(), local.Options{
		AdminEmail: "admin@cinehub.test",
		BcryptCost: 4,
		Logger:     log,
	})
	require.NoError(t, err)

	cfg := config.Config{JWTSecret: testSecret, AccessTTLMin: 60}
	e := echo.New()
	router.Register(e, router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, store),
		Movies:    handler.NewMovieHandler(store, log),
		Showtimes: handler.NewShowtimeHandler(store, log),
		Bookings:  handler.NewBookingHandler(store, queue_publisher.New("", log), log),
	}, cfg.JWTSecret)

	movie, err := store.CreateMovie(context.Background(), model.Movie{Title: "Heat", Genre: "Crime"})
	require.NoError(t, err)
	showtime, err := store.CreateShowtime(context.Background(), model.Showtime{
		MovieID: movie.ID, Date: "2026-09-01", Time: "20:00:00", TotalSeats: 50, Price: 12.5,
	})
	require.NoError(t, err)
	return e, store, *showtime
}

func tokenFor(t *testing.T, email string, role model.Role) string {
	t.Helper()
	access, err := utils.NewAccessToken(testSecret, model.User{ID: 1, Email: email, Role: role}, 60)
	require.NoError(t, err)
	return access.Token
}

func doJSON(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	e, _, _ := newTestServer(t)
	rec := doJSON(e, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBookingRequiresAuth(t *testing.T) {
	e, _, showtime := newTestServer(t)
	body := fmt.Sprintf(`{"showtimeId":%d,"seats":2}`, showtime.ID)
	rec := doJSON(e, http.MethodPost, "/api/bookings", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminCannotCreateBooking(t *testing.T) {
	e, store, showtime := newTestServer(t)
	token := tokenFor(t, "admin@cinehub.test", model.RoleAdmin)

	body := fmt.Sprintf(`{"showtimeId":%d,"seats":2}`, showtime.ID)
	rec := doJSON(e, http.MethodPost, "/api/bookings", token, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, store.Reservations())
}

func TestUserCreatesBookingHolderFromToken(t *testing.T) {
	e, store, showtime := newTestServer(t)
	token := tokenFor(t, "alice@example.com", model.RoleUser)

	// the userEmail in the body must be ignored in favor of the token
	body := fmt.Sprintf(`{"showtimeId":%d,"seats":2,"userEmail":"mallory@example.com"}`, showtime.ID)
	rec := doJSON(e, http.MethodPost, "/api/bookings", token, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var res model.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "alice@example.com", res.HolderEmail)
	assert.Equal(t, 2, res.Seats)
	assert.InDelta(t, 25.0, res.TotalPrice, 0.0001)

	got := store.ShowtimesForMovie(showtime.MovieID)
	require.Len(t, got, 1)
	assert.Equal(t, 48, got[0].AvailableSeats)
}

func TestBookingErrorMapping(t *testing.T) {
	e, _, showtime := newTestServer(t)
	token := tokenFor(t, "alice@example.com", model.RoleUser)

	tests := []struct {
		name string
		body string
		want int
	}{
		{
			name: "unknown showtime",
			body: `{"showtimeId":404,"seats":2}`,
			want: http.StatusNotFound,
		},
		{
			name: "zero seats",
			body: fmt.Sprintf(`{"showtimeId":%d,"seats":0}`, showtime.ID),
			want: http.StatusBadRequest,
		},
		{
			name: "above per-booking maximum",
			body: fmt.Sprintf(`{"showtimeId":%d,"seats":11}`, showtime.ID),
			want: http.StatusBadRequest,
		},
		{
			name: "maximum allowed seats",
			body: fmt.Sprintf(`{"showtimeId":%d,"seats":10}`, showtime.ID),
			want: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(e, http.MethodPost, "/api/bookings", token, tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestBookingInsufficientSeatsConflict(t *testing.T) {
	e, store, showtime := newTestServer(t)
	token := tokenFor(t, "alice@example.com", model.RoleUser)

	_, err := store.UpdateShowtime(context.Background(), showtime.ID, model.ShowtimePatch{
		AvailableSeats: intPtr(1),
	})
	require.NoError(t, err)

	body := fmt.Sprintf(`{"showtimeId":%d,"seats":2}`, showtime.ID)
	rec := doJSON(e, http.MethodPost, "/api/bookings", token, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBookingListIsRoleScoped(t *testing.T) {
	e, store, showtime := newTestServer(t)
	ctx := context.Background()

	for _, email := range []string{"alice@example.com", "bob@example.com"} {
		_, err := store.CreateReservation(ctx, catalog.BookingRequest{
			ShowtimeID: showtime.ID, HolderEmail: email, Seats: 1,
		})
		require.NoError(t, err)
	}

	// users only ever see their own reservations
	rec := doJSON(e, http.MethodGet, "/api/bookings", tokenFor(t, "alice@example.com", model.RoleUser), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []model.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "alice@example.com", mine[0].HolderEmail)

	// admins see everything
	adminToken := tokenFor(t, "admin@cinehub.test", model.RoleAdmin)
	rec = doJSON(e, http.MethodGet, "/api/bookings", adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []model.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	// and may filter by holder
	rec = doJSON(e, http.MethodGet, "/api/bookings?userEmail=bob@example.com", adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var filtered []model.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filtered))
	require.Len(t, filtered, 1)
	assert.Equal(t, "bob@example.com", filtered[0].HolderEmail)
}

func TestCatalogWritesAreAdminOnly(t *testing.T) {
	e, _, showtime := newTestServer(t)
	userToken := tokenFor(t, "alice@example.com", model.RoleUser)
	adminToken := tokenFor(t, "admin@cinehub.test", model.RoleAdmin)

	rec := doJSON(e, http.MethodPost, "/api/movies", userToken, `{"title":"Ronin"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/movies", adminToken, `{"title":"Ronin"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.Movie
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Positive(t, created.ID)

	// the created record shows up in the list with its assigned ID
	rec = doJSON(e, http.MethodGet, "/api/movies", userToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var movies []model.Movie
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &movies))
	require.Len(t, movies, 2)
	assert.Equal(t, created.ID, movies[1].ID)
	assert.Equal(t, "Ronin", movies[1].Title)

	rec = doJSON(e, http.MethodDelete, fmt.Sprintf("/api/showtimes/%d", showtime.ID), userToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(e, http.MethodDelete, fmt.Sprintf("/api/showtimes/%d", showtime.ID), adminToken, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestBookingDeleteIsAdminOnly(t *testing.T) {
	e, store, showtime := newTestServer(t)

	res, err := store.CreateReservation(context.Background(), catalog.BookingRequest{
		ShowtimeID: showtime.ID, HolderEmail: "alice@example.com", Seats: 1,
	})
	require.NoError(t, err)

	rec := doJSON(e, http.MethodDelete, fmt.Sprintf("/api/bookings/%d", res.ID),
		tokenFor(t, "alice@example.com", model.RoleUser), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(e, http.MethodDelete, fmt.Sprintf("/api/bookings/%d", res.ID),
		tokenFor(t, "admin@cinehub.test", model.RoleAdmin), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.Reservations())
}

func TestRegisterLoginFlow(t *testing.T) {
	e, _, showtime := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/auth/register", "",
		`{"name":"Alice","email":"alice@example.com","password":"s3cret!"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// duplicate email
	rec = doJSON(e, http.MethodPost, "/api/auth/register", "",
		`{"name":"Alice","email":"alice@example.com","password":"s3cret!"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// malformed inputs
	rec = doJSON(e, http.MethodPost, "/api/auth/register", "",
		`{"name":"Bob","email":"not-an-email","password":"s3cret!"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doJSON(e, http.MethodPost, "/api/auth/register", "",
		`{"name":"Bob","email":"bob@example.com","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/auth/login", "",
		`{"email":"alice@example.com","password":"s3cret!"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		User   model.User `json:"user"`
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.RoleUser, resp.User.Role)
	require.NotEmpty(t, resp.Access.Token)

	// the issued token opens the protected surface end to end
	body := fmt.Sprintf(`{"showtimeId":%d,"seats":1}`, showtime.ID)
	rec = doJSON(e, http.MethodPost, "/api/bookings", resp.Access.Token, body)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/auth/login", "",
		`{"email":"alice@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminEmailGetsAdminRole(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/auth/register", "",
		`{"name":"Root","email":"admin@cinehub.test","password":"s3cret!"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		User model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.RoleAdmin, resp.User.Role)
}

func intPtr(v int) *int { return &v }
