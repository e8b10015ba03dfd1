// Package upstream is the typed HTTP client for the remote booking API.
// The API is an opaque collaborator: this package owns only the wire
// shapes and the translation into the domain model. Showtime and booking
// payloads arrive with an embedded movie object and are flattened into the
// ID-referencing domain structs.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/davitm/cinehub/internal/model"
)

// ErrNotFound is returned when the upstream cannot find the requested
// record.
var ErrNotFound = errors.New("upstream: not found")

// ErrUnauthorized is returned when the upstream rejects credentials.
var ErrUnauthorized = errors.New("upstream: unauthorized")

// ErrConflict is returned when the upstream rejects a create for an
// already-taken identity (e.g. a registered email).
var ErrConflict = errors.New("upstream: conflict")

// Client talks to the remote booking API over HTTP.
type Client struct {
	baseURL *url.URL
	client  *http.Client
	log     *logrus.Logger
}

// New constructs a client for the API rooted at baseURL. The timeout
// bounds every request end to end.
func New(baseURL string, timeout time.Duration, log *logrus.Logger) (*Client, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	return &Client{
		baseURL: parsed,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		log: log,
	}, nil
}

// do issues one request and decodes a 2xx response body into dest when
// dest is non-nil. Known error statuses map onto the package sentinels.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, dest any) error {
	rel := &url.URL{Path: path}
	if query != nil {
		rel.RawQuery = query.Encode()
	}
	endpoint := c.baseURL.ResolveReference(rel)

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if dest == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusConflict:
		return ErrConflict
	default:
		c.log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"method": method,
			"path":   path,
		}).Warn("upstream returned unexpected status")
		return fmt.Errorf("upstream returned %d", resp.StatusCode)
	}
}

// ----- wire shapes -----

// movieRef is the embedded movie object carried by showtime and booking
// payloads.
type movieRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title,omitempty"`
	Genre string `json:"genre,omitempty"`
}

type showtimePayload struct {
	ID             int64    `json:"id"`
	Movie          movieRef `json:"movie"`
	Date           string   `json:"date"`
	Time           string   `json:"time"`
	TotalSeats     int      `json:"totalSeats"`
	AvailableSeats int      `json:"availableSeats"`
	Price          float64  `json:"price"`
}

func (p showtimePayload) showtime() model.Showtime {
	return model.Showtime{
		ID:             p.ID,
		MovieID:        p.Movie.ID,
		Date:           p.Date,
		Time:           p.Time,
		TotalSeats:     p.TotalSeats,
		AvailableSeats: p.AvailableSeats,
		Price:          p.Price,
	}
}

type bookingPayload struct {
	ID          int64    `json:"id"`
	HolderEmail string   `json:"userEmail"`
	Movie       movieRef `json:"movie"`
	ShowtimeID  int64    `json:"showtimeId,omitempty"`
	Seats       int      `json:"seats"`
	TotalPrice  float64  `json:"totalPrice"`
	BookingTime string   `json:"bookingTime"`
}

func (p bookingPayload) reservation() model.Reservation {
	created, err := time.Parse(time.RFC3339, p.BookingTime)
	if err != nil {
		created = time.Time{}
	}
	return model.Reservation{
		ID:          p.ID,
		HolderEmail: p.HolderEmail,
		MovieID:     p.Movie.ID,
		ShowtimeID:  p.ShowtimeID,
		MovieTitle:  p.Movie.Title,
		Genre:       p.Movie.Genre,
		Seats:       p.Seats,
		TotalPrice:  p.TotalPrice,
		CreatedAt:   created,
	}
}

// BookingRequest is the create-booking payload the upstream expects.
type BookingRequest struct {
	MovieID     int64   `json:"movieId"`
	HolderEmail string  `json:"userEmail"`
	Seats       int     `json:"seats"`
	TotalPrice  float64 `json:"totalPrice"`
}

// ----- movies -----

// Movies fetches the full movie collection.
func (c *Client) Movies(ctx context.Context) ([]model.Movie, error) {
	var out []model.Movie
	if err := c.do(ctx, http.MethodGet, "/api/movies", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateMovie submits a new movie and returns the server-assigned record.
func (c *Client) CreateMovie(ctx context.Context, m model.Movie) (*model.Movie, error) {
	m.ID = 0 // server-assigned
	var out model.Movie
	if err := c.do(ctx, http.MethodPost, "/api/movies", nil, m, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMovie sends a partial update for the movie.
func (c *Client) UpdateMovie(ctx context.Context, id int64, patch model.MoviePatch) (*model.Movie, error) {
	var out model.Movie
	path := fmt.Sprintf("/api/movies/%d", id)
	if err := c.do(ctx, http.MethodPut, path, nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMovie removes the movie; the upstream cascades its showtimes.
func (c *Client) DeleteMovie(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/movies/%d", id), nil, nil, nil)
}

// ----- showtimes -----

// ShowtimesByMovie fetches the showtimes scheduled for one movie.
func (c *Client) ShowtimesByMovie(ctx context.Context, movieID int64) ([]model.Showtime, error) {
	var payloads []showtimePayload
	path := fmt.Sprintf("/api/showtimes/movie/%d", movieID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &payloads); err != nil {
		return nil, err
	}
	out := make([]model.Showtime, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, p.showtime())
	}
	return out, nil
}

// CreateShowtime schedules a new showtime.
func (c *Client) CreateShowtime(ctx context.Context, st model.Showtime) (*model.Showtime, error) {
	body := showtimePayload{
		Movie:          movieRef{ID: st.MovieID},
		Date:           st.Date,
		Time:           st.Time,
		TotalSeats:     st.TotalSeats,
		AvailableSeats: st.AvailableSeats,
		Price:          st.Price,
	}
	var out showtimePayload
	if err := c.do(ctx, http.MethodPost, "/api/showtimes", nil, body, &out); err != nil {
		return nil, err
	}
	created := out.showtime()
	return &created, nil
}

// UpdateShowtime sends a partial update for the showtime.
func (c *Client) UpdateShowtime(ctx context.Context, id int64, patch model.ShowtimePatch) (*model.Showtime, error) {
	var out showtimePayload
	path := fmt.Sprintf("/api/showtimes/%d", id)
	if err := c.do(ctx, http.MethodPut, path, nil, patch, &out); err != nil {
		return nil, err
	}
	updated := out.showtime()
	return &updated, nil
}

// DeleteShowtime removes the showtime.
func (c *Client) DeleteShowtime(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/showtimes/%d", id), nil, nil, nil)
}

// ----- bookings -----

// Bookings fetches the full reservation collection.
func (c *Client) Bookings(ctx context.Context) ([]model.Reservation, error) {
	var payloads []bookingPayload
	if err := c.do(ctx, http.MethodGet, "/api/bookings", nil, nil, &payloads); err != nil {
		return nil, err
	}
	out := make([]model.Reservation, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, p.reservation())
	}
	return out, nil
}

// BookingsByUser fetches the reservations held by one email.
func (c *Client) BookingsByUser(ctx context.Context, email string) ([]model.Reservation, error) {
	q := url.Values{}
	q.Set("userEmail", email)
	var payloads []bookingPayload
	if err := c.do(ctx, http.MethodGet, "/api/bookings", q, nil, &payloads); err != nil {
		return nil, err
	}
	out := make([]model.Reservation, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, p.reservation())
	}
	return out, nil
}

// CreateBooking submits a booking. A 2xx response whose body is empty,
// malformed or missing an identifier yields (nil, nil): the request was
// accepted but the created record could not be confirmed, and the caller
// falls back to re-fetching and matching.
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (*model.Reservation, error) {
	rel := &url.URL{Path: "/api/bookings"}
	endpoint := c.baseURL.ResolveReference(rel)

	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("upstream returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var payload bookingPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.log.WithError(err).Warn("create booking returned malformed body")
		return nil, nil
	}
	if payload.ID == 0 {
		return nil, nil
	}
	created := payload.reservation()
	return &created, nil
}

// DeleteBooking removes a reservation.
func (c *Client) DeleteBooking(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/bookings/%d", id), nil, nil, nil)
}

// ----- auth -----

type credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for the upstream's user record.
func (c *Client) Login(ctx context.Context, email, password string) (*model.User, error) {
	var out model.User
	body := credentials{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegisterUser creates an account upstream and returns its user record.
func (c *Client) RegisterUser(ctx context.Context, name, email, password string) (*model.User, error) {
	var out model.User
	body := credentials{Name: name, Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
