package model

import "time"

// Reservation records a confirmed booking. MovieTitle and Genre are copied
// from the movie at creation time so the record stays meaningful if the
// movie is later edited or deleted. Reservations are created once and are
// read-only afterwards except for administrative deletion.
//
// Fields:
//  ID          – unique identifier.
//  HolderEmail – identity of the booking user.
//  MovieID     – referenced movie.
//  ShowtimeID  – referenced showtime; zero when the source did not track it.
//  MovieTitle  – title snapshot taken at creation.
//  Genre       – genre snapshot taken at creation.
//  Seats       – number of seats booked, always >= 1.
//  TotalPrice  – Seats x price per seat at creation; never re-validated.
//  CreatedAt   – booking timestamp (UTC).
type Reservation struct {
	ID          int64     `json:"id"`
	HolderEmail string    `json:"userEmail"`
	MovieID     int64     `json:"movieId"`
	ShowtimeID  int64     `json:"showtimeId,omitempty"`
	MovieTitle  string    `json:"movieTitle,omitempty"`
	Genre       string    `json:"genre,omitempty"`
	Seats       int       `json:"seats"`
	TotalPrice  float64   `json:"totalPrice"`
	CreatedAt   time.Time `json:"bookingTime"`
}
