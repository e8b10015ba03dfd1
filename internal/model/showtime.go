package model

// Showtime is a scheduled screening of a movie. AvailableSeats counts down
// as reservations are accepted and must stay within [0, TotalSeats] after
// every accepted booking; any state outside that range is a bug.
//
// Fields:
//  ID             – unique identifier.
//  MovieID        – owning movie.
//  Date           – screening date, "YYYY-MM-DD".
//  Time           – screening time, "HH:MM:SS".
//  TotalSeats     – seat capacity of the screening.
//  AvailableSeats – seats still open for booking.
//  Price          – price per seat.
type Showtime struct {
	ID             int64   `json:"id"`
	MovieID        int64   `json:"movieId"`
	Date           string  `json:"date"`
	Time           string  `json:"time"`
	TotalSeats     int     `json:"totalSeats"`
	AvailableSeats int     `json:"availableSeats"`
	Price          float64 `json:"price"`
}

// ShowtimePatch carries a partial showtime update. Seat counters are
// patched together or not at all so the capacity invariant stays checkable
// by the store.
type ShowtimePatch struct {
	Date           *string  `json:"date,omitempty"`
	Time           *string  `json:"time,omitempty"`
	TotalSeats     *int     `json:"totalSeats,omitempty"`
	AvailableSeats *int     `json:"availableSeats,omitempty"`
	Price          *float64 `json:"price,omitempty"`
}

// Apply merges the patch into s, field by field.
func (p ShowtimePatch) Apply(s *Showtime) {
	if p.Date != nil {
		s.Date = *p.Date
	}
	if p.Time != nil {
		s.Time = *p.Time
	}
	if p.TotalSeats != nil {
		s.TotalSeats = *p.TotalSeats
	}
	if p.AvailableSeats != nil {
		s.AvailableSeats = *p.AvailableSeats
	}
	if p.Price != nil {
		s.Price = *p.Price
	}
}
