// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationCreatedEvent is published when a reservation is confirmed.
// It carries enough information for downstream consumers to log or notify
// without querying the catalog.
type ReservationCreatedEvent struct {
	EventID       string  `json:"event_id"`
	ReservationID int64   `json:"reservation_id"`
	HolderEmail   string  `json:"holder_email"`
	MovieTitle    string  `json:"movie_title"`
	Seats         int     `json:"seats"`
	TotalPrice    float64 `json:"total_price"`
	CreatedAt     string  `json:"created_at"`
}
