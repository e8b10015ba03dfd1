package catalog

import (
	"math"
	"strings"

	"github.com/davitm/cinehub/internal/model"
)

// PriceTolerance bounds the float comparison when matching a reservation
// by total price.
const PriceTolerance = 0.001

// MatchReservation locates the reservation created by req inside a freshly
// fetched authoritative collection. It is the disambiguation step of the
// reconciliation protocol: when the create response carried no usable body,
// the booking is identified by (movie, holder, seat count, total price)
// with a small numeric tolerance on the price. Returns nil when no record
// matches; the caller treats that as "sent but unconfirmed".
func MatchReservation(fetched []model.Reservation, req BookingRequest) *model.Reservation {
	for i := range fetched {
		r := &fetched[i]
		if r.MovieID != req.MovieID {
			continue
		}
		if !strings.EqualFold(r.HolderEmail, req.HolderEmail) {
			continue
		}
		if r.Seats != req.Seats {
			continue
		}
		if math.Abs(r.TotalPrice-req.TotalPrice) >= PriceTolerance {
			continue
		}
		return r
	}
	return nil
}
