package calculator

import (
	"github.com/mmynk/chitfund/internal/models"
)

// SelectWinner picks the winning bid of an auction.
//
// The lowest BidAmount wins. Equal amounts go to the bid placed first, and
// bids placed at the same instant are ordered by ID so the result never
// depends on the order the bids were loaded in.
// The second return value is false when there are no bids.
func SelectWinner(bids []models.Bid) (models.Bid, bool) {
	if len(bids) == 0 {
		return models.Bid{}, false
	}

	best := bids[0]
	for _, bid := range bids[1:] {
		if outbids(bid, best) {
			best = bid
		}
	}
	return best, true
}

// outbids reports whether a beats b.
func outbids(a, b models.Bid) bool {
	if c := a.BidAmount.Cmp(b.BidAmount); c != 0 {
		return c < 0
	}
	if !a.PlacedAt.Equal(b.PlacedAt) {
		return a.PlacedAt.Before(b.PlacedAt)
	}
	return a.ID < b.ID
}
