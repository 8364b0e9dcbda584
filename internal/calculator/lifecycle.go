package calculator

import (
	"time"

	"github.com/mmynk/chitfund/internal/models"
)

// groupTransitions lists the statuses each group status may move to.
// completed and cancelled are terminal.
var groupTransitions = map[models.GroupStatus][]models.GroupStatus{
	models.GroupStatusPending: {models.GroupStatusActive, models.GroupStatusCancelled},
	models.GroupStatusActive:  {models.GroupStatusCompleted, models.GroupStatusCancelled},
}

// CanTransitionGroup reports whether a group may move from one status to another.
// Staying in the same status is always allowed.
func CanTransitionGroup(from, to models.GroupStatus) bool {
	if from == to {
		return true
	}
	for _, next := range groupTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanClose reports whether an auction may be closed. Closing is one-way.
func CanClose(a *models.Auction) bool {
	return a.Status == models.AuctionStatusOpen
}

// SettlementDue reports whether an open auction's deadline has passed.
func SettlementDue(a *models.Auction, now time.Time) bool {
	return CanClose(a) && a.DeadlinePassed(now)
}

// ValidWindow reports whether the deadline falls strictly after the auction date.
func ValidWindow(auctionDate, deadline time.Time) bool {
	return deadline.After(auctionDate)
}
