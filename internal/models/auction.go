package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus is the lifecycle state of one auction round.
type AuctionStatus string

const (
	AuctionStatusScheduled AuctionStatus = "scheduled"
	AuctionStatusOpen      AuctionStatus = "open"
	AuctionStatusClosed    AuctionStatus = "closed"
	AuctionStatusCancelled AuctionStatus = "cancelled"
)

// ParseAuctionStatus converts a stored value into an AuctionStatus.
func ParseAuctionStatus(s string) (AuctionStatus, error) {
	switch st := AuctionStatus(s); st {
	case AuctionStatusScheduled, AuctionStatusOpen, AuctionStatusClosed, AuctionStatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown auction status %q", s)
}

// Auction is one round of a group, in which members bid for that round's pool.
type Auction struct {
	ID      string
	GroupID string

	// RoundNumber is unique within a group.
	RoundNumber int

	AuctionDate time.Time

	// Deadline is strictly after AuctionDate. Bids are refused once it passes.
	Deadline time.Time

	Status AuctionStatus

	// WinnerID and WinnerBid stay nil until the auction is closed with at
	// least one bid, and never change afterwards.
	WinnerID  *string
	WinnerBid *decimal.Decimal

	ClosedAt  *time.Time
	CreatedAt time.Time

	// Joined on reads.
	GroupName   string
	WinnerName  string
	WinnerEmail string
}

// IsOpen reports whether the auction still accepts bids (ignoring the deadline).
func (a *Auction) IsOpen() bool {
	return a.Status == AuctionStatusOpen
}

// DeadlinePassed reports whether now is at or after the deadline.
func (a *Auction) DeadlinePassed(now time.Time) bool {
	return !now.Before(a.Deadline)
}

// Bid is an offer to take the round's pool at a discount.
// The lowest bid wins. Bids are never edited or withdrawn.
type Bid struct {
	ID        string
	AuctionID string
	UserID    string
	BidAmount decimal.Decimal
	PlacedAt  time.Time

	// Joined on reads.
	BidderName  string
	BidderEmail string
}
