// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mmynk/chitfund/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a uniqueness rule
	// (duplicate email, round number, membership, contribution or payout).
	ErrConflict = errors.New("conflict")

	// ErrAuctionNotOpen is returned when a bid or close races with an auction
	// that is no longer open.
	ErrAuctionNotOpen = errors.New("auction is not open")

	// ErrPaymentNotPending is returned when a payment was already resolved
	// by the time a status transition runs.
	ErrPaymentNotPending = errors.New("payment is not pending")
)

// WinnerFunc chooses the winning bid from all bids of an auction.
// It returns false when there is no winner.
type WinnerFunc func(bids []models.Bid) (models.Bid, bool)

// Store defines the persistence gateway used by the services.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
//
// Every read re-fetches from the backing database; implementations hold no
// cached copies.
type Store interface {
	UserStore
	GroupStore
	MemberStore
	AuctionStore
	PaymentStore
	NotificationStore

	// Close releases any resources held by the store.
	Close() error
}

// UserStore persists user accounts.
type UserStore interface {
	// CreateUser inserts a user. Returns ErrConflict if the email is taken.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// GroupStore persists chit fund groups.
type GroupStore interface {
	// CreateGroup persists a new group.
	// The group.ID and group.CreatedAt fields are populated by the store.
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroupsForUser returns the groups the user has a non-invited
	// membership in, newest first.
	ListGroupsForUser(ctx context.Context, userID string) ([]models.GroupMembership, error)

	UpdateGroup(ctx context.Context, group *models.Group) error

	// DeleteGroup removes a group together with its members, auctions, bids,
	// payments and notifications.
	DeleteGroup(ctx context.Context, groupID string) error
}

// MemberStore persists group memberships.
type MemberStore interface {
	// AddMember inserts a membership. Returns ErrConflict if the user already
	// has a row in the group.
	AddMember(ctx context.Context, member *models.Member) error
	GetMember(ctx context.Context, groupID, userID string) (*models.Member, error)
	ListMembers(ctx context.Context, groupID string) ([]models.Member, error)

	// UpdateMember saves the role, status and joined time of a membership.
	UpdateMember(ctx context.Context, member *models.Member) error
	DeleteMember(ctx context.Context, groupID, userID string) error
	CountAdmins(ctx context.Context, groupID string) (int, error)
	CountMembers(ctx context.Context, groupID string) (int, error)
}

// AuctionStore persists auctions and their bids.
type AuctionStore interface {
	// CreateAuction inserts an auction. Returns ErrConflict if the round
	// number is already used in the group.
	CreateAuction(ctx context.Context, auction *models.Auction) error
	GetAuction(ctx context.Context, auctionID string) (*models.Auction, error)

	// ListAuctionsByGroup and ListAuctionsForUser order by auction date, newest first.
	ListAuctionsByGroup(ctx context.Context, groupID string) ([]models.Auction, error)
	ListAuctionsForUser(ctx context.Context, userID string) ([]models.Auction, error)

	// ListDueAuctions returns open auctions whose deadline is at or before now.
	ListDueAuctions(ctx context.Context, now time.Time) ([]models.Auction, error)

	// CloseAuction atomically loads the bids of an open auction, applies pick,
	// and marks the auction closed with the chosen winner. Returns
	// ErrAuctionNotOpen if the auction is no longer open by the time the
	// update runs, so concurrent closes settle exactly once.
	CloseAuction(ctx context.Context, auctionID string, pick WinnerFunc, closedAt time.Time) (*models.Auction, error)

	// CreateBid appends a bid if the auction is still open.
	// Returns ErrAuctionNotOpen otherwise.
	CreateBid(ctx context.Context, bid *models.Bid) error

	// ListBids returns the bids of an auction, lowest amount first.
	ListBids(ctx context.Context, auctionID string) ([]models.Bid, error)
}

// PaymentStore persists contributions and payouts.
type PaymentStore interface {
	// CreatePayment inserts a payment. Returns ErrConflict for a second
	// completed contribution by the same user for the same round, or a second
	// payout for the same auction.
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPayment(ctx context.Context, paymentID string) (*models.Payment, error)
	GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error)

	// ResolvePayment moves a pending payment to payment.Status, saving the
	// gateway payment id and paid time. Returns ErrPaymentNotPending if the
	// payment was resolved concurrently, and ErrConflict if completing it
	// would duplicate a completed contribution for the round.
	ResolvePayment(ctx context.Context, payment *models.Payment) error
	ListPaymentsByGroup(ctx context.Context, groupID string) ([]models.Payment, error)
}

// NotificationStore persists group invitations.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, notificationID string) (*models.Notification, error)

	// ListNotificationsForUser returns the invitations addressed to a user, newest first.
	ListNotificationsForUser(ctx context.Context, userID string) ([]models.Notification, error)

	// CountPendingForUser counts unread pending invitations.
	CountPendingForUser(ctx context.Context, userID string) (int, error)

	// UpdateNotification saves status and read time.
	UpdateNotification(ctx context.Context, n *models.Notification) error
	DeleteNotification(ctx context.Context, notificationID string) error
}
