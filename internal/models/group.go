package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// GroupStatus is the lifecycle state of a chit fund group.
type GroupStatus string

const (
	GroupStatusPending   GroupStatus = "pending"
	GroupStatusActive    GroupStatus = "active"
	GroupStatusCompleted GroupStatus = "completed"
	GroupStatusCancelled GroupStatus = "cancelled"
)

// ParseGroupStatus converts a stored or requested value into a GroupStatus.
func ParseGroupStatus(s string) (GroupStatus, error) {
	switch st := GroupStatus(s); st {
	case GroupStatusPending, GroupStatusActive, GroupStatusCompleted, GroupStatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown group status %q", s)
}

// Group represents a chit fund.
// Every member contributes MonthlyContribution each month, and each month's pool
// (MonthlyContribution × TotalMembers) is auctioned to the lowest bidder.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Office Chit 2026").
	Name string

	Description string

	// MonthlyContribution is what each member pays per round. Always positive.
	MonthlyContribution decimal.Decimal

	// TotalMembers is the number of seats in the fund (at least 2).
	TotalMembers int

	// DurationMonths is the number of rounds the fund runs for.
	DurationMonths int

	Status GroupStatus

	// CreatedBy is the user ID of the creator, who starts out as the admin.
	CreatedBy string

	CreatedAt time.Time
}

// Pool is the amount collected in one round.
func (g *Group) Pool() decimal.Decimal {
	return g.MonthlyContribution.Mul(decimal.NewFromInt(int64(g.TotalMembers)))
}

// GroupMembership pairs a group with the caller's role in it.
type GroupMembership struct {
	Group  Group
	Role   MemberRole
	Status MemberStatus
}
