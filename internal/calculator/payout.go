package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Pool computes the amount collected in one round: contribution × members.
func Pool(monthlyContribution decimal.Decimal, totalMembers int) decimal.Decimal {
	return monthlyContribution.Mul(decimal.NewFromInt(int64(totalMembers)))
}

// Payout computes what the auction winner receives.
// Based on: payout = (monthly_contribution × total_members) − winner_bid
//
// The result is computed once when the payout is recorded; later changes to
// the group's contribution do not alter payouts already made.
func Payout(monthlyContribution decimal.Decimal, totalMembers int, winnerBid decimal.Decimal) (decimal.Decimal, error) {
	if !monthlyContribution.IsPositive() {
		return decimal.Zero, fmt.Errorf("monthly contribution must be positive")
	}
	if totalMembers < 2 {
		return decimal.Zero, fmt.Errorf("group must have at least 2 members")
	}
	if winnerBid.IsNegative() {
		return decimal.Zero, fmt.Errorf("winner bid cannot be negative")
	}

	payout := Pool(monthlyContribution, totalMembers).Sub(winnerBid)
	if payout.IsNegative() {
		return decimal.Zero, fmt.Errorf("winner bid %s exceeds the pool", winnerBid)
	}
	return payout, nil
}
