package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/chitfund/internal/models"
)

// MemberBalance summarizes the money one member has moved through a group.
type MemberBalance struct {
	UserID      string
	DisplayName string
	Contributed decimal.Decimal // completed contributions paid in
	Received    decimal.Decimal // completed payouts, refunds and receipts paid out
	Net         decimal.Decimal // Received - Contributed; negative means the member is a net payer so far
}

// GroupBalances aggregates a group's payments per member.
//
// Algorithm:
// - Only completed payments count; pending and failed ones moved no money
// - Contributions add to Contributed, every other type adds to Received
// - Net = Received - Contributed
//
// The result is sorted by user ID so repeated calls are stable.
func GroupBalances(payments []models.Payment) []MemberBalance {
	balances := make(map[string]*MemberBalance)

	for _, p := range payments {
		if p.Status != models.PaymentStatusCompleted {
			continue
		}

		bal, exists := balances[p.UserID]
		if !exists {
			bal = &MemberBalance{UserID: p.UserID, DisplayName: p.PayerName}
			balances[p.UserID] = bal
		}

		if p.Type == models.PaymentTypeContribution {
			bal.Contributed = bal.Contributed.Add(p.Amount)
		} else {
			bal.Received = bal.Received.Add(p.Amount)
		}
	}

	out := make([]MemberBalance, 0, len(balances))
	for _, bal := range balances {
		bal.Net = bal.Received.Sub(bal.Contributed)
		out = append(out, *bal)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
