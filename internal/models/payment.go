package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentType says which way money moved.
type PaymentType string

const (
	PaymentTypeContribution PaymentType = "contribution"
	PaymentTypePayout       PaymentType = "payout"
	PaymentTypeRefund       PaymentType = "refund"
	PaymentTypeReceived     PaymentType = "received"
)

// ParsePaymentType converts a stored or requested value into a PaymentType.
func ParsePaymentType(s string) (PaymentType, error) {
	switch t := PaymentType(s); t {
	case PaymentTypeContribution, PaymentTypePayout, PaymentTypeRefund, PaymentTypeReceived:
		return t, nil
	}
	return "", fmt.Errorf("unknown payment type %q", s)
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// ParsePaymentStatus converts a stored or requested value into a PaymentStatus.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch st := PaymentStatus(s); st {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown payment status %q", s)
}

// Payment records money moving between a member and the group.
type Payment struct {
	ID      string
	UserID  string
	GroupID string

	// AuctionID ties the payment to a round. Contributions with a round are
	// unique per user, and each auction has at most one payout.
	AuctionID *string

	Amount decimal.Decimal
	Type   PaymentType
	Status PaymentStatus

	// GatewayOrderID and GatewayPaymentID are set for payments made through
	// the payment gateway.
	GatewayOrderID   *string
	GatewayPaymentID *string

	PaidAt time.Time

	// Joined on reads.
	PayerName string
}
