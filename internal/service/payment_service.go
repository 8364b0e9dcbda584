package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/calculator"
	"github.com/mmynk/chitfund/internal/gateway"
	"github.com/mmynk/chitfund/internal/metrics"
	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage"
	"github.com/mmynk/chitfund/pkg/api"
	"github.com/mmynk/chitfund/pkg/api/apiconnect"
)

var _ apiconnect.PaymentServiceHandler = (*PaymentService)(nil)

const (
	msgGatewayDisabled   = "Payment gateway is not configured"
	msgDuplicateContrib  = "Contribution already recorded for this round"
	msgVerificationFail  = "Payment verification failed"
	msgPaymentMissing    = "Payment not found"
	msgAuctionOtherGroup = "Auction does not belong to this group"
	msgAlreadyProcessed  = "Payment has already been processed"
)

// Gateway is the part of the payment gateway client the service needs.
type Gateway interface {
	CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error)
	VerifySignature(orderID, paymentID, signature string) error
	KeyID() string
}

// PaymentService records contributions and payouts, and drives gateway checkout.
type PaymentService struct {
	store    storage.Store
	gateway  Gateway
	currency string
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewPaymentService creates a PaymentService. gw may be nil, in which case
// CreateOrder and VerifyPayment report that the gateway is not configured.
func NewPaymentService(store storage.Store, gw Gateway, currency string, m *metrics.Metrics) *PaymentService {
	return &PaymentService{
		store:    store,
		gateway:  gw,
		currency: currency,
		metrics:  m,
		now:      time.Now,
	}
}

// RecordPayment stores a payment made outside the gateway.
func (s *PaymentService) RecordPayment(ctx context.Context, req *connect.Request[api.RecordPaymentRequest]) (*connect.Response[api.Result[api.Payment]], error) {
	slog.Info("RecordPayment request received",
		"group_id", req.Msg.GroupID,
		"user_id", req.Msg.UserID,
		"type", req.Msg.Type,
		"amount", req.Msg.Amount,
	)

	payment, err := s.recordPayment(ctx, req.Msg)
	if err != nil {
		return fail[api.Payment](err, "Failed to record payment")
	}

	slog.Info("Payment recorded", "payment_id", payment.ID, "group_id", payment.GroupID)
	return succeed(toAPIPayment(payment), "Payment recorded")
}

func (s *PaymentService) recordPayment(ctx context.Context, msg *api.RecordPaymentRequest) (*models.Payment, error) {
	callerID, err := requireCaller(ctx, msgUnauthorized)
	if err != nil {
		return nil, err
	}
	if _, err := loadGroup(ctx, s.store, msg.GroupID); err != nil {
		return nil, err
	}

	userID := msg.UserID
	if userID == "" {
		userID = callerID
	}
	if userID != callerID {
		if _, err := requireAdmin(ctx, s.store, msg.GroupID, callerID, "Permission denied: only admins can record payments for other members"); err != nil {
			return nil, err
		}
	}
	target, err := s.store.GetMember(ctx, msg.GroupID, userID)
	if err != nil {
		return nil, notFound(err, "User is not a member of this group")
	}
	if target.Status == models.MemberStatusInvited {
		return nil, apperr.Precondition("User is not a member of this group")
	}

	paymentType, err := models.ParsePaymentType(msg.Type)
	if err != nil {
		return nil, apperr.Invalid("Invalid payment type")
	}
	if paymentType == models.PaymentTypePayout {
		return nil, apperr.Invalid("Payouts are recorded by processing the auction payout")
	}
	status := models.PaymentStatusCompleted
	if msg.Status != "" {
		if status, err = models.ParsePaymentStatus(msg.Status); err != nil {
			return nil, apperr.Invalid("Invalid payment status")
		}
	}
	if !msg.Amount.IsPositive() {
		return nil, apperr.Invalid("Amount must be positive")
	}
	if err := s.checkAuction(ctx, msg.GroupID, msg.AuctionID); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		UserID:    userID,
		GroupID:   msg.GroupID,
		AuctionID: msg.AuctionID,
		Amount:    msg.Amount,
		Type:      paymentType,
		Status:    status,
		PaidAt:    s.now().UTC(),
		PayerName: target.DisplayName,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, apperr.AlreadyExists(msgDuplicateContrib)
		}
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}
	return payment, nil
}

// checkNotContributed rejects a checkout for a round the user has already
// paid. Pending orders do not count, so an abandoned checkout never blocks
// the round.
func (s *PaymentService) checkNotContributed(ctx context.Context, groupID, userID string, auctionID *string) error {
	if auctionID == nil {
		return nil
	}
	payments, err := s.store.ListPaymentsByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to list payments: %w", err)
	}
	for _, p := range payments {
		if p.Type == models.PaymentTypeContribution &&
			p.Status == models.PaymentStatusCompleted &&
			p.UserID == userID &&
			p.AuctionID != nil && *p.AuctionID == *auctionID {
			return apperr.AlreadyExists(msgDuplicateContrib)
		}
	}
	return nil
}

// checkAuction verifies an optional round reference belongs to the group.
func (s *PaymentService) checkAuction(ctx context.Context, groupID string, auctionID *string) error {
	if auctionID == nil {
		return nil
	}
	auction, err := loadAuction(ctx, s.store, *auctionID)
	if err != nil {
		return err
	}
	if auction.GroupID != groupID {
		return apperr.Invalid(msgAuctionOtherGroup)
	}
	return nil
}

// ProcessAuctionPayout pays the winner of a closed auction. Admins only.
// The amount is fixed when the payout is recorded.
func (s *PaymentService) ProcessAuctionPayout(ctx context.Context, req *connect.Request[api.ProcessAuctionPayoutRequest]) (*connect.Response[api.Result[api.Payment]], error) {
	slog.Info("ProcessAuctionPayout request received", "auction_id", req.Msg.AuctionID)

	payout, err := s.processAuctionPayout(ctx, req.Msg.AuctionID)
	if err != nil {
		return fail[api.Payment](err, "Failed to process payout")
	}

	s.metrics.PayoutRecorded(payout.Amount)
	slog.Info("Payout processed",
		"payment_id", payout.ID,
		"auction_id", req.Msg.AuctionID,
		"winner_id", payout.UserID,
		"amount", payout.Amount,
	)
	return succeed(toAPIPayment(payout), "Payout processed")
}

func (s *PaymentService) processAuctionPayout(ctx context.Context, auctionID string) (*models.Payment, error) {
	callerID, err := requireCaller(ctx, msgUnauthorized)
	if err != nil {
		return nil, err
	}
	auction, err := loadAuction(ctx, s.store, auctionID)
	if err != nil {
		return nil, err
	}
	if _, err := requireAdmin(ctx, s.store, auction.GroupID, callerID, "Permission denied: only admins can process payouts"); err != nil {
		return nil, err
	}
	if auction.Status != models.AuctionStatusClosed {
		return nil, apperr.Precondition("Auction is not closed")
	}
	if auction.WinnerID == nil || auction.WinnerBid == nil {
		return nil, apperr.Precondition("Auction has no winner")
	}

	group, err := loadGroup(ctx, s.store, auction.GroupID)
	if err != nil {
		return nil, err
	}
	amount, err := calculator.Payout(group.MonthlyContribution, group.TotalMembers, *auction.WinnerBid)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeFailedPrecondition, "Winning bid exceeds the current pool", err)
	}

	payout := &models.Payment{
		UserID:    *auction.WinnerID,
		GroupID:   auction.GroupID,
		AuctionID: &auction.ID,
		Amount:    amount,
		Type:      models.PaymentTypePayout,
		Status:    models.PaymentStatusCompleted,
		PaidAt:    s.now().UTC(),
		PayerName: auction.WinnerName,
	}
	if err := s.store.CreatePayment(ctx, payout); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, apperr.AlreadyExists("Payout already processed for this auction")
		}
		return nil, fmt.Errorf("failed to insert payout: %w", err)
	}
	return payout, nil
}

// ListPayments returns a group's payments, newest first, with per-member totals.
func (s *PaymentService) ListPayments(ctx context.Context, req *connect.Request[api.ListPaymentsRequest]) (*connect.Response[api.Result[api.PaymentList]], error) {
	callerID, err := requireCaller(ctx, msgUnauthorized)
	if err != nil {
		return fail[api.PaymentList](err, "")
	}
	if _, err := loadGroup(ctx, s.store, req.Msg.GroupID); err != nil {
		return fail[api.PaymentList](err, "Failed to load payments")
	}
	if _, err := requireMember(ctx, s.store, req.Msg.GroupID, callerID); err != nil {
		return fail[api.PaymentList](err, "Failed to load payments")
	}

	payments, err := s.store.ListPaymentsByGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return fail[api.PaymentList](err, "Failed to load payments")
	}
	out := make([]api.Payment, len(payments))
	for i := range payments {
		out[i] = toAPIPayment(&payments[i])
	}
	return succeed(api.PaymentList{
		Payments: out,
		Balances: toAPIBalances(calculator.GroupBalances(payments)),
	}, "")
}

// CreateOrder opens a gateway order for the caller's contribution and records
// it as a pending payment.
func (s *PaymentService) CreateOrder(ctx context.Context, req *connect.Request[api.CreateOrderRequest]) (*connect.Response[api.Result[api.Order]], error) {
	slog.Info("CreateOrder request received",
		"group_id", req.Msg.GroupID,
		"amount", req.Msg.Amount,
	)

	order, err := s.createOrder(ctx, req.Msg)
	if err != nil {
		return fail[api.Order](err, "Failed to create order")
	}

	slog.Info("Order created", "order_id", order.OrderID, "payment_id", order.PaymentID)
	return succeed(order, "Order created")
}

func (s *PaymentService) createOrder(ctx context.Context, msg *api.CreateOrderRequest) (api.Order, error) {
	if s.gateway == nil {
		return api.Order{}, apperr.Precondition(msgGatewayDisabled)
	}
	callerID, err := requireCaller(ctx, msgUnauthorized)
	if err != nil {
		return api.Order{}, err
	}
	if _, err := loadGroup(ctx, s.store, msg.GroupID); err != nil {
		return api.Order{}, err
	}
	member, err := requireMember(ctx, s.store, msg.GroupID, callerID)
	if err != nil {
		return api.Order{}, err
	}
	if err := s.checkAuction(ctx, msg.GroupID, msg.AuctionID); err != nil {
		return api.Order{}, err
	}
	if err := s.checkNotContributed(ctx, msg.GroupID, callerID, msg.AuctionID); err != nil {
		return api.Order{}, err
	}

	minor, err := gateway.ToMinorUnits(msg.Amount)
	if err != nil {
		return api.Order{}, apperr.Invalid("Amount must be positive with at most two decimal places")
	}
	currency := strings.ToUpper(strings.TrimSpace(msg.Currency))
	if currency == "" {
		currency = s.currency
	}

	notes := map[string]string{
		"group_id": msg.GroupID,
		"user_id":  callerID,
	}
	if msg.AuctionID != nil {
		notes["auction_id"] = *msg.AuctionID
	}
	order, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		Amount:   msg.Amount,
		Currency: currency,
		Receipt:  "rcpt_" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		Notes:    notes,
	})
	if err != nil {
		return api.Order{}, fmt.Errorf("failed to create gateway order: %w", err)
	}

	payment := &models.Payment{
		UserID:         callerID,
		GroupID:        msg.GroupID,
		AuctionID:      msg.AuctionID,
		Amount:         msg.Amount,
		Type:           models.PaymentTypeContribution,
		Status:         models.PaymentStatusPending,
		GatewayOrderID: &order.ID,
		PaidAt:         s.now().UTC(),
		PayerName:      member.DisplayName,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		// The unpaid gateway order is left to expire.
		return api.Order{}, fmt.Errorf("failed to insert pending payment: %w", err)
	}

	return api.Order{
		OrderID:     order.ID,
		PaymentID:   payment.ID,
		Amount:      msg.Amount,
		AmountMinor: minor,
		Currency:    currency,
		Receipt:     order.Receipt,
		KeyID:       s.gateway.KeyID(),
	}, nil
}

// VerifyPayment checks the checkout signature and settles the pending payment.
func (s *PaymentService) VerifyPayment(ctx context.Context, req *connect.Request[api.VerifyPaymentRequest]) (*connect.Response[api.Result[api.Payment]], error) {
	slog.Info("VerifyPayment request received",
		"order_id", req.Msg.OrderID,
		"gateway_payment_id", req.Msg.PaymentID,
	)

	payment, err := s.verifyPayment(ctx, req.Msg)
	if err != nil {
		return fail[api.Payment](err, msgVerificationFail)
	}

	slog.Info("Payment verified", "payment_id", payment.ID, "order_id", req.Msg.OrderID)
	return succeed(toAPIPayment(payment), "Payment verified")
}

func (s *PaymentService) verifyPayment(ctx context.Context, msg *api.VerifyPaymentRequest) (*models.Payment, error) {
	if s.gateway == nil {
		return nil, apperr.Precondition(msgGatewayDisabled)
	}
	callerID, err := requireCaller(ctx, msgUnauthorized)
	if err != nil {
		return nil, err
	}
	if msg.OrderID == "" || msg.PaymentID == "" || msg.Signature == "" {
		return nil, apperr.Invalid("order_id, payment_id and signature are required")
	}

	payment, err := s.store.GetPaymentByOrderID(ctx, msg.OrderID)
	if err != nil {
		return nil, notFound(err, msgPaymentMissing)
	}
	if payment.UserID != callerID {
		return nil, apperr.NotFound(msgPaymentMissing)
	}
	if payment.Status != models.PaymentStatusPending {
		return nil, apperr.Precondition(msgAlreadyProcessed)
	}

	if err := s.gateway.VerifySignature(msg.OrderID, msg.PaymentID, msg.Signature); err != nil {
		slog.Warn("Payment signature rejected", "order_id", msg.OrderID, "error", err)
		payment.Status = models.PaymentStatusFailed
		if rerr := s.resolve(ctx, payment); rerr != nil {
			return nil, rerr
		}
		return nil, apperr.Wrap(apperr.CodeInvalidArgument, msgVerificationFail, err)
	}

	payment.Status = models.PaymentStatusCompleted
	payment.GatewayPaymentID = &msg.PaymentID
	payment.PaidAt = s.now().UTC()
	err = s.resolve(ctx, payment)
	if errors.Is(err, storage.ErrConflict) {
		// The round was paid another way while this checkout was open.
		slog.Warn("Gateway payment duplicates a completed contribution",
			"payment_id", payment.ID,
			"gateway_payment_id", msg.PaymentID,
		)
		payment.Status = models.PaymentStatusFailed
		if rerr := s.resolve(ctx, payment); rerr != nil {
			return nil, rerr
		}
		return nil, apperr.Wrap(apperr.CodeAlreadyExists, msgDuplicateContrib, err)
	}
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// resolve moves a pending payment to its final status. A concurrent
// verification that got there first is reported as already processed.
func (s *PaymentService) resolve(ctx context.Context, payment *models.Payment) error {
	err := s.store.ResolvePayment(ctx, payment)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrPaymentNotPending):
		return apperr.Wrap(apperr.CodeFailedPrecondition, msgAlreadyProcessed, err)
	case errors.Is(err, storage.ErrConflict):
		return err
	default:
		return fmt.Errorf("failed to mark payment %s: %w", payment.Status, err)
	}
}
