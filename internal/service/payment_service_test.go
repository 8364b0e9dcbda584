package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/mmynk/chitfund/internal/gateway"
	"github.com/mmynk/chitfund/pkg/api"
)

const testGatewaySecret = "gateway-secret"

// fakeGateway hands out sequential order ids and verifies real signatures.
type fakeGateway struct {
	mu     sync.Mutex
	orders []gateway.OrderRequest
}

func (g *fakeGateway) CreateOrder(_ context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders = append(g.orders, req)

	minor, err := gateway.ToMinorUnits(req.Amount)
	if err != nil {
		return nil, err
	}
	return &gateway.Order{
		ID:       fmt.Sprintf("order_%d", len(g.orders)),
		Amount:   minor,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) error {
	return gateway.VerifySignature(testGatewaySecret, orderID, paymentID, signature)
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

func (g *fakeGateway) sent(i int) gateway.OrderRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.orders[i]
}

func TestProcessAuctionPayout(t *testing.T) {
	env := setupTestServer(t, nil)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	groupID := env.activeGroup(t, alice, "100", 10, bob)
	auction := env.openAuction(t, alice, groupID, 1)

	resp, err := env.payments.ProcessAuctionPayout(ctx, as(alice, &api.ProcessAuctionPayoutRequest{AuctionID: auction.ID}))
	mustFail(t, resp, err, "Auction is not closed")

	env.bid(t, bob, auction.ID, "250")
	closed, err := env.auctions.CloseAuction(ctx, as(alice, &api.CloseAuctionRequest{AuctionID: auction.ID}))
	mustOK(t, closed, err)

	resp, err = env.payments.ProcessAuctionPayout(ctx, as(bob, &api.ProcessAuctionPayoutRequest{AuctionID: auction.ID}))
	mustFail(t, resp, err, "Permission denied: only admins can process payouts")

	resp, err = env.payments.ProcessAuctionPayout(ctx, as(alice, &api.ProcessAuctionPayoutRequest{AuctionID: auction.ID}))
	payout := mustOK(t, resp, err)
	if !payout.Amount.Equal(dec("750")) {
		t.Errorf("payout: expected 750, got %s", payout.Amount)
	}
	if payout.UserID != bob.ID {
		t.Errorf("payout recipient: expected bob, got %s", payout.UserID)
	}

	// Later changes to the group leave the recorded payout alone.
	contribution := dec("500")
	update, err := env.groups.UpdateGroup(ctx, as(alice, &api.UpdateGroupRequest{GroupID: groupID, MonthlyContribution: &contribution}))
	mustOK(t, update, err)

	resp, err = env.payments.ProcessAuctionPayout(ctx, as(alice, &api.ProcessAuctionPayoutRequest{AuctionID: auction.ID}))
	mustFail(t, resp, err, "Payout already processed for this auction")

	list, err := env.payments.ListPayments(ctx, as(bob, &api.ListPaymentsRequest{GroupID: groupID}))
	ledger := mustOK(t, list, err)
	if len(ledger.Payments) != 1 || !ledger.Payments[0].Amount.Equal(dec("750")) {
		t.Errorf("expected the single 750 payout, got %+v", ledger.Payments)
	}
	if len(ledger.Balances) != 1 || ledger.Balances[0].UserID != bob.ID || !ledger.Balances[0].Net.Equal(dec("750")) {
		t.Errorf("expected bob's balance to net 750, got %+v", ledger.Balances)
	}
}

func TestProcessAuctionPayout_PoolBelowWinningBid(t *testing.T) {
	env := setupTestServer(t, nil)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	groupID := env.activeGroup(t, alice, "50", 4, bob)
	auction := env.openAuction(t, alice, groupID, 1)
	env.bid(t, bob, auction.ID, "180")
	closed, err := env.auctions.CloseAuction(ctx, as(alice, &api.CloseAuctionRequest{AuctionID: auction.ID}))
	mustOK(t, closed, err)

	contribution := dec("40")
	update, err := env.groups.UpdateGroup(ctx, as(alice, &api.UpdateGroupRequest{GroupID: groupID, MonthlyContribution: &contribution}))
	mustFail(t, update, err, "Pool cannot drop below an unpaid winning bid")

	// A pool that still covers the bid is fine.
	contribution = dec("45")
	update, err = env.groups.UpdateGroup(ctx, as(alice, &api.UpdateGroupRequest{GroupID: groupID, MonthlyContribution: &contribution}))
	mustOK(t, update, err)

	// Rows written around the service still get a clear payout error.
	group, err := env.store.GetGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	group.MonthlyContribution = dec("10")
	if err := env.store.UpdateGroup(ctx, group); err != nil {
		t.Fatalf("UpdateGroup failed: %v", err)
	}
	resp, err := env.payments.ProcessAuctionPayout(ctx, as(alice, &api.ProcessAuctionPayoutRequest{AuctionID: auction.ID}))
	mustFail(t, resp, err, "Winning bid exceeds the current pool")
}

func TestRecordPayment(t *testing.T) {
	env := setupTestServer(t, nil)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	carol := env.register(t, "carol")
	mallory := env.register(t, "mallory")

	groupID := env.activeGroup(t, alice, "100", 3, bob, carol)
	auction := env.openAuction(t, alice, groupID, 1)

	resp, err := env.payments.RecordPayment(ctx, as(bob, &api.RecordPaymentRequest{
		GroupID:   groupID,
		UserID:    bob.ID,
		AuctionID: &auction.ID,
		Amount:    dec("100"),
		Type:      "contribution",
	}))
	recorded := mustOK(t, resp, err)
	if recorded.Status != "completed" || recorded.PayerName != "bob" {
		t.Errorf("unexpected payment: %+v", recorded)
	}

	tests := []struct {
		name    string
		caller  *testUser
		req     api.RecordPaymentRequest
		wantErr string
	}{
		{
			name:    "duplicate contribution for the round",
			caller:  alice,
			req:     api.RecordPaymentRequest{GroupID: groupID, UserID: bob.ID, AuctionID: &auction.ID, Amount: dec("100"), Type: "contribution"},
			wantErr: "Contribution already recorded for this round",
		},
		{
			name:    "member paying for someone else",
			caller:  carol,
			req:     api.RecordPaymentRequest{GroupID: groupID, UserID: bob.ID, Amount: dec("100"), Type: "contribution"},
			wantErr: "Permission denied: only admins can record payments for other members",
		},
		{
			name:    "target not in group",
			caller:  alice,
			req:     api.RecordPaymentRequest{GroupID: groupID, UserID: mallory.ID, Amount: dec("100"), Type: "contribution"},
			wantErr: "User is not a member of this group",
		},
		{
			name:    "payout through record",
			caller:  alice,
			req:     api.RecordPaymentRequest{GroupID: groupID, UserID: bob.ID, Amount: dec("100"), Type: "payout"},
			wantErr: "Payouts are recorded by processing the auction payout",
		},
		{
			name:    "unknown type",
			caller:  alice,
			req:     api.RecordPaymentRequest{GroupID: groupID, UserID: bob.ID, Amount: dec("100"), Type: "gift"},
			wantErr: "Invalid payment type",
		},
		{
			name:    "zero amount",
			caller:  bob,
			req:     api.RecordPaymentRequest{GroupID: groupID, UserID: bob.ID, Amount: dec("0"), Type: "contribution"},
			wantErr: "Amount must be positive",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			resp, err := env.payments.RecordPayment(ctx, as(tt.caller, &req))
			mustFail(t, resp, err, tt.wantErr)
		})
	}

	t.Run("admin records for a member", func(t *testing.T) {
		resp, err := env.payments.RecordPayment(ctx, as(alice, &api.RecordPaymentRequest{
			GroupID:   groupID,
			UserID:    carol.ID,
			AuctionID: &auction.ID,
			Amount:    dec("100"),
			Type:      "contribution",
		}))
		mustOK(t, resp, err)
	})

	t.Run("outsiders cannot list", func(t *testing.T) {
		resp, err := env.payments.ListPayments(ctx, as(mallory, &api.ListPaymentsRequest{GroupID: groupID}))
		mustFail(t, resp, err, "Permission denied: not a member of this group")
	})
}

func TestGatewayCheckout(t *testing.T) {
	gw := &fakeGateway{}
	env := setupTestServer(t, gw)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	groupID := env.activeGroup(t, alice, "100", 2, bob)
	auction := env.openAuction(t, alice, groupID, 1)

	resp, err := env.payments.CreateOrder(ctx, as(bob, &api.CreateOrderRequest{
		GroupID:   groupID,
		AuctionID: &auction.ID,
		Amount:    dec("100.50"),
	}))
	order := mustOK(t, resp, err)

	if order.OrderID != "order_1" || order.AmountMinor != 10050 || order.Currency != "INR" || order.KeyID != "rzp_test_key" {
		t.Errorf("unexpected order: %+v", order)
	}
	sent := gw.sent(0)
	if sent.Notes["group_id"] != groupID || sent.Notes["user_id"] != bob.ID || sent.Notes["auction_id"] != auction.ID {
		t.Errorf("unexpected notes: %v", sent.Notes)
	}
	if len(sent.Receipt) != len("rcpt_")+32 {
		t.Errorf("receipt: unexpected format %q", sent.Receipt)
	}

	t.Run("bad signature fails the payment", func(t *testing.T) {
		verify, err := env.payments.VerifyPayment(ctx, as(bob, &api.VerifyPaymentRequest{
			OrderID:   order.OrderID,
			PaymentID: "pay_1",
			Signature: "deadbeef",
		}))
		mustFail(t, verify, err, "Payment verification failed")

		payment, err := env.store.GetPayment(ctx, order.PaymentID)
		if err != nil {
			t.Fatalf("GetPayment failed: %v", err)
		}
		if payment.Status != "failed" {
			t.Errorf("status: expected failed, got %s", payment.Status)
		}
	})

	t.Run("retry after a failed payment", func(t *testing.T) {
		resp, err := env.payments.CreateOrder(ctx, as(bob, &api.CreateOrderRequest{
			GroupID:   groupID,
			AuctionID: &auction.ID,
			Amount:    dec("100"),
		}))
		retry := mustOK(t, resp, err)

		verify, err := env.payments.VerifyPayment(ctx, as(bob, &api.VerifyPaymentRequest{
			OrderID:   retry.OrderID,
			PaymentID: "pay_2",
			Signature: gateway.Sign(testGatewaySecret, retry.OrderID, "pay_2"),
		}))
		paid := mustOK(t, verify, err)
		if paid.Status != "completed" || paid.GatewayPaymentID == nil || *paid.GatewayPaymentID != "pay_2" {
			t.Errorf("unexpected payment: %+v", paid)
		}

		again, err := env.payments.VerifyPayment(ctx, as(bob, &api.VerifyPaymentRequest{
			OrderID:   retry.OrderID,
			PaymentID: "pay_2",
			Signature: gateway.Sign(testGatewaySecret, retry.OrderID, "pay_2"),
		}))
		mustFail(t, again, err, "Payment has already been processed")
	})

	t.Run("one contribution per round", func(t *testing.T) {
		resp, err := env.payments.CreateOrder(ctx, as(bob, &api.CreateOrderRequest{
			GroupID:   groupID,
			AuctionID: &auction.ID,
			Amount:    dec("100"),
		}))
		mustFail(t, resp, err, "Contribution already recorded for this round")
	})

	t.Run("unknown order", func(t *testing.T) {
		verify, err := env.payments.VerifyPayment(ctx, as(bob, &api.VerifyPaymentRequest{
			OrderID:   "order_404",
			PaymentID: "pay_3",
			Signature: "x",
		}))
		mustFail(t, verify, err, "Payment not found")
	})

	t.Run("sub-unit amounts are refused", func(t *testing.T) {
		resp, err := env.payments.CreateOrder(ctx, as(alice, &api.CreateOrderRequest{
			GroupID: groupID,
			Amount:  dec("10.005"),
		}))
		mustFail(t, resp, err, "Amount must be positive with at most two decimal places")
	})
}

func TestGatewayCheckout_AbandonedOrder(t *testing.T) {
	gw := &fakeGateway{}
	env := setupTestServer(t, gw)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	groupID := env.activeGroup(t, alice, "100", 2, bob)
	auction := env.openAuction(t, alice, groupID, 1)

	createOrder := func() api.Order {
		t.Helper()
		resp, err := env.payments.CreateOrder(ctx, as(bob, &api.CreateOrderRequest{
			GroupID:   groupID,
			AuctionID: &auction.ID,
			Amount:    dec("100"),
		}))
		return mustOK(t, resp, err)
	}

	abandoned := createOrder()
	retry := createOrder()

	resp, err := env.payments.RecordPayment(ctx, as(alice, &api.RecordPaymentRequest{
		GroupID:   groupID,
		UserID:    bob.ID,
		AuctionID: &auction.ID,
		Amount:    dec("100"),
		Type:      "contribution",
	}))
	mustOK(t, resp, err)

	// The round is paid now, so neither a new order nor a late checkout may count twice.
	again, err := env.payments.CreateOrder(ctx, as(bob, &api.CreateOrderRequest{
		GroupID:   groupID,
		AuctionID: &auction.ID,
		Amount:    dec("100"),
	}))
	mustFail(t, again, err, "Contribution already recorded for this round")

	verify, err := env.payments.VerifyPayment(ctx, as(bob, &api.VerifyPaymentRequest{
		OrderID:   retry.OrderID,
		PaymentID: "pay_late",
		Signature: gateway.Sign(testGatewaySecret, retry.OrderID, "pay_late"),
	}))
	mustFail(t, verify, err, "Contribution already recorded for this round")

	late, err := env.store.GetPayment(ctx, retry.PaymentID)
	if err != nil {
		t.Fatalf("GetPayment failed: %v", err)
	}
	if late.Status != "failed" {
		t.Errorf("late checkout status: expected failed, got %s", late.Status)
	}

	list, err := env.payments.ListPayments(ctx, as(alice, &api.ListPaymentsRequest{GroupID: groupID}))
	completed := 0
	for _, p := range mustOK(t, list, err).Payments {
		if p.Status == "completed" {
			completed++
		}
	}
	if completed != 1 {
		t.Errorf("expected exactly one completed contribution, got %d", completed)
	}

	// The abandoned order stays pending and harmless.
	stale, err := env.store.GetPayment(ctx, abandoned.PaymentID)
	if err != nil {
		t.Fatalf("GetPayment failed: %v", err)
	}
	if stale.Status != "pending" {
		t.Errorf("abandoned order status: expected pending, got %s", stale.Status)
	}
}

func TestGatewayNotConfigured(t *testing.T) {
	env := setupTestServer(t, nil)
	ctx := context.Background()
	alice := env.register(t, "alice")
	groupID := env.createGroup(t, alice, "100", 2)

	resp, err := env.payments.CreateOrder(ctx, as(alice, &api.CreateOrderRequest{GroupID: groupID, Amount: dec("100")}))
	mustFail(t, resp, err, "Payment gateway is not configured")

	verify, err := env.payments.VerifyPayment(ctx, as(alice, &api.VerifyPaymentRequest{OrderID: "o", PaymentID: "p", Signature: "s"}))
	mustFail(t, verify, err, "Payment gateway is not configured")
}
