package service

import (
	"context"
	"testing"
	"time"

	"github.com/mmynk/chitfund/internal/sweeper"
	"github.com/mmynk/chitfund/pkg/api"
)

func TestCloseAuction_LowestBidWins(t *testing.T) {
	env := setupTestServer(t, nil)
	ctx := context.Background()

	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	carol := env.register(t, "carol")
	dave := env.register(t, "dave")
	groupID := env.activeGroup(t, alice, "50", 4, bob, carol, dave)

	auction := env.openAuction(t, alice, groupID, 1)
	if auction.Status != "open" {
		t.Errorf("status: expected open, got %s", auction.Status)
	}
	if auction.WinnerID != nil || auction.WinnerBid != nil {
		t.Error("expected no winner on a new auction")
	}

	env.bid(t, bob, auction.ID, "180")
	env.bid(t, carol, auction.ID, "150")
	env.bid(t, dave, auction.ID, "190")

	resp, err := env.auctions.CloseAuction(ctx, as(alice, &api.CloseAuctionRequest{AuctionID: auction.ID}))
	closed := mustOK(t, resp, err)

	if closed.Status != "closed" {
		t.Errorf("status: expected closed, got %s", closed.Status)
	}
	if closed.WinnerID == nil || *closed.WinnerID != carol.ID {
		t.Fatalf("winner: expected carol (%s), got %v", carol.ID, closed.WinnerID)
	}
	if !closed.WinnerBid.Equal(dec("150")) {
		t.Errorf("winner bid: expected 150, got %s", closed.WinnerBid)
	}
	if closed.WinnerName != "carol" {
		t.Errorf("winner name: expected carol, got %q", closed.WinnerName)
	}

	payoutResp, err := env.payments.ProcessAuctionPayout(ctx, as(alice, &api.ProcessAuctionPayoutRequest{AuctionID: auction.ID}))
	payout := mustOK(t, payoutResp, err)
	if !payout.Amount.Equal(dec("50")) {
		t.Errorf("payout: expected 50, got %s", payout.Amount)
	}
	if payout.UserID != carol.ID || payout.Type != "payout" || payout.Status != "completed" {
		t.Errorf("unexpected payout: %+v", payout)
	}
}

func TestCloseAuction_Twice(t *testing.T) {
	env := setupTestServer(t, nil)
	ctx := context.Background()

	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	groupID := env.activeGroup(t, alice, "100", 2, bob)
	auction := env.openAuction(t, alice, groupID, 1)
	env.bid(t, bob, auction.ID, "20")

	resp, err := env.auctions.CloseAuction(ctx, as(alice, &api.CloseAuctionRequest{AuctionID: auction.ID}))
	first := mustOK(t, resp, err)

	resp, err = env.auctions.CloseAuction(ctx, as(alice, &api.CloseAuctionRequest{AuctionID: auction.ID}))
	mustFail(t, resp, err, "Auction is not open")

	details, err := env.auctions.GetAuctionDetails(ctx, as(bob, &api.GetAuctionDetailsRequest{AuctionID: auction.ID}))
	detail := mustOK(t, details, err)
	if *detail.Auction.WinnerID != *first.WinnerID || !detail.Auction.WinnerBid.Equal(*first.WinnerBid) {
		t.Errorf("winner changed after second close: %+v", detail.Auction)
	}
}

func TestCloseAuction_NoBids(t *testing.T) {
	env := setupTestServer(t, nil)
	ctx := context.Background()

	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	groupID := env.activeGroup(t, alice, "100", 2, bob)
	auction := env.openAuction(t, alice, groupID, 1)

	resp, err := env.auctions.CloseAuction(ctx, as(alice, &api.CloseAuctionRequest{AuctionID: auction.ID}))
	closed := mustOK(t, resp, err)
	if closed.WinnerID != nil || closed.WinnerBid != nil {
		t.Errorf("expected no winner, got %v / %v", closed.WinnerID, closed.WinnerBid)
	}
	if resp.Msg.Message != "Auction closed with no bids" {
		t.Errorf("message: got %q", resp.Msg.Message)
	}

	payout, err := env.payments.ProcessAuctionPayout(ctx, as(alice, &api.ProcessAuctionPayoutRequest{AuctionID: auction.ID}))
	mustFail(t, payout, err, "Auction has no winner")
}

func TestCloseAuction_AdminOnly(t *testing.T) {
	env := setupTestServer(t, nil)
	ctx := context.Background()

	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	groupID := env.activeGroup(t, alice, "100", 2, bob)
	auction := env.openAuction(t, alice, groupID, 1)

	resp, err := env.auctions.CloseAuction(ctx, as(bob, &api.CloseAuctionRequest{AuctionID: auction.ID}))
	mustFail(t, resp, err, "Permission denied: only admins can close auctions")
	if resp.Msg.Code != "permission_denied" {
		t.Errorf("code: expected permission_denied, got %s", resp.Msg.Code)
	}

	resp, err = env.auctions.CloseAuction(ctx, as(alice, &api.CloseAuctionRequest{AuctionID: "missing"}))
	mustFail(t, resp, err, "Auction not found")
}

func TestCreateAuction(t *testing.T) {
	env := setupTestServer(t, nil)
	ctx := context.Background()

	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	now := time.Now().UTC()

	t.Run("group must be active", func(t *testing.T) {
		groupID := env.createGroup(t, alice, "100", 2)
		resp, err := env.auctions.CreateAuction(ctx, as(alice, &api.CreateAuctionRequest{
			GroupID:     groupID,
			RoundNumber: 1,
			AuctionDate: now,
			Deadline:    now.Add(time.Hour),
		}))
		mustFail(t, resp, err, "Group must be active to create auctions")
	})

	groupID := env.activeGroup(t, alice, "100", 2, bob)

	t.Run("unknown group", func(t *testing.T) {
		resp, err := env.auctions.CreateAuction(ctx, as(alice, &api.CreateAuctionRequest{
			GroupID:     "missing",
			RoundNumber: 1,
			AuctionDate: now,
			Deadline:    now.Add(time.Hour),
		}))
		mustFail(t, resp, err, "Group not found")
	})

	t.Run("deadline must follow auction date", func(t *testing.T) {
		resp, err := env.auctions.CreateAuction(ctx, as(alice, &api.CreateAuctionRequest{
			GroupID:     groupID,
			RoundNumber: 1,
			AuctionDate: now,
			Deadline:    now,
		}))
		mustFail(t, resp, err, "Deadline must be after the auction date")
	})

	t.Run("members cannot create auctions", func(t *testing.T) {
		resp, err := env.auctions.CreateAuction(ctx, as(bob, &api.CreateAuctionRequest{
			GroupID:     groupID,
			RoundNumber: 1,
			AuctionDate: now,
			Deadline:    now.Add(time.Hour),
		}))
		mustFail(t, resp, err, "Permission denied: only admins can create auctions")
	})

	t.Run("past auction date is accepted", func(t *testing.T) {
		resp, err := env.auctions.CreateAuction(ctx, as(alice, &api.CreateAuctionRequest{
			GroupID:     groupID,
			RoundNumber: 1,
			AuctionDate: now.Add(-48 * time.Hour),
			Deadline:    now.Add(time.Hour),
		}))
		auction := mustOK(t, resp, err)
		if !auction.AuctionDate.Before(now) {
			t.Errorf("expected auction date in the past, got %v", auction.AuctionDate)
		}
	})

	t.Run("round number is unique per group", func(t *testing.T) {
		resp, err := env.auctions.CreateAuction(ctx, as(alice, &api.CreateAuctionRequest{
			GroupID:     groupID,
			RoundNumber: 1,
			AuctionDate: now,
			Deadline:    now.Add(time.Hour),
		}))
		mustFail(t, resp, err, "Round already exists for this group")
	})
}

func TestPlaceBid(t *testing.T) {
	env := setupTestServer(t, nil)
	ctx := context.Background()

	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	mallory := env.register(t, "mallory")
	groupID := env.activeGroup(t, alice, "100", 2, bob)
	auction := env.openAuction(t, alice, groupID, 1)

	tests := []struct {
		name    string
		user    *testUser
		amount  string
		wantErr string
	}{
		{"anonymous", nil, "10", "Unauthorized"},
		{"not a member", mallory, "10", "Permission denied: not a member of this group"},
		{"zero amount", bob, "0", "Bid amount must be positive"},
		{"negative amount", bob, "-5", "Bid amount must be positive"},
		{"above pool", bob, "200.01", "Bid cannot exceed the pooled amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.auctions.PlaceBid(ctx, as(tt.user, &api.PlaceBidRequest{
				AuctionID: auction.ID,
				BidAmount: dec(tt.amount),
			}))
			mustFail(t, resp, err, tt.wantErr)
		})
	}

	t.Run("bid equal to pool is accepted", func(t *testing.T) {
		b := env.bid(t, bob, auction.ID, "200")
		if b.BidderName != "bob" {
			t.Errorf("bidder name: expected bob, got %q", b.BidderName)
		}
	})

	t.Run("closed auction refuses bids", func(t *testing.T) {
		resp, err := env.auctions.CloseAuction(ctx, as(alice, &api.CloseAuctionRequest{AuctionID: auction.ID}))
		mustOK(t, resp, err)

		bid, err := env.auctions.PlaceBid(ctx, as(bob, &api.PlaceBidRequest{
			AuctionID: auction.ID,
			BidAmount: dec("10"),
		}))
		mustFail(t, bid, err, "Auction is not open for bidding")
	})

	t.Run("deadline passed", func(t *testing.T) {
		now := time.Now().UTC()
		resp, err := env.auctions.CreateAuction(ctx, as(alice, &api.CreateAuctionRequest{
			GroupID:     groupID,
			RoundNumber: 2,
			AuctionDate: now.Add(-2 * time.Hour),
			Deadline:    now.Add(-time.Hour),
		}))
		late := mustOK(t, resp, err)

		bid, err := env.auctions.PlaceBid(ctx, as(bob, &api.PlaceBidRequest{
			AuctionID: late.ID,
			BidAmount: dec("10"),
		}))
		mustFail(t, bid, err, "Bidding deadline has passed")
	})
}

func TestSettleAuction(t *testing.T) {
	env := setupTestServer(t, nil)
	ctx := context.Background()

	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	groupID := env.activeGroup(t, alice, "100", 2, bob)
	auction := env.openAuction(t, alice, groupID, 1)
	env.bid(t, bob, auction.ID, "30")
	time.Sleep(5 * time.Millisecond)
	env.bid(t, alice, auction.ID, "30")

	resp, err := env.auctions.SettleAuction(ctx, as(bob, &api.SettleAuctionRequest{AuctionID: auction.ID}))
	mustFail(t, resp, err, "Auction deadline has not passed")

	env.clock.Advance(2 * time.Hour)

	resp, err = env.auctions.SettleAuction(ctx, as(bob, &api.SettleAuctionRequest{AuctionID: auction.ID}))
	settled := mustOK(t, resp, err)
	// Equal bids: the earlier one wins.
	if settled.WinnerID == nil || *settled.WinnerID != bob.ID {
		t.Errorf("winner: expected bob, got %v", settled.WinnerID)
	}

	resp, err = env.auctions.SettleAuction(ctx, as(alice, &api.SettleAuctionRequest{AuctionID: auction.ID}))
	again := mustOK(t, resp, err)
	if resp.Msg.Message != "Auction already settled" {
		t.Errorf("message: expected %q, got %q", "Auction already settled", resp.Msg.Message)
	}
	if *again.WinnerID != *settled.WinnerID {
		t.Errorf("winner changed on repeat settle")
	}
}

func TestSettleDueAuctions(t *testing.T) {
	env := setupTestServer(t, nil)
	ctx := context.Background()

	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	groupID := env.activeGroup(t, alice, "100", 3, bob)

	due := env.openAuction(t, alice, groupID, 1)
	env.bid(t, bob, due.ID, "40")

	later := time.Now().UTC().Add(24 * time.Hour)
	resp, err := env.auctions.CreateAuction(ctx, as(alice, &api.CreateAuctionRequest{
		GroupID:     groupID,
		RoundNumber: 2,
		AuctionDate: later,
		Deadline:    later.Add(time.Hour),
	}))
	notDue := mustOK(t, resp, err)

	n, err := env.auctionSvc.SettleDueAuctions(ctx, time.Now().Add(2*time.Hour))
	if err != nil {
		t.Fatalf("SettleDueAuctions failed: %v", err)
	}
	if n != 1 {
		t.Errorf("settled: expected 1, got %d", n)
	}

	details, err := env.auctions.GetAuctionDetails(ctx, as(bob, &api.GetAuctionDetailsRequest{AuctionID: due.ID}))
	detail := mustOK(t, details, err)
	if detail.Auction.Status != "closed" || *detail.Auction.WinnerID != bob.ID {
		t.Errorf("due auction not settled: %+v", detail.Auction)
	}
	if !detail.Pool.Equal(dec("300")) {
		t.Errorf("pool: expected 300, got %s", detail.Pool)
	}

	details, err = env.auctions.GetAuctionDetails(ctx, as(bob, &api.GetAuctionDetailsRequest{AuctionID: notDue.ID}))
	if status := mustOK(t, details, err).Auction.Status; status != "open" {
		t.Errorf("future auction: expected open, got %s", status)
	}

	n, err = env.auctionSvc.SettleDueAuctions(ctx, time.Now().Add(2*time.Hour))
	if err != nil || n != 0 {
		t.Errorf("second sweep: expected 0 settled and no error, got %d, %v", n, err)
	}
}

func TestSweeperSettlesExpiredAuctions(t *testing.T) {
	env := setupTestServer(t, nil)
	ctx := context.Background()

	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	groupID := env.activeGroup(t, alice, "100", 2, bob)

	now := time.Now().UTC()
	resp, err := env.auctions.CreateAuction(ctx, as(alice, &api.CreateAuctionRequest{
		GroupID:     groupID,
		RoundNumber: 1,
		AuctionDate: now.Add(-2 * time.Hour),
		Deadline:    now.Add(-time.Hour),
	}))
	expired := mustOK(t, resp, err)

	if n := sweeper.New(env.auctionSvc, time.Minute).RunOnce(ctx); n != 1 {
		t.Fatalf("settled: expected 1, got %d", n)
	}

	details, err := env.auctions.GetAuctionDetails(ctx, as(alice, &api.GetAuctionDetailsRequest{AuctionID: expired.ID}))
	detail := mustOK(t, details, err)
	if detail.Auction.Status != "closed" {
		t.Errorf("status: expected closed, got %s", detail.Auction.Status)
	}
	if detail.Auction.WinnerID != nil {
		t.Errorf("expected no winner without bids, got %s", *detail.Auction.WinnerID)
	}
}

func TestAuctionListings(t *testing.T) {
	env := setupTestServer(t, nil)
	ctx := context.Background()

	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	mallory := env.register(t, "mallory")
	groupID := env.activeGroup(t, alice, "100", 3, bob)

	base := time.Now().UTC()
	for round := 1; round <= 3; round++ {
		date := base.Add(time.Duration(round) * 24 * time.Hour)
		resp, err := env.auctions.CreateAuction(ctx, as(alice, &api.CreateAuctionRequest{
			GroupID:     groupID,
			RoundNumber: round,
			AuctionDate: date,
			Deadline:    date.Add(time.Hour),
		}))
		mustOK(t, resp, err)
	}

	group, err := env.auctions.GetGroupAuctions(ctx, as(bob, &api.GetGroupAuctionsRequest{GroupID: groupID}))
	byGroup := mustOK(t, group, err).Auctions
	mine, err := env.auctions.GetUserAuctions(ctx, as(bob, &api.GetUserAuctionsRequest{}))
	byUser := mustOK(t, mine, err).Auctions

	for name, list := range map[string][]api.Auction{"group": byGroup, "user": byUser} {
		if len(list) != 3 {
			t.Fatalf("%s listing: expected 3 auctions, got %d", name, len(list))
		}
		for i, want := range []int{3, 2, 1} {
			if list[i].RoundNumber != want {
				t.Errorf("%s listing[%d]: expected round %d, got %d", name, i, want, list[i].RoundNumber)
			}
		}
	}

	resp, err := env.auctions.GetGroupAuctions(ctx, as(mallory, &api.GetGroupAuctionsRequest{GroupID: groupID}))
	mustFail(t, resp, err, "Permission denied: not a member of this group")

	none, err := env.auctions.GetUserAuctions(ctx, as(mallory, &api.GetUserAuctionsRequest{}))
	if got := len(mustOK(t, none, err).Auctions); got != 0 {
		t.Errorf("outsider: expected no auctions, got %d", got)
	}
}
