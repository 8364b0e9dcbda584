package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/calculator"
	"github.com/mmynk/chitfund/internal/metrics"
	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage"
	"github.com/mmynk/chitfund/internal/telemetry"
	"github.com/mmynk/chitfund/pkg/api"
	"github.com/mmynk/chitfund/pkg/api/apiconnect"
)

var _ apiconnect.AuctionServiceHandler = (*AuctionService)(nil)

const (
	msgAuctionNotOpen = "Auction is not open"
	msgAlreadySettled = "Auction already settled"
)

// AuctionService runs the monthly auctions: creation, bidding and settlement.
type AuctionService struct {
	store   storage.Store
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewAuctionService creates an AuctionService. m may be nil.
func NewAuctionService(store storage.Store, m *metrics.Metrics) *AuctionService {
	return &AuctionService{store: store, metrics: m, now: time.Now}
}

// CreateAuction opens a new round in an active group. Admins only.
func (s *AuctionService) CreateAuction(ctx context.Context, req *connect.Request[api.CreateAuctionRequest]) (*connect.Response[api.Result[api.Auction]], error) {
	slog.Info("CreateAuction request received",
		"group_id", req.Msg.GroupID,
		"round_number", req.Msg.RoundNumber,
		"deadline", req.Msg.Deadline,
	)

	auction, err := s.createAuction(ctx, req.Msg)
	if err != nil {
		return fail[api.Auction](err, "Failed to create auction")
	}

	slog.Info("Auction created", "auction_id", auction.ID, "group_id", auction.GroupID)
	return succeed(toAPIAuction(auction), "Auction created")
}

func (s *AuctionService) createAuction(ctx context.Context, msg *api.CreateAuctionRequest) (*models.Auction, error) {
	callerID, err := requireCaller(ctx, msgUnauthorized)
	if err != nil {
		return nil, err
	}
	group, err := loadGroup(ctx, s.store, msg.GroupID)
	if err != nil {
		return nil, err
	}
	if _, err := requireAdmin(ctx, s.store, group.ID, callerID, "Permission denied: only admins can create auctions"); err != nil {
		return nil, err
	}
	if group.Status != models.GroupStatusActive {
		return nil, apperr.Precondition("Group must be active to create auctions")
	}
	if msg.RoundNumber < 1 {
		return nil, apperr.Invalid("Round number must be positive")
	}
	if msg.RoundNumber > group.DurationMonths {
		return nil, apperr.Invalid("Round number exceeds the group's duration")
	}
	if msg.AuctionDate.IsZero() || msg.Deadline.IsZero() {
		return nil, apperr.Invalid("Auction date and deadline are required")
	}
	// A past auction date is accepted; only the window is checked.
	if !calculator.ValidWindow(msg.AuctionDate, msg.Deadline) {
		return nil, apperr.Invalid("Deadline must be after the auction date")
	}

	auction := &models.Auction{
		GroupID:     group.ID,
		RoundNumber: msg.RoundNumber,
		AuctionDate: msg.AuctionDate.UTC(),
		Deadline:    msg.Deadline.UTC(),
		Status:      models.AuctionStatusOpen,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateAuction(ctx, auction); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, apperr.AlreadyExists("Round already exists for this group")
		}
		return nil, fmt.Errorf("failed to insert auction: %w", err)
	}
	auction.GroupName = group.Name
	return auction, nil
}

// PlaceBid records a bid on an open auction. Active members only.
func (s *AuctionService) PlaceBid(ctx context.Context, req *connect.Request[api.PlaceBidRequest]) (*connect.Response[api.Result[api.Bid]], error) {
	slog.Info("PlaceBid request received",
		"auction_id", req.Msg.AuctionID,
		"bid_amount", req.Msg.BidAmount,
	)

	bid, err := s.placeBid(ctx, req.Msg)
	if err != nil {
		return fail[api.Bid](err, "Failed to place bid")
	}

	s.metrics.BidPlaced()
	slog.Info("Bid placed", "bid_id", bid.ID, "auction_id", bid.AuctionID, "user_id", bid.UserID)
	return succeed(toAPIBid(bid), "Bid placed")
}

func (s *AuctionService) placeBid(ctx context.Context, msg *api.PlaceBidRequest) (*models.Bid, error) {
	callerID, err := requireCaller(ctx, msgUnauthorized)
	if err != nil {
		return nil, err
	}
	auction, err := loadAuction(ctx, s.store, msg.AuctionID)
	if err != nil {
		return nil, err
	}
	member, err := requireMember(ctx, s.store, auction.GroupID, callerID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if !auction.IsOpen() {
		return nil, apperr.Precondition("Auction is not open for bidding")
	}
	if auction.DeadlinePassed(now) {
		return nil, apperr.Precondition("Bidding deadline has passed")
	}
	if !msg.BidAmount.IsPositive() {
		return nil, apperr.Invalid("Bid amount must be positive")
	}

	group, err := loadGroup(ctx, s.store, auction.GroupID)
	if err != nil {
		return nil, err
	}
	if msg.BidAmount.GreaterThan(poolOf(group)) {
		return nil, apperr.Invalid("Bid cannot exceed the pooled amount")
	}

	bid := &models.Bid{
		AuctionID:   auction.ID,
		UserID:      callerID,
		BidAmount:   msg.BidAmount,
		PlacedAt:    now,
		BidderName:  member.DisplayName,
		BidderEmail: member.Email,
	}
	// The store re-checks status and deadline atomically with the insert.
	if err := s.store.CreateBid(ctx, bid); err != nil {
		if errors.Is(err, storage.ErrAuctionNotOpen) {
			return nil, apperr.Precondition("Auction is not open for bidding")
		}
		return nil, fmt.Errorf("failed to insert bid: %w", err)
	}
	return bid, nil
}

// CloseAuction settles an open auction immediately. Admins only.
func (s *AuctionService) CloseAuction(ctx context.Context, req *connect.Request[api.CloseAuctionRequest]) (*connect.Response[api.Result[api.Auction]], error) {
	slog.Info("CloseAuction request received", "auction_id", req.Msg.AuctionID)

	closed, err := s.closeAuction(ctx, req.Msg.AuctionID)
	if err != nil {
		return fail[api.Auction](err, "Failed to close auction")
	}
	return succeed(toAPIAuction(closed), settledMessage(closed))
}

func (s *AuctionService) closeAuction(ctx context.Context, auctionID string) (*models.Auction, error) {
	callerID, err := requireCaller(ctx, msgUnauthorized)
	if err != nil {
		return nil, err
	}
	auction, err := loadAuction(ctx, s.store, auctionID)
	if err != nil {
		return nil, err
	}
	if _, err := requireAdmin(ctx, s.store, auction.GroupID, callerID, "Permission denied: only admins can close auctions"); err != nil {
		return nil, err
	}
	if !calculator.CanClose(auction) {
		return nil, apperr.Precondition(msgAuctionNotOpen)
	}

	closed, err := s.settle(ctx, auction.ID, metrics.TriggerManual)
	if errors.Is(err, storage.ErrAuctionNotOpen) {
		return nil, apperr.Precondition(msgAuctionNotOpen)
	}
	return closed, err
}

// SettleAuction closes an auction whose deadline has passed. Any member may
// call it, and calling it on a closed auction returns that auction unchanged.
func (s *AuctionService) SettleAuction(ctx context.Context, req *connect.Request[api.SettleAuctionRequest]) (*connect.Response[api.Result[api.Auction]], error) {
	slog.Info("SettleAuction request received", "auction_id", req.Msg.AuctionID)

	callerID, err := requireCaller(ctx, msgUnauthorized)
	if err != nil {
		return fail[api.Auction](err, "")
	}
	auction, err := loadAuction(ctx, s.store, req.Msg.AuctionID)
	if err != nil {
		return fail[api.Auction](err, "Failed to settle auction")
	}
	if _, err := requireMember(ctx, s.store, auction.GroupID, callerID); err != nil {
		return fail[api.Auction](err, "Failed to settle auction")
	}

	switch {
	case auction.Status == models.AuctionStatusClosed:
		return succeed(toAPIAuction(auction), msgAlreadySettled)
	case !auction.IsOpen():
		return fail[api.Auction](apperr.Precondition(msgAuctionNotOpen), "")
	case !auction.DeadlinePassed(s.now()):
		return fail[api.Auction](apperr.Precondition("Auction deadline has not passed"), "")
	}

	closed, err := s.settle(ctx, auction.ID, metrics.TriggerDeadline)
	if errors.Is(err, storage.ErrAuctionNotOpen) {
		// Someone else settled it between our read and the update.
		closed, err = loadAuction(ctx, s.store, auction.ID)
		if err != nil {
			return fail[api.Auction](err, "Failed to settle auction")
		}
		return succeed(toAPIAuction(closed), msgAlreadySettled)
	}
	if err != nil {
		return fail[api.Auction](err, "Failed to settle auction")
	}
	return succeed(toAPIAuction(closed), settledMessage(closed))
}

// SettleDueAuctions closes every open auction whose deadline is at or before
// now and returns how many it closed. Auctions settled concurrently by someone
// else are skipped; other failures are collected and the sweep continues.
func (s *AuctionService) SettleDueAuctions(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.ListDueAuctions(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list due auctions: %w", err)
	}

	var (
		settled int
		errs    []error
	)
	for _, auction := range due {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		_, err := s.settle(ctx, auction.ID, metrics.TriggerSweeper)
		switch {
		case errors.Is(err, storage.ErrAuctionNotOpen):
		case err != nil:
			errs = append(errs, fmt.Errorf("auction %s: %w", auction.ID, err))
		default:
			settled++
		}
	}
	return settled, errors.Join(errs...)
}

// settle closes an auction with the lowest bid as winner.
func (s *AuctionService) settle(ctx context.Context, auctionID, trigger string) (*models.Auction, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "auction.settle", trace.WithAttributes(
		attribute.String("auction.id", auctionID),
		attribute.String("auction.trigger", trigger),
	))
	defer span.End()

	closed, err := s.store.CloseAuction(ctx, auctionID, calculator.SelectWinner, s.now().UTC())
	if err != nil {
		if !errors.Is(err, storage.ErrAuctionNotOpen) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "settlement failed")
		}
		return nil, err
	}

	s.metrics.AuctionSettled(trigger)
	if closed.WinnerID != nil {
		span.SetAttributes(attribute.String("auction.winner_id", *closed.WinnerID))
		slog.Info("Auction settled",
			"auction_id", closed.ID,
			"trigger", trigger,
			"winner_id", *closed.WinnerID,
			"winner_bid", closed.WinnerBid,
		)
	} else {
		slog.Info("Auction settled without bids", "auction_id", closed.ID, "trigger", trigger)
	}
	return closed, nil
}

func settledMessage(a *models.Auction) string {
	if a.WinnerID == nil {
		return "Auction closed with no bids"
	}
	return "Auction closed"
}

// GetAuctionDetails returns an auction with its bids and the pool it is for.
func (s *AuctionService) GetAuctionDetails(ctx context.Context, req *connect.Request[api.GetAuctionDetailsRequest]) (*connect.Response[api.Result[api.AuctionDetail]], error) {
	detail, err := s.getAuctionDetails(ctx, req.Msg.AuctionID)
	if err != nil {
		return fail[api.AuctionDetail](err, "Failed to load auction")
	}
	return succeed(detail, "")
}

func (s *AuctionService) getAuctionDetails(ctx context.Context, auctionID string) (api.AuctionDetail, error) {
	callerID, err := requireCaller(ctx, msgUnauthorized)
	if err != nil {
		return api.AuctionDetail{}, err
	}
	auction, err := loadAuction(ctx, s.store, auctionID)
	if err != nil {
		return api.AuctionDetail{}, err
	}
	if _, err := requireMember(ctx, s.store, auction.GroupID, callerID); err != nil {
		return api.AuctionDetail{}, err
	}
	group, err := loadGroup(ctx, s.store, auction.GroupID)
	if err != nil {
		return api.AuctionDetail{}, err
	}
	bids, err := s.store.ListBids(ctx, auction.ID)
	if err != nil {
		return api.AuctionDetail{}, fmt.Errorf("failed to list bids: %w", err)
	}

	out := make([]api.Bid, len(bids))
	for i := range bids {
		out[i] = toAPIBid(&bids[i])
	}
	return api.AuctionDetail{
		Auction:             toAPIAuction(auction),
		Bids:                out,
		MonthlyContribution: group.MonthlyContribution,
		Pool:                poolOf(group),
	}, nil
}

// GetUserAuctions lists auctions across every group the caller is active in.
func (s *AuctionService) GetUserAuctions(ctx context.Context, req *connect.Request[api.GetUserAuctionsRequest]) (*connect.Response[api.Result[api.AuctionList]], error) {
	callerID, err := requireCaller(ctx, msgUnauthorized)
	if err != nil {
		return fail[api.AuctionList](err, "")
	}
	auctions, err := s.store.ListAuctionsForUser(ctx, callerID)
	if err != nil {
		return fail[api.AuctionList](err, "Failed to load auctions")
	}
	return succeed(api.AuctionList{Auctions: toAPIAuctions(auctions)}, "")
}

// GetGroupAuctions lists the auctions of one group.
func (s *AuctionService) GetGroupAuctions(ctx context.Context, req *connect.Request[api.GetGroupAuctionsRequest]) (*connect.Response[api.Result[api.AuctionList]], error) {
	callerID, err := requireCaller(ctx, msgUnauthorized)
	if err != nil {
		return fail[api.AuctionList](err, "")
	}
	if _, err := loadGroup(ctx, s.store, req.Msg.GroupID); err != nil {
		return fail[api.AuctionList](err, "Failed to load auctions")
	}
	if _, err := requireMember(ctx, s.store, req.Msg.GroupID, callerID); err != nil {
		return fail[api.AuctionList](err, "Failed to load auctions")
	}

	auctions, err := s.store.ListAuctionsByGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return fail[api.AuctionList](err, "Failed to load auctions")
	}
	return succeed(api.AuctionList{Auctions: toAPIAuctions(auctions)}, "")
}
