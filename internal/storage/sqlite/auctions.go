package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage"
)

// auctionSelect joins the group name and winner details onto each auction row.
const auctionSelect = `
	SELECT a.id, a.group_id, a.round_number, a.auction_date, a.deadline, a.status,
	       a.winner_id, a.winner_bid, a.closed_at, a.created_at,
	       g.name, COALESCE(u.display_name, ''), COALESCE(u.email, '')
	FROM auctions a
	JOIN chit_groups g ON g.id = a.group_id
	LEFT JOIN users u ON u.id = a.winner_id`

const bidSelect = `
	SELECT b.id, b.auction_id, b.user_id, b.bid_amount, b.placed_at, u.display_name, u.email
	FROM bids b
	JOIN users u ON u.id = b.user_id`

// CreateAuction persists a new auction.
func (s *SQLiteStore) CreateAuction(ctx context.Context, auction *models.Auction) error {
	if auction.ID == "" {
		auction.ID = uuid.New().String()
	}
	if auction.CreatedAt.IsZero() {
		auction.CreatedAt = time.Now().UTC()
	}
	if auction.Status == "" {
		auction.Status = models.AuctionStatusOpen
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO auctions (id, group_id, round_number, auction_date, deadline, status,
			winner_id, winner_bid, closed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, NULL, NULL, NULL, ?)`,
		auction.ID, auction.GroupID, auction.RoundNumber, toMillis(auction.AuctionDate),
		toMillis(auction.Deadline), string(auction.Status), toMillis(auction.CreatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("round %d in group %s: %w", auction.RoundNumber, auction.GroupID, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert auction: %w", err)
	}
	return nil
}

// GetAuction retrieves an auction by ID.
func (s *SQLiteStore) GetAuction(ctx context.Context, auctionID string) (*models.Auction, error) {
	return getAuction(ctx, s.db, auctionID)
}

func getAuction(ctx context.Context, q queryer, auctionID string) (*models.Auction, error) {
	row := q.QueryRowContext(ctx, auctionSelect+" WHERE a.id = ?", auctionID)
	auction, err := scanAuction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("auction %s: %w", auctionID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return auction, nil
}

// ListAuctionsByGroup retrieves all auctions of a group, latest auction date first.
func (s *SQLiteStore) ListAuctionsByGroup(ctx context.Context, groupID string) ([]models.Auction, error) {
	return s.listAuctions(ctx,
		auctionSelect+" WHERE a.group_id = ? ORDER BY a.auction_date DESC, a.round_number DESC",
		groupID,
	)
}

// ListAuctionsForUser retrieves auctions of every group the user is an active member of.
func (s *SQLiteStore) ListAuctionsForUser(ctx context.Context, userID string) ([]models.Auction, error) {
	return s.listAuctions(ctx,
		auctionSelect+`
		WHERE a.group_id IN (SELECT group_id FROM members WHERE user_id = ? AND status = ?)
		ORDER BY a.auction_date DESC, a.round_number DESC`,
		userID, string(models.MemberStatusActive),
	)
}

// ListDueAuctions retrieves open auctions whose deadline has passed.
func (s *SQLiteStore) ListDueAuctions(ctx context.Context, now time.Time) ([]models.Auction, error) {
	return s.listAuctions(ctx,
		auctionSelect+" WHERE a.status = ? AND a.deadline <= ? ORDER BY a.deadline",
		string(models.AuctionStatusOpen), toMillis(now),
	)
}

func (s *SQLiteStore) listAuctions(ctx context.Context, query string, args ...any) ([]models.Auction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}
	defer rows.Close()

	var auctions []models.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctions = append(auctions, *auction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate auctions: %w", err)
	}
	return auctions, nil
}

// CloseAuction settles an open auction inside a single transaction.
func (s *SQLiteStore) CloseAuction(ctx context.Context, auctionID string, pick storage.WinnerFunc, closedAt time.Time) (*models.Auction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, "SELECT status FROM auctions WHERE id = ?", auctionID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("auction %s: %w", auctionID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read auction status: %w", err)
	}
	if status != string(models.AuctionStatusOpen) {
		return nil, fmt.Errorf("auction %s is %s: %w", auctionID, status, storage.ErrAuctionNotOpen)
	}

	bids, err := listBids(ctx, tx, auctionID)
	if err != nil {
		return nil, err
	}

	// Without a winner the winner columns keep whatever they held.
	var winnerID, winnerBid any
	if winner, ok := pick(bids); ok {
		winnerID = winner.UserID
		winnerBid = winner.BidAmount.String()
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE auctions
		 SET status = ?, winner_id = COALESCE(?, winner_id), winner_bid = COALESCE(?, winner_bid), closed_at = ?
		 WHERE id = ? AND status = ?`,
		string(models.AuctionStatusClosed), winnerID, winnerBid, toMillis(closedAt),
		auctionID, string(models.AuctionStatusOpen),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to close auction: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to check affected rows: %w", err)
	} else if n != 1 {
		return nil, fmt.Errorf("auction %s: %w", auctionID, storage.ErrAuctionNotOpen)
	}

	closed, err := getAuction(ctx, tx, auctionID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return closed, nil
}

// CreateBid appends a bid as long as the auction is open and its deadline
// is after the bid's placement time.
func (s *SQLiteStore) CreateBid(ctx context.Context, bid *models.Bid) error {
	if bid.ID == "" {
		bid.ID = uuid.New().String()
	}
	if bid.PlacedAt.IsZero() {
		bid.PlacedAt = time.Now().UTC()
	}
	placedAt := toMillis(bid.PlacedAt)

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO bids (id, auction_id, user_id, bid_amount, placed_at)
		 SELECT ?, ?, ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM auctions WHERE id = ? AND status = ? AND deadline > ?)`,
		bid.ID, bid.AuctionID, bid.UserID, bid.BidAmount.String(), placedAt,
		bid.AuctionID, string(models.AuctionStatusOpen), placedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("auction %s: %w", bid.AuctionID, storage.ErrAuctionNotOpen)
	}
	return nil
}

// ListBids retrieves the bids of an auction, lowest first.
func (s *SQLiteStore) ListBids(ctx context.Context, auctionID string) ([]models.Bid, error) {
	return listBids(ctx, s.db, auctionID)
}

func listBids(ctx context.Context, q queryer, auctionID string) ([]models.Bid, error) {
	// bid_amount is TEXT, so ordering by it would be lexical; the CAST keeps
	// it numeric. Exact winner selection happens in decimal afterwards.
	rows, err := q.QueryContext(ctx,
		bidSelect+" WHERE b.auction_id = ? ORDER BY CAST(b.bid_amount AS REAL), b.placed_at, b.id",
		auctionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		var (
			bid      models.Bid
			placedAt int64
		)
		if err := rows.Scan(&bid.ID, &bid.AuctionID, &bid.UserID, &bid.BidAmount, &placedAt,
			&bid.BidderName, &bid.BidderEmail); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bid.PlacedAt = fromMillis(placedAt)
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bids: %w", err)
	}
	return bids, nil
}

func scanAuction(row scanner) (*models.Auction, error) {
	auction := &models.Auction{}
	var (
		status                         string
		auctionDate, deadline, created int64
		winnerID                       sql.NullString
		winnerBid                      decimal.NullDecimal
		closedAt                       sql.NullInt64
	)
	if err := row.Scan(
		&auction.ID, &auction.GroupID, &auction.RoundNumber, &auctionDate, &deadline, &status,
		&winnerID, &winnerBid, &closedAt, &created,
		&auction.GroupName, &auction.WinnerName, &auction.WinnerEmail,
	); err != nil {
		return nil, err
	}

	var err error
	if auction.Status, err = models.ParseAuctionStatus(status); err != nil {
		return nil, fmt.Errorf("invalid auction row %s: %w", auction.ID, err)
	}
	auction.AuctionDate = fromMillis(auctionDate)
	auction.Deadline = fromMillis(deadline)
	auction.CreatedAt = fromMillis(created)
	auction.WinnerID = nullString(winnerID)
	auction.ClosedAt = nullMillis(closedAt)
	if winnerBid.Valid {
		bid := winnerBid.Decimal
		auction.WinnerBid = &bid
	}
	return auction, nil
}
