package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage"
)

const paymentSelect = `
	SELECT p.id, p.user_id, p.group_id, p.auction_id, p.amount, p.type, p.status,
	       p.gateway_order_id, p.gateway_payment_id, p.paid_at, u.display_name
	FROM payments p
	JOIN users u ON u.id = p.user_id`

// CreatePayment persists a new payment.
func (s *SQLiteStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now().UTC()
	}
	if payment.Status == "" {
		payment.Status = models.PaymentStatusCompleted
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payments (id, user_id, group_id, auction_id, amount, type, status,
			gateway_order_id, gateway_payment_id, paid_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID, payment.UserID, payment.GroupID, optional(payment.AuctionID),
		payment.Amount.String(), string(payment.Type), string(payment.Status),
		optional(payment.GatewayOrderID), optional(payment.GatewayPaymentID), toMillis(payment.PaidAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%s payment for user %s: %w", payment.Type, payment.UserID, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// GetPayment retrieves a payment by ID.
func (s *SQLiteStore) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	return s.getPaymentWhere(ctx, "p.id = ?", paymentID)
}

// GetPaymentByOrderID retrieves the payment created for a gateway order.
func (s *SQLiteStore) GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	return s.getPaymentWhere(ctx, "p.gateway_order_id = ?", orderID)
}

func (s *SQLiteStore) getPaymentWhere(ctx context.Context, cond string, arg string) (*models.Payment, error) {
	row := s.db.QueryRowContext(ctx, paymentSelect+" WHERE "+cond, arg)
	payment, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment %s: %w", arg, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

// ResolvePayment moves a pending payment to its final status.
func (s *SQLiteStore) ResolvePayment(ctx context.Context, payment *models.Payment) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE payments SET status = ?, gateway_payment_id = ?, paid_at = ?
		 WHERE id = ? AND status = 'pending'`,
		string(payment.Status), optional(payment.GatewayPaymentID), toMillis(payment.PaidAt), payment.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("contribution for user %s: %w", payment.UserID, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.GetPayment(ctx, payment.ID); err != nil {
		return err
	}
	return fmt.Errorf("payment %s: %w", payment.ID, storage.ErrPaymentNotPending)
}

// ListPaymentsByGroup retrieves all payments of a group, newest first.
func (s *SQLiteStore) ListPaymentsByGroup(ctx context.Context, groupID string) ([]models.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		paymentSelect+" WHERE p.group_id = ? ORDER BY p.paid_at DESC",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments by group: %w", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, *payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}

func scanPayment(row scanner) (*models.Payment, error) {
	payment := &models.Payment{}
	var (
		auctionID, orderID, gatewayPaymentID sql.NullString
		paymentType, status                  string
		paidAt                               int64
	)
	if err := row.Scan(
		&payment.ID, &payment.UserID, &payment.GroupID, &auctionID, &payment.Amount,
		&paymentType, &status, &orderID, &gatewayPaymentID, &paidAt, &payment.PayerName,
	); err != nil {
		return nil, err
	}

	var err error
	if payment.Type, err = models.ParsePaymentType(paymentType); err != nil {
		return nil, fmt.Errorf("invalid payment row %s: %w", payment.ID, err)
	}
	if payment.Status, err = models.ParsePaymentStatus(status); err != nil {
		return nil, fmt.Errorf("invalid payment row %s: %w", payment.ID, err)
	}
	payment.AuctionID = nullString(auctionID)
	payment.GatewayOrderID = nullString(orderID)
	payment.GatewayPaymentID = nullString(gatewayPaymentID)
	payment.PaidAt = fromMillis(paidAt)
	return payment, nil
}
