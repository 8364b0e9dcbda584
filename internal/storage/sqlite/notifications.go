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

const notificationSelect = `
	SELECT n.id, n.group_id, n.invited_by_id, n.invited_user_id, n.status, n.read_at, n.created_at,
	       g.name, u.display_name
	FROM notifications n
	JOIN chit_groups g ON g.id = n.group_id
	JOIN users u ON u.id = n.invited_by_id`

// CreateNotification persists a new invitation.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Status == "" {
		n.Status = models.NotificationStatusPending
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, group_id, invited_by_id, invited_user_id, status, read_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.GroupID, n.InvitedByID, n.InvitedUserID, string(n.Status),
		optionalMillis(n.ReadAt), toMillis(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// GetNotification retrieves a notification by ID.
func (s *SQLiteStore) GetNotification(ctx context.Context, notificationID string) (*models.Notification, error) {
	row := s.db.QueryRowContext(ctx, notificationSelect+" WHERE n.id = ?", notificationID)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("notification %s: %w", notificationID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// ListNotificationsForUser retrieves the invitations addressed to a user.
func (s *SQLiteStore) ListNotificationsForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		notificationSelect+" WHERE n.invited_user_id = ? ORDER BY n.created_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return notifications, nil
}

// CountPendingForUser counts unread pending invitations for a user.
func (s *SQLiteStore) CountPendingForUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE invited_user_id = ? AND status = ? AND read_at IS NULL",
		userID, string(models.NotificationStatusPending),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// UpdateNotification saves a notification's status and read time.
func (s *SQLiteStore) UpdateNotification(ctx context.Context, n *models.Notification) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET status = ?, read_at = ? WHERE id = ?",
		string(n.Status), optionalMillis(n.ReadAt), n.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	return checkAffected(res, "notification", n.ID)
}

// DeleteNotification removes a notification by ID.
func (s *SQLiteStore) DeleteNotification(ctx context.Context, notificationID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = ?", notificationID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return checkAffected(res, "notification", notificationID)
}

func scanNotification(row scanner) (*models.Notification, error) {
	n := &models.Notification{}
	var (
		status    string
		readAt    sql.NullInt64
		createdAt int64
	)
	if err := row.Scan(
		&n.ID, &n.GroupID, &n.InvitedByID, &n.InvitedUserID, &status, &readAt, &createdAt,
		&n.GroupName, &n.InvitedByName,
	); err != nil {
		return nil, err
	}

	var err error
	if n.Status, err = models.ParseNotificationStatus(status); err != nil {
		return nil, fmt.Errorf("invalid notification row %s: %w", n.ID, err)
	}
	n.ReadAt = nullMillis(readAt)
	n.CreatedAt = fromMillis(createdAt)
	return n, nil
}

func optionalMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toMillis(*t)
}
