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

const memberColumns = `m.id, m.group_id, m.user_id, m.role, m.status, m.joined_at,
	u.display_name, u.email`

// AddMember inserts a membership row.
func (s *SQLiteStore) AddMember(ctx context.Context, member *models.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO members (id, group_id, user_id, role, status, joined_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		member.ID, member.GroupID, member.UserID, string(member.Role), string(member.Status),
		toMillis(member.JoinedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("member %s in group %s: %w", member.UserID, member.GroupID, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// GetMember retrieves one user's membership in a group.
func (s *SQLiteStore) GetMember(ctx context.Context, groupID, userID string) (*models.Member, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+`
		 FROM members m JOIN users u ON u.id = m.user_id
		 WHERE m.group_id = ? AND m.user_id = ?`,
		groupID, userID,
	)
	member, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %s in group %s: %w", userID, groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

// ListMembers retrieves all memberships of a group, admins first.
func (s *SQLiteStore) ListMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memberColumns+`
		 FROM members m JOIN users u ON u.id = m.user_id
		 WHERE m.group_id = ?
		 ORDER BY CASE m.role WHEN 'admin' THEN 0 ELSE 1 END, m.joined_at, u.display_name`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, *member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

// UpdateMember saves a membership's role, status and joined time.
func (s *SQLiteStore) UpdateMember(ctx context.Context, member *models.Member) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE members SET role = ?, status = ?, joined_at = ?
		 WHERE group_id = ? AND user_id = ?`,
		string(member.Role), string(member.Status), toMillis(member.JoinedAt),
		member.GroupID, member.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	return checkAffected(res, "member", member.UserID)
}

// DeleteMember removes a user's membership in a group.
func (s *SQLiteStore) DeleteMember(ctx context.Context, groupID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM members WHERE group_id = ? AND user_id = ?",
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return checkAffected(res, "member", userID)
}

// CountAdmins counts the admins of a group.
func (s *SQLiteStore) CountAdmins(ctx context.Context, groupID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM members WHERE group_id = ? AND role = ?",
		groupID, string(models.RoleAdmin),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return n, nil
}

// CountMembers counts the seats taken in a group, pending invitations included.
func (s *SQLiteStore) CountMembers(ctx context.Context, groupID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM members WHERE group_id = ? AND status != ?",
		groupID, string(models.MemberStatusInactive),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return n, nil
}

func scanMember(row scanner) (*models.Member, error) {
	member := &models.Member{}
	var (
		role, status string
		joinedAt     int64
	)
	if err := row.Scan(
		&member.ID, &member.GroupID, &member.UserID, &role, &status, &joinedAt,
		&member.DisplayName, &member.Email,
	); err != nil {
		return nil, err
	}

	var err error
	if member.Role, err = models.ParseMemberRole(role); err != nil {
		return nil, fmt.Errorf("invalid member row %s: %w", member.ID, err)
	}
	if member.Status, err = models.ParseMemberStatus(status); err != nil {
		return nil, fmt.Errorf("invalid member row %s: %w", member.ID, err)
	}
	member.JoinedAt = fromMillis(joinedAt)
	return member, nil
}
