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

const groupColumns = `g.id, g.name, g.description, g.monthly_contribution, g.total_members,
	g.duration_months, g.status, g.created_by, g.created_at`

// CreateGroup persists a new group to the database.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	// Generate ID if not set
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}
	if group.Status == "" {
		group.Status = models.GroupStatusPending
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chit_groups (id, name, description, monthly_contribution, total_members,
			duration_months, status, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.Description, group.MonthlyContribution.String(),
		group.TotalMembers, group.DurationMonths, string(group.Status), group.CreatedBy,
		toMillis(group.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	return nil
}

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+groupColumns+" FROM chit_groups g WHERE g.id = ?",
		groupID,
	)
	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// ListGroupsForUser retrieves the groups a user belongs to with their role in each.
func (s *SQLiteStore) ListGroupsForUser(ctx context.Context, userID string) ([]models.GroupMembership, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+groupColumns+`, m.role, m.status
		 FROM chit_groups g
		 JOIN members m ON m.group_id = g.id
		 WHERE m.user_id = ? AND m.status != ?
		 ORDER BY g.created_at DESC`,
		userID, string(models.MemberStatusInvited),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups for user: %w", err)
	}
	defer rows.Close()

	var memberships []models.GroupMembership
	for rows.Next() {
		var (
			gm                        models.GroupMembership
			groupStatus, role, status string
			createdAt                 int64
		)
		if err := rows.Scan(
			&gm.Group.ID, &gm.Group.Name, &gm.Group.Description, &gm.Group.MonthlyContribution,
			&gm.Group.TotalMembers, &gm.Group.DurationMonths, &groupStatus,
			&gm.Group.CreatedBy, &createdAt, &role, &status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		gm.Group.CreatedAt = fromMillis(createdAt)
		if gm.Group.Status, err = models.ParseGroupStatus(groupStatus); err != nil {
			return nil, fmt.Errorf("invalid group row %s: %w", gm.Group.ID, err)
		}
		if gm.Role, err = models.ParseMemberRole(role); err != nil {
			return nil, fmt.Errorf("invalid member row for group %s: %w", gm.Group.ID, err)
		}
		if gm.Status, err = models.ParseMemberStatus(status); err != nil {
			return nil, fmt.Errorf("invalid member row for group %s: %w", gm.Group.ID, err)
		}
		memberships = append(memberships, gm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	return memberships, nil
}

// UpdateGroup updates the mutable fields of an existing group.
func (s *SQLiteStore) UpdateGroup(ctx context.Context, group *models.Group) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chit_groups
		 SET name = ?, description = ?, monthly_contribution = ?, total_members = ?,
		     duration_months = ?, status = ?
		 WHERE id = ?`,
		group.Name, group.Description, group.MonthlyContribution.String(), group.TotalMembers,
		group.DurationMonths, string(group.Status), group.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	return checkAffected(res, "group", group.ID)
}

// DeleteGroup removes a group by ID. Dependent rows go with it via ON DELETE CASCADE.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, groupID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM chit_groups WHERE id = ?", groupID)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return checkAffected(res, "group", groupID)
}

func scanGroup(row scanner) (*models.Group, error) {
	group := &models.Group{}
	var (
		status    string
		createdAt int64
	)
	if err := row.Scan(
		&group.ID, &group.Name, &group.Description, &group.MonthlyContribution,
		&group.TotalMembers, &group.DurationMonths, &status, &group.CreatedBy, &createdAt,
	); err != nil {
		return nil, err
	}

	var err error
	if group.Status, err = models.ParseGroupStatus(status); err != nil {
		return nil, fmt.Errorf("invalid group row %s: %w", group.ID, err)
	}
	group.CreatedAt = fromMillis(createdAt)
	return group, nil
}
