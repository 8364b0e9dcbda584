package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/calculator"
	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage"
	"github.com/mmynk/chitfund/pkg/api"
	"github.com/mmynk/chitfund/pkg/api/apiconnect"
)

var _ apiconnect.GroupServiceHandler = (*GroupService)(nil)

// GroupService implements the Connect GroupService
type GroupService struct {
	store storage.Store
	now   func() time.Time
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store, now: time.Now}
}

// CreateGroup creates a group and registers the caller as its admin.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.Result[api.GroupDetail]], error) {
	slog.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"total_members", req.Msg.TotalMembers,
	)

	detail, err := s.createGroup(ctx, req.Msg)
	if err != nil {
		return fail[api.GroupDetail](err, "Failed to create group")
	}

	slog.Info("Group created", "group_id", detail.Group.ID)
	return succeed(detail, "Group created")
}

func (s *GroupService) createGroup(ctx context.Context, msg *api.CreateGroupRequest) (api.GroupDetail, error) {
	userID, err := requireCaller(ctx, msgAuthRequired)
	if err != nil {
		return api.GroupDetail{}, err
	}

	group := &models.Group{
		Name:                strings.TrimSpace(msg.Name),
		Description:         strings.TrimSpace(msg.Description),
		MonthlyContribution: msg.MonthlyContribution,
		TotalMembers:        msg.TotalMembers,
		DurationMonths:      msg.DurationMonths,
		Status:              models.GroupStatusPending,
		CreatedBy:           userID,
		CreatedAt:           s.now().UTC(),
	}
	if err := validateGroup(group); err != nil {
		return api.GroupDetail{}, err
	}

	if err := s.store.CreateGroup(ctx, group); err != nil {
		return api.GroupDetail{}, fmt.Errorf("failed to insert group: %w", err)
	}

	admin := &models.Member{
		GroupID:  group.ID,
		UserID:   userID,
		Role:     models.RoleAdmin,
		Status:   models.MemberStatusActive,
		JoinedAt: group.CreatedAt,
	}
	if err := s.store.AddMember(ctx, admin); err != nil {
		// A group without an admin is unreachable, so undo the insert.
		if delErr := s.store.DeleteGroup(ctx, group.ID); delErr != nil {
			slog.Error("Failed to roll back group after admin insert failed",
				"group_id", group.ID,
				"error", delErr,
			)
		}
		return api.GroupDetail{}, fmt.Errorf("failed to add creator as admin: %w", err)
	}

	members, err := s.store.ListMembers(ctx, group.ID)
	if err != nil {
		return api.GroupDetail{}, fmt.Errorf("failed to list members: %w", err)
	}
	return api.GroupDetail{Group: toAPIGroup(group), Members: toAPIMembers(members)}, nil
}

func validateGroup(g *models.Group) error {
	switch {
	case g.Name == "":
		return apperr.Invalid("Group name is required")
	case !g.MonthlyContribution.IsPositive():
		return apperr.Invalid("Monthly contribution must be positive")
	case g.TotalMembers < 2:
		return apperr.Invalid("Total members must be at least 2")
	case g.DurationMonths < 1:
		return apperr.Invalid("Duration must be at least 1 month")
	}
	return nil
}

// GetGroup retrieves a group and its members.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.Result[api.GroupDetail]], error) {
	slog.Info("GetGroup request received", "group_id", req.Msg.GroupID)

	detail, err := s.getGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return fail[api.GroupDetail](err, "Failed to load group")
	}
	return succeed(detail, "")
}

func (s *GroupService) getGroup(ctx context.Context, groupID string) (api.GroupDetail, error) {
	userID, err := requireCaller(ctx, msgAuthRequired)
	if err != nil {
		return api.GroupDetail{}, err
	}
	group, err := loadGroup(ctx, s.store, groupID)
	if err != nil {
		return api.GroupDetail{}, err
	}
	if _, err := requireMember(ctx, s.store, groupID, userID); err != nil {
		return api.GroupDetail{}, err
	}

	members, err := s.store.ListMembers(ctx, groupID)
	if err != nil {
		return api.GroupDetail{}, fmt.Errorf("failed to list members: %w", err)
	}
	return api.GroupDetail{Group: toAPIGroup(group), Members: toAPIMembers(members)}, nil
}

// GetMyGroups lists the groups the caller belongs to, newest first.
func (s *GroupService) GetMyGroups(ctx context.Context, req *connect.Request[api.GetMyGroupsRequest]) (*connect.Response[api.Result[api.GroupList]], error) {
	userID, err := requireCaller(ctx, msgAuthRequired)
	if err != nil {
		return fail[api.GroupList](err, "Failed to load groups")
	}

	memberships, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		return fail[api.GroupList](err, "Failed to load groups")
	}

	groups := make([]api.MyGroup, len(memberships))
	for i := range memberships {
		groups[i] = api.MyGroup{
			Group:  toAPIGroup(&memberships[i].Group),
			Role:   string(memberships[i].Role),
			Status: string(memberships[i].Status),
		}
	}

	slog.Info("GetMyGroups successful", "user_id", userID, "count", len(groups))
	return succeed(api.GroupList{Groups: groups}, "")
}

// UpdateGroup changes a group's details or status. Admins only.
func (s *GroupService) UpdateGroup(ctx context.Context, req *connect.Request[api.UpdateGroupRequest]) (*connect.Response[api.Result[api.Group]], error) {
	slog.Info("UpdateGroup request received", "group_id", req.Msg.GroupID)

	group, err := s.updateGroup(ctx, req.Msg)
	if err != nil {
		return fail[api.Group](err, "Failed to update group")
	}

	slog.Info("Group updated", "group_id", group.ID, "status", group.Status)
	return succeed(toAPIGroup(group), "Group updated")
}

func (s *GroupService) updateGroup(ctx context.Context, msg *api.UpdateGroupRequest) (*models.Group, error) {
	userID, err := requireCaller(ctx, msgAuthRequired)
	if err != nil {
		return nil, err
	}
	group, err := loadGroup(ctx, s.store, msg.GroupID)
	if err != nil {
		return nil, err
	}
	if _, err := requireAdmin(ctx, s.store, group.ID, userID, "Permission denied: only admins can update the group"); err != nil {
		return nil, err
	}

	if msg.Name != nil {
		group.Name = strings.TrimSpace(*msg.Name)
	}
	if msg.Description != nil {
		group.Description = strings.TrimSpace(*msg.Description)
	}
	if msg.MonthlyContribution != nil {
		group.MonthlyContribution = *msg.MonthlyContribution
	}
	if msg.DurationMonths != nil {
		group.DurationMonths = *msg.DurationMonths
	}
	if msg.TotalMembers != nil {
		seats, err := s.store.CountMembers(ctx, group.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count members: %w", err)
		}
		if *msg.TotalMembers < seats {
			return nil, apperr.Precondition("Total members cannot be less than the current member count")
		}
		group.TotalMembers = *msg.TotalMembers
	}
	if err := validateGroup(group); err != nil {
		return nil, err
	}
	if msg.MonthlyContribution != nil || msg.TotalMembers != nil {
		if err := s.checkUnpaidWinners(ctx, group); err != nil {
			return nil, err
		}
	}

	if msg.Status != nil {
		next, err := models.ParseGroupStatus(*msg.Status)
		if err != nil {
			return nil, apperr.Invalid("Invalid group status")
		}
		if !calculator.CanTransitionGroup(group.Status, next) {
			return nil, apperr.Precondition("Invalid status transition")
		}
		group.Status = next
	}

	if err := s.store.UpdateGroup(ctx, group); err != nil {
		return nil, notFound(err, msgGroupMissing)
	}
	return group, nil
}

// checkUnpaidWinners rejects a pool that would no longer cover the winning
// bid of a closed auction whose payout has not been made.
func (s *GroupService) checkUnpaidWinners(ctx context.Context, group *models.Group) error {
	auctions, err := s.store.ListAuctionsByGroup(ctx, group.ID)
	if err != nil {
		return fmt.Errorf("failed to list auctions: %w", err)
	}
	payments, err := s.store.ListPaymentsByGroup(ctx, group.ID)
	if err != nil {
		return fmt.Errorf("failed to list payments: %w", err)
	}
	paid := make(map[string]bool)
	for _, p := range payments {
		if p.Type == models.PaymentTypePayout && p.AuctionID != nil {
			paid[*p.AuctionID] = true
		}
	}

	pool := poolOf(group)
	for _, a := range auctions {
		if a.Status != models.AuctionStatusClosed || a.WinnerBid == nil || paid[a.ID] {
			continue
		}
		if a.WinnerBid.GreaterThan(pool) {
			return apperr.Precondition("Pool cannot drop below an unpaid winning bid")
		}
	}
	return nil
}

// DeleteGroup removes a group and everything in it. Only the creator may delete.
func (s *GroupService) DeleteGroup(ctx context.Context, req *connect.Request[api.DeleteGroupRequest]) (*connect.Response[api.Result[api.Empty]], error) {
	slog.Info("DeleteGroup request received", "group_id", req.Msg.GroupID)

	userID, err := requireCaller(ctx, msgAuthRequired)
	if err != nil {
		return fail[api.Empty](err, "Failed to delete group")
	}
	group, err := loadGroup(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return fail[api.Empty](err, "Failed to delete group")
	}
	if group.CreatedBy != userID {
		return fail[api.Empty](apperr.PermissionDenied("Permission denied: only the group creator can delete the group"), "")
	}

	if err := s.store.DeleteGroup(ctx, group.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fail[api.Empty](apperr.NotFound(msgGroupMissing), "")
		}
		return fail[api.Empty](err, "Failed to delete group")
	}

	slog.Info("Group deleted", "group_id", group.ID)
	return succeed(api.Empty{}, "Group deleted")
}

// poolOf is the amount auctioned each round in a group.
func poolOf(g *models.Group) decimal.Decimal {
	return calculator.Pool(g.MonthlyContribution, g.TotalMembers)
}
