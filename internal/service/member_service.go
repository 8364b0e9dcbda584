package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage"
	"github.com/mmynk/chitfund/pkg/api"
	"github.com/mmynk/chitfund/pkg/api/apiconnect"
)

var _ apiconnect.MemberServiceHandler = (*MemberService)(nil)

// MemberService manages who belongs to a group and with which role.
type MemberService struct {
	store storage.Store
	now   func() time.Time
}

// NewMemberService creates a MemberService backed by store.
func NewMemberService(store storage.Store) *MemberService {
	return &MemberService{store: store, now: time.Now}
}

// InviteMember adds an invited membership and a pending invitation for the
// user registered under the given email.
func (s *MemberService) InviteMember(ctx context.Context, req *connect.Request[api.InviteMemberRequest]) (*connect.Response[api.Result[api.Member]], error) {
	slog.Info("InviteMember request received", "group_id", req.Msg.GroupID, "email", req.Msg.Email)

	member, err := s.inviteMember(ctx, req.Msg)
	if err != nil {
		return fail[api.Member](err, "Failed to invite member")
	}

	slog.Info("Member invited", "group_id", member.GroupID, "user_id", member.UserID)
	return succeed(toAPIMember(member), "Invitation sent")
}

func (s *MemberService) inviteMember(ctx context.Context, msg *api.InviteMemberRequest) (*models.Member, error) {
	callerID, err := requireCaller(ctx, msgAuthRequired)
	if err != nil {
		return nil, err
	}
	group, err := loadGroup(ctx, s.store, msg.GroupID)
	if err != nil {
		return nil, err
	}
	if _, err := requireAdmin(ctx, s.store, group.ID, callerID, "Permission denied: only admins can invite members"); err != nil {
		return nil, err
	}
	if group.Status == models.GroupStatusCompleted || group.Status == models.GroupStatusCancelled {
		return nil, apperr.Precondition("Group is no longer accepting members")
	}

	email := strings.TrimSpace(msg.Email)
	if email == "" {
		return nil, apperr.Invalid("Email is required")
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, notFound(err, "User not found")
	}

	if _, err := s.store.GetMember(ctx, group.ID, user.ID); err == nil {
		return nil, apperr.AlreadyExists("User is already a member of this group")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	seats, err := s.store.CountMembers(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}
	if seats >= group.TotalMembers {
		return nil, apperr.Precondition("Group is full")
	}

	now := s.now().UTC()
	member := &models.Member{
		GroupID:  group.ID,
		UserID:   user.ID,
		Role:     models.RoleMember,
		Status:   models.MemberStatusInvited,
		JoinedAt: now,
	}
	if err := s.store.AddMember(ctx, member); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, apperr.AlreadyExists("User is already a member of this group")
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	invitation := &models.Notification{
		GroupID:       group.ID,
		InvitedByID:   callerID,
		InvitedUserID: user.ID,
		Status:        models.NotificationStatusPending,
		CreatedAt:     now,
	}
	if err := s.store.CreateNotification(ctx, invitation); err != nil {
		// Without an invitation the invitee could never accept.
		if delErr := s.store.DeleteMember(ctx, group.ID, user.ID); delErr != nil {
			slog.Error("Failed to roll back invited member", "group_id", group.ID, "user_id", user.ID, "error", delErr)
		}
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	member.DisplayName = user.DisplayName
	member.Email = user.Email
	return member, nil
}

// RemoveMember removes a non-admin member from a group. Admins only.
func (s *MemberService) RemoveMember(ctx context.Context, req *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.Result[api.Empty]], error) {
	slog.Info("RemoveMember request received", "group_id", req.Msg.GroupID, "user_id", req.Msg.UserID)

	if err := s.removeMember(ctx, req.Msg); err != nil {
		return fail[api.Empty](err, "Failed to remove member")
	}

	slog.Info("Member removed", "group_id", req.Msg.GroupID, "user_id", req.Msg.UserID)
	return succeed(api.Empty{}, "Member removed")
}

func (s *MemberService) removeMember(ctx context.Context, msg *api.RemoveMemberRequest) error {
	callerID, err := requireCaller(ctx, msgAuthRequired)
	if err != nil {
		return err
	}
	if _, err := loadGroup(ctx, s.store, msg.GroupID); err != nil {
		return err
	}
	if _, err := requireAdmin(ctx, s.store, msg.GroupID, callerID, "Permission denied: only admins can remove members"); err != nil {
		return err
	}

	target, err := s.store.GetMember(ctx, msg.GroupID, msg.UserID)
	if err != nil {
		return notFound(err, "Member not found")
	}
	if target.IsAdmin() {
		return apperr.PermissionDenied("Permission denied: cannot remove an admin")
	}

	if err := s.store.DeleteMember(ctx, msg.GroupID, msg.UserID); err != nil {
		return notFound(err, "Member not found")
	}
	if target.Status == models.MemberStatusInvited {
		if err := withdrawInvitations(ctx, s.store, msg.GroupID, msg.UserID, s.now().UTC()); err != nil {
			return err
		}
	}
	return nil
}

// LeaveGroup removes the caller's own membership. The last admin cannot leave.
func (s *MemberService) LeaveGroup(ctx context.Context, req *connect.Request[api.LeaveGroupRequest]) (*connect.Response[api.Result[api.Empty]], error) {
	slog.Info("LeaveGroup request received", "group_id", req.Msg.GroupID)

	callerID, err := requireCaller(ctx, msgAuthRequired)
	if err != nil {
		return fail[api.Empty](err, "")
	}
	member, err := s.store.GetMember(ctx, req.Msg.GroupID, callerID)
	if err != nil {
		return fail[api.Empty](notFound(err, "Member not found"), "Failed to leave group")
	}

	if member.IsAdmin() {
		admins, err := s.store.CountAdmins(ctx, req.Msg.GroupID)
		if err != nil {
			return fail[api.Empty](err, "Failed to leave group")
		}
		if admins <= 1 {
			return fail[api.Empty](apperr.Precondition("Cannot leave group: you are the only admin"), "")
		}
	}

	if err := s.store.DeleteMember(ctx, req.Msg.GroupID, callerID); err != nil {
		return fail[api.Empty](notFound(err, "Member not found"), "Failed to leave group")
	}

	slog.Info("Member left group", "group_id", req.Msg.GroupID, "user_id", callerID)
	return succeed(api.Empty{}, "You have left the group")
}

// UpdateMemberRole promotes or demotes a member. Admins only.
func (s *MemberService) UpdateMemberRole(ctx context.Context, req *connect.Request[api.UpdateMemberRoleRequest]) (*connect.Response[api.Result[api.Member]], error) {
	slog.Info("UpdateMemberRole request received",
		"group_id", req.Msg.GroupID,
		"user_id", req.Msg.UserID,
		"role", req.Msg.Role,
	)

	member, err := s.updateMemberRole(ctx, req.Msg)
	if err != nil {
		return fail[api.Member](err, "Failed to update member role")
	}
	return succeed(toAPIMember(member), "Role updated")
}

func (s *MemberService) updateMemberRole(ctx context.Context, msg *api.UpdateMemberRoleRequest) (*models.Member, error) {
	callerID, err := requireCaller(ctx, msgAuthRequired)
	if err != nil {
		return nil, err
	}
	role, err := models.ParseMemberRole(msg.Role)
	if err != nil {
		return nil, apperr.Invalid("Invalid role")
	}
	if _, err := loadGroup(ctx, s.store, msg.GroupID); err != nil {
		return nil, err
	}
	if _, err := requireAdmin(ctx, s.store, msg.GroupID, callerID, "Permission denied: only admins can change roles"); err != nil {
		return nil, err
	}

	target, err := s.store.GetMember(ctx, msg.GroupID, msg.UserID)
	if err != nil {
		return nil, notFound(err, "Member not found")
	}
	if target.Role == role {
		return target, nil
	}

	switch role {
	case models.RoleAdmin:
		if !target.IsActive() {
			return nil, apperr.Precondition("Only active members can become admins")
		}
	case models.RoleMember:
		admins, err := s.store.CountAdmins(ctx, msg.GroupID)
		if err != nil {
			return nil, fmt.Errorf("failed to count admins: %w", err)
		}
		if admins <= 1 {
			return nil, apperr.Precondition("Cannot demote the only admin")
		}
	}

	target.Role = role
	if err := s.store.UpdateMember(ctx, target); err != nil {
		return nil, notFound(err, "Member not found")
	}
	return target, nil
}

// ListMembers lists a group's members, admins first.
func (s *MemberService) ListMembers(ctx context.Context, req *connect.Request[api.ListMembersRequest]) (*connect.Response[api.Result[api.MemberList]], error) {
	callerID, err := requireCaller(ctx, msgAuthRequired)
	if err != nil {
		return fail[api.MemberList](err, "")
	}
	if _, err := loadGroup(ctx, s.store, req.Msg.GroupID); err != nil {
		return fail[api.MemberList](err, "Failed to list members")
	}
	if _, err := requireMember(ctx, s.store, req.Msg.GroupID, callerID); err != nil {
		return fail[api.MemberList](err, "Failed to list members")
	}

	members, err := s.store.ListMembers(ctx, req.Msg.GroupID)
	if err != nil {
		return fail[api.MemberList](err, "Failed to list members")
	}
	return succeed(api.MemberList{Members: toAPIMembers(members)}, "")
}
