package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage"
	"github.com/mmynk/chitfund/pkg/api"
	"github.com/mmynk/chitfund/pkg/api/apiconnect"
)

var _ apiconnect.NotificationServiceHandler = (*NotificationService)(nil)

const msgNotificationGone = "Notification not found"

// NotificationService manages group invitations from the invitee's side.
type NotificationService struct {
	store storage.Store
	now   func() time.Time
}

// NewNotificationService creates a NotificationService backed by store.
func NewNotificationService(store storage.Store) *NotificationService {
	return &NotificationService{store: store, now: time.Now}
}

// ListNotifications returns the caller's invitations, newest first.
func (s *NotificationService) ListNotifications(ctx context.Context, req *connect.Request[api.ListNotificationsRequest]) (*connect.Response[api.Result[api.NotificationList]], error) {
	callerID, err := requireCaller(ctx, msgUnauthorized)
	if err != nil {
		return fail[api.NotificationList](err, "")
	}
	notifications, err := s.store.ListNotificationsForUser(ctx, callerID)
	if err != nil {
		return fail[api.NotificationList](err, "Failed to load notifications")
	}

	out := make([]api.Notification, len(notifications))
	for i := range notifications {
		out[i] = toAPINotification(&notifications[i])
	}
	return succeed(api.NotificationList{Notifications: out}, "")
}

// CountPending returns how many unread invitations await the caller.
func (s *NotificationService) CountPending(ctx context.Context, req *connect.Request[api.CountPendingRequest]) (*connect.Response[api.Result[api.PendingCount]], error) {
	callerID, err := requireCaller(ctx, msgUnauthorized)
	if err != nil {
		return fail[api.PendingCount](err, "")
	}
	count, err := s.store.CountPendingForUser(ctx, callerID)
	if err != nil {
		return fail[api.PendingCount](err, "Failed to count notifications")
	}
	return succeed(api.PendingCount{Count: count}, "")
}

// RespondToInvitation accepts or declines a pending invitation.
// Accepting activates the membership; declining removes it.
func (s *NotificationService) RespondToInvitation(ctx context.Context, req *connect.Request[api.RespondToInvitationRequest]) (*connect.Response[api.Result[api.Notification]], error) {
	slog.Info("RespondToInvitation request received",
		"notification_id", req.Msg.NotificationID,
		"accept", req.Msg.Accept,
	)

	n, err := s.respond(ctx, req.Msg)
	if err != nil {
		return fail[api.Notification](err, "Failed to respond to invitation")
	}

	slog.Info("Invitation answered", "notification_id", n.ID, "group_id", n.GroupID, "status", n.Status)
	if req.Msg.Accept {
		return succeed(toAPINotification(n), "Invitation accepted")
	}
	return succeed(toAPINotification(n), "Invitation declined")
}

func (s *NotificationService) respond(ctx context.Context, msg *api.RespondToInvitationRequest) (*models.Notification, error) {
	callerID, err := requireCaller(ctx, msgUnauthorized)
	if err != nil {
		return nil, err
	}
	n, err := s.loadOwn(ctx, msg.NotificationID, callerID)
	if err != nil {
		return nil, err
	}
	if !n.IsPending() {
		return nil, apperr.Precondition("Invitation has already been answered")
	}

	now := s.now().UTC()
	member, err := s.store.GetMember(ctx, n.GroupID, callerID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && member.Status != models.MemberStatusInvited) {
		// The admin withdrew the invitation after sending it.
		if err := declineNotification(ctx, s.store, n, now); err != nil {
			return nil, err
		}
		return nil, apperr.Precondition("Invitation is no longer valid")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load invited member: %w", err)
	}

	if msg.Accept {
		member.Status = models.MemberStatusActive
		member.JoinedAt = now
		if err := s.store.UpdateMember(ctx, member); err != nil {
			return nil, fmt.Errorf("failed to activate member: %w", err)
		}
		n.Status = models.NotificationStatusAccepted
	} else {
		if err := s.store.DeleteMember(ctx, n.GroupID, callerID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("failed to remove invited member: %w", err)
		}
		n.Status = models.NotificationStatusDeclined
	}

	if n.ReadAt == nil {
		n.ReadAt = &now
	}
	if err := s.store.UpdateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to update notification: %w", err)
	}
	return n, nil
}

// declineNotification closes a pending invitation whose membership is gone.
func declineNotification(ctx context.Context, store storage.Store, n *models.Notification, at time.Time) error {
	n.Status = models.NotificationStatusDeclined
	if n.ReadAt == nil {
		n.ReadAt = &at
	}
	if err := store.UpdateNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to decline notification %s: %w", n.ID, err)
	}
	return nil
}

// withdrawInvitations declines the pending invitations of a user to a group.
func withdrawInvitations(ctx context.Context, store storage.Store, groupID, userID string, at time.Time) error {
	notifications, err := store.ListNotificationsForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list notifications: %w", err)
	}
	for i := range notifications {
		n := &notifications[i]
		if n.GroupID != groupID || !n.IsPending() {
			continue
		}
		if err := declineNotification(ctx, store, n, at); err != nil {
			return err
		}
	}
	return nil
}

// MarkRead records that the caller has seen a notification. Status is unchanged.
func (s *NotificationService) MarkRead(ctx context.Context, req *connect.Request[api.MarkReadRequest]) (*connect.Response[api.Result[api.Notification]], error) {
	callerID, err := requireCaller(ctx, msgUnauthorized)
	if err != nil {
		return fail[api.Notification](err, "")
	}
	n, err := s.loadOwn(ctx, req.Msg.NotificationID, callerID)
	if err != nil {
		return fail[api.Notification](err, "Failed to mark notification read")
	}
	if n.ReadAt != nil {
		return succeed(toAPINotification(n), "")
	}

	now := s.now().UTC()
	n.ReadAt = &now
	if err := s.store.UpdateNotification(ctx, n); err != nil {
		return fail[api.Notification](err, "Failed to mark notification read")
	}
	return succeed(toAPINotification(n), "Notification marked as read")
}

// DeleteNotification removes a notification. Either the invitee or the
// inviter may delete it; deleting a pending invitation withdraws it.
func (s *NotificationService) DeleteNotification(ctx context.Context, req *connect.Request[api.DeleteNotificationRequest]) (*connect.Response[api.Result[api.Empty]], error) {
	slog.Info("DeleteNotification request received", "notification_id", req.Msg.NotificationID)

	if err := s.deleteNotification(ctx, req.Msg.NotificationID); err != nil {
		return fail[api.Empty](err, "Failed to delete notification")
	}
	return succeed(api.Empty{}, "Notification deleted")
}

func (s *NotificationService) deleteNotification(ctx context.Context, notificationID string) error {
	callerID, err := requireCaller(ctx, msgUnauthorized)
	if err != nil {
		return err
	}
	n, err := s.load(ctx, notificationID)
	if err != nil {
		return err
	}
	if callerID != n.InvitedUserID && callerID != n.InvitedByID {
		return apperr.NotFound(msgNotificationGone)
	}

	if n.IsPending() {
		member, err := s.store.GetMember(ctx, n.GroupID, n.InvitedUserID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			return fmt.Errorf("failed to load invited member: %w", err)
		case member.Status == models.MemberStatusInvited:
			if err := s.store.DeleteMember(ctx, n.GroupID, n.InvitedUserID); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("failed to withdraw invitation: %w", err)
			}
		}
	}

	if err := s.store.DeleteNotification(ctx, n.ID); err != nil {
		return notFound(err, msgNotificationGone)
	}
	return nil
}

func (s *NotificationService) load(ctx context.Context, notificationID string) (*models.Notification, error) {
	if notificationID == "" {
		return nil, apperr.Invalid("notification_id is required")
	}
	n, err := s.store.GetNotification(ctx, notificationID)
	if err != nil {
		return nil, notFound(err, msgNotificationGone)
	}
	return n, nil
}

// loadOwn loads a notification addressed to userID. Other users' notifications
// are reported as missing.
func (s *NotificationService) loadOwn(ctx context.Context, notificationID, userID string) (*models.Notification, error) {
	n, err := s.load(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.InvitedUserID != userID {
		return nil, apperr.NotFound(msgNotificationGone)
	}
	return n, nil
}
