package service

import (
	"context"
	"testing"

	"github.com/mmynk/chitfund/pkg/api"
)

// pendingInvitation invites u into the group and returns the notification u receives.
func (e *testEnv) pendingInvitation(t *testing.T, admin *testUser, groupID string, u *testUser) api.Notification {
	t.Helper()
	ctx := context.Background()

	resp, err := e.members.InviteMember(ctx, as(admin, &api.InviteMemberRequest{GroupID: groupID, Email: u.Email}))
	mustOK(t, resp, err)

	list, err := e.notifications.ListNotifications(ctx, as(u, &api.ListNotificationsRequest{}))
	for _, n := range mustOK(t, list, err).Notifications {
		if n.GroupID == groupID {
			return n
		}
	}
	t.Fatalf("no invitation for %s", u.Email)
	return api.Notification{}
}

func TestNotifications_ReadAndCount(t *testing.T) {
	env := setupTestServer(t, nil)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	groupID := env.createGroup(t, alice, "100", 2)
	n := env.pendingInvitation(t, alice, groupID, bob)

	if n.GroupName != "Office Chit" || n.InvitedByName != "alice" || n.Status != "pending" {
		t.Errorf("unexpected notification: %+v", n)
	}

	count, err := env.notifications.CountPending(ctx, as(bob, &api.CountPendingRequest{}))
	if got := mustOK(t, count, err).Count; got != 1 {
		t.Errorf("pending: expected 1, got %d", got)
	}

	read, err := env.notifications.MarkRead(ctx, as(bob, &api.MarkReadRequest{NotificationID: n.ID}))
	marked := mustOK(t, read, err)
	if marked.ReadAt == nil {
		t.Error("expected read_at to be set")
	}
	if marked.Status != "pending" {
		t.Errorf("status: reading must not change status, got %s", marked.Status)
	}

	count, err = env.notifications.CountPending(ctx, as(bob, &api.CountPendingRequest{}))
	if got := mustOK(t, count, err).Count; got != 0 {
		t.Errorf("pending after read: expected 0, got %d", got)
	}

	// A read invitation can still be answered.
	answer, err := env.notifications.RespondToInvitation(ctx, as(bob, &api.RespondToInvitationRequest{NotificationID: n.ID, Accept: true}))
	if got := mustOK(t, answer, err).Status; got != "accepted" {
		t.Errorf("status: expected accepted, got %s", got)
	}

	read, err = env.notifications.MarkRead(ctx, as(alice, &api.MarkReadRequest{NotificationID: n.ID}))
	mustFail(t, read, err, "Notification not found")
}

func TestRespondToInvitation(t *testing.T) {
	env := setupTestServer(t, nil)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	carol := env.register(t, "carol")

	groupID := env.createGroup(t, alice, "100", 3)

	t.Run("accept activates membership", func(t *testing.T) {
		n := env.pendingInvitation(t, alice, groupID, bob)

		resp, err := env.notifications.RespondToInvitation(ctx, as(bob, &api.RespondToInvitationRequest{NotificationID: n.ID, Accept: true}))
		mustOK(t, resp, err)

		mine, err := env.groups.GetMyGroups(ctx, as(bob, &api.GetMyGroupsRequest{}))
		groups := mustOK(t, mine, err).Groups
		if len(groups) != 1 || groups[0].Role != "member" || groups[0].Status != "active" {
			t.Errorf("expected active membership, got %+v", groups)
		}

		resp, err = env.notifications.RespondToInvitation(ctx, as(bob, &api.RespondToInvitationRequest{NotificationID: n.ID, Accept: false}))
		mustFail(t, resp, err, "Invitation has already been answered")
	})

	t.Run("decline removes membership", func(t *testing.T) {
		n := env.pendingInvitation(t, alice, groupID, carol)

		resp, err := env.notifications.RespondToInvitation(ctx, as(alice, &api.RespondToInvitationRequest{NotificationID: n.ID, Accept: true}))
		mustFail(t, resp, err, "Notification not found")

		resp, err = env.notifications.RespondToInvitation(ctx, as(carol, &api.RespondToInvitationRequest{NotificationID: n.ID, Accept: false}))
		if got := mustOK(t, resp, err).Status; got != "declined" {
			t.Errorf("status: expected declined, got %s", got)
		}

		list, err := env.members.ListMembers(ctx, as(alice, &api.ListMembersRequest{GroupID: groupID}))
		for _, m := range mustOK(t, list, err).Members {
			if m.UserID == carol.ID {
				t.Errorf("declined invitee still listed: %+v", m)
			}
		}

		// Declining frees the seat for a fresh invitation.
		invite, err := env.members.InviteMember(ctx, as(alice, &api.InviteMemberRequest{GroupID: groupID, Email: carol.Email}))
		mustOK(t, invite, err)
	})

	t.Run("unknown notification", func(t *testing.T) {
		resp, err := env.notifications.RespondToInvitation(ctx, as(bob, &api.RespondToInvitationRequest{NotificationID: "missing", Accept: true}))
		mustFail(t, resp, err, "Notification not found")
	})
}

func TestRespondToInvitation_MembershipGone(t *testing.T) {
	env := setupTestServer(t, nil)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	groupID := env.createGroup(t, alice, "100", 3)
	n := env.pendingInvitation(t, alice, groupID, bob)

	if err := env.store.DeleteMember(ctx, groupID, bob.ID); err != nil {
		t.Fatalf("DeleteMember failed: %v", err)
	}

	answer, err := env.notifications.RespondToInvitation(ctx, as(bob, &api.RespondToInvitationRequest{NotificationID: n.ID, Accept: true}))
	mustFail(t, answer, err, "Invitation is no longer valid")

	count, err := env.notifications.CountPending(ctx, as(bob, &api.CountPendingRequest{}))
	if got := mustOK(t, count, err).Count; got != 0 {
		t.Errorf("pending: expected 0, got %d", got)
	}
	stored, err := env.store.GetNotification(ctx, n.ID)
	if err != nil {
		t.Fatalf("GetNotification failed: %v", err)
	}
	if stored.Status != "declined" {
		t.Errorf("status: expected declined, got %s", stored.Status)
	}
}

func TestDeleteNotification(t *testing.T) {
	env := setupTestServer(t, nil)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	mallory := env.register(t, "mallory")

	groupID := env.createGroup(t, alice, "100", 2)
	n := env.pendingInvitation(t, alice, groupID, bob)

	resp, err := env.notifications.DeleteNotification(ctx, as(mallory, &api.DeleteNotificationRequest{NotificationID: n.ID}))
	mustFail(t, resp, err, "Notification not found")

	// The inviter withdraws the invitation.
	resp, err = env.notifications.DeleteNotification(ctx, as(alice, &api.DeleteNotificationRequest{NotificationID: n.ID}))
	mustOK(t, resp, err)

	list, err := env.notifications.ListNotifications(ctx, as(bob, &api.ListNotificationsRequest{}))
	if got := len(mustOK(t, list, err).Notifications); got != 0 {
		t.Errorf("expected no notifications, got %d", got)
	}

	members, err := env.members.ListMembers(ctx, as(alice, &api.ListMembersRequest{GroupID: groupID}))
	if got := len(mustOK(t, members, err).Members); got != 1 {
		t.Errorf("expected the invited row withdrawn, got %d members", got)
	}
}
