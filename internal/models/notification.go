package models

import (
	"fmt"
	"time"
)

type NotificationStatus string

const (
	NotificationStatusPending  NotificationStatus = "pending"
	NotificationStatusAccepted NotificationStatus = "accepted"
	NotificationStatusDeclined NotificationStatus = "declined"
)

// ParseNotificationStatus converts a stored value into a NotificationStatus.
// "rejected" is accepted as an alias of declined.
func ParseNotificationStatus(s string) (NotificationStatus, error) {
	switch st := NotificationStatus(s); st {
	case NotificationStatusPending, NotificationStatusAccepted, NotificationStatusDeclined:
		return st, nil
	case "rejected":
		return NotificationStatusDeclined, nil
	}
	return "", fmt.Errorf("unknown notification status %q", s)
}

// Notification is an invitation for a user to join a group.
// It moves from pending to accepted or declined exactly once.
type Notification struct {
	ID            string
	GroupID       string
	InvitedByID   string
	InvitedUserID string
	Status        NotificationStatus

	// ReadAt is set when the invitee has seen the notification.
	// Reading does not change Status.
	ReadAt *time.Time

	CreatedAt time.Time

	// Joined on reads.
	GroupName     string
	InvitedByName string
}

// IsPending reports whether the invitation is still awaiting an answer.
func (n *Notification) IsPending() bool {
	return n.Status == NotificationStatusPending
}
