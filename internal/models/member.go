package models

import (
	"fmt"
	"time"
)

// MemberRole is a member's permission level within a group.
type MemberRole string

const (
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

// ParseMemberRole converts a stored or requested value into a MemberRole.
func ParseMemberRole(s string) (MemberRole, error) {
	switch r := MemberRole(s); r {
	case RoleAdmin, RoleMember:
		return r, nil
	}
	return "", fmt.Errorf("unknown member role %q", s)
}

// MemberStatus tracks whether a membership is pending, live or lapsed.
type MemberStatus string

const (
	MemberStatusInvited  MemberStatus = "invited"
	MemberStatusActive   MemberStatus = "active"
	MemberStatusInactive MemberStatus = "inactive"
)

// ParseMemberStatus converts a stored value into a MemberStatus.
func ParseMemberStatus(s string) (MemberStatus, error) {
	switch st := MemberStatus(s); st {
	case MemberStatusInvited, MemberStatusActive, MemberStatusInactive:
		return st, nil
	}
	return "", fmt.Errorf("unknown member status %q", s)
}

// Member links a user to a group.
type Member struct {
	ID      string
	GroupID string
	UserID  string
	Role    MemberRole
	Status  MemberStatus

	// JoinedAt is set when the membership becomes active.
	// Invited members carry the invitation time until they accept.
	JoinedAt time.Time

	// DisplayName and Email are joined from the users table on reads.
	DisplayName string
	Email       string
}

// IsAdmin reports whether the member holds the admin role.
func (m *Member) IsAdmin() bool {
	return m.Role == RoleAdmin
}

// IsActive reports whether the member has accepted and not lapsed.
func (m *Member) IsActive() bool {
	return m.Status == MemberStatusActive
}
