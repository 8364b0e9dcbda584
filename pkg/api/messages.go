package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is the public view of an account.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Session is returned by Register and Login.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type Group struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	MonthlyContribution decimal.Decimal `json:"monthly_contribution"`
	TotalMembers        int             `json:"total_members"`
	DurationMonths      int             `json:"duration_months"`
	Status              string          `json:"status"`
	CreatedBy           string          `json:"created_by"`
	CreatedAt           time.Time       `json:"created_at"`

	// Pool is MonthlyContribution × TotalMembers.
	Pool decimal.Decimal `json:"pool"`
}

type Member struct {
	ID          string    `json:"id"`
	GroupID     string    `json:"group_id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	JoinedAt    time.Time `json:"joined_at"`
}

// GroupDetail is a group together with its members.
type GroupDetail struct {
	Group   Group    `json:"group"`
	Members []Member `json:"members"`
}

// MyGroup is a group seen from one member, carrying that member's role.
type MyGroup struct {
	Group  Group  `json:"group"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

type GroupList struct {
	Groups []MyGroup `json:"groups"`
}

type MemberList struct {
	Members []Member `json:"members"`
}

type Auction struct {
	ID          string           `json:"id"`
	GroupID     string           `json:"group_id"`
	GroupName   string           `json:"group_name"`
	RoundNumber int              `json:"round_number"`
	AuctionDate time.Time        `json:"auction_date"`
	Deadline    time.Time        `json:"deadline"`
	Status      string           `json:"status"`
	WinnerID    *string          `json:"winner_id,omitempty"`
	WinnerBid   *decimal.Decimal `json:"winner_bid,omitempty"`
	WinnerName  string           `json:"winner_name,omitempty"`
	WinnerEmail string           `json:"winner_email,omitempty"`
	ClosedAt    *time.Time       `json:"closed_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

type Bid struct {
	ID          string          `json:"id"`
	AuctionID   string          `json:"auction_id"`
	UserID      string          `json:"user_id"`
	BidderName  string          `json:"bidder_name"`
	BidderEmail string          `json:"bidder_email"`
	BidAmount   decimal.Decimal `json:"bid_amount"`
	PlacedAt    time.Time       `json:"placed_at"`
}

// AuctionDetail is an auction with its bids, lowest first, and the pool it is for.
type AuctionDetail struct {
	Auction             Auction         `json:"auction"`
	Bids                []Bid           `json:"bids"`
	MonthlyContribution decimal.Decimal `json:"monthly_contribution"`
	Pool                decimal.Decimal `json:"pool"`
}

type AuctionList struct {
	Auctions []Auction `json:"auctions"`
}

type Payment struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	PayerName        string          `json:"payer_name"`
	GroupID          string          `json:"group_id"`
	AuctionID        *string         `json:"auction_id,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Type             string          `json:"type"`
	Status           string          `json:"status"`
	GatewayOrderID   *string         `json:"gateway_order_id,omitempty"`
	GatewayPaymentID *string         `json:"gateway_payment_id,omitempty"`
	PaidAt           time.Time       `json:"paid_at"`
}

type PaymentList struct {
	Payments []Payment       `json:"payments"`
	Balances []MemberBalance `json:"balances"`
}

// MemberBalance totals one member's completed payments in a group.
type MemberBalance struct {
	UserID      string          `json:"user_id"`
	DisplayName string          `json:"display_name"`
	Contributed decimal.Decimal `json:"contributed"`
	Received    decimal.Decimal `json:"received"`
	Net         decimal.Decimal `json:"net"`
}

// Order is a payment-gateway order the client completes checkout against.
type Order struct {
	OrderID     string          `json:"order_id"`
	PaymentID   string          `json:"payment_id"`
	Amount      decimal.Decimal `json:"amount"`
	AmountMinor int64           `json:"amount_minor"`
	Currency    string          `json:"currency"`
	Receipt     string          `json:"receipt"`
	KeyID       string          `json:"key_id"`
}

type Notification struct {
	ID            string     `json:"id"`
	GroupID       string     `json:"group_id"`
	GroupName     string     `json:"group_name"`
	InvitedByID   string     `json:"invited_by_id"`
	InvitedByName string     `json:"invited_by_name"`
	InvitedUserID string     `json:"invited_user_id"`
	Status        string     `json:"status"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type NotificationList struct {
	Notifications []Notification `json:"notifications"`
}

type PendingCount struct {
	Count int `json:"count"`
}

// Auth requests.

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type GetCurrentUserRequest struct{}

// Group requests.

type CreateGroupRequest struct {
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	MonthlyContribution decimal.Decimal `json:"monthly_contribution"`
	TotalMembers        int             `json:"total_members"`
	DurationMonths      int             `json:"duration_months"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id"`
}

type GetMyGroupsRequest struct{}

// UpdateGroupRequest changes only the fields that are set.
type UpdateGroupRequest struct {
	GroupID             string           `json:"group_id"`
	Name                *string          `json:"name,omitempty"`
	Description         *string          `json:"description,omitempty"`
	MonthlyContribution *decimal.Decimal `json:"monthly_contribution,omitempty"`
	TotalMembers        *int             `json:"total_members,omitempty"`
	DurationMonths      *int             `json:"duration_months,omitempty"`
	Status              *string          `json:"status,omitempty"`
}

type DeleteGroupRequest struct {
	GroupID string `json:"group_id"`
}

// Member requests.

type InviteMemberRequest struct {
	GroupID string `json:"group_id"`
	Email   string `json:"email"`
}

type RemoveMemberRequest struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
}

type LeaveGroupRequest struct {
	GroupID string `json:"group_id"`
}

type UpdateMemberRoleRequest struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
}

type ListMembersRequest struct {
	GroupID string `json:"group_id"`
}

// Auction requests.

type CreateAuctionRequest struct {
	GroupID     string    `json:"group_id"`
	RoundNumber int       `json:"round_number"`
	AuctionDate time.Time `json:"auction_date"`
	Deadline    time.Time `json:"deadline"`
}

type PlaceBidRequest struct {
	AuctionID string          `json:"auction_id"`
	BidAmount decimal.Decimal `json:"bid_amount"`
}

type CloseAuctionRequest struct {
	AuctionID string `json:"auction_id"`
}

type SettleAuctionRequest struct {
	AuctionID string `json:"auction_id"`
}

type GetAuctionDetailsRequest struct {
	AuctionID string `json:"auction_id"`
}

type GetUserAuctionsRequest struct{}

type GetGroupAuctionsRequest struct {
	GroupID string `json:"group_id"`
}

// Payment requests.

type RecordPaymentRequest struct {
	GroupID   string          `json:"group_id"`
	UserID    string          `json:"user_id"`
	AuctionID *string         `json:"auction_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Type      string          `json:"type"`

	// Status defaults to completed.
	Status string `json:"status,omitempty"`
}

type ProcessAuctionPayoutRequest struct {
	AuctionID string `json:"auction_id"`
}

type ListPaymentsRequest struct {
	GroupID string `json:"group_id"`
}

type CreateOrderRequest struct {
	GroupID   string          `json:"group_id"`
	AuctionID *string         `json:"auction_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`

	// Currency defaults to the server's configured currency.
	Currency string `json:"currency,omitempty"`
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// Notification requests.

type ListNotificationsRequest struct{}

type CountPendingRequest struct{}

type RespondToInvitationRequest struct {
	NotificationID string `json:"notification_id"`
	Accept         bool   `json:"accept"`
}

type MarkReadRequest struct {
	NotificationID string `json:"notification_id"`
}

type DeleteNotificationRequest struct {
	NotificationID string `json:"notification_id"`
}
