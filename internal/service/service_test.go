package service

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/chitfund/internal/auth"
	"github.com/mmynk/chitfund/internal/metrics"
	"github.com/mmynk/chitfund/internal/middleware"
	"github.com/mmynk/chitfund/internal/storage/sqlite"
	"github.com/mmynk/chitfund/pkg/api"
	"github.com/mmynk/chitfund/pkg/api/apiconnect"
)

// testEnv serves every service over httptest with the real auth middleware.
type testEnv struct {
	store   *sqlite.SQLiteStore
	metrics *metrics.Metrics

	auctionSvc *AuctionService
	clock      *testClock

	auth          apiconnect.AuthServiceClient
	groups        apiconnect.GroupServiceClient
	members       apiconnect.MemberServiceClient
	auctions      apiconnect.AuctionServiceClient
	payments      apiconnect.PaymentServiceClient
	notifications apiconnect.NotificationServiceClient
}

type testUser struct {
	ID    string
	Email string
	Token string
}

func setupTestServer(t *testing.T, gw Gateway) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "chitfund.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
	m := metrics.New(prometheus.NewRegistry())

	env := &testEnv{
		store:      store,
		metrics:    m,
		auctionSvc: NewAuctionService(store, m),
		clock:      &testClock{},
	}
	env.auctionSvc.now = env.clock.Now

	interceptors := connect.WithInterceptors(
		middleware.Authenticate(jwtManager),
		middleware.LoggingInterceptor(),
		middleware.MetricsInterceptor(m),
	)
	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewAuthServiceHandler(NewAuthService(authenticator, jwtManager, store, slog.Default()), interceptors))
	mux.Handle(apiconnect.NewGroupServiceHandler(NewGroupService(store), interceptors))
	mux.Handle(apiconnect.NewMemberServiceHandler(NewMemberService(store), interceptors))
	mux.Handle(apiconnect.NewAuctionServiceHandler(env.auctionSvc, interceptors))
	mux.Handle(apiconnect.NewPaymentServiceHandler(NewPaymentService(store, gw, "INR", m), interceptors))
	mux.Handle(apiconnect.NewNotificationServiceHandler(NewNotificationService(store), interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	env.auth = apiconnect.NewAuthServiceClient(http.DefaultClient, server.URL)
	env.groups = apiconnect.NewGroupServiceClient(http.DefaultClient, server.URL)
	env.members = apiconnect.NewMemberServiceClient(http.DefaultClient, server.URL)
	env.auctions = apiconnect.NewAuctionServiceClient(http.DefaultClient, server.URL)
	env.payments = apiconnect.NewPaymentServiceClient(http.DefaultClient, server.URL)
	env.notifications = apiconnect.NewNotificationServiceClient(http.DefaultClient, server.URL)
	return env
}

// testClock is wall time shifted by an adjustable offset.
type testClock struct {
	mu     sync.Mutex
	offset time.Duration
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Add(c.offset)
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

// as builds a request carrying u's session token. A nil user sends no token.
func as[M any](u *testUser, msg *M) *connect.Request[M] {
	req := connect.NewRequest(msg)
	if u != nil {
		req.Header().Set("Authorization", "Bearer "+u.Token)
	}
	return req
}

func mustOK[T any](t *testing.T, resp *connect.Response[api.Result[T]], err error) T {
	t.Helper()
	if err != nil {
		t.Fatalf("rpc failed: %v", err)
	}
	if !resp.Msg.Success {
		t.Fatalf("expected success, got error %q (code %s)", resp.Msg.Error, resp.Msg.Code)
	}
	return resp.Msg.Data
}

func mustFail[T any](t *testing.T, resp *connect.Response[api.Result[T]], err error, wantError string) {
	t.Helper()
	if err != nil {
		t.Fatalf("rpc failed at transport level: %v", err)
	}
	if resp.Msg.Success {
		t.Fatalf("expected failure %q, got success", wantError)
	}
	if resp.Msg.Error != wantError {
		t.Errorf("error: expected %q, got %q", wantError, resp.Msg.Error)
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (e *testEnv) register(t *testing.T, name string) *testUser {
	t.Helper()
	email := name + "@example.com"
	resp, err := e.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Email:       email,
		DisplayName: name,
		Password:    "password123",
	}))
	session := mustOK(t, resp, err)
	return &testUser{ID: session.User.ID, Email: session.User.Email, Token: session.Token}
}

// createGroup creates a pending group administered by admin.
func (e *testEnv) createGroup(t *testing.T, admin *testUser, contribution string, seats int) string {
	t.Helper()
	resp, err := e.groups.CreateGroup(context.Background(), as(admin, &api.CreateGroupRequest{
		Name:                "Office Chit",
		MonthlyContribution: dec(contribution),
		TotalMembers:        seats,
		DurationMonths:      seats,
	}))
	return mustOK(t, resp, err).Group.ID
}

// join invites u into the group and accepts the invitation on u's behalf.
func (e *testEnv) join(t *testing.T, admin *testUser, groupID string, u *testUser) {
	t.Helper()
	ctx := context.Background()

	resp, err := e.members.InviteMember(ctx, as(admin, &api.InviteMemberRequest{GroupID: groupID, Email: u.Email}))
	mustOK(t, resp, err)

	list, err := e.notifications.ListNotifications(ctx, as(u, &api.ListNotificationsRequest{}))
	for _, n := range mustOK(t, list, err).Notifications {
		if n.GroupID == groupID && n.Status == "pending" {
			answer, err := e.notifications.RespondToInvitation(ctx, as(u, &api.RespondToInvitationRequest{
				NotificationID: n.ID,
				Accept:         true,
			}))
			mustOK(t, answer, err)
			return
		}
	}
	t.Fatalf("no pending invitation for %s in group %s", u.Email, groupID)
}

// activeGroup creates a group, fills it with members and activates it.
func (e *testEnv) activeGroup(t *testing.T, admin *testUser, contribution string, seats int, members ...*testUser) string {
	t.Helper()
	groupID := e.createGroup(t, admin, contribution, seats)
	for _, u := range members {
		e.join(t, admin, groupID, u)
	}

	active := "active"
	resp, err := e.groups.UpdateGroup(context.Background(), as(admin, &api.UpdateGroupRequest{
		GroupID: groupID,
		Status:  &active,
	}))
	mustOK(t, resp, err)
	return groupID
}

// openAuction creates round n with bidding open for the next hour.
func (e *testEnv) openAuction(t *testing.T, admin *testUser, groupID string, round int) api.Auction {
	t.Helper()
	now := time.Now().UTC()
	resp, err := e.auctions.CreateAuction(context.Background(), as(admin, &api.CreateAuctionRequest{
		GroupID:     groupID,
		RoundNumber: round,
		AuctionDate: now.Add(-time.Minute),
		Deadline:    now.Add(time.Hour),
	}))
	return mustOK(t, resp, err)
}

func (e *testEnv) bid(t *testing.T, u *testUser, auctionID, amount string) api.Bid {
	t.Helper()
	resp, err := e.auctions.PlaceBid(context.Background(), as(u, &api.PlaceBidRequest{
		AuctionID: auctionID,
		BidAmount: dec(amount),
	}))
	return mustOK(t, resp, err)
}
