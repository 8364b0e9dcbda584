package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/middleware"
	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage"
	"github.com/mmynk/chitfund/pkg/api"
)

const (
	msgUnauthorized = "Unauthorized"
	msgAuthRequired = "Authentication required"
	msgNotMember    = "Permission denied: not a member of this group"
	msgGroupMissing = "Group not found"
	msgAuctionGone  = "Auction not found"
)

// succeed wraps data in a successful envelope.
func succeed[T any](data T, message string) (*connect.Response[api.Result[T]], error) {
	return connect.NewResponse(&api.Result[T]{
		Success: true,
		Message: message,
		Data:    data,
	}), nil
}

// fail wraps err in a failed envelope. Errors without a code are logged and
// replaced by fallback so storage details never reach the caller.
func fail[T any](err error, fallback string) (*connect.Response[api.Result[T]], error) {
	code := apperr.CodeOf(err)
	if code == apperr.CodeInternal {
		slog.Error(fallback, "error", err)
	}
	return connect.NewResponse(&api.Result[T]{
		Success: false,
		Error:   apperr.MessageOf(err, fallback),
		Code:    string(code),
	}), nil
}

// requireCaller returns the authenticated user ID, or an unauthenticated
// error carrying message.
func requireCaller(ctx context.Context, message string) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", apperr.Unauthenticated(message)
	}
	return userID, nil
}

// notFound maps storage.ErrNotFound onto a coded not-found error.
func notFound(err error, message string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(message)
	}
	return err
}

func loadGroup(ctx context.Context, groups storage.GroupStore, groupID string) (*models.Group, error) {
	if groupID == "" {
		return nil, apperr.Invalid("group_id is required")
	}
	group, err := groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, notFound(err, msgGroupMissing)
	}
	return group, nil
}

func loadAuction(ctx context.Context, auctions storage.AuctionStore, auctionID string) (*models.Auction, error) {
	if auctionID == "" {
		return nil, apperr.Invalid("auction_id is required")
	}
	auction, err := auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, notFound(err, msgAuctionGone)
	}
	return auction, nil
}

// requireMember returns the caller's active membership in a group.
func requireMember(ctx context.Context, members storage.MemberStore, groupID, userID string) (*models.Member, error) {
	member, err := members.GetMember(ctx, groupID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.PermissionDenied(msgNotMember)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	if !member.IsActive() {
		return nil, apperr.PermissionDenied(msgNotMember)
	}
	return member, nil
}

// requireAdmin returns the caller's membership if it is an active admin.
// Non-admins get a permission error carrying message.
func requireAdmin(ctx context.Context, members storage.MemberStore, groupID, userID, message string) (*models.Member, error) {
	member, err := requireMember(ctx, members, groupID, userID)
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodePermissionDenied {
			return nil, apperr.PermissionDenied(message)
		}
		return nil, err
	}
	if !member.IsAdmin() {
		return nil, apperr.PermissionDenied(message)
	}
	return member, nil
}
