package service

import (
	"github.com/mmynk/chitfund/internal/calculator"
	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/pkg/api"
)

func toAPIUser(u *models.User) api.User {
	return api.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

func toAPIGroup(g *models.Group) api.Group {
	return api.Group{
		ID:                  g.ID,
		Name:                g.Name,
		Description:         g.Description,
		MonthlyContribution: g.MonthlyContribution,
		TotalMembers:        g.TotalMembers,
		DurationMonths:      g.DurationMonths,
		Status:              string(g.Status),
		CreatedBy:           g.CreatedBy,
		CreatedAt:           g.CreatedAt,
		Pool:                g.Pool(),
	}
}

func toAPIMember(m *models.Member) api.Member {
	return api.Member{
		ID:          m.ID,
		GroupID:     m.GroupID,
		UserID:      m.UserID,
		DisplayName: m.DisplayName,
		Email:       m.Email,
		Role:        string(m.Role),
		Status:      string(m.Status),
		JoinedAt:    m.JoinedAt,
	}
}

func toAPIMembers(members []models.Member) []api.Member {
	out := make([]api.Member, len(members))
	for i := range members {
		out[i] = toAPIMember(&members[i])
	}
	return out
}

func toAPIAuction(a *models.Auction) api.Auction {
	return api.Auction{
		ID:          a.ID,
		GroupID:     a.GroupID,
		GroupName:   a.GroupName,
		RoundNumber: a.RoundNumber,
		AuctionDate: a.AuctionDate,
		Deadline:    a.Deadline,
		Status:      string(a.Status),
		WinnerID:    a.WinnerID,
		WinnerBid:   a.WinnerBid,
		WinnerName:  a.WinnerName,
		WinnerEmail: a.WinnerEmail,
		ClosedAt:    a.ClosedAt,
		CreatedAt:   a.CreatedAt,
	}
}

func toAPIAuctions(auctions []models.Auction) []api.Auction {
	out := make([]api.Auction, len(auctions))
	for i := range auctions {
		out[i] = toAPIAuction(&auctions[i])
	}
	return out
}

func toAPIBid(b *models.Bid) api.Bid {
	return api.Bid{
		ID:          b.ID,
		AuctionID:   b.AuctionID,
		UserID:      b.UserID,
		BidderName:  b.BidderName,
		BidderEmail: b.BidderEmail,
		BidAmount:   b.BidAmount,
		PlacedAt:    b.PlacedAt,
	}
}

func toAPIPayment(p *models.Payment) api.Payment {
	return api.Payment{
		ID:               p.ID,
		UserID:           p.UserID,
		PayerName:        p.PayerName,
		GroupID:          p.GroupID,
		AuctionID:        p.AuctionID,
		Amount:           p.Amount,
		Type:             string(p.Type),
		Status:           string(p.Status),
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: p.GatewayPaymentID,
		PaidAt:           p.PaidAt,
	}
}

func toAPINotification(n *models.Notification) api.Notification {
	return api.Notification{
		ID:            n.ID,
		GroupID:       n.GroupID,
		GroupName:     n.GroupName,
		InvitedByID:   n.InvitedByID,
		InvitedByName: n.InvitedByName,
		InvitedUserID: n.InvitedUserID,
		Status:        string(n.Status),
		ReadAt:        n.ReadAt,
		CreatedAt:     n.CreatedAt,
	}
}

func toAPIBalances(balances []calculator.MemberBalance) []api.MemberBalance {
	out := make([]api.MemberBalance, len(balances))
	for i, b := range balances {
		out[i] = api.MemberBalance{
			UserID:      b.UserID,
			DisplayName: b.DisplayName,
			Contributed: b.Contributed,
			Received:    b.Received,
			Net:         b.Net,
		}
	}
	return out
}
