package apiconnect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/chitfund/pkg/api"
)

const AuctionServiceName = PackageName + ".AuctionService"

const (
	AuctionServiceCreateAuctionProcedure     = "/" + AuctionServiceName + "/CreateAuction"
	AuctionServicePlaceBidProcedure          = "/" + AuctionServiceName + "/PlaceBid"
	AuctionServiceCloseAuctionProcedure      = "/" + AuctionServiceName + "/CloseAuction"
	AuctionServiceSettleAuctionProcedure     = "/" + AuctionServiceName + "/SettleAuction"
	AuctionServiceGetAuctionDetailsProcedure = "/" + AuctionServiceName + "/GetAuctionDetails"
	AuctionServiceGetUserAuctionsProcedure   = "/" + AuctionServiceName + "/GetUserAuctions"
	AuctionServiceGetGroupAuctionsProcedure  = "/" + AuctionServiceName + "/GetGroupAuctions"
)

// AuctionServiceHandler is implemented by the auction service.
type AuctionServiceHandler interface {
	CreateAuction(context.Context, *connect.Request[api.CreateAuctionRequest]) (*connect.Response[api.Result[api.Auction]], error)
	PlaceBid(context.Context, *connect.Request[api.PlaceBidRequest]) (*connect.Response[api.Result[api.Bid]], error)
	CloseAuction(context.Context, *connect.Request[api.CloseAuctionRequest]) (*connect.Response[api.Result[api.Auction]], error)
	SettleAuction(context.Context, *connect.Request[api.SettleAuctionRequest]) (*connect.Response[api.Result[api.Auction]], error)
	GetAuctionDetails(context.Context, *connect.Request[api.GetAuctionDetailsRequest]) (*connect.Response[api.Result[api.AuctionDetail]], error)
	GetUserAuctions(context.Context, *connect.Request[api.GetUserAuctionsRequest]) (*connect.Response[api.Result[api.AuctionList]], error)
	GetGroupAuctions(context.Context, *connect.Request[api.GetGroupAuctionsRequest]) (*connect.Response[api.Result[api.AuctionList]], error)
}

// NewAuctionServiceHandler returns the mount path and handler for the auction service.
func NewAuctionServiceHandler(svc AuctionServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return serviceHandler(AuctionServiceName, map[string]http.Handler{
		AuctionServiceCreateAuctionProcedure:     connect.NewUnaryHandler(AuctionServiceCreateAuctionProcedure, svc.CreateAuction, opts...),
		AuctionServicePlaceBidProcedure:          connect.NewUnaryHandler(AuctionServicePlaceBidProcedure, svc.PlaceBid, opts...),
		AuctionServiceCloseAuctionProcedure:      connect.NewUnaryHandler(AuctionServiceCloseAuctionProcedure, svc.CloseAuction, opts...),
		AuctionServiceSettleAuctionProcedure:     connect.NewUnaryHandler(AuctionServiceSettleAuctionProcedure, svc.SettleAuction, opts...),
		AuctionServiceGetAuctionDetailsProcedure: connect.NewUnaryHandler(AuctionServiceGetAuctionDetailsProcedure, svc.GetAuctionDetails, opts...),
		AuctionServiceGetUserAuctionsProcedure:   connect.NewUnaryHandler(AuctionServiceGetUserAuctionsProcedure, svc.GetUserAuctions, opts...),
		AuctionServiceGetGroupAuctionsProcedure:  connect.NewUnaryHandler(AuctionServiceGetGroupAuctionsProcedure, svc.GetGroupAuctions, opts...),
	})
}

// AuctionServiceClient is a client for the auction service.
type AuctionServiceClient interface {
	AuctionServiceHandler
}

// NewAuctionServiceClient constructs a client for the auction service at baseURL.
func NewAuctionServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) AuctionServiceClient {
	opts = clientOptions(opts)
	return &auctionServiceClient{
		createAuction:     connect.NewClient[api.CreateAuctionRequest, api.Result[api.Auction]](httpClient, procedureURL(baseURL, AuctionServiceCreateAuctionProcedure), opts...),
		placeBid:          connect.NewClient[api.PlaceBidRequest, api.Result[api.Bid]](httpClient, procedureURL(baseURL, AuctionServicePlaceBidProcedure), opts...),
		closeAuction:      connect.NewClient[api.CloseAuctionRequest, api.Result[api.Auction]](httpClient, procedureURL(baseURL, AuctionServiceCloseAuctionProcedure), opts...),
		settleAuction:     connect.NewClient[api.SettleAuctionRequest, api.Result[api.Auction]](httpClient, procedureURL(baseURL, AuctionServiceSettleAuctionProcedure), opts...),
		getAuctionDetails: connect.NewClient[api.GetAuctionDetailsRequest, api.Result[api.AuctionDetail]](httpClient, procedureURL(baseURL, AuctionServiceGetAuctionDetailsProcedure), opts...),
		getUserAuctions:   connect.NewClient[api.GetUserAuctionsRequest, api.Result[api.AuctionList]](httpClient, procedureURL(baseURL, AuctionServiceGetUserAuctionsProcedure), opts...),
		getGroupAuctions:  connect.NewClient[api.GetGroupAuctionsRequest, api.Result[api.AuctionList]](httpClient, procedureURL(baseURL, AuctionServiceGetGroupAuctionsProcedure), opts...),
	}
}

type auctionServiceClient struct {
	createAuction     *connect.Client[api.CreateAuctionRequest, api.Result[api.Auction]]
	placeBid          *connect.Client[api.PlaceBidRequest, api.Result[api.Bid]]
	closeAuction      *connect.Client[api.CloseAuctionRequest, api.Result[api.Auction]]
	settleAuction     *connect.Client[api.SettleAuctionRequest, api.Result[api.Auction]]
	getAuctionDetails *connect.Client[api.GetAuctionDetailsRequest, api.Result[api.AuctionDetail]]
	getUserAuctions   *connect.Client[api.GetUserAuctionsRequest, api.Result[api.AuctionList]]
	getGroupAuctions  *connect.Client[api.GetGroupAuctionsRequest, api.Result[api.AuctionList]]
}

func (c *auctionServiceClient) CreateAuction(ctx context.Context, req *connect.Request[api.CreateAuctionRequest]) (*connect.Response[api.Result[api.Auction]], error) {
	return c.createAuction.CallUnary(ctx, req)
}

func (c *auctionServiceClient) PlaceBid(ctx context.Context, req *connect.Request[api.PlaceBidRequest]) (*connect.Response[api.Result[api.Bid]], error) {
	return c.placeBid.CallUnary(ctx, req)
}

func (c *auctionServiceClient) CloseAuction(ctx context.Context, req *connect.Request[api.CloseAuctionRequest]) (*connect.Response[api.Result[api.Auction]], error) {
	return c.closeAuction.CallUnary(ctx, req)
}

func (c *auctionServiceClient) SettleAuction(ctx context.Context, req *connect.Request[api.SettleAuctionRequest]) (*connect.Response[api.Result[api.Auction]], error) {
	return c.settleAuction.CallUnary(ctx, req)
}

func (c *auctionServiceClient) GetAuctionDetails(ctx context.Context, req *connect.Request[api.GetAuctionDetailsRequest]) (*connect.Response[api.Result[api.AuctionDetail]], error) {
	return c.getAuctionDetails.CallUnary(ctx, req)
}

func (c *auctionServiceClient) GetUserAuctions(ctx context.Context, req *connect.Request[api.GetUserAuctionsRequest]) (*connect.Response[api.Result[api.AuctionList]], error) {
	return c.getUserAuctions.CallUnary(ctx, req)
}

func (c *auctionServiceClient) GetGroupAuctions(ctx context.Context, req *connect.Request[api.GetGroupAuctionsRequest]) (*connect.Response[api.Result[api.AuctionList]], error) {
	return c.getGroupAuctions.CallUnary(ctx, req)
}
