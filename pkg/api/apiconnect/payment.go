package apiconnect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/chitfund/pkg/api"
)

const PaymentServiceName = PackageName + ".PaymentService"

const (
	PaymentServiceRecordPaymentProcedure        = "/" + PaymentServiceName + "/RecordPayment"
	PaymentServiceProcessAuctionPayoutProcedure = "/" + PaymentServiceName + "/ProcessAuctionPayout"
	PaymentServiceListPaymentsProcedure         = "/" + PaymentServiceName + "/ListPayments"
	PaymentServiceCreateOrderProcedure          = "/" + PaymentServiceName + "/CreateOrder"
	PaymentServiceVerifyPaymentProcedure        = "/" + PaymentServiceName + "/VerifyPayment"
)

// PaymentServiceHandler is implemented by the payment service.
type PaymentServiceHandler interface {
	RecordPayment(context.Context, *connect.Request[api.RecordPaymentRequest]) (*connect.Response[api.Result[api.Payment]], error)
	ProcessAuctionPayout(context.Context, *connect.Request[api.ProcessAuctionPayoutRequest]) (*connect.Response[api.Result[api.Payment]], error)
	ListPayments(context.Context, *connect.Request[api.ListPaymentsRequest]) (*connect.Response[api.Result[api.PaymentList]], error)
	CreateOrder(context.Context, *connect.Request[api.CreateOrderRequest]) (*connect.Response[api.Result[api.Order]], error)
	VerifyPayment(context.Context, *connect.Request[api.VerifyPaymentRequest]) (*connect.Response[api.Result[api.Payment]], error)
}

// NewPaymentServiceHandler returns the mount path and handler for the payment service.
func NewPaymentServiceHandler(svc PaymentServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return serviceHandler(PaymentServiceName, map[string]http.Handler{
		PaymentServiceRecordPaymentProcedure:        connect.NewUnaryHandler(PaymentServiceRecordPaymentProcedure, svc.RecordPayment, opts...),
		PaymentServiceProcessAuctionPayoutProcedure: connect.NewUnaryHandler(PaymentServiceProcessAuctionPayoutProcedure, svc.ProcessAuctionPayout, opts...),
		PaymentServiceListPaymentsProcedure:         connect.NewUnaryHandler(PaymentServiceListPaymentsProcedure, svc.ListPayments, opts...),
		PaymentServiceCreateOrderProcedure:          connect.NewUnaryHandler(PaymentServiceCreateOrderProcedure, svc.CreateOrder, opts...),
		PaymentServiceVerifyPaymentProcedure:        connect.NewUnaryHandler(PaymentServiceVerifyPaymentProcedure, svc.VerifyPayment, opts...),
	})
}

// PaymentServiceClient is a client for the payment service.
type PaymentServiceClient interface {
	PaymentServiceHandler
}

// NewPaymentServiceClient constructs a client for the payment service at baseURL.
func NewPaymentServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) PaymentServiceClient {
	opts = clientOptions(opts)
	return &paymentServiceClient{
		recordPayment:        connect.NewClient[api.RecordPaymentRequest, api.Result[api.Payment]](httpClient, procedureURL(baseURL, PaymentServiceRecordPaymentProcedure), opts...),
		processAuctionPayout: connect.NewClient[api.ProcessAuctionPayoutRequest, api.Result[api.Payment]](httpClient, procedureURL(baseURL, PaymentServiceProcessAuctionPayoutProcedure), opts...),
		listPayments:         connect.NewClient[api.ListPaymentsRequest, api.Result[api.PaymentList]](httpClient, procedureURL(baseURL, PaymentServiceListPaymentsProcedure), opts...),
		createOrder:          connect.NewClient[api.CreateOrderRequest, api.Result[api.Order]](httpClient, procedureURL(baseURL, PaymentServiceCreateOrderProcedure), opts...),
		verifyPayment:        connect.NewClient[api.VerifyPaymentRequest, api.Result[api.Payment]](httpClient, procedureURL(baseURL, PaymentServiceVerifyPaymentProcedure), opts...),
	}
}

type paymentServiceClient struct {
	recordPayment        *connect.Client[api.RecordPaymentRequest, api.Result[api.Payment]]
	processAuctionPayout *connect.Client[api.ProcessAuctionPayoutRequest, api.Result[api.Payment]]
	listPayments         *connect.Client[api.ListPaymentsRequest, api.Result[api.PaymentList]]
	createOrder          *connect.Client[api.CreateOrderRequest, api.Result[api.Order]]
	verifyPayment        *connect.Client[api.VerifyPaymentRequest, api.Result[api.Payment]]
}

func (c *paymentServiceClient) RecordPayment(ctx context.Context, req *connect.Request[api.RecordPaymentRequest]) (*connect.Response[api.Result[api.Payment]], error) {
	return c.recordPayment.CallUnary(ctx, req)
}

func (c *paymentServiceClient) ProcessAuctionPayout(ctx context.Context, req *connect.Request[api.ProcessAuctionPayoutRequest]) (*connect.Response[api.Result[api.Payment]], error) {
	return c.processAuctionPayout.CallUnary(ctx, req)
}

func (c *paymentServiceClient) ListPayments(ctx context.Context, req *connect.Request[api.ListPaymentsRequest]) (*connect.Response[api.Result[api.PaymentList]], error) {
	return c.listPayments.CallUnary(ctx, req)
}

func (c *paymentServiceClient) CreateOrder(ctx context.Context, req *connect.Request[api.CreateOrderRequest]) (*connect.Response[api.Result[api.Order]], error) {
	return c.createOrder.CallUnary(ctx, req)
}

func (c *paymentServiceClient) VerifyPayment(ctx context.Context, req *connect.Request[api.VerifyPaymentRequest]) (*connect.Response[api.Result[api.Payment]], error) {
	return c.verifyPayment.CallUnary(ctx, req)
}
