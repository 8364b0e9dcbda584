package apiconnect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/chitfund/pkg/api"
)

const NotificationServiceName = PackageName + ".NotificationService"

const (
	NotificationServiceListNotificationsProcedure   = "/" + NotificationServiceName + "/ListNotifications"
	NotificationServiceCountPendingProcedure        = "/" + NotificationServiceName + "/CountPending"
	NotificationServiceRespondToInvitationProcedure = "/" + NotificationServiceName + "/RespondToInvitation"
	NotificationServiceMarkReadProcedure            = "/" + NotificationServiceName + "/MarkRead"
	NotificationServiceDeleteNotificationProcedure  = "/" + NotificationServiceName + "/DeleteNotification"
)

// NotificationServiceHandler is implemented by the notification service.
type NotificationServiceHandler interface {
	ListNotifications(context.Context, *connect.Request[api.ListNotificationsRequest]) (*connect.Response[api.Result[api.NotificationList]], error)
	CountPending(context.Context, *connect.Request[api.CountPendingRequest]) (*connect.Response[api.Result[api.PendingCount]], error)
	RespondToInvitation(context.Context, *connect.Request[api.RespondToInvitationRequest]) (*connect.Response[api.Result[api.Notification]], error)
	MarkRead(context.Context, *connect.Request[api.MarkReadRequest]) (*connect.Response[api.Result[api.Notification]], error)
	DeleteNotification(context.Context, *connect.Request[api.DeleteNotificationRequest]) (*connect.Response[api.Result[api.Empty]], error)
}

// NewNotificationServiceHandler returns the mount path and handler for the notification service.
func NewNotificationServiceHandler(svc NotificationServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return serviceHandler(NotificationServiceName, map[string]http.Handler{
		NotificationServiceListNotificationsProcedure:   connect.NewUnaryHandler(NotificationServiceListNotificationsProcedure, svc.ListNotifications, opts...),
		NotificationServiceCountPendingProcedure:        connect.NewUnaryHandler(NotificationServiceCountPendingProcedure, svc.CountPending, opts...),
		NotificationServiceRespondToInvitationProcedure: connect.NewUnaryHandler(NotificationServiceRespondToInvitationProcedure, svc.RespondToInvitation, opts...),
		NotificationServiceMarkReadProcedure:            connect.NewUnaryHandler(NotificationServiceMarkReadProcedure, svc.MarkRead, opts...),
		NotificationServiceDeleteNotificationProcedure:  connect.NewUnaryHandler(NotificationServiceDeleteNotificationProcedure, svc.DeleteNotification, opts...),
	})
}

// NotificationServiceClient is a client for the notification service.
type NotificationServiceClient interface {
	NotificationServiceHandler
}

// NewNotificationServiceClient constructs a client for the notification service at baseURL.
func NewNotificationServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) NotificationServiceClient {
	opts = clientOptions(opts)
	return &notificationServiceClient{
		listNotifications:   connect.NewClient[api.ListNotificationsRequest, api.Result[api.NotificationList]](httpClient, procedureURL(baseURL, NotificationServiceListNotificationsProcedure), opts...),
		countPending:        connect.NewClient[api.CountPendingRequest, api.Result[api.PendingCount]](httpClient, procedureURL(baseURL, NotificationServiceCountPendingProcedure), opts...),
		respondToInvitation: connect.NewClient[api.RespondToInvitationRequest, api.Result[api.Notification]](httpClient, procedureURL(baseURL, NotificationServiceRespondToInvitationProcedure), opts...),
		markRead:            connect.NewClient[api.MarkReadRequest, api.Result[api.Notification]](httpClient, procedureURL(baseURL, NotificationServiceMarkReadProcedure), opts...),
		deleteNotification:  connect.NewClient[api.DeleteNotificationRequest, api.Result[api.Empty]](httpClient, procedureURL(baseURL, NotificationServiceDeleteNotificationProcedure), opts...),
	}
}

type notificationServiceClient struct {
	listNotifications   *connect.Client[api.ListNotificationsRequest, api.Result[api.NotificationList]]
	countPending        *connect.Client[api.CountPendingRequest, api.Result[api.PendingCount]]
	respondToInvitation *connect.Client[api.RespondToInvitationRequest, api.Result[api.Notification]]
	markRead            *connect.Client[api.MarkReadRequest, api.Result[api.Notification]]
	deleteNotification  *connect.Client[api.DeleteNotificationRequest, api.Result[api.Empty]]
}

func (c *notificationServiceClient) ListNotifications(ctx context.Context, req *connect.Request[api.ListNotificationsRequest]) (*connect.Response[api.Result[api.NotificationList]], error) {
	return c.listNotifications.CallUnary(ctx, req)
}

func (c *notificationServiceClient) CountPending(ctx context.Context, req *connect.Request[api.CountPendingRequest]) (*connect.Response[api.Result[api.PendingCount]], error) {
	return c.countPending.CallUnary(ctx, req)
}

func (c *notificationServiceClient) RespondToInvitation(ctx context.Context, req *connect.Request[api.RespondToInvitationRequest]) (*connect.Response[api.Result[api.Notification]], error) {
	return c.respondToInvitation.CallUnary(ctx, req)
}

func (c *notificationServiceClient) MarkRead(ctx context.Context, req *connect.Request[api.MarkReadRequest]) (*connect.Response[api.Result[api.Notification]], error) {
	return c.markRead.CallUnary(ctx, req)
}

func (c *notificationServiceClient) DeleteNotification(ctx context.Context, req *connect.Request[api.DeleteNotificationRequest]) (*connect.Response[api.Result[api.Empty]], error) {
	return c.deleteNotification.CallUnary(ctx, req)
}
