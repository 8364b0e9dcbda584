package apiconnect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/chitfund/pkg/api"
)

const AuthServiceName = PackageName + ".AuthService"

const (
	AuthServiceRegisterProcedure       = "/" + AuthServiceName + "/Register"
	AuthServiceLoginProcedure          = "/" + AuthServiceName + "/Login"
	AuthServiceGetCurrentUserProcedure = "/" + AuthServiceName + "/GetCurrentUser"
)

// AuthServiceHandler is implemented by the auth service.
type AuthServiceHandler interface {
	Register(context.Context, *connect.Request[api.RegisterRequest]) (*connect.Response[api.Result[api.Session]], error)
	Login(context.Context, *connect.Request[api.LoginRequest]) (*connect.Response[api.Result[api.Session]], error)
	GetCurrentUser(context.Context, *connect.Request[api.GetCurrentUserRequest]) (*connect.Response[api.Result[api.User]], error)
}

// NewAuthServiceHandler returns the mount path and handler for the auth service.
func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return serviceHandler(AuthServiceName, map[string]http.Handler{
		AuthServiceRegisterProcedure:       connect.NewUnaryHandler(AuthServiceRegisterProcedure, svc.Register, opts...),
		AuthServiceLoginProcedure:          connect.NewUnaryHandler(AuthServiceLoginProcedure, svc.Login, opts...),
		AuthServiceGetCurrentUserProcedure: connect.NewUnaryHandler(AuthServiceGetCurrentUserProcedure, svc.GetCurrentUser, opts...),
	})
}

// AuthServiceClient is a client for the auth service.
type AuthServiceClient interface {
	AuthServiceHandler
}

// NewAuthServiceClient constructs a client for the auth service at baseURL.
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) AuthServiceClient {
	opts = clientOptions(opts)
	return &authServiceClient{
		register:       connect.NewClient[api.RegisterRequest, api.Result[api.Session]](httpClient, procedureURL(baseURL, AuthServiceRegisterProcedure), opts...),
		login:          connect.NewClient[api.LoginRequest, api.Result[api.Session]](httpClient, procedureURL(baseURL, AuthServiceLoginProcedure), opts...),
		getCurrentUser: connect.NewClient[api.GetCurrentUserRequest, api.Result[api.User]](httpClient, procedureURL(baseURL, AuthServiceGetCurrentUserProcedure), opts...),
	}
}

type authServiceClient struct {
	register       *connect.Client[api.RegisterRequest, api.Result[api.Session]]
	login          *connect.Client[api.LoginRequest, api.Result[api.Session]]
	getCurrentUser *connect.Client[api.GetCurrentUserRequest, api.Result[api.User]]
}

func (c *authServiceClient) Register(ctx context.Context, req *connect.Request[api.RegisterRequest]) (*connect.Response[api.Result[api.Session]], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *authServiceClient) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.Result[api.Session]], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *authServiceClient) GetCurrentUser(ctx context.Context, req *connect.Request[api.GetCurrentUserRequest]) (*connect.Response[api.Result[api.User]], error) {
	return c.getCurrentUser.CallUnary(ctx, req)
}
