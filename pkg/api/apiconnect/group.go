package apiconnect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/chitfund/pkg/api"
)

const GroupServiceName = PackageName + ".GroupService"

const (
	GroupServiceCreateGroupProcedure = "/" + GroupServiceName + "/CreateGroup"
	GroupServiceGetGroupProcedure    = "/" + GroupServiceName + "/GetGroup"
	GroupServiceGetMyGroupsProcedure = "/" + GroupServiceName + "/GetMyGroups"
	GroupServiceUpdateGroupProcedure = "/" + GroupServiceName + "/UpdateGroup"
	GroupServiceDeleteGroupProcedure = "/" + GroupServiceName + "/DeleteGroup"
)

// GroupServiceHandler is implemented by the group service.
type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.Result[api.GroupDetail]], error)
	GetGroup(context.Context, *connect.Request[api.GetGroupRequest]) (*connect.Response[api.Result[api.GroupDetail]], error)
	GetMyGroups(context.Context, *connect.Request[api.GetMyGroupsRequest]) (*connect.Response[api.Result[api.GroupList]], error)
	UpdateGroup(context.Context, *connect.Request[api.UpdateGroupRequest]) (*connect.Response[api.Result[api.Group]], error)
	DeleteGroup(context.Context, *connect.Request[api.DeleteGroupRequest]) (*connect.Response[api.Result[api.Empty]], error)
}

// NewGroupServiceHandler returns the mount path and handler for the group service.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return serviceHandler(GroupServiceName, map[string]http.Handler{
		GroupServiceCreateGroupProcedure: connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts...),
		GroupServiceGetGroupProcedure:    connect.NewUnaryHandler(GroupServiceGetGroupProcedure, svc.GetGroup, opts...),
		GroupServiceGetMyGroupsProcedure: connect.NewUnaryHandler(GroupServiceGetMyGroupsProcedure, svc.GetMyGroups, opts...),
		GroupServiceUpdateGroupProcedure: connect.NewUnaryHandler(GroupServiceUpdateGroupProcedure, svc.UpdateGroup, opts...),
		GroupServiceDeleteGroupProcedure: connect.NewUnaryHandler(GroupServiceDeleteGroupProcedure, svc.DeleteGroup, opts...),
	})
}

// GroupServiceClient is a client for the group service.
type GroupServiceClient interface {
	GroupServiceHandler
}

// NewGroupServiceClient constructs a client for the group service at baseURL.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) GroupServiceClient {
	opts = clientOptions(opts)
	return &groupServiceClient{
		createGroup: connect.NewClient[api.CreateGroupRequest, api.Result[api.GroupDetail]](httpClient, procedureURL(baseURL, GroupServiceCreateGroupProcedure), opts...),
		getGroup:    connect.NewClient[api.GetGroupRequest, api.Result[api.GroupDetail]](httpClient, procedureURL(baseURL, GroupServiceGetGroupProcedure), opts...),
		getMyGroups: connect.NewClient[api.GetMyGroupsRequest, api.Result[api.GroupList]](httpClient, procedureURL(baseURL, GroupServiceGetMyGroupsProcedure), opts...),
		updateGroup: connect.NewClient[api.UpdateGroupRequest, api.Result[api.Group]](httpClient, procedureURL(baseURL, GroupServiceUpdateGroupProcedure), opts...),
		deleteGroup: connect.NewClient[api.DeleteGroupRequest, api.Result[api.Empty]](httpClient, procedureURL(baseURL, GroupServiceDeleteGroupProcedure), opts...),
	}
}

type groupServiceClient struct {
	createGroup *connect.Client[api.CreateGroupRequest, api.Result[api.GroupDetail]]
	getGroup    *connect.Client[api.GetGroupRequest, api.Result[api.GroupDetail]]
	getMyGroups *connect.Client[api.GetMyGroupsRequest, api.Result[api.GroupList]]
	updateGroup *connect.Client[api.UpdateGroupRequest, api.Result[api.Group]]
	deleteGroup *connect.Client[api.DeleteGroupRequest, api.Result[api.Empty]]
}

func (c *groupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.Result[api.GroupDetail]], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.Result[api.GroupDetail]], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) GetMyGroups(ctx context.Context, req *connect.Request[api.GetMyGroupsRequest]) (*connect.Response[api.Result[api.GroupList]], error) {
	return c.getMyGroups.CallUnary(ctx, req)
}

func (c *groupServiceClient) UpdateGroup(ctx context.Context, req *connect.Request[api.UpdateGroupRequest]) (*connect.Response[api.Result[api.Group]], error) {
	return c.updateGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) DeleteGroup(ctx context.Context, req *connect.Request[api.DeleteGroupRequest]) (*connect.Response[api.Result[api.Empty]], error) {
	return c.deleteGroup.CallUnary(ctx, req)
}
