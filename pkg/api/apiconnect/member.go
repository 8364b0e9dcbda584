package apiconnect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/chitfund/pkg/api"
)

const MemberServiceName = PackageName + ".MemberService"

const (
	MemberServiceInviteMemberProcedure     = "/" + MemberServiceName + "/InviteMember"
	MemberServiceRemoveMemberProcedure     = "/" + MemberServiceName + "/RemoveMember"
	MemberServiceLeaveGroupProcedure       = "/" + MemberServiceName + "/LeaveGroup"
	MemberServiceUpdateMemberRoleProcedure = "/" + MemberServiceName + "/UpdateMemberRole"
	MemberServiceListMembersProcedure      = "/" + MemberServiceName + "/ListMembers"
)

// MemberServiceHandler is implemented by the member service.
type MemberServiceHandler interface {
	InviteMember(context.Context, *connect.Request[api.InviteMemberRequest]) (*connect.Response[api.Result[api.Member]], error)
	RemoveMember(context.Context, *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.Result[api.Empty]], error)
	LeaveGroup(context.Context, *connect.Request[api.LeaveGroupRequest]) (*connect.Response[api.Result[api.Empty]], error)
	UpdateMemberRole(context.Context, *connect.Request[api.UpdateMemberRoleRequest]) (*connect.Response[api.Result[api.Member]], error)
	ListMembers(context.Context, *connect.Request[api.ListMembersRequest]) (*connect.Response[api.Result[api.MemberList]], error)
}

// NewMemberServiceHandler returns the mount path and handler for the member service.
func NewMemberServiceHandler(svc MemberServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return serviceHandler(MemberServiceName, map[string]http.Handler{
		MemberServiceInviteMemberProcedure:     connect.NewUnaryHandler(MemberServiceInviteMemberProcedure, svc.InviteMember, opts...),
		MemberServiceRemoveMemberProcedure:     connect.NewUnaryHandler(MemberServiceRemoveMemberProcedure, svc.RemoveMember, opts...),
		MemberServiceLeaveGroupProcedure:       connect.NewUnaryHandler(MemberServiceLeaveGroupProcedure, svc.LeaveGroup, opts...),
		MemberServiceUpdateMemberRoleProcedure: connect.NewUnaryHandler(MemberServiceUpdateMemberRoleProcedure, svc.UpdateMemberRole, opts...),
		MemberServiceListMembersProcedure:      connect.NewUnaryHandler(MemberServiceListMembersProcedure, svc.ListMembers, opts...),
	})
}

// MemberServiceClient is a client for the member service.
type MemberServiceClient interface {
	MemberServiceHandler
}

// NewMemberServiceClient constructs a client for the member service at baseURL.
func NewMemberServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) MemberServiceClient {
	opts = clientOptions(opts)
	return &memberServiceClient{
		inviteMember:     connect.NewClient[api.InviteMemberRequest, api.Result[api.Member]](httpClient, procedureURL(baseURL, MemberServiceInviteMemberProcedure), opts...),
		removeMember:     connect.NewClient[api.RemoveMemberRequest, api.Result[api.Empty]](httpClient, procedureURL(baseURL, MemberServiceRemoveMemberProcedure), opts...),
		leaveGroup:       connect.NewClient[api.LeaveGroupRequest, api.Result[api.Empty]](httpClient, procedureURL(baseURL, MemberServiceLeaveGroupProcedure), opts...),
		updateMemberRole: connect.NewClient[api.UpdateMemberRoleRequest, api.Result[api.Member]](httpClient, procedureURL(baseURL, MemberServiceUpdateMemberRoleProcedure), opts...),
		listMembers:      connect.NewClient[api.ListMembersRequest, api.Result[api.MemberList]](httpClient, procedureURL(baseURL, MemberServiceListMembersProcedure), opts...),
	}
}

type memberServiceClient struct {
	inviteMember     *connect.Client[api.InviteMemberRequest, api.Result[api.Member]]
	removeMember     *connect.Client[api.RemoveMemberRequest, api.Result[api.Empty]]
	leaveGroup       *connect.Client[api.LeaveGroupRequest, api.Result[api.Empty]]
	updateMemberRole *connect.Client[api.UpdateMemberRoleRequest, api.Result[api.Member]]
	listMembers      *connect.Client[api.ListMembersRequest, api.Result[api.MemberList]]
}

func (c *memberServiceClient) InviteMember(ctx context.Context, req *connect.Request[api.InviteMemberRequest]) (*connect.Response[api.Result[api.Member]], error) {
	return c.inviteMember.CallUnary(ctx, req)
}

func (c *memberServiceClient) RemoveMember(ctx context.Context, req *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.Result[api.Empty]], error) {
	return c.removeMember.CallUnary(ctx, req)
}

func (c *memberServiceClient) LeaveGroup(ctx context.Context, req *connect.Request[api.LeaveGroupRequest]) (*connect.Response[api.Result[api.Empty]], error) {
	return c.leaveGroup.CallUnary(ctx, req)
}

func (c *memberServiceClient) UpdateMemberRole(ctx context.Context, req *connect.Request[api.UpdateMemberRoleRequest]) (*connect.Response[api.Result[api.Member]], error) {
	return c.updateMemberRole.CallUnary(ctx, req)
}

func (c *memberServiceClient) ListMembers(ctx context.Context, req *connect.Request[api.ListMembersRequest]) (*connect.Response[api.Result[api.MemberList]], error) {
	return c.listMembers.CallUnary(ctx, req)
}
