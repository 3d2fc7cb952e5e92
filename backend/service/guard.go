package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/AnTengye/bettertender/backend/model"
	"github.com/AnTengye/bettertender/backend/pkg/logger"
)

// Action is an operation subject to authorization
type Action string

const (
	ActTenderCreate     Action = "tender:create"
	ActTenderUpdate     Action = "tender:update"
	ActTenderPublish    Action = "tender:publish"
	ActTenderClose      Action = "tender:close"
	ActTenderAward      Action = "tender:award"
	ActTenderCancel     Action = "tender:cancel"
	ActTenderDelete     Action = "tender:delete"
	ActSubmissionCreate Action = "submission:create"
	ActSubmissionList   Action = "submission:list"
	ActSubmissionRead   Action = "submission:read"
	ActSubmissionVerify Action = "submission:verify"
	ActDocumentUpload   Action = "document:upload"
	ActDocumentRead     Action = "document:read"
	ActDocumentDelete   Action = "document:delete"
	ActAuditList        Action = "audit:list"
	ActAuditVerify      Action = "audit:verify"
)

// Decision is the outcome of Authorize
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

type ownership int

const (
	anyOwner     ownership = iota // the role set alone decides
	ownerOnly                     // actor must be one of the resource owners
	ownerOrRoles                  // owner, or a role listed in readers
)

type rule struct {
	roles   []model.Role // empty means every role
	owner   ownership
	readers []model.Role
}

// policy is the single authorization table. Admins bypass it entirely.
var policy = map[Action]rule{
	ActTenderCreate:     {roles: []model.Role{model.RoleIssuer, model.RoleAdmin}},
	ActTenderUpdate:     {owner: ownerOnly},
	ActTenderPublish:    {owner: ownerOnly},
	ActTenderClose:      {owner: ownerOnly},
	ActTenderAward:      {owner: ownerOnly},
	ActTenderCancel:     {owner: ownerOnly},
	ActTenderDelete:     {owner: ownerOnly},
	ActSubmissionCreate: {},
	ActSubmissionList:   {owner: ownerOnly},
	ActSubmissionRead:   {owner: ownerOnly},
	ActSubmissionVerify: {owner: ownerOrRoles, readers: []model.Role{model.RoleAuditor}},
	ActDocumentUpload:   {},
	ActDocumentRead:     {owner: ownerOrRoles, readers: []model.Role{model.RoleAuditor}},
	ActDocumentDelete:   {owner: ownerOnly},
	ActAuditList:        {roles: []model.Role{model.RoleAuditor}},
	ActAuditVerify:      {roles: []model.Role{model.RoleAuditor}},
}

// Authorize decides whether actor may perform action on a resource owned by
// any of owners. It is a pure function of its arguments.
func Authorize(actor model.Actor, action Action, owners ...int64) Decision {
	if actor.Role == model.RoleAdmin {
		return Allow
	}
	r, ok := policy[action]
	if !ok || !actor.Role.Valid() {
		return Deny
	}
	if len(r.roles) > 0 && !slices.Contains(r.roles, actor.Role) {
		return Deny
	}
	switch r.owner {
	case ownerOnly:
		if !slices.Contains(owners, actor.ID) {
			return Deny
		}
	case ownerOrRoles:
		if !slices.Contains(owners, actor.ID) && !slices.Contains(r.readers, actor.Role) {
			return Deny
		}
	}
	return Allow
}

// authorize wraps Authorize and turns a denial into ErrForbidden.
// Denials leave no ledger entry; they are logged instead.
func authorize(ctx context.Context, actor model.Actor, action Action, owners ...int64) error {
	if Authorize(actor, action, owners...) == Allow {
		return nil
	}
	logger.Warn(ctx, "authorization denied", "actor_id", actor.ID, "role", actor.Role, "action", action)
	return fmt.Errorf("%w: %s", ErrForbidden, action)
}
