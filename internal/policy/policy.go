// Package policy holds the declarative access table consulted by the
// authorization middleware. Each protected operation appears exactly once.
package policy

import (
	"github.com/prohmpiriya/role-portal/internal/domain"
)

// Operation identifies a protected action
type Operation string

const (
	OpUsersList        Operation = "users.list"
	OpUsersRead        Operation = "users.read"
	OpProfileRead      Operation = "profile.read"
	OpProfileUpdate    Operation = "profile.update"
	OpPasswordChange   Operation = "password.change"
	OpSessionLogout    Operation = "session.logout"
	OpAdminUsersList   Operation = "admin.users.list"
	OpAdminUsersRead   Operation = "admin.users.read"
	OpAdminUsersUpdate Operation = "admin.users.update"
	OpAdminUsersDelete Operation = "admin.users.delete"
	OpAdminUsersRole   Operation = "admin.users.role"
	OpAdminUsersStatus Operation = "admin.users.status"
	OpAdminStats       Operation = "admin.stats"
)

// Ownership describes how an operation relates to its target identity
type Ownership int

const (
	// OwnershipNone means the operation has no target identity
	OwnershipNone Ownership = iota
	// OwnershipImplicitSelf means the target is always the caller
	OwnershipImplicitSelf
	// OwnershipSelfOrAdmin means the target comes from the request and must be the caller unless the caller is admin
	OwnershipSelfOrAdmin
)

// Rule is one row of the policy table. Empty AllowedRoles means any authenticated role.
type Rule struct {
	AllowedRoles []domain.Role
	Ownership    Ownership
}

var (
	anyRole   []domain.Role
	hrOrAdmin = []domain.Role{domain.RoleHR, domain.RoleAdmin}
	adminOnly = []domain.Role{domain.RoleAdmin}
)

var table = map[Operation]Rule{
	OpUsersList:        {AllowedRoles: hrOrAdmin},
	OpUsersRead:        {AllowedRoles: anyRole, Ownership: OwnershipSelfOrAdmin},
	OpProfileRead:      {AllowedRoles: anyRole, Ownership: OwnershipImplicitSelf},
	OpProfileUpdate:    {AllowedRoles: anyRole, Ownership: OwnershipImplicitSelf},
	OpPasswordChange:   {AllowedRoles: anyRole, Ownership: OwnershipImplicitSelf},
	OpSessionLogout:    {AllowedRoles: anyRole, Ownership: OwnershipImplicitSelf},
	OpAdminUsersList:   {AllowedRoles: adminOnly},
	OpAdminUsersRead:   {AllowedRoles: adminOnly},
	OpAdminUsersUpdate: {AllowedRoles: adminOnly},
	OpAdminUsersDelete: {AllowedRoles: adminOnly},
	OpAdminUsersRole:   {AllowedRoles: adminOnly},
	OpAdminUsersStatus: {AllowedRoles: adminOnly},
	OpAdminStats:       {AllowedRoles: adminOnly},
}

// Lookup returns the rule for op
func Lookup(op Operation) (Rule, bool) {
	r, ok := table[op]
	return r, ok
}

// Operations returns every operation in the table
func Operations() []Operation {
	ops := make([]Operation, 0, len(table))
	for op := range table {
		ops = append(ops, op)
	}
	return ops
}

// AllowsRole reports whether role passes the role check of r
func (r Rule) AllowsRole(role domain.Role) bool {
	if !role.Valid() {
		return false
	}
	if len(r.AllowedRoles) == 0 {
		return true
	}
	for _, allowed := range r.AllowedRoles {
		if allowed == role {
			return true
		}
	}
	return false
}

const (
	ReasonAllowed          = "allowed"
	ReasonUnknownOperation = "Access denied: unknown operation"
	ReasonRole             = "Access denied: Insufficient permissions"
	ReasonOwnership        = "Access denied"
)

// Decision is the outcome of evaluating a request against the table
type Decision struct {
	Allow  bool
	Reason string
}

// Request is the input to Decide
type Request struct {
	Operation Operation
	CallerID  string
	Role      domain.Role
	// TargetID is the identity the operation acts on, if any
	TargetID string
}

// Decide evaluates the role check and then the ownership check for req.
// Unknown operations are denied.
func Decide(req Request) Decision {
	rule, ok := table[req.Operation]
	if !ok {
		return Decision{Reason: ReasonUnknownOperation}
	}
	if !rule.AllowsRole(req.Role) {
		return Decision{Reason: ReasonRole}
	}
	if rule.Ownership == OwnershipSelfOrAdmin {
		if req.Role != domain.RoleAdmin && (req.TargetID == "" || req.TargetID != req.CallerID) {
			return Decision{Reason: ReasonOwnership}
		}
	}
	return Decision{Allow: true, Reason: ReasonAllowed}
}
