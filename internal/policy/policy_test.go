package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/role-portal/internal/domain"
)

func TestTable_MatchesDocumentedRoles(t *testing.T) {
	tests := []struct {
		op      Operation
		allowed []domain.Role
	}{
		{OpUsersList, []domain.Role{domain.RoleHR, domain.RoleAdmin}},
		{OpProfileRead, domain.Roles},
		{OpProfileUpdate, domain.Roles},
		{OpPasswordChange, domain.Roles},
		{OpSessionLogout, domain.Roles},
		{OpUsersRead, domain.Roles},
		{OpAdminUsersList, []domain.Role{domain.RoleAdmin}},
		{OpAdminUsersRead, []domain.Role{domain.RoleAdmin}},
		{OpAdminUsersUpdate, []domain.Role{domain.RoleAdmin}},
		{OpAdminUsersDelete, []domain.Role{domain.RoleAdmin}},
		{OpAdminUsersRole, []domain.Role{domain.RoleAdmin}},
		{OpAdminUsersStatus, []domain.Role{domain.RoleAdmin}},
		{OpAdminStats, []domain.Role{domain.RoleAdmin}},
	}
	require.Len(t, tests, len(Operations()))

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			rule, ok := Lookup(tt.op)
			require.True(t, ok)

			for _, role := range domain.Roles {
				want := contains(tt.allowed, role)
				assert.Equal(t, want, rule.AllowsRole(role), "role %s", role)
			}
		})
	}
}

// Every role outside the allowed set is denied with the role reason and every
// role inside passes the role check, for every operation.
func TestDecide_RoleProperty(t *testing.T) {
	for _, op := range Operations() {
		rule, _ := Lookup(op)
		for _, role := range domain.Roles {
			// acting on self so ownership never interferes with the role check
			d := Decide(Request{Operation: op, CallerID: "u1", Role: role, TargetID: "u1"})
			if rule.AllowsRole(role) {
				assert.True(t, d.Allow, "%s as %s", op, role)
			} else {
				assert.False(t, d.Allow, "%s as %s", op, role)
				assert.Equal(t, ReasonRole, d.Reason)
			}
		}
	}
}

func TestDecide_Ownership(t *testing.T) {
	tests := []struct {
		name   string
		role   domain.Role
		caller string
		target string
		allow  bool
	}{
		{"user reads self", domain.RoleUser, "u1", "u1", true},
		{"user reads other", domain.RoleUser, "u1", "u2", false},
		{"hr reads other", domain.RoleHR, "h1", "u2", false},
		{"admin reads other", domain.RoleAdmin, "a1", "u2", true},
		{"missing target", domain.RoleUser, "u1", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(Request{Operation: OpUsersRead, CallerID: tt.caller, Role: tt.role, TargetID: tt.target})
			assert.Equal(t, tt.allow, d.Allow)
			if !tt.allow {
				assert.Equal(t, ReasonOwnership, d.Reason)
			}
		})
	}
}

func TestDecide_AdminSurfaceBypassesOwnership(t *testing.T) {
	d := Decide(Request{Operation: OpAdminUsersDelete, CallerID: "a1", Role: domain.RoleAdmin, TargetID: "u9"})
	assert.True(t, d.Allow)
}

func TestDecide_UnknownOperationAndRole(t *testing.T) {
	d := Decide(Request{Operation: "nope", CallerID: "u1", Role: domain.RoleAdmin})
	assert.False(t, d.Allow)
	assert.Equal(t, ReasonUnknownOperation, d.Reason)

	d = Decide(Request{Operation: OpProfileRead, CallerID: "u1", Role: "root"})
	assert.False(t, d.Allow)
}

func contains(roles []domain.Role, r domain.Role) bool {
	for _, x := range roles {
		if x == r {
			return true
		}
	}
	return false
}
