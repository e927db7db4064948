package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/role-portal/internal/domain"
)

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.com", "first.last@example.co.uk", " padded@x.io "}
	invalid := []string{"", "a@b", "a b@c.com", "@b.com", "a@.com", "plain"}

	for _, e := range valid {
		assert.True(t, IsValidEmail(e), e)
	}
	for _, e := range invalid {
		assert.False(t, IsValidEmail(e), e)
	}
}

func TestIsValidPassword(t *testing.T) {
	tests := []struct {
		pw   string
		want bool
	}{
		{"Abc123!@", true},
		{"Abc12!@", false},    // too short
		{"abc123!@", false},   // no upper
		{"ABC123!@", false},   // no lower
		{"Abcdefg!", false},   // no digit
		{"Abc12345", false},   // no special
		{"Pass word1", true},  // space is non-alphanumeric
		{"Aa1!" + string(make([]byte, 70)), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidPassword(tt.pw), "%q", tt.pw)
	}
}

func TestIsValidPhone(t *testing.T) {
	assert.True(t, IsValidPhone("+1 555-123-4567"))
	assert.True(t, IsValidPhone("0812345678"))
	assert.False(t, IsValidPhone("12345"))
	assert.False(t, IsValidPhone("phone-number"))
}

func TestRegisterRequest_Validate(t *testing.T) {
	ok := RegisterRequest{Email: "a@b.com", Password: "Abc123!@", FirstName: "A", LastName: "B"}
	assert.Empty(t, ok.Validate())

	bad := RegisterRequest{Email: "nope", Password: "short", FirstName: " ", LastName: "", PhoneNumber: "12"}
	fields := map[string]bool{}
	for _, e := range bad.Validate() {
		fields[e.Field] = true
	}
	assert.Equal(t, map[string]bool{"email": true, "password": true, "firstName": true, "lastName": true, "phoneNumber": true}, fields)
}

func TestChangePasswordRequest_Validate(t *testing.T) {
	r := ChangePasswordRequest{CurrentPassword: "Abc123!@", NewPassword: "Abc123!@"}
	require.Len(t, r.Validate(), 1)

	r.NewPassword = "Xyz789#$"
	assert.Empty(t, r.Validate())
}

func TestUpdateStatusRequest_ParsedStatus(t *testing.T) {
	yes, no := true, false

	s, errs := (&UpdateStatusRequest{IsActive: &yes}).ParsedStatus()
	assert.Empty(t, errs)
	assert.Equal(t, domain.StatusActive, s)

	s, errs = (&UpdateStatusRequest{IsActive: &no}).ParsedStatus()
	assert.Empty(t, errs)
	assert.Equal(t, domain.StatusInactive, s)

	s, errs = (&UpdateStatusRequest{IsActive: &yes, Status: "suspended"}).ParsedStatus()
	assert.Empty(t, errs)
	assert.Equal(t, domain.StatusSuspended, s)

	_, errs = (&UpdateStatusRequest{}).ParsedStatus()
	assert.NotEmpty(t, errs)

	_, errs = (&UpdateStatusRequest{Status: "banned"}).ParsedStatus()
	assert.NotEmpty(t, errs)
}

func TestUpdateRoleRequest_ParsedRole(t *testing.T) {
	role, errs := (&UpdateRoleRequest{Role: "hr"}).ParsedRole()
	assert.Empty(t, errs)
	assert.Equal(t, domain.RoleHR, role)

	_, errs = (&UpdateRoleRequest{Role: "owner"}).ParsedRole()
	assert.NotEmpty(t, errs)
}

func TestListUsersQuery_ToFilter(t *testing.T) {
	f, errs := (&ListUsersQuery{Role: "admin"}).ToFilter()
	assert.Empty(t, errs)
	assert.Equal(t, domain.RoleAdmin, f.Role)
	assert.Equal(t, 50, f.Limit)

	_, errs = (&ListUsersQuery{Status: "gone", Limit: 500, Offset: -1}).ToFilter()
	assert.Len(t, errs, 3)
}

func TestNewUserResponse_HidesHash(t *testing.T) {
	login := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	u := &domain.User{ID: "1", Email: "a@b.com", PasswordHash: "hash", Role: domain.RoleUser, Status: domain.StatusSuspended, LastLoginAt: &login}

	r := NewUserResponse(u)
	assert.False(t, r.IsActive)
	assert.Equal(t, "2026-02-01T10:00:00Z", r.LastLogin)
	assert.Nil(t, NewUserResponse(nil))
}
