package dto

import (
	"github.com/prohmpiriya/role-portal/internal/domain"
	"github.com/prohmpiriya/role-portal/pkg/response"
)

// RegisterRequest represents registration request
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
}

// Validate returns one entry per invalid field
func (r *RegisterRequest) Validate() []response.FieldError {
	var errs []response.FieldError
	if !IsValidEmail(r.Email) {
		errs = append(errs, response.FieldError{Field: "email", Message: msgEmail})
	}
	if !IsValidPassword(r.Password) {
		errs = append(errs, response.FieldError{Field: "password", Message: msgPassword})
	}
	if !IsNonEmpty(r.FirstName) {
		errs = append(errs, response.FieldError{Field: "firstName", Message: "First name is required"})
	}
	if !IsNonEmpty(r.LastName) {
		errs = append(errs, response.FieldError{Field: "lastName", Message: "Last name is required"})
	}
	if r.PhoneNumber != "" && !IsValidPhone(r.PhoneNumber) {
		errs = append(errs, response.FieldError{Field: "phoneNumber", Message: msgPhone})
	}
	return errs
}

// LoginRequest represents login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks email shape and presence of a password
func (r *LoginRequest) Validate() []response.FieldError {
	var errs []response.FieldError
	if !IsValidEmail(r.Email) {
		errs = append(errs, response.FieldError{Field: "email", Message: msgEmail})
	}
	if r.Password == "" {
		errs = append(errs, response.FieldError{Field: "password", Message: "Password is required"})
	}
	return errs
}

// RefreshTokenRequest carries the refresh token in the body
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// LogoutRequest optionally names the refresh token to revoke
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest represents a self-service password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (r *ChangePasswordRequest) Validate() []response.FieldError {
	var errs []response.FieldError
	if !IsValidPassword(r.NewPassword) {
		errs = append(errs, response.FieldError{Field: "newPassword", Message: msgPassword})
	}
	if r.NewPassword != "" && r.NewPassword == r.CurrentPassword {
		errs = append(errs, response.FieldError{Field: "newPassword", Message: "New password must differ from the current password"})
	}
	return errs
}

// UserResponse is the public projection of a user
type UserResponse struct {
	ID          string         `json:"id"`
	Email       string         `json:"email"`
	FirstName   string         `json:"firstName"`
	LastName    string         `json:"lastName"`
	PhoneNumber string         `json:"phoneNumber,omitempty"`
	Address     domain.Address `json:"address"`
	Role        domain.Role    `json:"role"`
	Status      domain.Status  `json:"status"`
	IsActive    bool           `json:"isActive"`
	LastLogin   string         `json:"lastLogin,omitempty"`
	CreatedAt   string         `json:"createdAt"`
	UpdatedAt   string         `json:"updatedAt"`
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

// NewUserResponse projects u without its password hash
func NewUserResponse(u *domain.User) *UserResponse {
	if u == nil {
		return nil
	}
	r := &UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
		Address:     u.Address,
		Role:        u.Role,
		Status:      u.Status,
		IsActive:    u.IsActive(),
		CreatedAt:   u.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:   u.UpdatedAt.UTC().Format(timeLayout),
	}
	if u.LastLoginAt != nil {
		r.LastLogin = u.LastLoginAt.UTC().Format(timeLayout)
	}
	return r
}

// NewUserResponses projects a slice of users
func NewUserResponses(users []*domain.User) []*UserResponse {
	out := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserResponse(u))
	}
	return out
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	ExpiresIn    int64         `json:"expiresIn"`
	User         *UserResponse `json:"user"`
}

// NewAuthResponse combines a token pair with the user projection
func NewAuthResponse(pair *domain.TokenPair, u *domain.User) *AuthResponse {
	return &AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		User:         NewUserResponse(u),
	}
}

// TokenResponse is returned by refresh
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}
