package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/role-portal/internal/domain"
	"github.com/prohmpiriya/role-portal/internal/dto"
	"github.com/prohmpiriya/role-portal/internal/httperr"
	"github.com/prohmpiriya/role-portal/internal/middleware"
	"github.com/prohmpiriya/role-portal/internal/service"
	"github.com/prohmpiriya/role-portal/pkg/response"
)

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register handles user registration
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		response.ValidationFailed(c, errs)
		return
	}

	result, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		httperr.Write(c, err)
		return
	}

	response.Created(c, result)
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		response.ValidationFailed(c, errs)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		httperr.Write(c, err)
		return
	}

	response.Success(c, result)
}

// Refresh rotates the refresh token carried in the body
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, []response.FieldError{{Field: "refreshToken", Message: "Refresh token is required"}})
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		httperr.Write(c, err)
		return
	}

	response.Success(c, result)
}

// Logout revokes the caller's refresh token, or all of them when none is given
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		httperr.Write(c, domain.ErrMissingToken)
		return
	}

	var req dto.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), principal.ID, req.RefreshToken); err != nil {
		httperr.Write(c, err)
		return
	}

	response.Message(c, "Logged out successfully")
}

// ChangePassword handles a self-service password change
// PUT /api/users/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		httperr.Write(c, domain.ErrMissingToken)
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		response.ValidationFailed(c, errs)
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), principal.ID, &req); err != nil {
		httperr.Write(c, err)
		return
	}

	response.Message(c, "Password changed successfully")
}
