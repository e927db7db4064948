package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/role-portal/internal/dto"
	"github.com/prohmpiriya/role-portal/internal/httperr"
	"github.com/prohmpiriya/role-portal/internal/middleware"
	"github.com/prohmpiriya/role-portal/internal/service"
	"github.com/prohmpiriya/role-portal/pkg/response"
)

// AdminHandler serves the admin-only user management routes
type AdminHandler struct {
	userService service.UserService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(userService service.UserService) *AdminHandler {
	return &AdminHandler{userService: userService}
}

func actorID(c *gin.Context) string {
	if p, ok := middleware.GetPrincipal(c); ok {
		return p.ID
	}
	return ""
}

// UpdateUser edits another user's profile fields
// PUT /api/admin/users/:id
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		response.ValidationFailed(c, errs)
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), actorID(c), c.Param("id"), req.ToUpdate())
	if err != nil {
		httperr.Write(c, err)
		return
	}

	response.Success(c, dto.NewUserResponse(user))
}

// UpdateRole changes a user's role
// PATCH /api/admin/users/:id/role
func (h *AdminHandler) UpdateRole(c *gin.Context) {
	var req dto.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	role, errs := req.ParsedRole()
	if len(errs) > 0 {
		response.ValidationFailed(c, errs)
		return
	}

	user, err := h.userService.UpdateRole(c.Request.Context(), actorID(c), c.Param("id"), role)
	if err != nil {
		httperr.Write(c, err)
		return
	}

	response.Success(c, dto.NewUserResponse(user))
}

// UpdateStatus activates, deactivates or suspends a user
// PATCH /api/admin/users/:id/status
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	status, errs := req.ParsedStatus()
	if len(errs) > 0 {
		response.ValidationFailed(c, errs)
		return
	}

	user, err := h.userService.UpdateStatus(c.Request.Context(), actorID(c), c.Param("id"), status)
	if err != nil {
		httperr.Write(c, err)
		return
	}

	response.Success(c, dto.NewUserResponse(user))
}

// DeleteUser removes a user and revokes their refresh tokens
// DELETE /api/admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.userService.Delete(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		httperr.Write(c, err)
		return
	}

	response.Message(c, "User deleted successfully")
}

// Stats returns the dashboard counters
// GET /api/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.userService.Stats(c.Request.Context())
	if err != nil {
		httperr.Write(c, err)
		return
	}

	response.Success(c, stats)
}
