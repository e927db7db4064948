package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/role-portal/internal/domain"
	"github.com/prohmpiriya/role-portal/internal/dto"
	"github.com/prohmpiriya/role-portal/internal/httperr"
	"github.com/prohmpiriya/role-portal/internal/middleware"
	"github.com/prohmpiriya/role-portal/internal/service"
	"github.com/prohmpiriya/role-portal/pkg/response"
)

// UserHandler serves the self-service and HR-facing user routes
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetProfile returns the caller's own profile
// GET /api/users/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		httperr.Write(c, domain.ErrMissingToken)
		return
	}

	user, err := h.userService.GetProfile(c.Request.Context(), principal.ID)
	if err != nil {
		httperr.Write(c, err)
		return
	}

	response.Success(c, dto.NewUserResponse(user))
}

// UpdateProfile updates the caller's own profile
// PUT /api/users/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		httperr.Write(c, domain.ErrMissingToken)
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		response.ValidationFailed(c, errs)
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), principal.ID, req.ToUpdate())
	if err != nil {
		httperr.Write(c, err)
		return
	}

	response.Success(c, dto.NewUserResponse(user))
}

// List returns a page of users
// GET /api/users and GET /api/admin/users
func (h *UserHandler) List(c *gin.Context) {
	var q dto.ListUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}
	filter, errs := q.ToFilter()
	if len(errs) > 0 {
		response.ValidationFailed(c, errs)
		return
	}

	users, total, err := h.userService.List(c.Request.Context(), filter)
	if err != nil {
		httperr.Write(c, err)
		return
	}

	response.SuccessWithMeta(c, dto.NewUserResponses(users), response.Meta{
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// GetByID returns one user; ownership is enforced by the route's guard
// GET /api/users/:id and GET /api/admin/users/:id
func (h *UserHandler) GetByID(c *gin.Context) {
	user, err := h.userService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		httperr.Write(c, err)
		return
	}

	response.Success(c, dto.NewUserResponse(user))
}
