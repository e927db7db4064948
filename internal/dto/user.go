package dto

import (
	"github.com/prohmpiriya/role-portal/internal/domain"
	"github.com/prohmpiriya/role-portal/pkg/response"
)

// UpdateProfileRequest carries optional profile fields; absent fields are left as is
type UpdateProfileRequest struct {
	FirstName   *string         `json:"firstName"`
	LastName    *string         `json:"lastName"`
	PhoneNumber *string         `json:"phoneNumber"`
	Address     *domain.Address `json:"address"`
}

func (r *UpdateProfileRequest) Validate() []response.FieldError {
	var errs []response.FieldError
	if r.FirstName != nil && !IsNonEmpty(*r.FirstName) {
		errs = append(errs, response.FieldError{Field: "firstName", Message: "First name cannot be empty"})
	}
	if r.LastName != nil && !IsNonEmpty(*r.LastName) {
		errs = append(errs, response.FieldError{Field: "lastName", Message: "Last name cannot be empty"})
	}
	if r.PhoneNumber != nil && *r.PhoneNumber != "" && !IsValidPhone(*r.PhoneNumber) {
		errs = append(errs, response.FieldError{Field: "phoneNumber", Message: msgPhone})
	}
	return errs
}

// ToUpdate converts the request into a domain update
func (r *UpdateProfileRequest) ToUpdate() domain.ProfileUpdate {
	return domain.ProfileUpdate{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		PhoneNumber: r.PhoneNumber,
		Address:     r.Address,
	}
}

// UpdateRoleRequest changes a user's role
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// ParsedRole validates the requested role
func (r *UpdateRoleRequest) ParsedRole() (domain.Role, []response.FieldError) {
	role, ok := domain.ParseRole(r.Role)
	if !ok {
		return "", []response.FieldError{{Field: "role", Message: "Role must be one of user, hr, admin"}}
	}
	return role, nil
}

// UpdateStatusRequest changes a user's status. Status takes precedence over IsActive.
type UpdateStatusRequest struct {
	IsActive *bool  `json:"isActive"`
	Status   string `json:"status"`
}

// ParsedStatus maps isActive=true to active and isActive=false to inactive
func (r *UpdateStatusRequest) ParsedStatus() (domain.Status, []response.FieldError) {
	if r.Status != "" {
		status, ok := domain.ParseStatus(r.Status)
		if !ok {
			return "", []response.FieldError{{Field: "status", Message: "Status must be one of active, inactive, suspended"}}
		}
		return status, nil
	}
	if r.IsActive == nil {
		return "", []response.FieldError{{Field: "isActive", Message: "isActive or status is required"}}
	}
	if *r.IsActive {
		return domain.StatusActive, nil
	}
	return domain.StatusInactive, nil
}

// ListUsersQuery holds list filters from the query string
type ListUsersQuery struct {
	Role   string `form:"role"`
	Status string `form:"status"`
	Search string `form:"search"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// ToFilter validates the query and converts it into a domain filter
func (q *ListUsersQuery) ToFilter() (domain.UserFilter, []response.FieldError) {
	var errs []response.FieldError
	f := domain.UserFilter{Search: q.Search, Limit: q.Limit, Offset: q.Offset}

	if q.Role != "" {
		role, ok := domain.ParseRole(q.Role)
		if !ok {
			errs = append(errs, response.FieldError{Field: "role", Message: "Unknown role"})
		}
		f.Role = role
	}
	if q.Status != "" {
		status, ok := domain.ParseStatus(q.Status)
		if !ok {
			errs = append(errs, response.FieldError{Field: "status", Message: "Unknown status"})
		}
		f.Status = status
	}
	if q.Limit < 0 || q.Limit > 100 {
		errs = append(errs, response.FieldError{Field: "limit", Message: "Limit must be between 0 and 100"})
	}
	if q.Offset < 0 {
		errs = append(errs, response.FieldError{Field: "offset", Message: "Offset cannot be negative"})
	}
	if f.Limit == 0 {
		f.Limit = 50
	}
	return f, errs
}
