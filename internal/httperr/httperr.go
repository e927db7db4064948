// Package httperr maps domain failures onto HTTP statuses and envelope codes.
package httperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/role-portal/internal/domain"
	"github.com/prohmpiriya/role-portal/pkg/response"
)

// Machine-readable codes carried in the envelope's code field
const (
	CodeMissingToken       = "MISSING_TOKEN"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidRefresh     = "INVALID_REFRESH_TOKEN"
	CodeAccountDisabled    = "ACCOUNT_DISABLED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeUserExists         = "USER_EXISTS"
	CodeValidation         = "VALIDATION_ERROR"
	CodeUpstream           = "UPSTREAM_FAILURE"
	CodeInternal           = "INTERNAL_ERROR"
	CodeRateLimited        = "TOO_MANY_REQUESTS"
)

type mapping struct {
	status  int
	code    string
	message string
}

var byKind = map[domain.ErrorKind]mapping{
	domain.KindValidation:         {http.StatusBadRequest, CodeValidation, "Validation failed"},
	domain.KindUnauthenticated:    {http.StatusUnauthorized, CodeMissingToken, "Authorization header is required"},
	domain.KindMalformed:          {http.StatusUnauthorized, CodeInvalidToken, "Invalid token"},
	domain.KindBadSignature:       {http.StatusUnauthorized, CodeInvalidToken, "Invalid token"},
	domain.KindExpired:            {http.StatusUnauthorized, CodeTokenExpired, "Token expired"},
	domain.KindInvalidRefresh:     {http.StatusUnauthorized, CodeInvalidRefresh, "Invalid or expired refresh token"},
	domain.KindAccountDisabled:    {http.StatusUnauthorized, CodeAccountDisabled, "Account is disabled"},
	domain.KindInvalidCredentials: {http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password"},
	domain.KindForbidden:          {http.StatusForbidden, CodeForbidden, "Access denied"},
	domain.KindNotFound:           {http.StatusNotFound, CodeNotFound, "User not found"},
	domain.KindConflict:           {http.StatusConflict, CodeUserExists, "User with this email already exists"},
	domain.KindUpstream:           {http.StatusInternalServerError, CodeUpstream, "Service temporarily unavailable"},
}

var internal = mapping{http.StatusInternalServerError, CodeInternal, "Internal server error"}

func lookup(err error) mapping {
	m, ok := byKind[domain.KindOf(err)]
	if !ok {
		return internal
	}
	if errors.Is(err, domain.ErrWrongPassword) {
		m.message = "Current password is incorrect"
	}
	return m
}

// Status returns the HTTP status for err
func Status(err error) int {
	return lookup(err).status
}

// Code returns the envelope code for err
func Code(err error) string {
	return lookup(err).code
}

// Write replies with the envelope for err
func Write(c *gin.Context, err error) {
	m := lookup(err)
	if m.status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.Error(c, m.status, m.code, m.message)
}

// Abort replies with the envelope for err and stops the chain
func Abort(c *gin.Context, err error) {
	m := lookup(err)
	if m.status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.Abort(c, m.status, m.code, m.message)
}
