package httperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/role-portal/internal/domain"
	"github.com/prohmpiriya/role-portal/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusAndCode(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrMissingToken, http.StatusUnauthorized, CodeMissingToken},
		{fmt.Errorf("%w: bad", domain.ErrMalformedToken), http.StatusUnauthorized, CodeInvalidToken},
		{domain.ErrBadSignature, http.StatusUnauthorized, CodeInvalidToken},
		{domain.ErrTokenExpired, http.StatusUnauthorized, CodeTokenExpired},
		{domain.ErrWrongTokenKind, http.StatusUnauthorized, CodeInvalidToken},
		{domain.ErrInvalidRefresh, http.StatusUnauthorized, CodeInvalidRefresh},
		{domain.ErrAccountDisabled, http.StatusUnauthorized, CodeAccountDisabled},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials},
		{domain.ErrWrongPassword, http.StatusUnauthorized, CodeInvalidCredentials},
		{domain.ErrForbidden, http.StatusForbidden, CodeForbidden},
		{domain.ErrUserNotFound, http.StatusNotFound, CodeNotFound},
		{domain.ErrUserAlreadyExists, http.StatusConflict, CodeUserExists},
		{domain.ErrValidation, http.StatusBadRequest, CodeValidation},
		{fmt.Errorf("%w: dial", domain.ErrStoreUnavailable), http.StatusInternalServerError, CodeUpstream},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, Status(tt.err))
			assert.Equal(t, tt.code, Code(tt.err))
		})
	}
}

func TestAbort_WritesEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	Abort(c, domain.ErrWrongPassword)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, CodeInvalidCredentials, body.Code)
	assert.Equal(t, "Current password is incorrect", body.Message)
}

func TestWrite_RecordsServerErrors(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	Write(c, errors.New("db exploded"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, c.Errors, 1)
	assert.NotContains(t, w.Body.String(), "exploded")
}
