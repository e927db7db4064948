package domain

import (
	"errors"
)

// ErrorKind classifies failures so every layer can agree on the outcome
type ErrorKind string

const (
	KindUnknown            ErrorKind = ""
	KindValidation         ErrorKind = "VALIDATION_ERROR"
	KindUnauthenticated    ErrorKind = "UNAUTHENTICATED"
	KindInvalidCredentials ErrorKind = "INVALID_CREDENTIALS"
	KindMalformed          ErrorKind = "MALFORMED_TOKEN"
	KindBadSignature       ErrorKind = "BAD_SIGNATURE"
	KindExpired            ErrorKind = "TOKEN_EXPIRED"
	KindInvalidRefresh     ErrorKind = "INVALID_REFRESH"
	KindAccountDisabled    ErrorKind = "ACCOUNT_DISABLED"
	KindForbidden          ErrorKind = "FORBIDDEN"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindConflict           ErrorKind = "CONFLICT"
	KindUpstream           ErrorKind = "UPSTREAM_FAILURE"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrMissingToken       = errors.New("missing bearer token")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMalformedToken     = errors.New("malformed token")
	ErrBadSignature       = errors.New("token signature invalid")
	ErrTokenExpired       = errors.New("token expired")
	ErrWrongTokenKind     = errors.New("unexpected token kind")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrForbidden          = errors.New("access denied")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrStoreUnavailable   = errors.New("credential store unavailable")
)

var kindTable = []struct {
	err  error
	kind ErrorKind
}{
	{ErrValidation, KindValidation},
	{ErrMissingToken, KindUnauthenticated},
	{ErrInvalidCredentials, KindInvalidCredentials},
	{ErrWrongPassword, KindInvalidCredentials},
	{ErrMalformedToken, KindMalformed},
	{ErrBadSignature, KindBadSignature},
	{ErrTokenExpired, KindExpired},
	{ErrWrongTokenKind, KindMalformed},
	{ErrInvalidRefresh, KindInvalidRefresh},
	{ErrAccountDisabled, KindAccountDisabled},
	{ErrForbidden, KindForbidden},
	{ErrUserNotFound, KindNotFound},
	{ErrUserAlreadyExists, KindConflict},
	{ErrStoreUnavailable, KindUpstream},
}

// KindOf classifies err. Errors that match no sentinel are KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	for _, e := range kindTable {
		if errors.Is(err, e.err) {
			return e.kind
		}
	}
	return KindUnknown
}

// IsTokenFailure reports whether kind came from token verification
func IsTokenFailure(kind ErrorKind) bool {
	switch kind {
	case KindMalformed, KindBadSignature, KindExpired, KindUnauthenticated:
		return true
	}
	return false
}
