package domain

import "time"

// TokenKind distinguishes access tokens from refresh tokens
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// Claims is the verified content of a token
type Claims struct {
	TokenID   string
	SubjectID string
	Role      Role
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair is an access/refresh pair handed to a client
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	ExpiresIn        int64     `json:"expiresIn"`
	RefreshExpiresAt time.Time `json:"-"`
	RefreshTokenID   string    `json:"-"`
}

// Principal is the authenticated caller attached to a request
type Principal struct {
	ID     string
	Email  string
	Role   Role
	Status Status
}
