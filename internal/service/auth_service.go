package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/prohmpiriya/role-portal/internal/domain"
	"github.com/prohmpiriya/role-portal/internal/dto"
	"github.com/prohmpiriya/role-portal/internal/events"
	"github.com/prohmpiriya/role-portal/internal/metrics"
	"github.com/prohmpiriya/role-portal/internal/password"
	"github.com/prohmpiriya/role-portal/internal/repository"
	"github.com/prohmpiriya/role-portal/internal/token"
	"github.com/prohmpiriya/role-portal/pkg/logger"
	"github.com/prohmpiriya/role-portal/pkg/telemetry"
)

// AuthService defines the interface for authentication operations
type AuthService interface {
	// Register creates a user-role identity and signs it in
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	// Login verifies credentials and issues a token pair
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	// Refresh rotates a refresh token into a brand-new pair
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	// Logout revokes refreshToken, or every refresh token of userID when it is empty
	Logout(ctx context.Context, userID, refreshToken string) error
	// ChangePassword replaces the caller's password and revokes outstanding refresh tokens
	ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error
	// Authenticate verifies an access token and re-checks the identity against the store
	Authenticate(ctx context.Context, accessToken string) (*domain.Principal, error)
	// EnsureAdmin creates the seed administrator if no identity uses its email
	EnsureAdmin(ctx context.Context, seed AdminSeed) (*domain.User, bool, error)
}

// AdminSeed describes the administrator created at startup
type AdminSeed struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthDeps holds the collaborators of AuthService. Events, Metrics, Logger and Now are optional.
type AuthDeps struct {
	Users     repository.UserRepository
	Refresh   repository.RefreshStore
	Issuer    *token.Issuer
	Passwords password.Verifier
	Events    events.Publisher
	Metrics   *metrics.Metrics
	Logger    *logger.Logger
	Now       func() time.Time
}

type authService struct {
	users     repository.UserRepository
	refresh   repository.RefreshStore
	issuer    *token.Issuer
	passwords password.Verifier
	events    events.Publisher
	metrics   *metrics.Metrics
	log       *logger.Logger
	now       func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(deps AuthDeps) AuthService {
	s := &authService{
		users:     deps.Users,
		refresh:   deps.Refresh,
		issuer:    deps.Issuer,
		passwords: deps.Passwords,
		events:    deps.Events,
		metrics:   deps.Metrics,
		log:       deps.Logger,
		now:       deps.Now,
	}
	if s.events == nil {
		s.events = events.NewNoOpPublisher()
	}
	if s.log == nil {
		s.log = logger.Get()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.register")
	defer span.End()

	email := domain.NormalizeEmail(req.Email)
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if existing != nil {
		span.SetStatus(codes.Error, "user already exists")
		return nil, domain.ErrUserAlreadyExists
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.PhoneNumber,
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	pair, err := s.issueAndRecord(ctx, user)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, events.NewAccountEvent(events.EventUserRegistered, user, user.ID))
	span.SetAttributes(attribute.String("user_id", user.ID))
	span.SetStatus(codes.Ok, "")

	return dto.NewAuthResponse(pair, user), nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.login")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(req.Email))
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.ObserveLogin("error")
		return nil, err
	}
	if user == nil {
		s.metrics.ObserveLogin("invalid_credentials")
		s.log.WithContext(ctx).Warn("login rejected: unknown email")
		span.SetStatus(codes.Error, "invalid credentials")
		return nil, domain.ErrInvalidCredentials
	}
	span.SetAttributes(attribute.String("user_id", user.ID))

	if err := s.passwords.Verify(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			s.metrics.ObserveLogin("invalid_credentials")
			s.log.WithContext(ctx).Warn("login rejected: wrong password", zap.String("user_id", user.ID))
			span.SetStatus(codes.Error, "invalid credentials")
			return nil, domain.ErrInvalidCredentials
		}
		telemetry.RecordError(span, err)
		s.metrics.ObserveLogin("error")
		return nil, err
	}

	pair, err := s.issueAndRecord(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrAccountDisabled) {
			s.metrics.ObserveLogin("disabled")
			s.log.WithContext(ctx).Warn("login rejected: account disabled",
				zap.String("user_id", user.ID), zap.String("status", string(user.Status)))
		} else {
			s.metrics.ObserveLogin("error")
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	loginAt := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, loginAt); err != nil {
		s.log.WithContext(ctx).Warn("failed to record last login", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLoginAt = &loginAt
	}

	s.metrics.ObserveLogin("success")
	span.SetStatus(codes.Ok, "")
	return dto.NewAuthResponse(pair, user), nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.refresh")
	defer span.End()

	claims, err := s.issuer.Codec().VerifyKind(refreshToken, domain.TokenRefresh)
	if err != nil {
		s.metrics.ObserveRefresh("invalid")
		span.SetStatus(codes.Error, "invalid refresh token")
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRefresh, err)
	}
	span.SetAttributes(attribute.String("user_id", claims.SubjectID))

	user, err := s.users.GetByID(ctx, claims.SubjectID)
	if err != nil {
		s.metrics.ObserveRefresh("error")
		telemetry.RecordError(span, err)
		return nil, err
	}
	if user == nil || !user.IsActive() {
		s.metrics.ObserveRefresh("disabled")
		s.log.WithContext(ctx).Warn("refresh rejected: account disabled", zap.String("user_id", claims.SubjectID))
		span.SetStatus(codes.Error, "account disabled")
		return nil, domain.ErrAccountDisabled
	}

	live, err := s.refresh.Consume(ctx, claims.SubjectID, claims.TokenID)
	if err != nil {
		s.metrics.ObserveRefresh("error")
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !live {
		// A consumed token coming back means the chain leaked; end every session of the owner.
		if err := s.refresh.RevokeAll(ctx, claims.SubjectID); err != nil {
			s.log.WithContext(ctx).Error("failed to revoke after refresh replay", zap.String("user_id", claims.SubjectID), zap.Error(err))
		}
		s.metrics.ObserveRefresh("replayed")
		s.log.WithContext(ctx).Warn("refresh rejected: token already used", zap.String("user_id", claims.SubjectID))
		span.SetStatus(codes.Error, "refresh token replayed")
		return nil, fmt.Errorf("%w: token already used", domain.ErrInvalidRefresh)
	}

	pair, err := s.issueAndRecord(ctx, user)
	if err != nil {
		s.metrics.ObserveRefresh("error")
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.ObserveRefresh("success")
	span.SetStatus(codes.Ok, "")
	return &dto.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

func (s *authService) Logout(ctx context.Context, userID, refreshToken string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.logout")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	if refreshToken == "" {
		if err := s.refresh.RevokeAll(ctx, userID); err != nil {
			telemetry.RecordError(span, err)
			return err
		}
		return nil
	}

	claims, err := s.issuer.Codec().VerifyKind(refreshToken, domain.TokenRefresh)
	if err != nil {
		// Nothing left to revoke for an unusable token
		return nil
	}
	if claims.SubjectID != userID {
		span.SetStatus(codes.Error, "refresh token owned by another identity")
		return domain.ErrForbidden
	}
	if err := s.refresh.Revoke(ctx, userID, claims.TokenID); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

func (s *authService) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.change_password")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if user == nil {
		return domain.ErrUserNotFound
	}

	if err := s.passwords.Verify(user.PasswordHash, req.CurrentPassword); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			s.log.WithContext(ctx).Warn("password change rejected: wrong current password", zap.String("user_id", userID))
			return domain.ErrWrongPassword
		}
		telemetry.RecordError(span, err)
		return err
	}

	hash, err := s.passwords.Hash(req.NewPassword)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	if err := s.refresh.RevokeAll(ctx, userID); err != nil {
		s.log.WithContext(ctx).Warn("failed to revoke refresh tokens after password change", zap.String("user_id", userID), zap.Error(err))
	}
	s.publish(ctx, events.NewAccountEvent(events.EventUserPasswordChanged, user, userID))
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *authService) Authenticate(ctx context.Context, accessToken string) (*domain.Principal, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.authenticate")
	defer span.End()

	claims, err := s.issuer.Codec().VerifyKind(accessToken, domain.TokenAccess)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("user_id", claims.SubjectID))

	user, err := s.users.GetByID(ctx, claims.SubjectID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if user == nil || !user.IsActive() {
		span.SetStatus(codes.Error, "account disabled")
		return nil, domain.ErrAccountDisabled
	}

	return &domain.Principal{
		ID:     user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Status: user.Status,
	}, nil
}

func (s *authService) EnsureAdmin(ctx context.Context, seed AdminSeed) (*domain.User, bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.ensure_admin")
	defer span.End()

	email := domain.NormalizeEmail(seed.Email)
	if email == "" || seed.Password == "" {
		return nil, false, fmt.Errorf("%w: admin email and password are required", domain.ErrValidation)
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, false, err
	}
	if existing != nil {
		if existing.Role != domain.RoleAdmin {
			s.log.Warn("seed admin email belongs to a non-admin identity", zap.String("user_id", existing.ID))
		}
		return existing, false, nil
	}

	hash, err := s.passwords.Hash(seed.Password)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, false, err
	}

	firstName, lastName := seed.FirstName, seed.LastName
	if firstName == "" {
		firstName = "Admin"
	}
	if lastName == "" {
		lastName = "User"
	}

	now := s.now().UTC()
	admin := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         domain.RoleAdmin,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		telemetry.RecordError(span, err)
		return nil, false, err
	}

	s.publish(ctx, events.NewAccountEvent(events.EventUserRegistered, admin, ""))
	span.SetAttributes(attribute.String("user_id", admin.ID))
	return admin, true, nil
}

// issueAndRecord issues a pair and marks its refresh token as redeemable
func (s *authService) issueAndRecord(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	pair, err := s.issuer.IssueInitialPair(user)
	if err != nil {
		return nil, err
	}
	if err := s.refresh.Save(ctx, user.ID, pair.RefreshTokenID, pair.RefreshExpiresAt); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *authService) publish(ctx context.Context, event *events.AccountEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.WithContext(ctx).Warn("failed to publish account event",
			zap.String("type", string(event.Type)),
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
	}
}
