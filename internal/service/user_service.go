package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/prohmpiriya/role-portal/internal/domain"
	"github.com/prohmpiriya/role-portal/internal/events"
	"github.com/prohmpiriya/role-portal/internal/repository"
	"github.com/prohmpiriya/role-portal/pkg/logger"
	"github.com/prohmpiriya/role-portal/pkg/telemetry"
)

// RecentWindow is how far back Stats counts registrations
const RecentWindow = 7 * 24 * time.Hour

// UserService covers profile self-service and the admin surface
type UserService interface {
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.User, error)
	List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdateUser(ctx context.Context, actorID, id string, update domain.ProfileUpdate) (*domain.User, error)
	UpdateRole(ctx context.Context, actorID, id string, role domain.Role) (*domain.User, error)
	UpdateStatus(ctx context.Context, actorID, id string, status domain.Status) (*domain.User, error)
	Delete(ctx context.Context, actorID, id string) error
	Stats(ctx context.Context) (*domain.Stats, error)
}

// UserDeps holds the collaborators of UserService. Events, Logger and Now are optional.
type UserDeps struct {
	Users   repository.UserRepository
	Refresh repository.RefreshStore
	Events  events.Publisher
	Logger  *logger.Logger
	Now     func() time.Time
}

type userService struct {
	users   repository.UserRepository
	refresh repository.RefreshStore
	events  events.Publisher
	log     *logger.Logger
	now     func() time.Time
}

// NewUserService creates a new UserService
func NewUserService(deps UserDeps) UserService {
	s := &userService{
		users:   deps.Users,
		refresh: deps.Refresh,
		events:  deps.Events,
		log:     deps.Logger,
		now:     deps.Now,
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

func (s *userService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.user.get_profile")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))
	return s.mustGet(ctx, userID)
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.user.update_profile")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))
	user, err := s.applyUpdate(ctx, userID, update)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, events.NewAccountEvent(events.EventUserProfileUpdated, user, userID))
	return user, nil
}

func (s *userService) List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.user.list")
	defer span.End()

	span.SetAttributes(
		attribute.String("role", string(filter.Role)),
		attribute.Int("limit", filter.Limit),
		attribute.Int("offset", filter.Offset),
	)

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, err
	}
	span.SetAttributes(attribute.Int("total", total))
	return users, total, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.user.get")
	defer span.End()

	span.SetAttributes(attribute.String("target_id", id))
	return s.mustGet(ctx, id)
}

func (s *userService) UpdateUser(ctx context.Context, actorID, id string, update domain.ProfileUpdate) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.user.admin_update")
	defer span.End()

	span.SetAttributes(attribute.String("actor_id", actorID), attribute.String("target_id", id))
	user, err := s.applyUpdate(ctx, id, update)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, events.NewAccountEvent(events.EventUserProfileUpdated, user, actorID))
	return user, nil
}

func (s *userService) UpdateRole(ctx context.Context, actorID, id string, role domain.Role) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.user.update_role")
	defer span.End()

	span.SetAttributes(attribute.String("actor_id", actorID), attribute.String("target_id", id), attribute.String("role", string(role)))

	if !role.Valid() {
		return nil, domain.ErrValidation
	}
	user, err := s.users.UpdateRole(ctx, id, role)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if user == nil {
		span.SetStatus(codes.Error, "user not found")
		return nil, domain.ErrUserNotFound
	}

	s.log.WithContext(ctx).Info("user role changed",
		zap.String("actor_id", actorID), zap.String("user_id", id), zap.String("role", string(role)))
	s.publish(ctx, events.NewAccountEvent(events.EventUserRoleChanged, user, actorID))
	return user, nil
}

func (s *userService) UpdateStatus(ctx context.Context, actorID, id string, status domain.Status) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.user.update_status")
	defer span.End()

	span.SetAttributes(attribute.String("actor_id", actorID), attribute.String("target_id", id), attribute.String("status", string(status)))

	user, err := s.users.UpdateStatus(ctx, id, status)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if user == nil {
		span.SetStatus(codes.Error, "user not found")
		return nil, domain.ErrUserNotFound
	}

	if !user.IsActive() {
		if err := s.refresh.RevokeAll(ctx, id); err != nil {
			s.log.WithContext(ctx).Warn("failed to revoke refresh tokens of disabled user", zap.String("user_id", id), zap.Error(err))
		}
	}

	s.log.WithContext(ctx).Info("user status changed",
		zap.String("actor_id", actorID), zap.String("user_id", id), zap.String("status", string(status)))
	s.publish(ctx, events.NewAccountEvent(events.EventUserStatusChanged, user, actorID))
	return user, nil
}

func (s *userService) Delete(ctx context.Context, actorID, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.user.delete")
	defer span.End()

	span.SetAttributes(attribute.String("actor_id", actorID), attribute.String("target_id", id))

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if user == nil {
		return domain.ErrUserNotFound
	}

	deleted, err := s.users.Delete(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if !deleted {
		return domain.ErrUserNotFound
	}

	if err := s.refresh.RevokeAll(ctx, id); err != nil {
		s.log.WithContext(ctx).Warn("failed to revoke refresh tokens of deleted user", zap.String("user_id", id), zap.Error(err))
	}
	s.log.WithContext(ctx).Info("user deleted", zap.String("actor_id", actorID), zap.String("user_id", id))
	s.publish(ctx, events.NewAccountEvent(events.EventUserDeleted, user, actorID))
	return nil
}

func (s *userService) Stats(ctx context.Context) (*domain.Stats, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.user.stats")
	defer span.End()

	stats, err := s.users.Stats(ctx, s.now().Add(-RecentWindow))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return stats, nil
}

func (s *userService) mustGet(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *userService) applyUpdate(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error) {
	user, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	update.Apply(user)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) publish(ctx context.Context, event *events.AccountEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.WithContext(ctx).Warn("failed to publish account event",
			zap.String("type", string(event.Type)),
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
	}
}
