package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/prohmpiriya/role-portal/internal/domain"
)

// EventType names an account lifecycle change
type EventType string

const (
	EventUserRegistered      EventType = "user.registered"
	EventUserRoleChanged     EventType = "user.role_changed"
	EventUserStatusChanged   EventType = "user.status_changed"
	EventUserDeleted         EventType = "user.deleted"
	EventUserPasswordChanged EventType = "user.password_changed"
	EventUserProfileUpdated  EventType = "user.profile_updated"
)

// AccountEvent is the payload published for every account change
type AccountEvent struct {
	ID         string        `json:"id"`
	Type       EventType     `json:"type"`
	UserID     string        `json:"userId"`
	ActorID    string        `json:"actorId,omitempty"`
	Email      string        `json:"email,omitempty"`
	Role       domain.Role   `json:"role,omitempty"`
	Status     domain.Status `json:"status,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}

// NewAccountEvent builds an event about user performed by actorID
func NewAccountEvent(eventType EventType, user *domain.User, actorID string) *AccountEvent {
	e := &AccountEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
	if user != nil {
		e.UserID = user.ID
		e.Email = user.Email
		e.Role = user.Role
		e.Status = user.Status
	}
	return e
}

// Publisher delivers account events
type Publisher interface {
	Publish(ctx context.Context, event *AccountEvent) error
	Close() error
}

// NoOpPublisher drops every event
type NoOpPublisher struct{}

// NewNoOpPublisher creates a new no-op publisher
func NewNoOpPublisher() *NoOpPublisher {
	return &NoOpPublisher{}
}

func (p *NoOpPublisher) Publish(ctx context.Context, event *AccountEvent) error {
	return nil
}

func (p *NoOpPublisher) Close() error {
	return nil
}
