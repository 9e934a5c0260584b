// Package audit defines the events the identity service emits for security
// monitoring. Events are emitted best-effort from domain logic; a publish
// failure never fails the primary operation.
package audit

import (
	"context"
	"time"
)

// Action names what happened.
type Action string

const (
	ActionUserRegistered        Action = "user_registered"
	ActionPlanAssociationFailed Action = "plan_association_failed"
	ActionLoginSucceeded        Action = "login_succeeded"
	ActionLoginFailed           Action = "login_failed"
	ActionLogout                Action = "logout"
	ActionSessionExpired        Action = "session_expired"
	ActionProfileUpdated        Action = "profile_updated"
	ActionAccessDenied          Action = "access_denied"
)

// Event is emitted from domain logic to capture key identity actions. Keep it
// transport-agnostic so publishers can fan out to different sinks.
type Event struct {
	Action      Action    `json:"action"`
	Timestamp   time.Time `json:"timestamp"`
	UserID      string    `json:"user_id,omitempty"`
	Email       string    `json:"email,omitempty"`
	SessionID   string    `json:"session_id,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	DeviceLabel string    `json:"device_label,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Path        string    `json:"path,omitempty"`
}

// Publisher delivers audit events to a sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
