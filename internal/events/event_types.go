package events

import (
	"time"

	"github.com/spec-kit/user-sync-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserCreated   EventType = "user_created"
	EventUserSynced    EventType = "user_synced"
	EventSecurityAlert EventType = "security_alert"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserCreatedPayload payload.
type UserCreatedPayload struct {
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	Source string      `json:"source"`
}

// UserSyncedPayload payload.
type UserSyncedPayload struct {
	RequestingUserID string `json:"requesting_user_id"`
	Reason           string `json:"reason"`
	Email            string `json:"email"`
}

// SecurityAlertPayload payload.
type SecurityAlertPayload struct {
	Activity  string `json:"activity"`
	Details   string `json:"details"`
	IPAddress string `json:"ip_address,omitempty"`
}
