package domain

import "time"

// SecurityEventType classifies audited security events.
type SecurityEventType string

const (
	EventLoginSuccess                   SecurityEventType = "LoginSuccess"
	EventLoginFailed                    SecurityEventType = "LoginFailed"
	EventLogout                         SecurityEventType = "Logout"
	EventPasswordChanged                SecurityEventType = "PasswordChanged"
	EventAccountLocked                  SecurityEventType = "AccountLocked"
	EventUnauthorizedAccess             SecurityEventType = "UnauthorizedAccess"
	EventPrivilegeEscalation            SecurityEventType = "PrivilegeEscalation"
	EventSuspiciousActivity             SecurityEventType = "SuspiciousActivity"
	EventDataAccess                     SecurityEventType = "DataAccess"
	EventDataModification               SecurityEventType = "DataModification"
	EventConfigurationChanged           SecurityEventType = "ConfigurationChanged"
	EventSecurityPolicyViolation        SecurityEventType = "SecurityPolicyViolation"
	EventMaliciousInputDetected         SecurityEventType = "MaliciousInputDetected"
	EventRateLimitExceeded              SecurityEventType = "RateLimitExceeded"
	EventUnauthorizedUserCreation       SecurityEventType = "UnauthorizedUserCreationAttempt"
	EventUnauthorizedUserSync           SecurityEventType = "UnauthorizedUserSyncAttempt"
	EventUnauthorizedUserModification   SecurityEventType = "UnauthorizedUserModificationAttempt"
	EventSuspiciousUserCreationPattern  SecurityEventType = "SuspiciousUserCreationPattern"
	EventInvalidUserDataSubmission      SecurityEventType = "InvalidUserDataSubmission"
)

// RiskLevel is a coarse severity tag attached to security events.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// SecurityEvent is an append-only audit record. The audit service bounds
// total retention by evicting the oldest events past a fixed ceiling.
type SecurityEvent struct {
	Timestamp      time.Time         `json:"timestamp"`
	Type           SecurityEventType `json:"eventType"`
	UserID         string            `json:"userId,omitempty"`
	IPAddress      string            `json:"ipAddress,omitempty"`
	UserAgent      string            `json:"userAgent,omitempty"`
	SessionID      string            `json:"sessionId,omitempty"`
	Details        string            `json:"details"`
	RiskLevel      RiskLevel         `json:"riskLevel"`
	AdditionalData map[string]any    `json:"additionalData,omitempty"`
}

// SecurityMetrics aggregates audit activity over the trailing 24 hours.
type SecurityMetrics struct {
	TotalEvents    int            `json:"totalEvents"`
	EventsLast24h  int            `json:"eventsLast24Hours"`
	FailedLogins   int            `json:"failedLoginAttempts"`
	HighRiskEvents int            `json:"highRiskEvents"`
	UniqueIPs      int            `json:"uniqueIpAddresses"`
	TopEventTypes  map[string]int `json:"mostCommonEventTypes"`
}
