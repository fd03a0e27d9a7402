package domain

import "time"

// UserExistenceStatus captures where a user currently resides. It is
// computed fresh on every check and never cached across requests.
type UserExistenceStatus struct {
	ExistsInStaging bool  `json:"existsInStaging"`
	ExistsInPrimary bool  `json:"existsInPrimary"`
	StagingUser     *User `json:"stagingUser,omitempty"`
	PrimaryUser     *User `json:"primaryUser,omitempty"`
}

// RequiresSync reports whether the user still needs migration into the
// primary store.
func (s UserExistenceStatus) RequiresSync() bool {
	return s.ExistsInStaging && !s.ExistsInPrimary
}

// SyncValidationResult is the outcome of a dry-run validation of one
// synchronization attempt.
type SyncValidationResult struct {
	IsValid      bool     `json:"isValid"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
	Issues       []string `json:"validationIssues,omitempty"`
	UserData     *User    `json:"userData,omitempty"`
}

// SyncAuditEntry is the append-only record of a single synchronization
// attempt. One entry exists per completed attempt, success or failure.
type SyncAuditEntry struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"userId"`
	RequestingUserID    string    `json:"requestingUserId"`
	RequestingUserEmail string    `json:"requestingUserEmail,omitempty"`
	Operation           string    `json:"operation"`
	Reason              string    `json:"reason"`
	Success             bool      `json:"success"`
	ErrorMessage        string    `json:"errorMessage,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
	IPAddress           string    `json:"ipAddress"`
	UserAgent           string    `json:"userAgent"`
}
