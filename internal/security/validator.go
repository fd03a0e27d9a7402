package security

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/user-sync-service/internal/datasource"
	"github.com/spec-kit/user-sync-service/internal/domain"
)

// RequestContext carries the caller-facing attributes of a request that
// security decisions and audit records need.
type RequestContext struct {
	IPAddress string
	UserAgent string
	SessionID string
}

// ValidationResult is the outcome of a security validation. RiskLevel is
// only meaningful when IsValid is false.
type ValidationResult struct {
	IsValid   bool
	Issues    []string
	RiskLevel domain.RiskLevel
}

func invalid(risk domain.RiskLevel, issues ...string) ValidationResult {
	return ValidationResult{Issues: issues, RiskLevel: risk}
}

// suspiciousFragments is the denylist applied to free-text user fields.
// Lowercased substring match; a hit rejects the whole payload.
var suspiciousFragments = []string{
	"<script",
	"javascript:",
	"vbscript:",
	"onload=",
	"onerror=",
	"onclick=",
	"select ",
	"insert ",
	"update ",
	"delete ",
	"drop ",
	"union ",
	"exec ",
	"../",
	"..\\",
	"%2e%2e",
}

// ContainsSuspiciousContent reports whether value matches the injection
// denylist.
func ContainsSuspiciousContent(value string) bool {
	lowered := strings.ToLower(value)
	for _, fragment := range suspiciousFragments {
		if strings.Contains(lowered, fragment) {
			return true
		}
	}
	return false
}

const minAccountAgeYears = 13

// ValidateUserRecord checks that a user record is complete and safe enough
// to be written to a store. It returns human-readable issues, empty when
// the record passes.
func ValidateUserRecord(u *domain.User) []string {
	var issues []string
	if u == nil {
		return []string{"User data is required"}
	}
	if strings.TrimSpace(u.FirstName) == "" {
		issues = append(issues, "First name is required")
	}
	if strings.TrimSpace(u.LastName) == "" {
		issues = append(issues, "Last name is required")
	}
	if !validEmail(u.Email) {
		issues = append(issues, "Valid email is required")
	}
	if !u.Role.Valid() {
		issues = append(issues, "Valid role is required")
	}
	if strings.TrimSpace(u.PasswordHash) == "" {
		issues = append(issues, "Password hash is required")
	}
	if u.DateOfBirth.IsZero() {
		issues = append(issues, "Date of birth is required")
	} else if u.DateOfBirth.After(time.Now().AddDate(-minAccountAgeYears, 0, 0)) {
		issues = append(issues, fmt.Sprintf("User must be at least %d years old", minAccountAgeYears))
	}
	for _, field := range []string{u.FirstName, u.LastName, u.Email, u.Phone} {
		if ContainsSuspiciousContent(field) {
			issues = append(issues, "Input contains potentially malicious content")
			break
		}
	}
	return issues
}

func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}

// Validator enforces the authorization, rate-limit and payload rules of
// user mutations, recording every rejection in the audit log.
type Validator struct {
	data             datasource.DataSource
	audit            *AuditService
	principalLimiter Limiter
	originLimiter    Limiter
	logger           *zap.Logger
}

// NewValidator wires the creation-rate limiters: principalLimiter keys on
// the requesting user id, originLimiter on the caller IP.
func NewValidator(data datasource.DataSource, audit *AuditService, principalLimiter, originLimiter Limiter, logger *zap.Logger) *Validator {
	return &Validator{
		data:             data,
		audit:            audit,
		principalLimiter: principalLimiter,
		originLimiter:    originLimiter,
		logger:           logger,
	}
}

// ValidateUserCreation runs the full pre-creation gauntlet for a request
// by requestingUserID to create input. Checks run in a fixed order and the
// first failure wins; every failure except a duplicate email is audited.
func (v *Validator) ValidateUserCreation(ctx context.Context, requestingUserID string, input datasource.CreateUserInput, rc RequestContext) ValidationResult {
	requester, err := v.data.GetUserByID(ctx, requestingUserID)
	if err != nil || requester == nil {
		v.LogSecurityEvent(domain.SecurityEvent{
			Type:      domain.EventUnauthorizedUserCreation,
			UserID:    requestingUserID,
			IPAddress: rc.IPAddress,
			UserAgent: rc.UserAgent,
			SessionID: rc.SessionID,
			Details:   "user creation attempted by unknown requester",
			RiskLevel: domain.RiskHigh,
		})
		return invalid(domain.RiskHigh, "Requesting user not found")
	}

	if !requester.Role.CanManageUsers() {
		v.LogSecurityEvent(domain.SecurityEvent{
			Type:      domain.EventUnauthorizedUserCreation,
			UserID:    requestingUserID,
			IPAddress: rc.IPAddress,
			UserAgent: rc.UserAgent,
			SessionID: rc.SessionID,
			Details:   fmt.Sprintf("user with role %s attempted to create a user", requester.Role),
			RiskLevel: domain.RiskHigh,
		})
		return invalid(domain.RiskHigh, "Insufficient permissions to create users")
	}

	if !v.principalLimiter.Allow(ctx, requestingUserID) {
		v.LogSecurityEvent(domain.SecurityEvent{
			Type:      domain.EventRateLimitExceeded,
			UserID:    requestingUserID,
			IPAddress: rc.IPAddress,
			UserAgent: rc.UserAgent,
			SessionID: rc.SessionID,
			Details:   "user creation rate limit exceeded for requesting user",
			RiskLevel: domain.RiskMedium,
		})
		return invalid(domain.RiskMedium, "Too many user creation attempts. Please try again later.")
	}
	if rc.IPAddress != "" && !v.originLimiter.Allow(ctx, rc.IPAddress) {
		v.LogSecurityEvent(domain.SecurityEvent{
			Type:      domain.EventRateLimitExceeded,
			UserID:    requestingUserID,
			IPAddress: rc.IPAddress,
			UserAgent: rc.UserAgent,
			SessionID: rc.SessionID,
			Details:   "user creation rate limit exceeded for origin IP",
			RiskLevel: domain.RiskMedium,
		})
		return invalid(domain.RiskMedium, "Too many user creation attempts. Please try again later.")
	}

	if issues := validateCreateInput(input); len(issues) > 0 {
		v.LogSecurityEvent(domain.SecurityEvent{
			Type:      domain.EventInvalidUserDataSubmission,
			UserID:    requestingUserID,
			IPAddress: rc.IPAddress,
			UserAgent: rc.UserAgent,
			SessionID: rc.SessionID,
			Details:   "user creation payload rejected: " + strings.Join(issues, "; "),
			RiskLevel: domain.RiskMedium,
		})
		return invalid(domain.RiskMedium, issues...)
	}

	existing, err := v.data.GetUserByEmail(ctx, input.Email)
	if err == nil && existing != nil {
		return invalid(domain.RiskMedium, "A user with this email already exists")
	}

	if input.Role == domain.RoleAdmin && requester.Role != domain.RoleAdmin {
		v.LogSecurityEvent(domain.SecurityEvent{
			Type:      domain.EventPrivilegeEscalation,
			UserID:    requestingUserID,
			IPAddress: rc.IPAddress,
			UserAgent: rc.UserAgent,
			SessionID: rc.SessionID,
			Details:   fmt.Sprintf("%s attempted to create an Admin account", requester.Role),
			RiskLevel: domain.RiskHigh,
		})
		return invalid(domain.RiskHigh, "Only administrators can create administrator accounts")
	}

	return ValidationResult{IsValid: true}
}

func validateCreateInput(input datasource.CreateUserInput) []string {
	candidate := domain.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		Phone:        input.Phone,
		DateOfBirth:  input.DateOfBirth,
		Role:         input.Role,
		PasswordHash: input.PasswordHash,
	}
	return ValidateUserRecord(&candidate)
}

// ValidateSyncAuthorization decides whether requester may synchronize the
// account targetUserID. Users may always synchronize themselves; otherwise
// the requester needs a management role. Rejections are audited.
func (v *Validator) ValidateSyncAuthorization(ctx context.Context, requestingUserID, targetUserID string, rc RequestContext) bool {
	return v.authorizeAgainstTarget(ctx, requestingUserID, targetUserID, rc,
		domain.EventUnauthorizedUserSync, "unauthorized user synchronization attempt")
}

// ValidateModificationAuthorization decides whether requester may modify
// the account targetUserID, under the same self-or-manager rule.
func (v *Validator) ValidateModificationAuthorization(ctx context.Context, requestingUserID, targetUserID string, rc RequestContext) bool {
	return v.authorizeAgainstTarget(ctx, requestingUserID, targetUserID, rc,
		domain.EventUnauthorizedUserModification, "unauthorized user modification attempt")
}

func (v *Validator) authorizeAgainstTarget(ctx context.Context, requestingUserID, targetUserID string, rc RequestContext, eventType domain.SecurityEventType, detail string) bool {
	if requestingUserID != "" && requestingUserID == targetUserID {
		return true
	}

	requester, err := v.data.GetUserByID(ctx, requestingUserID)
	if err == nil && requester != nil && requester.Role.CanManageUsers() {
		return true
	}

	v.LogSecurityEvent(domain.SecurityEvent{
		Type:      eventType,
		UserID:    requestingUserID,
		IPAddress: rc.IPAddress,
		UserAgent: rc.UserAgent,
		SessionID: rc.SessionID,
		Details:   fmt.Sprintf("%s against user %s", detail, targetUserID),
		RiskLevel: domain.RiskHigh,
	})
	return false
}

// LogSecurityEvent records event in the audit log. It never fails; audit
// unavailability must not block request handling.
func (v *Validator) LogSecurityEvent(event domain.SecurityEvent) {
	v.audit.Log(event)
}
