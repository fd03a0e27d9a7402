// Package service hosts the application services built on top of the
// stores: secure user synchronization, authentication and alerting.
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/user-sync-service/internal/datasource"
	"github.com/spec-kit/user-sync-service/internal/domain"
	"github.com/spec-kit/user-sync-service/internal/events"
	"github.com/spec-kit/user-sync-service/internal/observability"
	"github.com/spec-kit/user-sync-service/internal/repository"
	"github.com/spec-kit/user-sync-service/internal/security"
	"github.com/spec-kit/user-sync-service/internal/staging"
	"github.com/spec-kit/user-sync-service/pkg/util"
)

// SyncDependencies bundles the collaborators of SyncService.
type SyncDependencies struct {
	Data       datasource.DataSource
	Staging    *staging.Store
	Primary    repository.UserRepository
	Validator  *security.Validator
	Audit      *security.AuditService
	Limiter    security.Limiter
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// SyncService migrates users from the staging store into the primary
// store, exactly once per user, under authorization, rate limiting and
// full audit coverage.
type SyncService struct {
	deps SyncDependencies

	userLocks *util.KeyedMutex

	auditMu  sync.Mutex
	auditLog []domain.SyncAuditEntry
}

func NewSyncService(deps SyncDependencies) *SyncService {
	return &SyncService{
		deps:      deps,
		userLocks: &util.KeyedMutex{},
	}
}

// CheckUserExistence reports where the user currently resides. Staging is
// consulted through the staging store and primary through its repository
// directly, so the answer is independent of the configured read strategy.
func (s *SyncService) CheckUserExistence(ctx context.Context, userID string) (domain.UserExistenceStatus, error) {
	var status domain.UserExistenceStatus

	stagingUser, err := s.deps.Staging.GetByID(ctx, userID)
	if err != nil {
		return status, err
	}
	if stagingUser != nil {
		status.ExistsInStaging = true
		status.StagingUser = stagingUser
	}

	primaryUser, err := s.deps.Primary.GetByID(ctx, userID)
	if err != nil {
		s.deps.Logger.Warn("primary store lookup failed during existence check",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return status, util.NewStoreUnavailable("primary", err)
	}
	if primaryUser != nil {
		status.ExistsInPrimary = true
		status.PrimaryUser = primaryUser
	}

	return status, nil
}

// ValidateUserForSync dry-runs a synchronization of userID without
// consuming rate budget or writing anything.
func (s *SyncService) ValidateUserForSync(ctx context.Context, userID string) (domain.SyncValidationResult, error) {
	status, err := s.CheckUserExistence(ctx, userID)
	if err != nil {
		return domain.SyncValidationResult{}, err
	}

	if status.ExistsInPrimary {
		return domain.SyncValidationResult{
			ErrorMessage: "User already exists in primary store. Synchronization is not needed.",
			UserData:     status.PrimaryUser,
		}, nil
	}
	if !status.ExistsInStaging {
		return domain.SyncValidationResult{
			ErrorMessage: "User does not exist in any data source.",
		}, nil
	}

	if issues := security.ValidateUserRecord(status.StagingUser); len(issues) > 0 {
		return domain.SyncValidationResult{
			ErrorMessage: "User data failed validation: " + strings.Join(issues, "; "),
			Issues:       issues,
			UserData:     status.StagingUser,
		}, nil
	}

	return domain.SyncValidationResult{
		IsValid:  true,
		UserData: status.StagingUser,
	}, nil
}

// SecureSyncUser migrates targetUserID from staging into the primary
// store on behalf of requestingUserID. Every attempt that reaches the
// rate limiter produces exactly one audit entry, except an attempt whose
// context is cancelled before the primary write is issued.
func (s *SyncService) SecureSyncUser(ctx context.Context, requestingUserID, targetUserID, reason string, rc security.RequestContext) (*domain.User, error) {
	if reason == "" {
		reason = "User synchronization"
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !s.deps.Limiter.Allow(ctx, requestingUserID) {
		s.deps.Validator.LogSecurityEvent(domain.SecurityEvent{
			Type:      domain.EventRateLimitExceeded,
			UserID:    requestingUserID,
			IPAddress: rc.IPAddress,
			UserAgent: rc.UserAgent,
			SessionID: rc.SessionID,
			Details:   "user synchronization rate limit exceeded",
			RiskLevel: domain.RiskMedium,
		})
		s.recordAttempt(ctx, requestingUserID, targetUserID, reason, rc, false,
			"Too many synchronization attempts. Please try again later.")
		return nil, util.NewRateLimited("Too many synchronization attempts. Please try again later.")
	}

	unlock := s.userLocks.Lock(targetUserID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	status, err := s.CheckUserExistence(ctx, targetUserID)
	if err != nil {
		s.recordAttempt(ctx, requestingUserID, targetUserID, reason, rc, false, err.Error())
		return nil, err
	}
	if status.ExistsInPrimary {
		msg := "User already exists in primary store. Synchronization is not needed."
		s.recordAttempt(ctx, requestingUserID, targetUserID, reason, rc, false, msg)
		return nil, util.NewConflict(msg, nil)
	}
	if !status.ExistsInStaging {
		msg := "User does not exist in any data source."
		s.recordAttempt(ctx, requestingUserID, targetUserID, reason, rc, false, msg)
		return nil, util.NewNotFound("user", map[string]any{"id": targetUserID})
	}

	if issues := security.ValidateUserRecord(status.StagingUser); len(issues) > 0 {
		msg := "User data failed validation: " + strings.Join(issues, "; ")
		s.recordAttempt(ctx, requestingUserID, targetUserID, reason, rc, false, msg)
		return nil, util.NewValidationError(msg, map[string]any{"issues": issues})
	}

	if !s.deps.Validator.ValidateSyncAuthorization(ctx, requestingUserID, targetUserID, rc) {
		msg := "Insufficient permissions to synchronize this user."
		s.recordAttempt(ctx, requestingUserID, targetUserID, reason, rc, false, msg)
		return nil, util.NewForbidden(msg)
	}

	// Last cancellation point. Once the write is issued it runs to
	// completion on a detached context, so a user is never half migrated
	// by a client disconnect.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	writeCtx := context.WithoutCancel(ctx)

	user := *status.StagingUser
	if err := s.deps.Primary.Create(writeCtx, &user); err != nil {
		s.deps.Logger.Error("primary store write failed during synchronization",
			zap.String("user_id", targetUserID),
			zap.String("requesting_user_id", requestingUserID),
			zap.Error(err),
		)
		s.recordAttempt(writeCtx, requestingUserID, targetUserID, reason, rc, false,
			"Failed to write user to primary store: "+err.Error())
		return nil, util.NewStoreUnavailable("primary", err)
	}

	s.deps.Logger.Info("user synchronized into primary store",
		zap.String("user_id", user.ID),
		zap.String("requesting_user_id", requestingUserID),
		zap.String("reason", reason),
	)
	s.recordAttempt(writeCtx, requestingUserID, targetUserID, reason, rc, true, "")

	_ = s.deps.Dispatcher.Publish(writeCtx, events.Event{
		Type:   events.EventUserSynced,
		UserID: user.ID,
		Payload: events.UserSyncedPayload{
			RequestingUserID: requestingUserID,
			Reason:           reason,
			Email:            user.Email,
		},
	})

	return &user, nil
}

// SyncSelf lets an authenticated user migrate their own account. The
// pre-checks return friendlier messages than the general path.
func (s *SyncService) SyncSelf(ctx context.Context, userID string, rc security.RequestContext) (*domain.User, error) {
	status, err := s.CheckUserExistence(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !status.ExistsInStaging {
		return nil, util.NewNotFound("account", map[string]any{"id": userID})
	}
	if !status.RequiresSync() {
		return nil, util.NewConflict("Your account is already synchronized.", nil)
	}

	return s.SecureSyncUser(ctx, userID, userID, "Self-service synchronization", rc)
}

// AuditLogFor returns the synchronization audit entries whose target is
// userID, newest first.
func (s *SyncService) AuditLogFor(userID string) []domain.SyncAuditEntry {
	s.auditMu.Lock()
	defer s.auditMu.Unlock()

	out := make([]domain.SyncAuditEntry, 0, 8)
	for i := len(s.auditLog) - 1; i >= 0; i-- {
		if s.auditLog[i].UserID == userID {
			out = append(out, s.auditLog[i])
		}
	}
	return out
}

func (s *SyncService) recordAttempt(ctx context.Context, requestingUserID, targetUserID, reason string, rc security.RequestContext, success bool, errorMessage string) {
	entry := domain.SyncAuditEntry{
		ID:               uuid.NewString(),
		UserID:           targetUserID,
		RequestingUserID: requestingUserID,
		Operation:        "SecureSync",
		Reason:           reason,
		Success:          success,
		ErrorMessage:     errorMessage,
		Timestamp:        time.Now().UTC(),
		IPAddress:        rc.IPAddress,
		UserAgent:        rc.UserAgent,
	}
	if requester, err := s.deps.Data.GetUserByID(ctx, requestingUserID); err == nil && requester != nil {
		entry.RequestingUserEmail = requester.Email
	}

	s.auditMu.Lock()
	s.auditLog = append(s.auditLog, entry)
	s.auditMu.Unlock()

	s.deps.Metrics.RecordSyncAttempt(success)
}
