package security

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/user-sync-service/internal/domain"
	"github.com/spec-kit/user-sync-service/internal/events"
)

const (
	// maxAuditEvents bounds in-memory retention; the oldest events are
	// evicted first once the ceiling is reached.
	maxAuditEvents = 10000

	bruteForceThreshold = 5
	volumeThreshold     = 50
	volumeWindow        = 5 * time.Minute
)

// AuditService keeps the in-memory security audit log, evaluates anomaly
// rules on every recorded event, and raises alerts through the event
// dispatcher. Recording never fails and never blocks the caller on alert
// delivery.
type AuditService struct {
	mu     sync.Mutex
	events []domain.SecurityEvent

	logger     *zap.Logger
	dispatcher events.Dispatcher
}

func NewAuditService(logger *zap.Logger, dispatcher events.Dispatcher) *AuditService {
	return &AuditService{
		events:     make([]domain.SecurityEvent, 0, 256),
		logger:     logger,
		dispatcher: dispatcher,
	}
}

// Log records event, applying a timestamp when the caller left it zero,
// and runs the anomaly checks against the updated log.
func (s *AuditService) Log(event domain.SecurityEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	s.events = append(s.events, event)
	if len(s.events) > maxAuditEvents {
		s.events = s.events[len(s.events)-maxAuditEvents:]
	}
	failedLogins := 0
	recentFromIP := 0
	if event.Type == domain.EventLoginFailed {
		failedLogins = s.countLocked(func(e domain.SecurityEvent) bool {
			return e.Type == domain.EventLoginFailed &&
				e.IPAddress == event.IPAddress &&
				e.UserID == event.UserID
		})
	}
	if event.IPAddress != "" {
		cutoff := event.Timestamp.Add(-volumeWindow)
		recentFromIP = s.countLocked(func(e domain.SecurityEvent) bool {
			return e.IPAddress == event.IPAddress && e.Timestamp.After(cutoff)
		})
	}
	s.mu.Unlock()

	s.logger.Warn("security event recorded",
		zap.String("event_type", string(event.Type)),
		zap.String("user_id", event.UserID),
		zap.String("ip_address", event.IPAddress),
		zap.String("risk_level", string(event.RiskLevel)),
		zap.String("details", event.Details),
	)

	if failedLogins >= bruteForceThreshold {
		s.alert("PotentialBruteForceAttack",
			fmt.Sprintf("%d failed login attempts for user %s from IP %s", failedLogins, event.UserID, event.IPAddress),
			event.IPAddress)
	}
	if recentFromIP > volumeThreshold {
		s.alert("HighVolumeActivity",
			fmt.Sprintf("%d security events from IP %s within %s", recentFromIP, event.IPAddress, volumeWindow),
			event.IPAddress)
	}
	if event.Type == domain.EventUnauthorizedAccess && event.RiskLevel == domain.RiskHigh {
		s.alert("UnauthorizedAccessEscalation",
			fmt.Sprintf("high risk unauthorized access by user %s: %s", event.UserID, event.Details),
			event.IPAddress)
	}
}

// countLocked counts matching events; callers must hold s.mu.
func (s *AuditService) countLocked(match func(domain.SecurityEvent) bool) int {
	n := 0
	for _, e := range s.events {
		if match(e) {
			n++
		}
	}
	return n
}

func (s *AuditService) alert(activity, details, ip string) {
	s.logger.Error("security alert raised",
		zap.String("activity", activity),
		zap.String("details", details),
		zap.String("ip_address", ip),
	)
	_ = s.dispatcher.Publish(context.Background(), events.Event{
		Type: events.EventSecurityAlert,
		Payload: events.SecurityAlertPayload{
			Activity:  activity,
			Details:   details,
			IPAddress: ip,
		},
	})
}

// Events returns audit events inside [from, to], newest first. Zero
// bounds are open ended.
func (s *AuditService) Events(from, to time.Time) []domain.SecurityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.SecurityEvent, 0, len(s.events))
	for _, e := range s.events {
		if !from.IsZero() && e.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && e.Timestamp.After(to) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// Metrics aggregates activity over the trailing 24 hours. TopEventTypes
// holds the five most common event types in that window.
func (s *AuditService) Metrics() domain.SecurityMetrics {
	cutoff := time.Now().Add(-24 * time.Hour)

	s.mu.Lock()
	defer s.mu.Unlock()

	metrics := domain.SecurityMetrics{
		TotalEvents:   len(s.events),
		TopEventTypes: make(map[string]int),
	}

	ips := make(map[string]struct{})
	typeCounts := make(map[string]int)
	for _, e := range s.events {
		if !e.Timestamp.After(cutoff) {
			continue
		}
		metrics.EventsLast24h++
		if e.Type == domain.EventLoginFailed {
			metrics.FailedLogins++
		}
		if e.RiskLevel == domain.RiskHigh || e.RiskLevel == domain.RiskCritical {
			metrics.HighRiskEvents++
		}
		if e.IPAddress != "" {
			ips[e.IPAddress] = struct{}{}
		}
		typeCounts[string(e.Type)]++
	}
	metrics.UniqueIPs = len(ips)

	type typeCount struct {
		name  string
		count int
	}
	counts := make([]typeCount, 0, len(typeCounts))
	for name, count := range typeCounts {
		counts = append(counts, typeCount{name, count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].name < counts[j].name
	})
	for i, tc := range counts {
		if i == 5 {
			break
		}
		metrics.TopEventTypes[tc.name] = tc.count
	}
	return metrics
}
