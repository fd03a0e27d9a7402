package security

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/user-sync-service/internal/domain"
	"github.com/spec-kit/user-sync-service/internal/events"
)

// alertRecorder captures security alerts published by the audit service.
type alertRecorder struct {
	mu     sync.Mutex
	alerts []events.SecurityAlertPayload
}

func (r *alertRecorder) handle(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SecurityAlertPayload)
	if !ok {
		return nil
	}
	r.mu.Lock()
	r.alerts = append(r.alerts, payload)
	r.mu.Unlock()
	return nil
}

func (r *alertRecorder) byActivity(activity string) []events.SecurityAlertPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.SecurityAlertPayload
	for _, a := range r.alerts {
		if a.Activity == activity {
			out = append(out, a)
		}
	}
	return out
}

func newAuditFixture() (*AuditService, *alertRecorder) {
	dispatcher := events.NewInMemoryDispatcher()
	recorder := &alertRecorder{}
	dispatcher.Subscribe(events.EventSecurityAlert, recorder.handle)
	return NewAuditService(zap.NewNop(), dispatcher), recorder
}

func TestAuditBruteForceAlertAfterFiveFailedLogins(t *testing.T) {
	audit, recorder := newAuditFixture()

	for i := 0; i < 4; i++ {
		audit.Log(domain.SecurityEvent{
			Type:      domain.EventLoginFailed,
			UserID:    "victim",
			IPAddress: "10.0.0.1",
			RiskLevel: domain.RiskMedium,
		})
	}
	assert.Empty(t, recorder.byActivity("PotentialBruteForceAttack"))

	audit.Log(domain.SecurityEvent{
		Type:      domain.EventLoginFailed,
		UserID:    "victim",
		IPAddress: "10.0.0.1",
		RiskLevel: domain.RiskMedium,
	})
	require.NotEmpty(t, recorder.byActivity("PotentialBruteForceAttack"))
}

func TestAuditBruteForceKeysOnIPAndPrincipal(t *testing.T) {
	audit, recorder := newAuditFixture()

	// Failures spread over distinct IPs for the same user never reach
	// the per-pair threshold.
	for i := 0; i < 5; i++ {
		audit.Log(domain.SecurityEvent{
			Type:      domain.EventLoginFailed,
			UserID:    "victim",
			IPAddress: fmt.Sprintf("10.0.0.%d", i),
			RiskLevel: domain.RiskMedium,
		})
	}
	assert.Empty(t, recorder.byActivity("PotentialBruteForceAttack"))
}

func TestAuditVolumeAlertPastFiftyEventsPerIP(t *testing.T) {
	audit, recorder := newAuditFixture()

	for i := 0; i < 50; i++ {
		audit.Log(domain.SecurityEvent{
			Type:      domain.EventDataAccess,
			IPAddress: "172.16.0.9",
			RiskLevel: domain.RiskLow,
		})
	}
	assert.Empty(t, recorder.byActivity("HighVolumeActivity"))

	audit.Log(domain.SecurityEvent{
		Type:      domain.EventDataAccess,
		IPAddress: "172.16.0.9",
		RiskLevel: domain.RiskLow,
	})
	require.NotEmpty(t, recorder.byActivity("HighVolumeActivity"))
}

func TestAuditHighRiskUnauthorizedAccessEscalates(t *testing.T) {
	audit, recorder := newAuditFixture()

	audit.Log(domain.SecurityEvent{
		Type:      domain.EventUnauthorizedAccess,
		UserID:    "intruder",
		IPAddress: "192.168.1.5",
		RiskLevel: domain.RiskHigh,
	})
	require.Len(t, recorder.byActivity("UnauthorizedAccessEscalation"), 1)
}

func TestAuditEventsFilteredAndNewestFirst(t *testing.T) {
	audit, _ := newAuditFixture()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		audit.Log(domain.SecurityEvent{
			Type:      domain.EventDataAccess,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			RiskLevel: domain.RiskLow,
		})
	}

	all := audit.Events(time.Time{}, time.Time{})
	require.Len(t, all, 3)
	assert.True(t, all[0].Timestamp.After(all[1].Timestamp))

	window := audit.Events(base.Add(30*time.Second), base.Add(90*time.Second))
	assert.Len(t, window, 1)
}

func TestAuditMetricsAggregateTrailingDay(t *testing.T) {
	audit, _ := newAuditFixture()

	// Old events count toward the total but not the 24h window.
	audit.Log(domain.SecurityEvent{
		Type:      domain.EventLoginFailed,
		Timestamp: time.Now().Add(-48 * time.Hour),
		RiskLevel: domain.RiskMedium,
	})
	audit.Log(domain.SecurityEvent{
		Type:      domain.EventLoginFailed,
		UserID:    "u1",
		IPAddress: "10.1.1.1",
		RiskLevel: domain.RiskMedium,
	})
	audit.Log(domain.SecurityEvent{
		Type:      domain.EventUnauthorizedAccess,
		IPAddress: "10.1.1.2",
		RiskLevel: domain.RiskHigh,
	})
	audit.Log(domain.SecurityEvent{
		Type:      domain.EventDataAccess,
		IPAddress: "10.1.1.1",
		RiskLevel: domain.RiskLow,
	})

	metrics := audit.Metrics()
	assert.Equal(t, 4, metrics.TotalEvents)
	assert.Equal(t, 3, metrics.EventsLast24h)
	assert.Equal(t, 1, metrics.FailedLogins)
	assert.Equal(t, 1, metrics.HighRiskEvents)
	assert.Equal(t, 2, metrics.UniqueIPs)
	assert.Equal(t, 1, metrics.TopEventTypes[string(domain.EventLoginFailed)])
}

func TestAuditRetentionEvictsOldest(t *testing.T) {
	audit, _ := newAuditFixture()

	first := domain.SecurityEvent{
		Type:      domain.EventDataAccess,
		Details:   "first",
		RiskLevel: domain.RiskLow,
	}
	audit.Log(first)
	for i := 0; i < maxAuditEvents; i++ {
		audit.Log(domain.SecurityEvent{
			Type:      domain.EventDataAccess,
			RiskLevel: domain.RiskLow,
		})
	}

	metrics := audit.Metrics()
	assert.Equal(t, maxAuditEvents, metrics.TotalEvents)

	all := audit.Events(time.Time{}, time.Time{})
	assert.NotEqual(t, "first", all[len(all)-1].Details)
}
