package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/user-sync-service/internal/config"
	"github.com/spec-kit/user-sync-service/internal/events"
)

// AlertService fans security alerts and synchronization notices out to
// the configured channels. Channels without configuration are skipped.
type AlertService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.AlertConfig
}

// NewAlertService creates the service.
func NewAlertService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.AlertConfig) *AlertService {
	return &AlertService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (a *AlertService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventSecurityAlert, a.handleSecurityAlert)
	a.dispatcher.Subscribe(events.EventUserSynced, a.handleUserSynced)
	a.dispatcher.Subscribe(events.EventUserCreated, a.handleUserCreated)
}

func (a *AlertService) handleSecurityAlert(ctx context.Context, event events.Event) error {
	a.logger.Info("SecurityAlert", zap.Any("payload", event.Payload))
	a.sendEmailAlertStub(ctx, event)
	a.sendWebhookAlertStub(ctx, event)
	return nil
}

func (a *AlertService) handleUserSynced(ctx context.Context, event events.Event) error {
	a.logger.Info("UserSynced", zap.String("user_id", event.UserID), zap.Any("payload", event.Payload))
	a.sendWebhookAlertStub(ctx, event)
	return nil
}

func (a *AlertService) handleUserCreated(ctx context.Context, event events.Event) error {
	a.logger.Info("UserCreated", zap.String("user_id", event.UserID), zap.Any("payload", event.Payload))
	a.sendWebhookAlertStub(ctx, event)
	return nil
}

func (a *AlertService) sendEmailAlertStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(a.cfg.EmailFrom) == "" {
		return
	}
	a.logger.Debug("sendEmailAlertStub",
		zap.String("from", a.cfg.EmailFrom),
		zap.String("event_type", string(event.Type)))
}

func (a *AlertService) sendWebhookAlertStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(a.cfg.WebhookURL) == "" {
		return
	}
	a.logger.Debug("sendWebhookAlertStub",
		zap.String("url", a.cfg.WebhookURL),
		zap.String("event_type", string(event.Type)))
}
