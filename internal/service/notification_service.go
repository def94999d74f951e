package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/collab-service/internal/config"
	"github.com/spec-kit/collab-service/internal/events"
)

// NotificationService turns account and presence events into notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
	n.dispatcher.Subscribe(events.EventPasswordChanged, n.handleSecurityNotice)
	n.dispatcher.Subscribe(events.EventSessionsRevoked, n.handleSecurityNotice)
	n.dispatcher.Subscribe(events.EventUserLoggedIn, n.handleActivity)
	n.dispatcher.Subscribe(events.EventRoomJoined, n.handleActivity)
	n.dispatcher.Subscribe(events.EventRoomLeft, n.handleActivity)
}

func (n *NotificationService) handleUserRegistered(ctx context.Context, event events.Event) error {
	n.logger.Info("UserRegistered", zap.String("user_id", event.UserID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleSecurityNotice(ctx context.Context, event events.Event) error {
	n.logger.Info("SecurityNotice", zap.String("user_id", event.UserID), zap.String("event_type", string(event.Type)))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleActivity(ctx context.Context, event events.Event) error {
	n.logger.Debug("Activity",
		zap.String("user_id", event.UserID),
		zap.String("event_type", string(event.Type)),
		zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("user_id", event.UserID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("user_id", event.UserID),
		zap.String("event_type", string(event.Type)))
}
