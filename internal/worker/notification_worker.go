package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/collab-service/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to account and
// room events. Delivery is synchronous with the publisher.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	if logger != nil {
		logger.Info("notification worker subscribed")
	}
}
