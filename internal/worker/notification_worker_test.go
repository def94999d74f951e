package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/collab-service/internal/config"
	"github.com/spec-kit/collab-service/internal/events"
	"github.com/spec-kit/collab-service/internal/service"
)

func TestNotificationWorkerHandlesEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	dispatcher := events.NewInMemoryDispatcher(logger)
	notifications := service.NewNotificationService(dispatcher, logger, config.NotificationConfig{
		EmailFrom:  "noreply@example.com",
		WebhookURL: "https://hooks.example.com/collab",
	})

	StartNotificationWorker(notifications, logger)
	ctx := context.Background()

	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventUserRegistered, "u1", events.UserRegisteredPayload{Email: "a@example.com"})))
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventSessionsRevoked, "u1", nil)))
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventRoomJoined, "u1", events.RoomPresencePayload{RoomID: "r", PeerID: "p"})))

	assert.Equal(t, 1, logs.FilterMessage("notification worker subscribed").Len())
	assert.Equal(t, 1, logs.FilterMessage("UserRegistered").Len())
	assert.Equal(t, 1, logs.FilterMessage("SecurityNotice").Len())
	assert.Equal(t, 1, logs.FilterMessage("Activity").Len())
	assert.Equal(t, 2, logs.FilterMessage("sendEmailNotificationStub").Len())
	assert.Equal(t, 2, logs.FilterMessage("sendWebhookNotificationStub").Len())
}

func TestStartNotificationWorkerNil(t *testing.T) {
	assert.NotPanics(t, func() { StartNotificationWorker(nil, nil) })
}
