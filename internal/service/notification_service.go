package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-tracker/internal/config"
	"github.com/spec-kit/sla-tracker/internal/events"
)

// NotificationService turns domain events into outbound notifications.
// Actual delivery is a collaborator; the stubs here decide when to notify
// and shape the payload. Delivery failures are logged and skipped, never
// propagated: a broken mail path must not take the alert sweep down.
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
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAtRisk, n.handleTicketAtRisk)
	n.dispatcher.Subscribe(events.EventSLABreached, n.handleSLABreached)
	n.dispatcher.Subscribe(events.EventDailySummary, n.handleDailySummary)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketAtRisk(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAtRiskPayload)
	if !ok {
		return nil
	}
	n.logger.Warn("TicketAtRisk",
		zap.String("ticket_number", payload.TicketNumber),
		zap.String("priority", string(payload.Priority)),
		zap.Int("percentage_elapsed", payload.PercentageElapsed),
		zap.Int("minutes_remaining", payload.MinutesRemaining))
	n.sendEmailStub(ctx, payload.RecipientEmail, event)
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) handleSLABreached(ctx context.Context, event events.Event) error {
	n.logger.Warn("SLABreached", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) handleDailySummary(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.DailySummaryPayload)
	if !ok {
		return nil
	}
	n.logger.Info("DailySummary",
		zap.String("team_id", event.TeamID),
		zap.Float64("compliance", payload.Summary.CompliancePercentage),
		zap.Float64("mttr", payload.Summary.MTTR))
	n.sendEmailStub(ctx, payload.RecipientEmail, event)
	return nil
}

func (n *NotificationService) sendEmailStub(ctx context.Context, to string, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || strings.TrimSpace(to) == "" {
		return
	}
	n.logger.Debug("sendEmailStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID))
}

func (n *NotificationService) sendWebhookStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID))
}
