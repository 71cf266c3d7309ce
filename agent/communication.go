package agent

import (
	"context"
	"fmt"
	"time"

	"go-orchestrator/model"
)

// Communication delivers notifications, schedules meetings and builds
// reports through the registry's channel services.
type Communication struct {
	dispatcher
	registry ServiceRegistry
}

func NewCommunication(registry ServiceRegistry) *Communication {
	a := &Communication{
		dispatcher: dispatcher{
			capability:    model.CapabilityCommunication,
			discriminator: "communication_type",
		},
		registry: registry,
	}
	a.handlers = map[string]handlerFunc{
		"notification":       a.sendNotification,
		"meeting_scheduling": a.scheduleMeeting,
		"report_generation":  a.generateReport,
	}
	return a
}

func (a *Communication) sendNotification(ctx context.Context, payload map[string]any) (map[string]any, error) {
	channel := stringField(payload, "channel")
	if channel == "" {
		channel = "slack"
	}
	message := mapField(payload, "message")

	result := map[string]any{
		"channel":   channel,
		"delivered": false,
		"sent_at":   time.Now().UTC().Format(time.RFC3339),
	}

	if a.registry != nil && a.registry.Connected(channel) {
		receipt, err := a.registry.Send(ctx, channel, message)
		if err != nil {
			return nil, fmt.Errorf("communication: send via %s: %w", channel, err)
		}
		result["delivered"] = true
		result["receipt"] = receipt
	}
	return result, nil
}

func (a *Communication) scheduleMeeting(ctx context.Context, payload map[string]any) (map[string]any, error) {
	meeting := mapField(payload, "meeting_data")

	result := map[string]any{
		"service":      "webex",
		"scheduled":    false,
		"meeting_data": meeting,
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	}

	if a.registry != nil && a.registry.Connected("webex") {
		booked, err := a.registry.ScheduleMeeting(ctx, "webex", meeting)
		if err != nil {
			return nil, fmt.Errorf("communication: schedule meeting: %w", err)
		}
		result["scheduled"] = true
		result["meeting"] = booked
	}
	return result, nil
}

func (a *Communication) generateReport(ctx context.Context, payload map[string]any) (map[string]any, error) {
	reportType := stringField(payload, "report_type")
	if reportType == "" {
		reportType = "status"
	}

	result := map[string]any{
		"report_type":  reportType,
		"format":       "markdown",
		"content":      fmt.Sprintf("# %s report\n\nGenerated by the communication agent.", reportType),
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	}

	if a.registry != nil && a.registry.Connected("notion") {
		document, err := a.registry.CreateDocument(ctx, "notion", map[string]any{
			"title":   fmt.Sprintf("%s report", reportType),
			"content": result["content"],
		})
		if err != nil {
			return nil, fmt.Errorf("communication: publish report: %w", err)
		}
		result["document"] = document
	}
	return result, nil
}
