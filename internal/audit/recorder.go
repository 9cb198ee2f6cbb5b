package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"travinhgo-backend/internal/client"
	"travinhgo-backend/internal/models"
	"travinhgo-backend/internal/util"
)

// Recorder appends auth events to the audit log. Recording is best-effort:
// a failed insert is logged and never fails the auth flow it describes.
type Recorder interface {
	Record(ctx context.Context, event *models.AuthEvent)
}

const insertEvent = `
    INSERT INTO auth_events (
        event_time, event_type, identity_id, identifier_hash,
        session_hash, device_info, ip_address, details
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// ClickHouseRecorder writes events with async inserts so the hot path never
// waits on a batch flush.
type ClickHouseRecorder struct {
	client *client.ClickHouseClient
}

func NewClickHouseRecorder(client *client.ClickHouseClient) *ClickHouseRecorder {
	return &ClickHouseRecorder{client: client}
}

func (r *ClickHouseRecorder) Record(ctx context.Context, event *models.AuthEvent) {
	if event.EventTime.IsZero() {
		event.EventTime = time.Now().UTC()
	}

	err := r.client.AsyncInsert(ctx, insertEvent,
		event.EventTime, event.EventType, event.IdentityID, event.IdentifierHash,
		event.SessionHash, event.DeviceInfo, event.IPAddress, event.Details)
	if err != nil {
		util.Warn("Failed to record auth event",
			zap.String("event_type", event.EventType),
			zap.Error(err))
	}
}

// NopRecorder drops events; used when ClickHouse is unavailable outside
// production.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, *models.AuthEvent) {}
