package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"travinhgo-backend/internal/client"
	"travinhgo-backend/internal/config"
	"travinhgo-backend/internal/util"
)

// Dispatcher hands a raw OTP code to the external SMS/email gateway. A
// returned error means the code was not dispatched; callers must surface
// that instead of pretending the request succeeded.
type Dispatcher interface {
	Send(ctx context.Context, identifier, code string) error
}

// deliveryJob is the message the notification gateway consumes.
type deliveryJob struct {
	Identifier string    `json:"identifier"`
	Channel    string    `json:"channel"` // "sms" or "email"
	Code       string    `json:"code"`
	QueuedAt   time.Time `json:"queued_at"`
}

// KafkaDispatcher publishes delivery jobs to the gateway topic.
type KafkaDispatcher struct {
	producer *client.KafkaProducer
	topic    string
}

func NewKafkaDispatcher(producer *client.KafkaProducer, cfg *config.Config) *KafkaDispatcher {
	return &KafkaDispatcher{
		producer: producer,
		topic:    cfg.Kafka.OTPTopic,
	}
}

func (d *KafkaDispatcher) Send(ctx context.Context, identifier, code string) error {
	channel := "sms"
	if util.IsEmail(identifier) {
		channel = "email"
	}

	job := deliveryJob{
		Identifier: identifier,
		Channel:    channel,
		Code:       code,
		QueuedAt:   time.Now().UTC(),
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery job: %w", err)
	}

	// Key by identifier so retries for one contact stay ordered on a partition.
	if err := d.producer.Publish(ctx, d.topic, []byte(util.ContactHash(identifier)), payload); err != nil {
		util.Error("Failed to queue OTP delivery",
			zap.String("channel", channel),
			zap.Error(err))
		return fmt.Errorf("failed to queue OTP delivery: %w", err)
	}

	util.Debug("OTP delivery queued", zap.String("channel", channel))
	return nil
}

// LogDispatcher logs the code instead of sending it. Development fallback
// when no broker is running.
type LogDispatcher struct{}

func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{}
}

func (*LogDispatcher) Send(_ context.Context, identifier, code string) error {
	util.Warn("OTP dispatch is in log-only mode",
		zap.String("identifier", identifier),
		zap.String("code", code))
	return nil
}
