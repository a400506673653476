// Package publisher delivers audit events to Kafka. Delivery is best-effort
// and asynchronous: the lifecycle engine's source of truth for audit is the
// postgres outbox, and Kafka is the downstream fan-out.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "k9hope/pkg/platform/audit"
)

// Kafka publishes audit events to a single topic, keyed by subject so all
// events for one aggregate land in one partition in order.
type Kafka struct {
	client *kgo.Client
	logger *slog.Logger
}

// NewKafka connects a franz-go client to the given brokers. Returns nil when
// no brokers are configured so wiring stays optional.
func NewKafka(brokers []string, topic string, logger *slog.Logger) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchMaxBytes(1<<20),
	)
	if err != nil {
		return nil, fmt.Errorf("new kafka client: %w", err)
	}
	return &Kafka{client: client, logger: logger}, nil
}

type wireEvent struct {
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	Subject   string `json:"subject"`
	ClinicID  string `json:"clinic_id,omitempty"`
	DonorID   string `json:"donor_id,omitempty"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Emit produces the event asynchronously. Failures are logged, never
// propagated: an unreachable broker must not fail a completed donation.
func (k *Kafka) Emit(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(wireEvent{
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Action:    string(event.Action),
		Subject:   event.Subject,
		ClinicID:  event.ClinicID,
		DonorID:   event.DonorID,
		Detail:    event.Detail,
		RequestID: event.RequestID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{Key: []byte(event.Subject), Value: value}
	k.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil && k.logger != nil {
			k.logger.Error("audit event delivery failed",
				"action", string(event.Action),
				"subject", event.Subject,
				"error", err.Error(),
			)
		}
	})
	return nil
}

// Close flushes buffered records and releases the client.
func (k *Kafka) Close(ctx context.Context) error {
	if err := k.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	k.client.Close()
	return nil
}
