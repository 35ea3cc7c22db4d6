// Package kafka publishes created wildfire alerts to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/wildfire-watch-service/internal/config"
	"github.com/couchcryptid/wildfire-watch-service/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// AlertWriter produces alert records to the configured alert topic.
// It implements monitor.AlertPublisher.
type AlertWriter struct {
	writer messageWriter
	logger *slog.Logger
}

// NewAlertWriter creates a Kafka producer for the alert topic.
func NewAlertWriter(cfg *config.Config, logger *slog.Logger) *AlertWriter {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaAlertTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &AlertWriter{writer: w, logger: logger}
}

// PublishAlert serializes one alert record and writes it keyed by zone id,
// so every alert of a zone lands on the same partition in order.
func (w *AlertWriter) PublishAlert(ctx context.Context, alert domain.Record) error {
	msg, err := serializeAlert(alert)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write alert %s: %w", alert.ID(), err)
	}
	w.logger.Debug("alert published", "alert_id", alert.ID(), "zone_id", alert.String("zone_id"))
	return nil
}

func (w *AlertWriter) Close() error {
	return w.writer.Close()
}

// serializeAlert marshals an alert record into a Kafka message.
func serializeAlert(alert domain.Record) (kafkago.Message, error) {
	if alert.ID() == "" {
		return kafkago.Message{}, errors.New("serialize alert: missing id")
	}
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert: %w", err)
	}
	key := alert.String("zone_id")
	if key == "" {
		key = alert.ID()
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "risk_level", Value: []byte(alert.String("risk_level"))},
			{Key: "created_date", Value: []byte(alert.String(domain.FieldCreatedDate))},
		},
	}, nil
}
