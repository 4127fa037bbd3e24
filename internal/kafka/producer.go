package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/model"
)

// MessageWriter is the subset of *kafka.Writer used by the producers.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewWriter returns a writer that routes each message by its Topic field.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

// PublishPositions writes one message per position, keyed by vessel id.
func PublishPositions(ctx context.Context, w MessageWriter, topic string, positions []model.Position) error {
	if len(positions) == 0 {
		return nil
	}
	records := make([]kafka.Message, 0, len(positions))
	for _, p := range positions {
		b, err := EncodePosition(p)
		if err != nil {
			return fmt.Errorf("encode position %s: %w", p.ID, err)
		}
		records = append(records, kafka.Message{Topic: topic, Key: []byte(p.ID), Value: b})
	}
	return w.WriteMessages(ctx, records...)
}

// ClusterMessage is the wire format of the clusters topic.
type ClusterMessage struct {
	Sequence uint64          `json:"sequence"`
	TakenAt  time.Time       `json:"taken_at"`
	Clusters []model.Cluster `json:"clusters"`
}

// Publisher forwards refresh cycle output to kafka. It implements
// scheduler.Subscriber.
type Publisher struct {
	w             MessageWriter
	alertsTopic   string
	clustersTopic string
}

func NewPublisher(w MessageWriter, alertsTopic, clustersTopic string) *Publisher {
	return &Publisher{w: w, alertsTopic: alertsTopic, clustersTopic: clustersTopic}
}

// Publish writes every new alert, keyed by its pair, and the cycle's
// cluster list as a single message.
func (p *Publisher) Publish(ctx context.Context, snap model.Snapshot) error {
	var records []kafka.Message

	if p.alertsTopic != "" {
		for _, a := range snap.Alerts {
			b, err := json.Marshal(a)
			if err != nil {
				return fmt.Errorf("encode alert: %w", err)
			}
			records = append(records, kafka.Message{Topic: p.alertsTopic, Key: []byte(a.Key().String()), Value: b})
		}
	}

	if p.clustersTopic != "" {
		b, err := json.Marshal(ClusterMessage{Sequence: snap.Sequence, TakenAt: snap.TakenAt, Clusters: snap.Clusters})
		if err != nil {
			return fmt.Errorf("encode clusters: %w", err)
		}
		records = append(records, kafka.Message{Topic: p.clustersTopic, Key: []byte("clusters"), Value: b})
	}

	if len(records) == 0 {
		return nil
	}
	if err := p.w.WriteMessages(ctx, records...); err != nil {
		return fmt.Errorf("publish cycle %d: %w", snap.Sequence, err)
	}
	return nil
}

// Name identifies the subscriber in logs.
func (p *Publisher) Name() string {
	return "kafka"
}
