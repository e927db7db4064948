package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/prohmpiriya/role-portal/pkg/retry"
)

// KafkaConfig contains configuration for the Kafka publisher
type KafkaConfig struct {
	Brokers     []string
	Topic       string
	ClientID    string
	ServiceName string
}

// KafkaPublisher publishes account events with franz-go
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	source string
}

// NewKafkaPublisher connects to the brokers and verifies reachability
func NewKafkaPublisher(ctx context.Context, cfg *KafkaConfig) (*KafkaPublisher, error) {
	if cfg == nil {
		return nil, errors.New("kafka config is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "account-events"
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "account-service-producer"
	}
	source := cfg.ServiceName
	if source == "" {
		source = "account-service"
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(clientID),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(10*time.Millisecond),
		kgo.RecordRetries(3),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	res := retry.Do(ctx, &retry.Config{
		MaxRetries:      3,
		InitialInterval: time.Second,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}, func(ctx context.Context) error {
		return client.Ping(ctx)
	})
	if res.Err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach kafka after %d attempts: %w", res.Attempts, res.LastError)
	}

	return &KafkaPublisher{client: client, topic: topic, source: source}, nil
}

// Publish produces event synchronously, keyed by user id so one user's events stay ordered
func (p *KafkaPublisher) Publish(ctx context.Context, event *AccountEvent) error {
	record, err := buildRecord(p.topic, p.source, event)
	if err != nil {
		return err
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

// Close flushes pending records and closes the client
func (p *KafkaPublisher) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := p.client.Flush(ctx)
	p.client.Close()
	return err
}

func buildRecord(topic, source string, event *AccountEvent) (*kgo.Record, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(event.UserID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
			{Key: "source", Value: []byte(source)},
			{Key: "content_type", Value: []byte("application/json")},
		},
		Timestamp: event.OccurredAt,
	}, nil
}
