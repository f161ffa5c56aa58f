package services

import (
	"encoding/json"
	"passkey_auth_ms/dtos/request"

	"github.com/IBM/sarama"
)

const (
	TopicPasskeyRegistered    = "PasskeyRegisteredEvent"
	TopicPasskeyAuthenticated = "PasskeyAuthenticatedEvent"
	TopicReplayDetected       = "PasskeyReplayDetectedEvent"
)

type IEventProducer interface {
	PasskeyRegistered(event *request.PasskeyRegisteredEvent) error
	PasskeyAuthenticated(event *request.PasskeyAuthenticatedEvent) error
	ReplayDetected(event *request.ReplayDetectedEvent) error
	Close() error
}

// KafkaEventProducer publishes credential lifecycle and security events for
// the notification and audit consumers. Replay events are the important
// ones: they indicate likely credential cloning.
type KafkaEventProducer struct {
	producer sarama.SyncProducer
}

func NewKafkaEventProducer(brokers []string) (*KafkaEventProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &KafkaEventProducer{producer: producer}, nil
}

func (p *KafkaEventProducer) PasskeyRegistered(event *request.PasskeyRegisteredEvent) error {
	return p.send(TopicPasskeyRegistered, event)
}

func (p *KafkaEventProducer) PasskeyAuthenticated(event *request.PasskeyAuthenticatedEvent) error {
	return p.send(TopicPasskeyAuthenticated, event)
}

func (p *KafkaEventProducer) ReplayDetected(event *request.ReplayDetectedEvent) error {
	return p.send(TopicReplayDetected, event)
}

func (p *KafkaEventProducer) Close() error {
	return p.producer.Close()
}

func (p *KafkaEventProducer) send(topic string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.StringEncoder(data),
	}
	_, _, err = p.producer.SendMessage(msg)
	return err
}
