package kafka

import (
	"context"
	"encoding/json"
	"log"
	"time"

	skafka "github.com/segmentio/kafka-go"
)

// Writer defines the subset of segmentio kafka.Writer we need
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// Producer publishes JSON encoded events to a single topic
type Producer struct {
	writer Writer
}

// NewProducer creates a producer writing to the provided broker/topic
func NewProducer(brokerURL, topic string) *Producer {
	w := &skafka.Writer{
		Addr:         skafka.TCP(brokerURL),
		Topic:        topic,
		Balancer:     &skafka.Hash{},
		RequiredAcks: skafka.RequireOne,
		WriteTimeout: 5 * time.Second,
	}
	return &Producer{writer: w}
}

// NewProducerWithWriter allows injecting a test writer
func NewProducerWithWriter(w Writer) *Producer {
	return &Producer{writer: w}
}

// Publish marshals the value to JSON and writes a message with the given key.
// Keying by request id keeps events of one request ordered.
func (p *Producer) Publish(ctx context.Context, key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		log.Println("❌ failed to marshal kafka value:", err)
		return err
	}
	msg := skafka.Message{Key: []byte(key), Value: b, Time: time.Now()}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Println("❌ kafka write error:", err)
		return err
	}
	return nil
}

// Close closes the underlying writer
func (p *Producer) Close() error {
	return p.writer.Close()
}
