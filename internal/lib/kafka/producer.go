// Package kafka публикует и читает почтовые события через Kafka.
// Используется, когда в конфиге выбран broker: kafka.
package kafka

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/config"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/models"
)

const writeTimeout = 10 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer пишет почтовые события в топик, ключ сообщения равен адресу получателя,
// поэтому письма одному пользователю попадают в одну партицию по порядку.
type Producer struct {
	writer messageWriter
	now    func() time.Time
}

// NewProducer создает синхронного продюсера. SASL/PLAIN поверх TLS
// включается, когда в конфиге задан пользователь.
func NewProducer(cfg config.Kafka) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: writeTimeout,
	}
	if cfg.KafkaUser != "" {
		w.Transport = &kafka.Transport{
			SASL: plain.Mechanism{
				Username: cfg.KafkaUser,
				Password: cfg.KafkaPassword,
			},
			TLS: &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}
	return &Producer{writer: w, now: time.Now}
}

// PublishMail сериализует событие и синхронно записывает его в топик.
func (p *Producer) PublishMail(ctx context.Context, event models.MailEvent) error {
	const op = "kafka.PublishMail"
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Email),
		Value: body,
		Time:  p.now(),
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close дожидается отправки буфера и закрывает соединения.
func (p *Producer) Close() error {
	return p.writer.Close()
}
