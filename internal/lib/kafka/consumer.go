package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/config"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/sl"
)

// ErrDiscard оборачивается обработчиком для сообщений, которые нет смысла
// обрабатывать повторно. Такое сообщение коммитится без повтора.
var ErrDiscard = errors.New("discard message")

const retryDelay = 2 * time.Second

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer читает почтовые события в составе consumer group.
type Consumer struct {
	reader     messageReader
	log        *slog.Logger
	retryDelay time.Duration
}

// NewConsumer создает читателя топика из конфига.
func NewConsumer(cfg config.Kafka, log *slog.Logger) *Consumer {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	if cfg.KafkaUser != "" {
		dialer.SASLMechanism = plain.Mechanism{
			Username: cfg.KafkaUser,
			Password: cfg.KafkaPassword,
		}
		dialer.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		Topic:    cfg.KafkaTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
		Dialer:   dialer,
	})

	return &Consumer{reader: reader, log: log, retryDelay: retryDelay}
}

// Listen обрабатывает сообщения до отмены контекста. Offset коммитится только
// после успешной обработки или ErrDiscard, иначе сообщение обрабатывается повторно.
func (c *Consumer) Listen(ctx context.Context, handler func(context.Context, []byte) error) error {
	const op = "kafka.Listen"
	log := c.log.With(slog.String("op", op))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		for {
			err = handler(ctx, msg.Value)
			if err == nil || errors.Is(err, ErrDiscard) {
				break
			}
			log.Error("failed to handle message, retrying",
				sl.Err(err), slog.Int64("offset", msg.Offset), slog.Int("partition", msg.Partition))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.retryDelay):
			}
		}
		if err != nil {
			log.Warn("message discarded", sl.Err(err), slog.Int64("offset", msg.Offset))
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%s: %w", op, err)
		}
	}
}

// Close закрывает читателя и покидает группу.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
