// Package mailer собирает воркер доставки писем: читает почтовые события
// из брокера и отправляет их по SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/config"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/kafka"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/rabbitmq"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/sl"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/smtp"
	senderservice "github.com/MOPROGRAM/KHIDMAP-sub001/internal/services/sender"
)

// ErrBrokerClosed канал брокера закрылся не по нашей инициативе. Воркер
// завершается с ошибкой, перезапуск остается супервизору процесса.
var ErrBrokerClosed = errors.New("broker channel closed")

// Handler обработчик тела сообщения.
type Handler func(ctx context.Context, body []byte) error

// App воркер доставки писем.
type App struct {
	logger   *slog.Logger
	conn     *amqp.Connection
	ch       *amqp.Channel
	consumer *kafka.Consumer
	handle   Handler
}

// New подключается к брокеру из конфига и готовит обработчик писем.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.mailer.New"

	transport := smtp.NewTransport(cfg.SMTP, logger)
	senderService := senderservice.NewSenderService(logger, transport)

	app := &App{
		logger: logger,
		handle: senderService.HandleMail,
	}

	switch cfg.Broker {
	case config.BrokerKafka:
		app.consumer = kafka.NewConsumer(cfg.Kafka, logger)
	default:
		conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetMailQueues())
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.conn = conn
		app.ch = ch
	}
	return app, nil
}

// Run обрабатывает сообщения до отмены ctx или потери соединения с брокером.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	if a.consumer != nil {
		a.logger.Info("consuming mail events from kafka")
		return a.consumer.Listen(ctx, DiscardMalformed(a.handle, kafka.ErrDiscard))
	}

	closed := a.ch.NotifyClose(make(chan *amqp.Error, 1))
	for _, q := range rabbitmq.GetMailQueues() {
		if err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, q.QueueName, DiscardMalformed(a.handle, rabbitmq.ErrDiscard)); err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", q.QueueName), sl.Err(err))
			return err
		}
		a.logger.Info("consuming mail events", slog.String("queue", q.QueueName))
	}

	return waitForShutdown(ctx, a.logger, closed)
}

func waitForShutdown(ctx context.Context, log *slog.Logger, closed <-chan *amqp.Error) error {
	select {
	case <-ctx.Done():
		log.Info("mailer shutting down gracefully")
		return nil
	case amqpErr, ok := <-closed:
		if !ok || amqpErr == nil {
			log.Error("broker channel closed")
			return ErrBrokerClosed
		}
		log.Error("broker channel closed", slog.Int("code", amqpErr.Code), slog.String("reason", amqpErr.Reason))
		return fmt.Errorf("%w: %w", ErrBrokerClosed, amqpErr)
	}
}

// DiscardMalformed помечает неразборчивые события ошибкой брокера discard,
// чтобы они не возвращались в очередь. Остальные ошибки проходят без изменений.
func DiscardMalformed(handle Handler, discard error) Handler {
	return func(ctx context.Context, body []byte) error {
		err := handle(ctx, body)
		if errors.Is(err, senderservice.ErrMalformedEvent) {
			return fmt.Errorf("%w: %w", discard, err)
		}
		return err
	}
}

func (a *App) close() {
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("failed to close kafka consumer", sl.Err(err))
		}
	}
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
}
