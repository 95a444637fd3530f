package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/models"
)

// PublishMessage публикует сообщение в RabbitMQ.
func PublishMessage(ch *amqp.Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// MailPublisher публикует почтовые события в MailExchange.
// amqp.Channel не рассчитан на конкурентную публикацию, поэтому вызовы сериализуются.
type MailPublisher struct {
	mu sync.Mutex
	ch *amqp.Channel
}

// NewMailPublisher создает издателя поверх настроенного канала.
func NewMailPublisher(ch *amqp.Channel) *MailPublisher {
	return &MailPublisher{ch: ch}
}

// PublishMail отправляет событие с ключом маршрутизации, равным его типу.
func (p *MailPublisher) PublishMail(ctx context.Context, event models.MailEvent) error {
	const op = "rabbitmq.PublishMail"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := PublishMessage(p.ch, MailExchange, event.Type, event); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close закрывает канал.
func (p *MailPublisher) Close() error {
	return p.ch.Close()
}
