package rabbitmq

import "github.com/MOPROGRAM/KHIDMAP-sub001/internal/models"

// MailExchange обменник, в который сервис идентификации публикует почтовые события.
const MailExchange = "identity.mail"

const prefetch = 10

// QueueConfig очередь и ключ маршрутизации, с которым она привязана к MailExchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetMailQueues возвращает очереди для каждого типа письма.
// Ключ маршрутизации совпадает с полем type события.
func GetMailQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "mail.verification", RoutingKey: models.MailVerification},
		{QueueName: "mail.password_reset", RoutingKey: models.MailPasswordReset},
	}
}
