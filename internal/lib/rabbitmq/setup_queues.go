package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

const (
	// OutgoingRoutingKey ключ для готовых к доставке сообщений.
	OutgoingRoutingKey = "outgoing"
	// OutgoingQueue очередь, которую читает relay.
	OutgoingQueue = "notification.outgoing"

	// DeadLetterExchange принимает сообщения, отклонённые без возврата в очередь.
	DeadLetterExchange = "notifications.dead"
	// DeadLetterQueue хранит их для ручного разбора.
	DeadLetterQueue = "notification.dead"
)

// QueueConfig очередь и ключ маршрутизации в обменнике уведомлений.
// С DeadLetter отклонённые сообщения уходят в DeadLetterQueue.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
	DeadLetter bool
}

// GetNotificationQueues очереди исходящих сообщений.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: OutgoingQueue, RoutingKey: OutgoingRoutingKey, DeadLetter: true},
	}
}

func (q QueueConfig) args() amqp.Table {
	if !q.DeadLetter {
		return nil
	}
	return amqp.Table{"x-dead-letter-exchange": DeadLetterExchange}
}

// declarer часть *amqp.Channel, нужная для объявления топологии.
type declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

func declareDeadLetter(ch declarer) error {
	if err := ch.ExchangeDeclare(DeadLetterExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", DeadLetterExchange, err)
	}
	if _, err := ch.QueueDeclare(DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", DeadLetterQueue, err)
	}
	if err := ch.QueueBind(DeadLetterQueue, "", DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", DeadLetterQueue, err)
	}
	return nil
}

func declareQueues(ch declarer, queues []QueueConfig) error {
	if err := ch.ExchangeDeclare(NotificationsExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", NotificationsExchange, err)
	}

	deadLetterReady := false
	for _, q := range queues {
		if q.DeadLetter && !deadLetterReady {
			if err := declareDeadLetter(ch); err != nil {
				return err
			}
			deadLetterReady = true
		}
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, q.args()); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", q.QueueName, err)
		}
		if err := ch.QueueBind(q.QueueName, q.RoutingKey, NotificationsExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s with routing key %s: %w", q.QueueName, q.RoutingKey, err)
		}
	}
	return nil
}
