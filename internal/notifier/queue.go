package notifier

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/progress-engine/internal/lib/rabbitmq"
)

// OutgoingMessage тело сообщения в очереди notification.outgoing.
type OutgoingMessage struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

// Queue публикует части сообщений в RabbitMQ, доставку выполняет процесс бота.
type Queue struct {
	ch rabbitmq.Publisher
}

// NewQueue создаёт издателя поверх открытого канала.
func NewQueue(ch rabbitmq.Publisher) *Queue {
	return &Queue{ch: ch}
}

// Send публикует text в exchange notifications с ключом outgoing.
func (q *Queue) Send(ctx context.Context, userID int64, text string) error {
	const op = "notifier.Queue.Send"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	msg := OutgoingMessage{UserID: userID, Text: text}
	if err := rabbitmq.PublishMessage(q.ch, rabbitmq.NotificationsExchange, rabbitmq.OutgoingRoutingKey, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
