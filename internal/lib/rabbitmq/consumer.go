package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/progress-engine/internal/lib/sl"
)

// ErrPermanent помечает сообщение, которое не нужно возвращать в очередь.
// Для очереди с DeadLetter оно попадает в DeadLetterQueue.
var ErrPermanent = errors.New("permanent delivery failure")

// Consumer часть *amqp.Channel, нужная для чтения очереди.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Handler обрабатывает тело одного сообщения.
type Handler func(ctx context.Context, body []byte) error

// ConsumerMessage читает queueName и обрабатывает не больше workers сообщений одновременно.
// Ошибка обработчика возвращает сообщение в очередь, ErrPermanent отбрасывает его.
// Блокирует до отмены ctx или закрытия канала.
func ConsumerMessage(ctx context.Context, ch Consumer, queueName string, workers int, log *slog.Logger, handler Handler) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if workers < 1 {
		workers = 1
	}

	log = log.With(slog.String("op", op), slog.String("queue", queueName))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case d, ok := <-delivery:
			if !ok {
				return nil
			}
			sem <- struct{}{}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer func() {
					<-sem
					wg.Done()
				}()
				settle(ctx, log, d, handler)
			}(d)
		case <-ctx.Done():
			return nil
		}
	}
}

func settle(ctx context.Context, log *slog.Logger, d amqp.Delivery, handler Handler) {
	log = log.With(slog.String("message_id", d.MessageId))
	err := handler(ctx, d.Body)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			log.Error("failed to ack message", sl.Err(ackErr))
		}
		return
	}

	requeue := !errors.Is(err, ErrPermanent)
	log.Error("failed to handle message", sl.Err(err), slog.Bool("requeue", requeue))
	if nackErr := d.Nack(false, requeue); nackErr != nil {
		log.Error("failed to nack message", sl.Err(nackErr))
	}
}
