// Package relay доставляет сообщения из очереди notification.outgoing в Telegram.
// Запускается отдельно, когда движок работает с notifier.kind = amqp.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/progress-engine/internal/config"
	"github.com/magabrotheeeer/progress-engine/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/progress-engine/internal/lib/sl"
	"github.com/magabrotheeeer/progress-engine/internal/notifier"
)

const workers = 10

type App struct {
	conn      *amqp.Connection
	ch        *amqp.Channel
	forwarder *notifier.Forwarder
	logger    *slog.Logger
}

func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg.TelegramToken == "" {
		return nil, errors.New("relay requires TELEGRAM_TOKEN")
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	if err := ch.Qos(workers, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}

	tg := notifier.NewTelegram(cfg.TelegramURL, cfg.TelegramToken, cfg.SendTimeout)
	return &App{
		conn:      conn,
		ch:        ch,
		forwarder: notifier.NewForwarder(tg, logger),
		logger:    logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("relay consuming", slog.String("queue", rabbitmq.OutgoingQueue))
	err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.OutgoingQueue, workers, a.logger, a.forwarder.Handle)

	a.logger.Info("relay shutting down gracefully")
	if cerr := a.ch.Close(); cerr != nil {
		a.logger.Error("failed to close channel", sl.Err(cerr))
	}
	if cerr := a.conn.Close(); cerr != nil {
		a.logger.Error("failed to close connection", sl.Err(cerr))
	}
	return err
}
