package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/progress-engine/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/progress-engine/internal/lib/sl"
	"github.com/magabrotheeeer/progress-engine/internal/models"
)

// Sender доставляет одно сообщение пользователю.
type Sender interface {
	Send(ctx context.Context, userID int64, text string) error
}

// Forwarder передаёт сообщения из очереди notification.outgoing в Sender.
type Forwarder struct {
	sender Sender
	log    *slog.Logger
}

func NewForwarder(sender Sender, log *slog.Logger) *Forwarder {
	return &Forwarder{sender: sender, log: log}
}

// Handle обработчик для rabbitmq.ConsumerMessage. Битое или недоставляемое
// сообщение помечается rabbitmq.ErrPermanent и в очередь не возвращается.
func (f *Forwarder) Handle(ctx context.Context, body []byte) error {
	const op = "notifier.Forwarder.Handle"

	var msg OutgoingMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%s: %w: %w", op, rabbitmq.ErrPermanent, err)
	}
	if msg.UserID <= 0 || msg.Text == "" {
		return fmt.Errorf("%s: %w: empty user or text", op, rabbitmq.ErrPermanent)
	}

	if err := f.sender.Send(ctx, msg.UserID, msg.Text); err != nil {
		if errors.Is(err, models.ErrUndeliverable) {
			return fmt.Errorf("%s: %w: %w", op, rabbitmq.ErrPermanent, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	f.log.Debug("message forwarded", slog.String("op", op), sl.UserID(msg.UserID))
	return nil
}
