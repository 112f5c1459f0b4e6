// Package notification ведёт очередь исходящих сообщений и доставляет их через Sender.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/progress-engine/internal/lib/metrics"
	"github.com/magabrotheeeer/progress-engine/internal/lib/sl"
	"github.com/magabrotheeeer/progress-engine/internal/lib/textsplit"
	"github.com/magabrotheeeer/progress-engine/internal/models"
)

const (
	// DefaultMaxMessageSize предел длины одного сообщения в рунах.
	DefaultMaxMessageSize = 4000

	// MaxAttempts после стольких неудач доставка бросается.
	MaxAttempts = 10
	retryBase   = 30 * time.Second
	retryMax    = 6 * time.Hour
)

type Repository interface {
	CreateNotification(ctx context.Context, n *models.Notification) (int64, error)
	ListUnsentNotifications(ctx context.Context, limit int) ([]*models.Notification, error)
	MarkNotificationSent(ctx context.Context, id int64, at time.Time) error
	RescheduleNotification(ctx context.Context, id int64, next time.Time, reason string) error
	MarkNotificationFailed(ctx context.Context, id int64, at time.Time, reason string) error
}

// Sender доставляет одну часть сообщения пользователю.
// models.ErrUndeliverable означает, что повторять отправку бесполезно.
type Sender interface {
	Send(ctx context.Context, userID int64, text string) error
}

type Service struct {
	repo    Repository
	sender  Sender
	maxSize int
	log     *slog.Logger
	now     func() time.Time
}

// NewService создает новый экземпляр Service.
func NewService(repo Repository, sender Sender, maxSize int, log *slog.Logger) *Service {
	if maxSize <= 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &Service{
		repo:    repo,
		sender:  sender,
		maxSize: maxSize,
		log:     log,
		now:     time.Now,
	}
}

// Enqueue ставит уведомление в очередь на отправку.
func (s *Service) Enqueue(ctx context.Context, userID int64, typ models.NotificationType, title, message string) error {
	const op = "notification.Enqueue"
	n := &models.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
	}
	id, err := s.repo.CreateNotification(ctx, n)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Debug("notification queued", slog.Int64("id", id), sl.UserID(userID), slog.String("type", string(typ)))
	return nil
}

// DispatchPending отправляет до batch уведомлений, срок которых подошёл.
// Уведомление помечается отправленным только после доставки всех его частей.
// Неудачное откладывается с растущей паузой, первая пауза равна периоду цикла.
// Недоставляемое или исчерпавшее MaxAttempts бросается и очередь не держит.
func (s *Service) DispatchPending(ctx context.Context, batch int) (int, error) {
	const op = "notification.DispatchPending"
	log := s.log.With(slog.String("op", op))

	pending, err := s.repo.ListUnsentNotifications(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	sent := 0
	for _, n := range pending {
		if ctx.Err() != nil {
			return sent, fmt.Errorf("%s: %w", op, ctx.Err())
		}
		if err := s.deliver(ctx, n); err != nil {
			if ctx.Err() != nil {
				return sent, fmt.Errorf("%s: %w", op, ctx.Err())
			}
			s.retryLater(ctx, log, n, err)
			continue
		}
		if err := s.repo.MarkNotificationSent(ctx, n.ID, s.now().UTC()); err != nil {
			log.Error("failed to mark notification sent", slog.Int64("id", n.ID), sl.Err(err))
			continue
		}
		metrics.NotificationsSent.WithLabelValues("sent").Inc()
		sent++
	}
	if len(pending) > 0 {
		log.Info("notifications dispatched", slog.Int("sent", sent), slog.Int("pending", len(pending)))
	}
	return sent, nil
}

func (s *Service) retryLater(ctx context.Context, log *slog.Logger, n *models.Notification, cause error) {
	log = log.With(slog.Int64("id", n.ID), sl.UserID(n.UserID), slog.Int("attempt", n.Attempts+1))
	now := s.now().UTC()

	if errors.Is(cause, models.ErrUndeliverable) || n.Attempts+1 >= MaxAttempts {
		metrics.NotificationsSent.WithLabelValues("dropped").Inc()
		log.Warn("notification dropped", sl.Err(cause))
		if err := s.repo.MarkNotificationFailed(ctx, n.ID, now, cause.Error()); err != nil {
			log.Error("failed to mark notification failed", sl.Err(err))
		}
		return
	}

	next := now.Add(RetryDelay(n.Attempts + 1))
	metrics.NotificationsSent.WithLabelValues("failed").Inc()
	log.Warn("failed to deliver notification", sl.Err(cause), slog.Time("next_attempt_at", next))
	if err := s.repo.RescheduleNotification(ctx, n.ID, next, cause.Error()); err != nil {
		log.Error("failed to reschedule notification", sl.Err(err))
	}
}

// RetryDelay пауза перед повтором после attempt-й неудачи.
func RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 20 {
		return retryMax
	}
	d := retryBase << (attempt - 1)
	if d > retryMax {
		return retryMax
	}
	return d
}

func (s *Service) deliver(ctx context.Context, n *models.Notification) error {
	parts := textsplit.Split(n.Text(), s.maxSize)
	for i, part := range parts {
		if err := s.sender.Send(ctx, n.UserID, part); err != nil {
			return fmt.Errorf("part %d/%d: %w", i+1, len(parts), err)
		}
	}
	return nil
}
