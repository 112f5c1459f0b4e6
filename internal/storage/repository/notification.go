package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/progress-engine/internal/models"
)

// CreateNotification ставит сообщение в очередь.
func (s *Storage) CreateNotification(ctx context.Context, n *models.Notification) (int64, error) {
	const op = "storage.CreateNotification"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO notifications (user_id, type, title, message) VALUES ($1, $2, $3, $4) RETURNING id`
	var id int64
	err := s.DB.QueryRowContext(ctx, query, n.UserID, string(n.Type), n.Title, n.Message).Scan(&id)
	if err != nil {
		return 0, wrapErr(op, err)
	}
	return id, nil
}

// ListUnsentNotifications возвращает до limit сообщений, срок отправки которых
// подошёл, в порядке этого срока. Брошенные сообщения не возвращаются.
func (s *Storage) ListUnsentNotifications(ctx context.Context, limit int) ([]*models.Notification, error) {
	const op = "storage.ListUnsentNotifications"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, type, title, message, is_sent, created_at, sent_at,
				attempts, next_attempt_at, failed_at, last_error
			  FROM notifications
			  WHERE NOT is_sent AND failed_at IS NULL AND next_attempt_at <= NOW()
			  ORDER BY next_attempt_at, id
			  LIMIT $1`
	rows, err := s.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Notification
	for rows.Next() {
		var n models.Notification
		var typ string
		err := rows.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &n.IsSent, &n.CreatedAt, &n.SentAt,
			&n.Attempts, &n.NextAttemptAt, &n.FailedAt, &n.LastError)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		n.Type = models.NotificationType(typ)
		result = append(result, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}

// MarkNotificationSent отмечает сообщение доставленным.
func (s *Storage) MarkNotificationSent(ctx context.Context, id int64, at time.Time) error {
	const op = "storage.MarkNotificationSent"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	_, err := s.DB.ExecContext(ctx, `UPDATE notifications SET is_sent = TRUE, sent_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return wrapErr(op, err)
	}
	return nil
}

// RescheduleNotification записывает неудачную попытку и откладывает
// следующую до next.
func (s *Storage) RescheduleNotification(ctx context.Context, id int64, next time.Time, reason string) error {
	const op = "storage.RescheduleNotification"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE notifications SET attempts = attempts + 1, next_attempt_at = $2, last_error = $3
			  WHERE id = $1 AND NOT is_sent`
	if _, err := s.DB.ExecContext(ctx, query, id, next, reason); err != nil {
		return wrapErr(op, err)
	}
	return nil
}

// MarkNotificationFailed бросает доставку сообщения, больше оно не выбирается.
func (s *Storage) MarkNotificationFailed(ctx context.Context, id int64, at time.Time, reason string) error {
	const op = "storage.MarkNotificationFailed"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE notifications SET attempts = attempts + 1, failed_at = $2, last_error = $3
			  WHERE id = $1 AND NOT is_sent`
	if _, err := s.DB.ExecContext(ctx, query, id, at, reason); err != nil {
		return wrapErr(op, err)
	}
	return nil
}
