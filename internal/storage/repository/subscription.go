package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/progress-engine/internal/models"
)

const subscriptionColumns = `id, user_id, payment_id, start_date, end_date, months, subscription_level,
	status, auto_renew, last_warning_at, created_at`

func scanSubscription(row scanner) (*models.Subscription, error) {
	var sub models.Subscription
	var status string
	err := row.Scan(&sub.ID, &sub.UserID, &sub.PaymentID, &sub.StartDate, &sub.EndDate, &sub.Months,
		&sub.SubscriptionLevel, &status, &sub.AutoRenew, &sub.LastWarningAt, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	sub.Status = models.SubscriptionStatus(status)
	return &sub, nil
}

// ActivateSubscription в одной транзакции блокирует строку пользователя,
// строит подписку через build по текущему состоянию пользователя,
// сохраняет её и продлевает пользователю доступ до sub.EndDate.
// Вторая подписка на тот же платёж отклоняется с models.ErrConflict.
func (s *Storage) ActivateSubscription(ctx context.Context, userID int64, build func(u *models.User) *models.Subscription) (*models.Subscription, error) {
	const op = "storage.ActivateSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	u, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE telegram_id = $1 FOR UPDATE`, userID))
	if err != nil {
		return nil, wrapErr(op, err)
	}

	sub := build(u)
	if sub.Status == "" {
		sub.Status = models.SubscriptionActive
	}
	insert := `INSERT INTO subscriptions (user_id, payment_id, start_date, end_date, months,
				subscription_level, status, auto_renew)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at`
	err = tx.QueryRowContext(ctx, insert, userID, sub.PaymentID, sub.StartDate, sub.EndDate,
		sub.Months, sub.SubscriptionLevel, string(sub.Status), sub.AutoRenew).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return nil, wrapErr(op, err)
	}

	update := `UPDATE users SET
				subscription_start = CASE
					WHEN subscription_active AND subscription_end > $2 THEN subscription_start
					ELSE $2
				END,
				subscription_end = $3,
				subscription_active = TRUE,
				updated_at = NOW()
			  WHERE telegram_id = $1`
	if _, err := tx.ExecContext(ctx, update, userID, sub.StartDate, sub.EndDate); err != nil {
		return nil, wrapErr(op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapErr(op, err)
	}
	sub.UserID = userID
	return sub, nil
}

// GetSubscriptionByPaymentID возвращает подписку, созданную платежом.
func (s *Storage) GetSubscriptionByPaymentID(ctx context.Context, paymentID int64) (*models.Subscription, error) {
	const op = "storage.GetSubscriptionByPaymentID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE payment_id = $1`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, paymentID))
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return sub, nil
}

// GetActiveSubscription возвращает действующую подписку пользователя
// с самой поздней датой окончания.
func (s *Storage) GetActiveSubscription(ctx context.Context, userID int64) (*models.Subscription, error) {
	const op = "storage.GetActiveSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
			  WHERE user_id = $1 AND status = 'active' AND end_date > NOW()
			  ORDER BY end_date DESC, id DESC
			  LIMIT 1`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return sub, nil
}

// ListExpiringSubscriptions берёт последнюю активную подписку каждого
// активного пользователя и возвращает те, что заканчиваются в [from, to].
func (s *Storage) ListExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]*models.Subscription, error) {
	const op = "storage.ListExpiringSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + ` FROM (
				SELECT DISTINCT ON (s.user_id) s.*
				FROM subscriptions s
				JOIN users u ON u.telegram_id = s.user_id
				WHERE s.status = 'active' AND u.subscription_active
				ORDER BY s.user_id, s.end_date DESC
			  ) latest
			  WHERE latest.end_date BETWEEN $1 AND $2
			  ORDER BY latest.end_date`
	rows, err := s.DB.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}

// MarkSubscriptionWarned записывает время предупреждения, если прошлое
// было раньше cutoff или его не было. false означает, что предупреждать рано.
func (s *Storage) MarkSubscriptionWarned(ctx context.Context, id int64, at, cutoff time.Time) (bool, error) {
	const op = "storage.MarkSubscriptionWarned"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET last_warning_at = $2
			  WHERE id = $1 AND (last_warning_at IS NULL OR last_warning_at < $3)`
	res, err := s.DB.ExecContext(ctx, query, id, at, cutoff)
	if err != nil {
		return false, wrapErr(op, err)
	}
	return affected(op, res)
}

// ExpireSubscriptions переводит закончившиеся активные подписки в expired.
func (s *Storage) ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.ExpireSubscriptions"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE subscriptions SET status = 'expired' WHERE status = 'active' AND end_date <= $1`, now)
	if err != nil {
		return 0, wrapErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrapErr(op, err)
	}
	return n, nil
}

// ListActiveSubscribers возвращает пользователей с действующей подпиской
// вместе с уровнем последней подписки и статистикой.
func (s *Storage) ListActiveSubscribers(ctx context.Context, now time.Time) ([]models.ActiveSubscriber, error) {
	const op = "storage.ListActiveSubscribers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT u.telegram_id, COALESCE(latest.subscription_level, 1), st.experience, st.last_task_date
			  FROM users u
			  JOIN user_stats st ON st.user_id = u.telegram_id
			  LEFT JOIN LATERAL (
				SELECT subscription_level FROM subscriptions s
				WHERE s.user_id = u.telegram_id AND s.status = 'active'
				ORDER BY s.end_date DESC
				LIMIT 1
			  ) latest ON TRUE
			  WHERE u.subscription_active AND u.subscription_end > $1
			  ORDER BY u.telegram_id`
	rows, err := s.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.ActiveSubscriber
	for rows.Next() {
		var a models.ActiveSubscriber
		if err := rows.Scan(&a.UserID, &a.SubscriptionLevel, &a.Experience, &a.LastTaskDate); err != nil {
			return nil, wrapErr(op, err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}
