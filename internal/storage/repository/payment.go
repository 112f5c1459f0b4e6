package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/progress-engine/internal/models"
)

const paymentColumns = `id, user_id, gateway_id, external_ref, amount, currency, months, subscription_level,
	status, payment_url, created_at, paid_at`

func scanPayment(row scanner) (*models.Payment, error) {
	var p models.Payment
	var status string
	err := row.Scan(&p.ID, &p.UserID, &p.GatewayID, &p.ExternalRef, &p.Amount, &p.Currency, &p.Months,
		&p.SubscriptionLevel, &status, &p.PaymentURL, &p.CreatedAt, &p.PaidAt)
	if err != nil {
		return nil, err
	}
	p.Status = models.PaymentStatus(status)
	return &p, nil
}

// CreatePayment сохраняет новый платёж в статусе pending и возвращает его id.
func (s *Storage) CreatePayment(ctx context.Context, p *models.Payment) (int64, error) {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	currency := p.Currency
	if currency == "" {
		currency = "RUB"
	}
	query := `INSERT INTO payments (user_id, gateway_id, external_ref, amount, currency, months,
				subscription_level, status, payment_url, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8, $9) RETURNING id`
	var id int64
	err := s.DB.QueryRowContext(ctx, query, p.UserID, p.GatewayID, p.ExternalRef, p.Amount, currency,
		p.Months, p.SubscriptionLevel, p.PaymentURL, p.CreatedAt).Scan(&id)
	if err != nil {
		return 0, wrapErr(op, err)
	}
	return id, nil
}

// GetPayment возвращает платёж по id.
func (s *Storage) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	const op = "storage.GetPayment"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return p, nil
}

// PaymentRefExists проверяет, занят ли внешний идентификатор.
func (s *Storage) PaymentRefExists(ctx context.Context, ref string) (bool, error) {
	const op = "storage.PaymentRefExists"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM payments WHERE external_ref = $1)`, ref).Scan(&exists)
	if err != nil {
		return false, wrapErr(op, err)
	}
	return exists, nil
}

// ListPaymentsByStatus возвращает платежи в статусе status, старые первыми.
func (s *Storage) ListPaymentsByStatus(ctx context.Context, status models.PaymentStatus, limit int) ([]*models.Payment, error) {
	const op = "storage.ListPaymentsByStatus"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + paymentColumns + ` FROM payments
			  WHERE status = $1
			  ORDER BY created_at, id
			  LIMIT $2`
	return s.queryPayments(ctx, op, query, string(status), limit)
}

// ListOrphanedPayments возвращает оплаченные платежи без подписки.
func (s *Storage) ListOrphanedPayments(ctx context.Context) ([]*models.Payment, error) {
	const op = "storage.ListOrphanedPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT p.id, p.user_id, p.gateway_id, p.external_ref, p.amount, p.currency, p.months,
				p.subscription_level, p.status, p.payment_url, p.created_at, p.paid_at
			  FROM payments p
			  LEFT JOIN subscriptions s ON s.payment_id = p.id
			  WHERE p.status = 'paid' AND s.id IS NULL
			  ORDER BY p.paid_at, p.id`
	return s.queryPayments(ctx, op, query)
}

func (s *Storage) queryPayments(ctx context.Context, op, query string, args ...any) ([]*models.Payment, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}

// TransitionPayment переводит pending платёж в статус to.
// Возвращает false, если платёж уже не в pending: переход сделал кто-то другой.
// Для paid в paid_at записывается at.
func (s *Storage) TransitionPayment(ctx context.Context, id int64, to models.PaymentStatus, at time.Time) (bool, error) {
	const op = "storage.TransitionPayment"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if !models.CanTransition(models.PaymentPending, to) {
		return false, fmt.Errorf("%s: %w: pending -> %s", op, models.ErrInvalidTransition, to)
	}

	query := `UPDATE payments SET
				status = $2::varchar,
				paid_at = CASE WHEN $2::varchar = 'paid' THEN $3::timestamptz ELSE paid_at END
			  WHERE id = $1 AND status = 'pending'`
	res, err := s.DB.ExecContext(ctx, query, id, string(to), at)
	if err != nil {
		return false, wrapErr(op, err)
	}
	return affected(op, res)
}
