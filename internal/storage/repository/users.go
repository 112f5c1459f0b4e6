package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/progress-engine/internal/models"
)

const userColumns = `telegram_id, language, name, birth_date, height, weight, city, goal, referral_code,
	subscription_active, subscription_start, subscription_end, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Language, &u.Name, &u.BirthDate, &u.Height, &u.Weight, &u.City, &u.Goal,
		&u.ReferralCode, &u.SubscriptionActive, &u.SubscriptionStart, &u.SubscriptionEnd, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser возвращает пользователя по telegram id.
func (s *Storage) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return u, nil
}

// SaveUser создаёт пользователя или обновляет поля анкеты.
// Поля подписки и дата создания при повторной регистрации не меняются.
func (s *Storage) SaveUser(ctx context.Context, u *models.User) error {
	const op = "storage.SaveUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (telegram_id, language, name, birth_date, height, weight, city, goal, referral_code)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  ON CONFLICT (telegram_id) DO UPDATE SET
				language = EXCLUDED.language,
				name = EXCLUDED.name,
				birth_date = EXCLUDED.birth_date,
				height = EXCLUDED.height,
				weight = EXCLUDED.weight,
				city = EXCLUDED.city,
				goal = EXCLUDED.goal,
				referral_code = EXCLUDED.referral_code,
				updated_at = NOW()`
	_, err := s.DB.ExecContext(ctx, query, u.ID, u.Language, u.Name, u.BirthDate, u.Height, u.Weight,
		u.City, u.Goal, u.ReferralCode)
	if err != nil {
		return wrapErr(op, err)
	}
	return nil
}

// ListLapsedUsers возвращает активных пользователей, чья подписка закончилась к now.
func (s *Storage) ListLapsedUsers(ctx context.Context, now time.Time) ([]int64, error) {
	const op = "storage.ListLapsedUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT telegram_id FROM users
			  WHERE subscription_active AND subscription_end <= $1
			  ORDER BY subscription_end`
	rows, err := s.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr(op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return ids, nil
}

// DeactivateUser снимает флаг подписки, если она всё ещё числится активной
// и закончилась к now. Возвращает false, если снимать было нечего.
func (s *Storage) DeactivateUser(ctx context.Context, userID int64, now time.Time) (bool, error) {
	const op = "storage.DeactivateUser"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET subscription_active = FALSE, updated_at = NOW()
			  WHERE telegram_id = $1 AND subscription_active AND subscription_end <= $2`
	res, err := s.DB.ExecContext(ctx, query, userID, now)
	if err != nil {
		return false, wrapErr(op, err)
	}
	return affected(op, res)
}
