package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/progress-engine/internal/lib/rank"
	"github.com/magabrotheeeer/progress-engine/internal/models"
)

// GetUserStats возвращает игровую статистику пользователя.
func (s *Storage) GetUserStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	const op = "storage.GetUserStats"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_id, level, experience, rank, current_streak, best_streak,
				total_tasks_completed, last_task_date, updated_at
			  FROM user_stats WHERE user_id = $1`
	var st models.UserStats
	err := s.DB.QueryRowContext(ctx, query, userID).Scan(&st.UserID, &st.Level, &st.Experience, &st.Rank,
		&st.CurrentStreak, &st.BestStreak, &st.TotalTasksCompleted, &st.LastTaskDate, &st.UpdatedAt)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return &st, nil
}

// SaveUserStats создаёт или перезаписывает статистику. Уровень и ранг
// пересчитываются из опыта.
func (s *Storage) SaveUserStats(ctx context.Context, st *models.UserStats) error {
	const op = "storage.SaveUserStats"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO user_stats (user_id, level, experience, rank, current_streak, best_streak,
				total_tasks_completed, last_task_date, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
			  ON CONFLICT (user_id) DO UPDATE SET
				level = EXCLUDED.level,
				experience = EXCLUDED.experience,
				rank = EXCLUDED.rank,
				current_streak = EXCLUDED.current_streak,
				best_streak = EXCLUDED.best_streak,
				total_tasks_completed = EXCLUDED.total_tasks_completed,
				last_task_date = EXCLUDED.last_task_date,
				updated_at = NOW()`
	_, err := s.DB.ExecContext(ctx, query, st.UserID, rank.Level(st.Experience), st.Experience,
		string(rank.For(st.Experience)), st.CurrentStreak, st.BestStreak, st.TotalTasksCompleted, st.LastTaskDate)
	if err != nil {
		return wrapErr(op, err)
	}
	return nil
}

// UpdateExperience выставляет опыт value и пересчитывает уровень и ранг.
// Возвращает false, если опыт уже равен value или статистики нет.
func (s *Storage) UpdateExperience(ctx context.Context, userID int64, value int) (bool, error) {
	const op = "storage.UpdateExperience"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if value < 0 {
		value = 0
	}
	query := `UPDATE user_stats SET experience = $2, level = $3, rank = $4, updated_at = NOW()
			  WHERE user_id = $1 AND experience <> $2`
	res, err := s.DB.ExecContext(ctx, query, userID, value, rank.Level(value), string(rank.For(value)))
	if err != nil {
		return false, wrapErr(op, err)
	}
	return affected(op, res)
}
