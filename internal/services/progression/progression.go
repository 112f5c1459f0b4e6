// Package progression ведёт опыт и ранг игрока: начисление за задания,
// сброс при неактивности и кешированный просмотр прогресса.
package progression

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/magabrotheeeer/progress-engine/internal/lib/metrics"
	"github.com/magabrotheeeer/progress-engine/internal/lib/rank"
	"github.com/magabrotheeeer/progress-engine/internal/lib/sl"
	"github.com/magabrotheeeer/progress-engine/internal/models"
)

// ErrInvalidReward награда за задание должна быть положительной.
var ErrInvalidReward = errors.New("reward must be positive")

type Repository interface {
	GetUserStats(ctx context.Context, userID int64) (*models.UserStats, error)
	SaveUserStats(ctx context.Context, st *models.UserStats) error
	UpdateExperience(ctx context.Context, userID int64, value int) (bool, error)
}

type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Progress ответ на запрос прогресса игрока.
type Progress struct {
	UserID int64 `json:"user_id"`
	rank.Progress
	CurrentStreak       int        `json:"current_streak"`
	BestStreak          int        `json:"best_streak"`
	TotalTasksCompleted int        `json:"total_tasks_completed"`
	LastTaskDate        *time.Time `json:"last_task_date,omitempty"`
}

type Service struct {
	repo     Repository
	cache    Cache
	locks    Locker
	limits   map[int]time.Duration
	levels   []int
	cacheTTL time.Duration
	log      *slog.Logger
	now      func() time.Time
}

// NewService создает новый экземпляр Service. limits задаёт допустимую
// неактивность по уровню подписки.
func NewService(repo Repository, cache Cache, locks Locker, limits map[int]time.Duration,
	cacheTTL time.Duration, log *slog.Logger) *Service {
	levels := make([]int, 0, len(limits))
	for level := range limits {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	return &Service{
		repo:     repo,
		cache:    cache,
		locks:    locks,
		limits:   limits,
		levels:   levels,
		cacheTTL: cacheTTL,
		log:      log,
		now:      time.Now,
	}
}

func progressKey(userID int64) string {
	return "progress:" + strconv.FormatInt(userID, 10)
}

func statsKey(userID int64) string {
	return "stats:" + strconv.FormatInt(userID, 10)
}

func toProgress(st *models.UserStats) *Progress {
	return &Progress{
		UserID:              st.UserID,
		Progress:            rank.Compute(st.Experience),
		CurrentStreak:       st.CurrentStreak,
		BestStreak:          st.BestStreak,
		TotalTasksCompleted: st.TotalTasksCompleted,
		LastTaskDate:        st.LastTaskDate,
	}
}

// GetProgress возвращает прогресс игрока.
func (s *Service) GetProgress(ctx context.Context, userID int64) (*Progress, error) {
	const op = "progression.GetProgress"
	key := progressKey(userID)

	var cached Progress
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("failed to read progress cache", slog.String("key", key), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	st, err := s.repo.GetUserStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p := toProgress(st)
	if err := s.cache.Set(ctx, key, p, s.cacheTTL); err != nil {
		s.log.Warn("failed to cache progress", slog.String("key", key), sl.Err(err))
	}
	return p, nil
}

// RecordTaskCompletion начисляет опыт за выполненное задание и обновляет серию.
func (s *Service) RecordTaskCompletion(ctx context.Context, userID int64, reward int, at time.Time) (*Progress, error) {
	const op = "progression.RecordTaskCompletion"
	if reward <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidReward)
	}

	unlock, err := s.locks.Lock(ctx, statsKey(userID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	st, err := s.repo.GetUserStats(ctx, userID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		st = &models.UserStats{UserID: userID}
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	at = at.UTC()
	st.CurrentStreak = nextStreak(st.CurrentStreak, st.LastTaskDate, at)
	st.BestStreak = max(st.BestStreak, st.CurrentStreak)
	st.Experience += reward
	st.TotalTasksCompleted++
	st.LastTaskDate = &at
	st.Level = rank.Level(st.Experience)
	st.Rank = string(rank.For(st.Experience))

	if err := s.repo.SaveUserStats(ctx, st); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, userID)

	s.log.Info("task completed", sl.UserID(userID), slog.Int("reward", reward),
		slog.Int("experience", st.Experience), slog.String("rank", st.Rank))
	return toProgress(st), nil
}

// nextStreak тот же день серию не меняет, следующий день продлевает, пропуск сбрасывает до 1.
func nextStreak(current int, last *time.Time, at time.Time) int {
	if last == nil || current == 0 {
		return 1
	}
	days := dayNumber(at) - dayNumber(last.UTC())
	switch {
	case days <= 0:
		return current
	case days == 1:
		return current + 1
	default:
		return 1
	}
}

func dayNumber(t time.Time) int64 {
	return t.Unix() / int64(24*time.Hour/time.Second)
}

// AllowedInactivity допустимый перерыв без заданий для уровня подписки.
// Для уровня вне таблицы берётся ближайший меньший, а ниже минимального сам минимальный.
func (s *Service) AllowedInactivity(level int) time.Duration {
	if d, ok := s.limits[level]; ok {
		return d
	}
	if len(s.levels) == 0 {
		return 0
	}
	pick := s.levels[0]
	for _, l := range s.levels {
		if l <= level {
			pick = l
		}
	}
	return s.limits[pick]
}

// ShouldDecay сообщает, пора ли обнулить опыт: опыт есть, задание было
// и с него прошло строго больше допустимого.
func ShouldDecay(experience int, lastTask *time.Time, allowed time.Duration, now time.Time) bool {
	if experience <= 0 || lastTask == nil || allowed <= 0 {
		return false
	}
	return now.Sub(*lastTask) > allowed
}

// ApplyDecay обнуляет опыт подписчика после слишком долгого перерыва.
// Решение принимается по свежей статистике под блокировкой игрока,
// повторный вызов для уже обнулённого игрока ничего не меняет.
func (s *Service) ApplyDecay(ctx context.Context, sub models.ActiveSubscriber, now time.Time) (bool, error) {
	const op = "progression.ApplyDecay"
	allowed := s.AllowedInactivity(sub.SubscriptionLevel)
	if !ShouldDecay(sub.Experience, sub.LastTaskDate, allowed, now) {
		return false, nil
	}

	unlock, err := s.locks.Lock(ctx, statsKey(sub.UserID))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	st, err := s.repo.GetUserStats(ctx, sub.UserID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !ShouldDecay(st.Experience, st.LastTaskDate, allowed, now) {
		return false, nil
	}

	changed, err := s.repo.UpdateExperience(ctx, sub.UserID, 0)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !changed {
		return false, nil
	}
	s.invalidate(ctx, sub.UserID)
	metrics.ExperienceResets.Inc()

	s.log.Info("experience reset for inactivity", sl.UserID(sub.UserID),
		slog.Int("level", sub.SubscriptionLevel), slog.Int("lost", st.Experience),
		slog.Duration("idle", now.Sub(*st.LastTaskDate)))
	return true, nil
}

func (s *Service) invalidate(ctx context.Context, userID int64) {
	key := progressKey(userID)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.Warn("failed to invalidate progress cache", slog.String("key", key), sl.Err(err))
	}
}
