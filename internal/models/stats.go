package models

import "time"

// UserStats игровая статистика пользователя.
type UserStats struct {
	UserID              int64
	Level               int
	Experience          int
	Rank                string
	CurrentStreak       int
	BestStreak          int
	TotalTasksCompleted int
	LastTaskDate        *time.Time
	UpdatedAt           time.Time
}
