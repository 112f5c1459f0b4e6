// Package models содержит доменные структуры движка: пользователя, платёж,
// подписку, игровую статистику и очередь уведомлений.
package models

import "time"

// User представляет пользователя бота. Идентификатор совпадает с telegram id.
type User struct {
	ID                 int64
	Language           string
	Name               string
	BirthDate          *time.Time
	Height             float64
	Weight             float64
	City               string
	Goal               string
	ReferralCode       string
	SubscriptionActive bool
	SubscriptionStart  *time.Time
	SubscriptionEnd    *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasActiveSubscription сообщает, действует ли подписка на момент now.
func (u *User) HasActiveSubscription(now time.Time) bool {
	return u.SubscriptionActive && u.SubscriptionEnd != nil && u.SubscriptionEnd.After(now)
}
