package models

import "time"

// SubscriptionStatus статус подписки.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Subscription блок оплаченного доступа, созданный активацией платежа.
type Subscription struct {
	ID                int64
	UserID            int64
	PaymentID         *int64
	StartDate         time.Time
	EndDate           time.Time
	Months            int
	SubscriptionLevel int
	Status            SubscriptionStatus
	AutoRenew         bool
	LastWarningAt     *time.Time
	CreatedAt         time.Time
}

// ActiveSubscriber пользователь с действующей подпиской и его прогресс,
// выборка для проверки неактивности.
type ActiveSubscriber struct {
	UserID            int64
	SubscriptionLevel int
	Experience        int
	LastTaskDate      *time.Time
}
