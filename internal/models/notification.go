package models

import "time"

// NotificationType тип уведомления в очереди.
type NotificationType string

const (
	NotificationSubscriptionActivated NotificationType = "subscription_activated"
	NotificationOnboardingRequired    NotificationType = "onboarding_required"
	NotificationSubscriptionExpiring  NotificationType = "subscription_expiring"
	NotificationSubscriptionExpired   NotificationType = "subscription_expired"
	NotificationExperienceReset       NotificationType = "experience_reset"
)

// Notification запись очереди исходящих сообщений.
type Notification struct {
	ID        int64
	UserID    int64
	Type      NotificationType
	Title     string
	Message   string
	IsSent    bool
	CreatedAt time.Time
	SentAt    *time.Time
	// Attempts число неудачных попыток доставки.
	Attempts      int
	NextAttemptAt time.Time
	// FailedAt время, когда доставку бросили.
	FailedAt  *time.Time
	LastError string
}

// Text собирает текст сообщения для отправки.
func (n *Notification) Text() string {
	if n.Title == "" {
		return n.Message
	}
	if n.Message == "" {
		return n.Title
	}
	return n.Title + "\n\n" + n.Message
}
