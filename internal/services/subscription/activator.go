// Package subscription превращает оплаченный платёж в блок доступа.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/progress-engine/internal/lib/sl"
	"github.com/magabrotheeeer/progress-engine/internal/models"
)

// BlockDays длительность одного оплаченного месяца.
const BlockDays = 30

// Repository методы хранилища, нужные активации.
type Repository interface {
	ActivateSubscription(ctx context.Context, userID int64, build func(u *models.User) *models.Subscription) (*models.Subscription, error)
	GetUserStats(ctx context.Context, userID int64) (*models.UserStats, error)
}

// Notifications ставит уведомления в очередь.
type Notifications interface {
	Enqueue(ctx context.Context, userID int64, typ models.NotificationType, title, message string) error
}

// Activator создаёт подписку по оплаченному платежу.
type Activator struct {
	repo          Repository
	notifications Notifications
	log           *slog.Logger
	now           func() time.Time
}

// NewActivator создает новый экземпляр Activator.
func NewActivator(repo Repository, notifications Notifications, log *slog.Logger) *Activator {
	return &Activator{
		repo:          repo,
		notifications: notifications,
		log:           log,
		now:           time.Now,
	}
}

// Extend возвращает новую дату окончания доступа после покупки months месяцев.
// Действующая подписка продлевается от своей даты окончания, иначе отсчёт идёт от now.
func Extend(u *models.User, now time.Time, months int) time.Time {
	block := time.Duration(months*BlockDays) * 24 * time.Hour
	if u.HasActiveSubscription(now) {
		return u.SubscriptionEnd.Add(block)
	}
	return now.Add(block)
}

// Activate создаёт подписку по платежу p и продлевает пользователю доступ.
// При notify в очередь ставится приветственное уведомление.
func (a *Activator) Activate(ctx context.Context, p *models.Payment, notify bool) (*models.Subscription, error) {
	const op = "subscription.Activate"
	log := a.log.With(slog.String("op", op), sl.PaymentID(p.ID), sl.UserID(p.UserID))

	now := a.now().UTC()
	paymentID := p.ID
	sub, err := a.repo.ActivateSubscription(ctx, p.UserID, func(u *models.User) *models.Subscription {
		return &models.Subscription{
			PaymentID:         &paymentID,
			StartDate:         now,
			EndDate:           Extend(u, now, p.Months),
			Months:            p.Months,
			SubscriptionLevel: p.SubscriptionLevel,
			Status:            models.SubscriptionActive,
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("subscription activated", slog.Time("end_date", sub.EndDate))

	if notify {
		a.notify(ctx, log, sub)
	}
	return sub, nil
}

func (a *Activator) notify(ctx context.Context, log *slog.Logger, sub *models.Subscription) {
	typ := models.NotificationSubscriptionActivated
	title := "Подписка активирована"
	message := fmt.Sprintf("Доступ открыт до %s.", sub.EndDate.Format("02.01.2006"))

	_, err := a.repo.GetUserStats(ctx, sub.UserID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		typ = models.NotificationOnboardingRequired
		title = "Добро пожаловать"
		message = fmt.Sprintf("Подписка активна до %s. Заполните анкету, чтобы получить первые задания.",
			sub.EndDate.Format("02.01.2006"))
	case err != nil:
		log.Warn("failed to load stats for notification", sl.Err(err))
	}

	if err := a.notifications.Enqueue(ctx, sub.UserID, typ, title, message); err != nil {
		log.Error("failed to enqueue notification", sl.Err(err))
	}
}
