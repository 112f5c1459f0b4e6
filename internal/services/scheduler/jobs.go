package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/magabrotheeeer/progress-engine/internal/config"
	"github.com/magabrotheeeer/progress-engine/internal/lib/metrics"
	"github.com/magabrotheeeer/progress-engine/internal/lib/sl"
	"github.com/magabrotheeeer/progress-engine/internal/models"
	"github.com/magabrotheeeer/progress-engine/internal/services/payment"
)

const (
	LoopPayments      = "payments"
	LoopNotifications = "notifications"
	LoopDecay         = "decay"
	LoopExpiry        = "expiry"
)

type Payments interface {
	ListPending(ctx context.Context) ([]*models.Payment, error)
	Reconcile(ctx context.Context, id int64) (*payment.Result, error)
	RepairOrphans(ctx context.Context) (int, error)
}

type Notifications interface {
	DispatchPending(ctx context.Context, batch int) (int, error)
	Enqueue(ctx context.Context, userID int64, typ models.NotificationType, title, message string) error
}

type Progression interface {
	ApplyDecay(ctx context.Context, sub models.ActiveSubscriber, now time.Time) (bool, error)
	AllowedInactivity(level int) time.Duration
}

type Repository interface {
	ListActiveSubscribers(ctx context.Context, now time.Time) ([]models.ActiveSubscriber, error)
	ListExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]*models.Subscription, error)
	MarkSubscriptionWarned(ctx context.Context, id int64, at, cutoff time.Time) (bool, error)
	ListLapsedUsers(ctx context.Context, now time.Time) ([]int64, error)
	DeactivateUser(ctx context.Context, userID int64, now time.Time) (bool, error)
	ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error)
}

// Jobs тела четырёх фоновых циклов.
type Jobs struct {
	payments      Payments
	notifications Notifications
	progression   Progression
	repo          Repository
	cfg           config.Scheduler
	log           *slog.Logger
	now           func() time.Time
}

// NewJobs создает новый экземпляр Jobs.
func NewJobs(payments Payments, notifications Notifications, progression Progression, repo Repository,
	cfg config.Scheduler, log *slog.Logger) *Jobs {
	return &Jobs{
		payments:      payments,
		notifications: notifications,
		progression:   progression,
		repo:          repo,
		cfg:           cfg,
		log:           log,
		now:           time.Now,
	}
}

// Loops собирает циклы с периодами из конфигурации.
func (j *Jobs) Loops() []Loop {
	return []Loop{
		{Name: LoopPayments, Period: j.cfg.PaymentPeriod, Backoff: j.cfg.PaymentBackoff, Job: j.ReconcilePayments},
		{Name: LoopNotifications, Period: j.cfg.NotificationPeriod, Backoff: j.cfg.NotificationBackoff, Job: j.DispatchNotifications},
		{Name: LoopDecay, Period: j.cfg.DecayPeriod, Backoff: j.cfg.DecayBackoff, Job: j.DecayInactive},
		{Name: LoopExpiry, Period: j.cfg.ExpiryPeriod, Backoff: j.cfg.ExpiryBackoff, Job: j.WarnExpiring},
	}
}

// ReconcilePayments опрашивает шлюз по каждому pending-платежу и чинит оплаченные
// платежи без подписки. Ошибка одного платежа не прерывает проход, итерация
// считается неудачной, только если не удалось обработать ни один.
func (j *Jobs) ReconcilePayments(ctx context.Context) error {
	log := j.log.With(sl.Loop(LoopPayments))

	pending, err := j.payments.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("list pending payments: %w", err)
	}

	var lastErr error
	failed, confirmed := 0, 0
	for _, p := range pending {
		res, err := j.payments.Reconcile(ctx, p.ID)
		if err != nil {
			failed++
			lastErr = err
			log.Error("failed to reconcile payment", sl.PaymentID(p.ID), sl.Err(err))
			continue
		}
		if res.Outcome == payment.OutcomeConfirmed {
			confirmed++
		}
	}

	repaired, err := j.payments.RepairOrphans(ctx)
	if err != nil {
		log.Error("failed to repair orphaned payments", sl.Err(err))
	}

	if len(pending) > 0 || repaired > 0 {
		log.Info("payments reconciled", slog.Int("pending", len(pending)), slog.Int("confirmed", confirmed),
			slog.Int("failed", failed), slog.Int("repaired", repaired))
	}
	if len(pending) > 0 && failed == len(pending) {
		return fmt.Errorf("all %d pending payments failed: %w", failed, lastErr)
	}
	return nil
}

// DispatchNotifications отправляет очередную пачку уведомлений.
func (j *Jobs) DispatchNotifications(ctx context.Context) error {
	_, err := j.notifications.DispatchPending(ctx, j.cfg.NotificationBatch)
	return err
}

// DecayInactive обнуляет опыт подписчикам, давно не выполнявшим задания.
func (j *Jobs) DecayInactive(ctx context.Context) error {
	log := j.log.With(sl.Loop(LoopDecay))
	now := j.now().UTC()

	subs, err := j.repo.ListActiveSubscribers(ctx, now)
	if err != nil {
		return fmt.Errorf("list active subscribers: %w", err)
	}

	resets := 0
	for _, sub := range subs {
		reset, err := j.progression.ApplyDecay(ctx, sub, now)
		if err != nil {
			log.Error("failed to apply decay", sl.UserID(sub.UserID), sl.Err(err))
			continue
		}
		if !reset {
			continue
		}
		resets++

		days := j.progression.AllowedInactivity(sub.SubscriptionLevel).Hours() / 24
		msg := fmt.Sprintf("Вы не выполняли задания больше %s дн., опыт обнулён. Ранг можно набрать заново.",
			strconv.FormatFloat(days, 'f', -1, 64))
		if err := j.notifications.Enqueue(ctx, sub.UserID, models.NotificationExperienceReset, "Прогресс сброшен", msg); err != nil {
			log.Error("failed to enqueue reset notification", sl.UserID(sub.UserID), sl.Err(err))
		}
	}

	log.Info("decay check finished", slog.Int("checked", len(subs)), slog.Int("reset", resets))
	return nil
}

// WarnExpiring предупреждает об окончании подписки через ~3 дня не чаще раза
// в сутки и закрывает доступ тем, у кого подписка уже кончилась.
func (j *Jobs) WarnExpiring(ctx context.Context) error {
	now := j.now().UTC()
	return errors.Join(j.warn(ctx, now), j.expire(ctx, now))
}

func (j *Jobs) warn(ctx context.Context, now time.Time) error {
	log := j.log.With(sl.Loop(LoopExpiry))

	from := now.Add(j.cfg.WarningHorizon - j.cfg.WarningTolerance)
	to := now.Add(j.cfg.WarningHorizon + j.cfg.WarningTolerance)
	subs, err := j.repo.ListExpiringSubscriptions(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list expiring subscriptions: %w", err)
	}

	warned := 0
	cutoff := now.Add(-j.cfg.WarningCooldown)
	for _, sub := range subs {
		ok, err := j.repo.MarkSubscriptionWarned(ctx, sub.ID, now, cutoff)
		if err != nil {
			log.Error("failed to mark subscription warned", sl.UserID(sub.UserID), sl.Err(err))
			continue
		}
		if !ok {
			continue
		}
		msg := fmt.Sprintf("Подписка закончится %s. Продлите её, чтобы не потерять доступ к заданиям.",
			sub.EndDate.Format("02.01.2006 15:04"))
		if err := j.notifications.Enqueue(ctx, sub.UserID, models.NotificationSubscriptionExpiring,
			"Подписка скоро закончится", msg); err != nil {
			log.Error("failed to enqueue expiry warning", sl.UserID(sub.UserID), sl.Err(err))
			continue
		}
		metrics.ExpiryWarnings.Inc()
		warned++
	}

	log.Info("expiry warnings queued", slog.Int("expiring", len(subs)), slog.Int("warned", warned))
	return nil
}

func (j *Jobs) expire(ctx context.Context, now time.Time) error {
	log := j.log.With(sl.Loop(LoopExpiry))

	ids, err := j.repo.ListLapsedUsers(ctx, now)
	if err != nil {
		return fmt.Errorf("list lapsed users: %w", err)
	}

	deactivated := 0
	for _, id := range ids {
		ok, err := j.repo.DeactivateUser(ctx, id, now)
		if err != nil {
			log.Error("failed to deactivate user", sl.UserID(id), sl.Err(err))
			continue
		}
		if !ok {
			continue
		}
		deactivated++
		if err := j.notifications.Enqueue(ctx, id, models.NotificationSubscriptionExpired, "Подписка закончилась",
			"Доступ к заданиям закрыт. Оформите новую подписку, чтобы продолжить."); err != nil {
			log.Error("failed to enqueue expiry notification", sl.UserID(id), sl.Err(err))
		}
	}

	n, err := j.repo.ExpireSubscriptions(ctx, now)
	if err != nil {
		return fmt.Errorf("expire subscriptions: %w", err)
	}
	if deactivated > 0 || n > 0 {
		log.Info("subscriptions expired", slog.Int("users", deactivated), slog.Int64("subscriptions", n))
	}
	return nil
}
