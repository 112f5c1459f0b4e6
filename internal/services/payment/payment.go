// Package payment ведёт жизненный цикл платежа: создание ссылки у шлюза,
// подтверждение оплаты, отмену и истечение. Активация выполняется не больше
// одного раза на платёж.
package payment

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
	"github.com/magabrotheeeer/progress-engine/internal/paymentprovider"
)

const (
	pendingBatch   = 500
	maxRefAttempts = 10
)

type Repository interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	CreatePayment(ctx context.Context, p *models.Payment) (int64, error)
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	PaymentRefExists(ctx context.Context, ref string) (bool, error)
	ListPaymentsByStatus(ctx context.Context, status models.PaymentStatus, limit int) ([]*models.Payment, error)
	ListOrphanedPayments(ctx context.Context) ([]*models.Payment, error)
	TransitionPayment(ctx context.Context, id int64, to models.PaymentStatus, at time.Time) (bool, error)
	GetSubscriptionByPaymentID(ctx context.Context, paymentID int64) (*models.Subscription, error)
}

// Gateway внешний платёжный шлюз.
type Gateway interface {
	CreatePaymentLink(ctx context.Context, p paymentprovider.LinkParams) (*paymentprovider.Link, error)
	IsPaid(ctx context.Context, orderID string) (bool, error)
}

// Activator создаёт подписку по оплаченному платежу.
type Activator interface {
	Activate(ctx context.Context, p *models.Payment, notify bool) (*models.Subscription, error)
}

// Locker взаимное исключение по ключу, общее для всех реплик.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Plans справочник тарифов.
type Plans interface {
	PlanFor(months int) (config.Plan, bool)
}

// Source инициатор подтверждения.
type Source int

const (
	// SourceUser пользователь нажал "проверить оплату".
	SourceUser Source = iota
	// SourcePoller фоновый опрос шлюза.
	SourcePoller
)

// Outcome итог попытки подтверждения.
type Outcome string

const (
	OutcomeConfirmed        Outcome = "confirmed"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeNotYetPaid       Outcome = "not_yet_paid"
	OutcomeExpired          Outcome = "expired"
	OutcomeCancelled        Outcome = "cancelled"
)

// Result итог подтверждения или отмены.
type Result struct {
	Outcome      Outcome
	Payment      *models.Payment
	Subscription *models.Subscription
}

type Service struct {
	repo      Repository
	gateway   Gateway
	activator Activator
	locks     Locker
	plans     Plans
	linkTTL   time.Duration
	log       *slog.Logger
	now       func() time.Time
}

// NewService создает новый экземпляр Service.
func NewService(repo Repository, gateway Gateway, activator Activator, locks Locker, plans Plans,
	linkTTL time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		gateway:   gateway,
		activator: activator,
		locks:     locks,
		plans:     plans,
		linkTTL:   linkTTL,
		log:       log,
		now:       time.Now,
	}
}

func userKey(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}

func paymentKey(id int64) string {
	return "payment:" + strconv.FormatInt(id, 10)
}

// Create создаёт ссылку на оплату тарифа months и сохраняет платёж в статусе pending.
// При отказе шлюза ничего не сохраняется.
func (s *Service) Create(ctx context.Context, userID int64, months int) (*models.Payment, error) {
	const op = "payment.Create"
	log := s.log.With(slog.String("op", op), sl.UserID(userID))

	plan, ok := s.plans.PlanFor(months)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %d months", op, models.ErrUnknownPlan, months)
	}
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	unlock, err := s.locks.Lock(ctx, userKey(userID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	now := s.now().UTC()
	ref, err := s.nextRef(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	amount := plan.Price * 100
	link, err := s.gateway.CreatePaymentLink(ctx, paymentprovider.LinkParams{
		Amount:      amount,
		Description: fmt.Sprintf("Подписка на %d мес.", months),
		OrderID:     ref,
	})
	if err != nil {
		log.Error("failed to create payment link", sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrGatewayUnavailable, err)
	}

	p := &models.Payment{
		UserID:            userID,
		GatewayID:         link.ID,
		ExternalRef:       ref,
		Amount:            amount,
		Currency:          "RUB",
		Months:            months,
		SubscriptionLevel: plan.Level,
		Status:            models.PaymentPending,
		PaymentURL:        link.URL,
		CreatedAt:         now,
	}
	p.ID, err = s.repo.CreatePayment(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.PaymentsCreated.Inc()
	log.Info("payment created", sl.PaymentID(p.ID), slog.String("ref", ref))
	return p, nil
}

// nextRef строит orderId из userID и unix-времени. Занятая секунда сдвигается вперёд.
func (s *Service) nextRef(ctx context.Context, userID int64, now time.Time) (string, error) {
	ts := now.Unix()
	for range maxRefAttempts {
		ref := strconv.FormatInt(userID, 10) + strconv.FormatInt(ts, 10)
		exists, err := s.repo.PaymentRefExists(ctx, ref)
		if err != nil {
			return "", err
		}
		if !exists {
			return ref, nil
		}
		ts++
	}
	return "", fmt.Errorf("%w: no free external ref for user %d", models.ErrConflict, userID)
}

// Confirm проверяет оплату у шлюза и активирует подписку.
// Повторный вызов для обработанного платежа возвращает OutcomeAlreadyProcessed.
func (s *Service) Confirm(ctx context.Context, id int64, source Source) (*Result, error) {
	const op = "payment.Confirm"

	unlock, err := s.locks.Lock(ctx, paymentKey(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	p, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	res, err := s.confirmLocked(ctx, p, source)
	if err != nil {
		return res, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// Reconcile шаг фонового опроса для одного pending-платежа.
// Неоплаченный платёж старше срока жизни ссылки переводится в expired.
func (s *Service) Reconcile(ctx context.Context, id int64) (*Result, error) {
	const op = "payment.Reconcile"

	unlock, err := s.locks.Lock(ctx, paymentKey(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	p, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	res, err := s.confirmLocked(ctx, p, SourcePoller)
	if err != nil {
		return res, fmt.Errorf("%s: %w", op, err)
	}
	if res.Outcome != OutcomeNotYetPaid || s.linkTTL <= 0 {
		return res, nil
	}

	now := s.now().UTC()
	if now.Sub(p.CreatedAt) <= s.linkTTL {
		return res, nil
	}
	ok, err := s.repo.TransitionPayment(ctx, p.ID, models.PaymentExpired, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return &Result{Outcome: OutcomeAlreadyProcessed, Payment: p}, nil
	}
	p.Status = models.PaymentExpired
	metrics.PaymentOutcomes.WithLabelValues(string(OutcomeExpired)).Inc()
	s.log.Info("payment expired", slog.String("op", op), sl.PaymentID(p.ID))
	return &Result{Outcome: OutcomeExpired, Payment: p}, nil
}

// Cancel переводит pending-платёж в cancelled. Если шлюз уже видит оплату,
// платёж подтверждается вместо отмены.
func (s *Service) Cancel(ctx context.Context, id int64) (*Result, error) {
	const op = "payment.Cancel"

	unlock, err := s.locks.Lock(ctx, paymentKey(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	p, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !models.CanTransition(p.Status, models.PaymentCancelled) {
		return nil, fmt.Errorf("%s: %w: %s", op, models.ErrInvalidTransition, p.Status)
	}

	res, err := s.confirmLocked(ctx, p, SourceUser)
	if err != nil {
		return res, fmt.Errorf("%s: %w", op, err)
	}
	if res.Outcome != OutcomeNotYetPaid {
		return res, nil
	}

	ok, err := s.repo.TransitionPayment(ctx, p.ID, models.PaymentCancelled, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidTransition)
	}
	p.Status = models.PaymentCancelled
	metrics.PaymentOutcomes.WithLabelValues(string(OutcomeCancelled)).Inc()
	s.log.Info("payment cancelled", slog.String("op", op), sl.PaymentID(p.ID))
	return &Result{Outcome: OutcomeCancelled, Payment: p}, nil
}

// confirmLocked вызывается под блокировкой платежа.
func (s *Service) confirmLocked(ctx context.Context, p *models.Payment, source Source) (*Result, error) {
	log := s.log.With(sl.PaymentID(p.ID), sl.UserID(p.UserID))

	if p.Status != models.PaymentPending {
		metrics.PaymentOutcomes.WithLabelValues(string(OutcomeAlreadyProcessed)).Inc()
		return &Result{Outcome: OutcomeAlreadyProcessed, Payment: p}, nil
	}

	paid, err := s.gateway.IsPaid(ctx, p.ExternalRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrGatewayUnavailable, err)
	}
	if !paid {
		return &Result{Outcome: OutcomeNotYetPaid, Payment: p}, nil
	}

	now := s.now().UTC()
	ok, err := s.repo.TransitionPayment(ctx, p.ID, models.PaymentPaid, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.PaymentOutcomes.WithLabelValues(string(OutcomeAlreadyProcessed)).Inc()
		return &Result{Outcome: OutcomeAlreadyProcessed, Payment: p}, nil
	}
	p.Status = models.PaymentPaid
	p.PaidAt = &now

	sub, err := s.activator.Activate(ctx, p, source == SourcePoller)
	if err != nil {
		log.Error("payment paid but activation failed", sl.Err(err))
		return &Result{Outcome: OutcomeConfirmed, Payment: p}, fmt.Errorf("%w: %w", models.ErrInconsistentState, err)
	}

	metrics.PaymentOutcomes.WithLabelValues(string(OutcomeConfirmed)).Inc()
	log.Info("payment confirmed", slog.Time("end_date", sub.EndDate))
	return &Result{Outcome: OutcomeConfirmed, Payment: p, Subscription: sub}, nil
}

// ListPending возвращает платежи, ожидающие оплаты.
func (s *Service) ListPending(ctx context.Context) ([]*models.Payment, error) {
	return s.repo.ListPaymentsByStatus(ctx, models.PaymentPending, pendingBatch)
}

// RepairOrphans активирует оплаченные платежи, для которых нет подписки.
// Возвращает число восстановленных.
func (s *Service) RepairOrphans(ctx context.Context) (int, error) {
	const op = "payment.RepairOrphans"
	log := s.log.With(slog.String("op", op))

	orphans, err := s.repo.ListOrphanedPayments(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	repaired := 0
	for _, p := range orphans {
		if ctx.Err() != nil {
			return repaired, fmt.Errorf("%s: %w", op, ctx.Err())
		}
		ok, err := s.repairOne(ctx, p)
		if err != nil {
			log.Error("failed to repair payment", sl.PaymentID(p.ID), sl.Err(err))
			continue
		}
		if ok {
			repaired++
		}
	}
	if repaired > 0 {
		log.Warn("orphaned payments repaired", slog.Int("count", repaired))
	}
	return repaired, nil
}

func (s *Service) repairOne(ctx context.Context, p *models.Payment) (bool, error) {
	unlock, err := s.locks.Lock(ctx, paymentKey(p.ID))
	if err != nil {
		return false, err
	}
	defer unlock()

	_, err = s.repo.GetSubscriptionByPaymentID(ctx, p.ID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return false, err
	}

	if _, err := s.activator.Activate(ctx, p, true); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return false, nil
		}
		return false, err
	}
	metrics.OrphanRepairs.Inc()
	return true, nil
}
