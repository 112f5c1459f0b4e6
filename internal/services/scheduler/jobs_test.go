package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/progress-engine/internal/config"
	"github.com/magabrotheeeer/progress-engine/internal/models"
	"github.com/magabrotheeeer/progress-engine/internal/services/payment"
)

type MockPayments struct {
	mock.Mock
}

func (m *MockPayments) ListPending(ctx context.Context) ([]*models.Payment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func (m *MockPayments) Reconcile(ctx context.Context, id int64) (*payment.Result, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Result), args.Error(1)
}

func (m *MockPayments) RepairOrphans(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockNotifications struct {
	mock.Mock
}

func (m *MockNotifications) DispatchPending(ctx context.Context, batch int) (int, error) {
	args := m.Called(ctx, batch)
	return args.Int(0), args.Error(1)
}

func (m *MockNotifications) Enqueue(ctx context.Context, userID int64, typ models.NotificationType, title, message string) error {
	return m.Called(ctx, userID, typ, title, message).Error(0)
}

type MockProgression struct {
	mock.Mock
}

func (m *MockProgression) ApplyDecay(ctx context.Context, sub models.ActiveSubscriber, now time.Time) (bool, error) {
	args := m.Called(ctx, sub, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockProgression) AllowedInactivity(level int) time.Duration {
	return m.Called(level).Get(0).(time.Duration)
}

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListActiveSubscribers(ctx context.Context, now time.Time) ([]models.ActiveSubscriber, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ActiveSubscriber), args.Error(1)
}

func (m *MockRepository) ListExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]*models.Subscription, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

func (m *MockRepository) MarkSubscriptionWarned(ctx context.Context, id int64, at, cutoff time.Time) (bool, error) {
	args := m.Called(ctx, id, at, cutoff)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) ListLapsedUsers(ctx context.Context, now time.Time) ([]int64, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockRepository) DeactivateUser(ctx context.Context, userID int64, now time.Time) (bool, error) {
	args := m.Called(ctx, userID, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() config.Scheduler {
	return config.Scheduler{
		PaymentPeriod:       30 * time.Second,
		PaymentBackoff:      60 * time.Second,
		NotificationPeriod:  30 * time.Second,
		NotificationBackoff: 60 * time.Second,
		NotificationBatch:   10,
		DecayPeriod:         6 * time.Hour,
		DecayBackoff:        time.Hour,
		ExpiryPeriod:        6 * time.Hour,
		ExpiryBackoff:       time.Hour,
		WarningHorizon:      72 * time.Hour,
		WarningTolerance:    12 * time.Hour,
		WarningCooldown:     24 * time.Hour,
	}
}

type mocks struct {
	payments      *MockPayments
	notifications *MockNotifications
	progression   *MockProgression
	repo          *MockRepository
}

func newTestJobs() (*Jobs, mocks) {
	m := mocks{
		payments:      new(MockPayments),
		notifications: new(MockNotifications),
		progression:   new(MockProgression),
		repo:          new(MockRepository),
	}
	j := NewJobs(m.payments, m.notifications, m.progression, m.repo, testConfig(), newNoopLogger())
	j.now = func() time.Time { return testNow }
	return j, m
}

func TestJobs_Loops(t *testing.T) {
	j, _ := newTestJobs()
	loops := j.Loops()
	require.Len(t, loops, 4)

	want := map[string][2]time.Duration{
		LoopPayments:      {30 * time.Second, 60 * time.Second},
		LoopNotifications: {30 * time.Second, 60 * time.Second},
		LoopDecay:         {6 * time.Hour, time.Hour},
		LoopExpiry:        {6 * time.Hour, time.Hour},
	}
	for _, l := range loops {
		assert.Equal(t, want[l.Name][0], l.Period, l.Name)
		assert.Equal(t, want[l.Name][1], l.Backoff, l.Name)
		assert.NotNil(t, l.Job)
	}
}

func TestJobs_ReconcilePayments(t *testing.T) {
	pending := []*models.Payment{{ID: 1}, {ID: 2}, {ID: 3}}

	tests := []struct {
		name       string
		setupMocks func(m mocks)
		wantErr    bool
	}{
		{
			name: "one failure does not abort the batch",
			setupMocks: func(m mocks) {
				m.payments.On("ListPending", mock.Anything).Return(pending, nil).Once()
				m.payments.On("Reconcile", mock.Anything, int64(1)).Return(nil, models.ErrGatewayUnavailable).Once()
				m.payments.On("Reconcile", mock.Anything, int64(2)).
					Return(&payment.Result{Outcome: payment.OutcomeConfirmed}, nil).Once()
				m.payments.On("Reconcile", mock.Anything, int64(3)).
					Return(&payment.Result{Outcome: payment.OutcomeNotYetPaid}, nil).Once()
				m.payments.On("RepairOrphans", mock.Anything).Return(0, nil).Once()
			},
		},
		{
			name: "every payment failed",
			setupMocks: func(m mocks) {
				m.payments.On("ListPending", mock.Anything).Return(pending[:2], nil).Once()
				m.payments.On("Reconcile", mock.Anything, mock.Anything).Return(nil, models.ErrGatewayUnavailable).Twice()
				m.payments.On("RepairOrphans", mock.Anything).Return(0, nil).Once()
			},
			wantErr: true,
		},
		{
			name: "nothing pending still repairs orphans",
			setupMocks: func(m mocks) {
				m.payments.On("ListPending", mock.Anything).Return([]*models.Payment{}, nil).Once()
				m.payments.On("RepairOrphans", mock.Anything).Return(2, nil).Once()
			},
		},
		{
			name: "store unavailable",
			setupMocks: func(m mocks) {
				m.payments.On("ListPending", mock.Anything).Return(nil, models.ErrStoreUnavailable).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, m := newTestJobs()
			tt.setupMocks(m)

			err := j.ReconcilePayments(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			m.payments.AssertExpectations(t)
		})
	}
}

func TestJobs_DispatchNotifications(t *testing.T) {
	j, m := newTestJobs()
	m.notifications.On("DispatchPending", mock.Anything, 10).Return(3, nil).Once()
	require.NoError(t, j.DispatchNotifications(context.Background()))

	m.notifications.On("DispatchPending", mock.Anything, 10).Return(0, models.ErrStoreUnavailable).Once()
	assert.ErrorIs(t, j.DispatchNotifications(context.Background()), models.ErrStoreUnavailable)
}

func TestJobs_DecayInactive(t *testing.T) {
	subs := []models.ActiveSubscriber{
		{UserID: 1, SubscriptionLevel: 1, Experience: 300},
		{UserID: 2, SubscriptionLevel: 2, Experience: 300},
		{UserID: 3, SubscriptionLevel: 3, Experience: 0},
	}

	j, m := newTestJobs()
	m.repo.On("ListActiveSubscribers", mock.Anything, testNow).Return(subs, nil).Once()
	m.progression.On("ApplyDecay", mock.Anything, subs[0], testNow).Return(true, nil).Once()
	m.progression.On("ApplyDecay", mock.Anything, subs[1], testNow).Return(false, errors.New("lock timeout")).Once()
	m.progression.On("ApplyDecay", mock.Anything, subs[2], testNow).Return(false, nil).Once()
	m.progression.On("AllowedInactivity", 1).Return(48 * time.Hour).Once()
	m.notifications.On("Enqueue", mock.Anything, int64(1), models.NotificationExperienceReset, "Прогресс сброшен",
		mock.MatchedBy(func(msg string) bool { return strings.Contains(msg, "больше 2 дн.") })).Return(nil).Once()

	require.NoError(t, j.DecayInactive(context.Background()))
	m.progression.AssertExpectations(t)
	m.notifications.AssertExpectations(t)
}

func TestJobs_DecayInactive_ListError(t *testing.T) {
	j, m := newTestJobs()
	m.repo.On("ListActiveSubscribers", mock.Anything, testNow).Return(nil, models.ErrStoreUnavailable).Once()
	assert.ErrorIs(t, j.DecayInactive(context.Background()), models.ErrStoreUnavailable)
}

func TestJobs_WarnExpiring(t *testing.T) {
	from := testNow.Add(60 * time.Hour)
	to := testNow.Add(84 * time.Hour)
	cutoff := testNow.Add(-24 * time.Hour)
	subs := []*models.Subscription{
		{ID: 10, UserID: 1, EndDate: testNow.Add(72 * time.Hour)},
		{ID: 11, UserID: 2, EndDate: testNow.Add(66 * time.Hour)},
	}

	j, m := newTestJobs()
	m.repo.On("ListExpiringSubscriptions", mock.Anything, from, to).Return(subs, nil).Once()
	m.repo.On("MarkSubscriptionWarned", mock.Anything, int64(10), testNow, cutoff).Return(true, nil).Once()
	m.repo.On("MarkSubscriptionWarned", mock.Anything, int64(11), testNow, cutoff).Return(false, nil).Once()
	m.notifications.On("Enqueue", mock.Anything, int64(1), models.NotificationSubscriptionExpiring, mock.Anything, mock.Anything).
		Return(nil).Once()

	m.repo.On("ListLapsedUsers", mock.Anything, testNow).Return([]int64{7, 8}, nil).Once()
	m.repo.On("DeactivateUser", mock.Anything, int64(7), testNow).Return(true, nil).Once()
	m.repo.On("DeactivateUser", mock.Anything, int64(8), testNow).Return(false, nil).Once()
	m.notifications.On("Enqueue", mock.Anything, int64(7), models.NotificationSubscriptionExpired, mock.Anything, mock.Anything).
		Return(nil).Once()
	m.repo.On("ExpireSubscriptions", mock.Anything, testNow).Return(int64(1), nil).Once()

	require.NoError(t, j.WarnExpiring(context.Background()))
	m.repo.AssertExpectations(t)
	m.notifications.AssertExpectations(t)
	m.notifications.AssertNotCalled(t, "Enqueue", mock.Anything, int64(2), mock.Anything, mock.Anything, mock.Anything)
}

func TestJobs_WarnExpiring_ListErrorStillExpires(t *testing.T) {
	j, m := newTestJobs()
	m.repo.On("ListExpiringSubscriptions", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, models.ErrStoreUnavailable).Once()
	m.repo.On("ListLapsedUsers", mock.Anything, testNow).Return([]int64{}, nil).Once()
	m.repo.On("ExpireSubscriptions", mock.Anything, testNow).Return(int64(0), nil).Once()

	err := j.WarnExpiring(context.Background())
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	m.repo.AssertExpectations(t)
}
