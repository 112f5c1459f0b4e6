package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/progress-engine/internal/migrations"
	"github.com/magabrotheeeer/progress-engine/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и накатывает миграции.
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("engine_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	root, err := filepath.Abs("../../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, filepath.Join(root, "migrations")))
	require.NoError(t, CheckDatabaseReady(ctx, storage))

	return storage
}

// TestDataFactory создаёт тестовые записи напрямую через SQL.
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает пользователя без подписки.
func (f *TestDataFactory) CreateUser(t *testing.T, id int64) {
	_, err := f.storage.DB.Exec(`INSERT INTO users (telegram_id, name) VALUES ($1, $2)`, id, "user")
	require.NoError(t, err)
}

// CreateSubscribedUser создает пользователя с активной подпиской до end.
func (f *TestDataFactory) CreateSubscribedUser(t *testing.T, id int64, end time.Time) {
	_, err := f.storage.DB.Exec(`INSERT INTO users (telegram_id, subscription_active, subscription_start, subscription_end)
		VALUES ($1, TRUE, $2, $3)`, id, end.AddDate(0, 0, -30), end)
	require.NoError(t, err)
}

// CreatePayment создает платёж в статусе status.
func (f *TestDataFactory) CreatePayment(t *testing.T, userID int64, ref string, status models.PaymentStatus, createdAt time.Time) int64 {
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO payments (user_id, gateway_id, external_ref, amount, months,
			subscription_level, status, created_at)
		VALUES ($1, 'link', $2, 20000, 1, 1, $3, $4) RETURNING id`, userID, ref, string(status), createdAt).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateSubscription создает активную подписку.
func (f *TestDataFactory) CreateSubscription(t *testing.T, userID int64, paymentID *int64, level int, start, end time.Time) int64 {
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO subscriptions (user_id, payment_id, start_date, end_date, months, subscription_level)
		VALUES ($1, $2, $3, $4, 1, $5) RETURNING id`, userID, paymentID, start, end, level).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateStats создает статистику с опытом exp.
func (f *TestDataFactory) CreateStats(t *testing.T, userID int64, exp int, lastTask *time.Time) {
	_, err := f.storage.DB.Exec(`INSERT INTO user_stats (user_id, experience, last_task_date) VALUES ($1, $2, $3)`,
		userID, exp, lastTask)
	require.NoError(t, err)
}
