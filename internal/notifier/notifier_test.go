package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/progress-engine/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/progress-engine/internal/models"
)

func TestTelegram_Send(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/botsecret/sendMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":123456,"type":"private"}}}`))
	}))
	defer srv.Close()

	tg := NewTelegram(srv.URL+"/", "secret", time.Second)
	require.NoError(t, tg.Send(context.Background(), 123456, "Привет\nмир"))
	assert.Equal(t, "123456", form.Get("chat_id"))
	assert.Equal(t, "Привет\nмир", form.Get("text"))
}

func TestTelegram_Send_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantMsg       string
		undeliverable bool
	}{
		{
			name:          "bot blocked",
			status:        http.StatusForbidden,
			body:          `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`,
			wantMsg:       "bot was blocked",
			undeliverable: true,
		},
		{
			name:          "chat not found",
			status:        http.StatusBadRequest,
			body:          `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`,
			wantMsg:       "chat not found",
			undeliverable: true,
		},
		{
			name:    "too many requests",
			status:  http.StatusTooManyRequests,
			body:    `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 5","parameters":{"retry_after":5}}`,
			wantMsg: "429",
		},
		{
			name:   "bad gateway",
			status: http.StatusBadGateway,
			body:   `<html>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewTelegram(srv.URL, "secret", time.Second).Send(context.Background(), 1, "x")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Equal(t, tt.undeliverable, errors.Is(err, models.ErrUndeliverable))
		})
	}
}

func TestTelegram_Send_TokenNotLeaked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	err := NewTelegram(srv.URL, "supersecret", 50*time.Millisecond).Send(context.Background(), 1, "x")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "supersecret")
}

func TestTelegram_Send_HonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := NewTelegram(srv.URL, "secret", 5*time.Second).Send(ctx, 1, "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(exchange, key, mandatory, immediate, msg).Error(0)
}

func TestQueue_Send(t *testing.T) {
	p := new(MockPublisher)
	p.On("Publish", rabbitmq.NotificationsExchange, rabbitmq.OutgoingRoutingKey, false, false,
		mock.MatchedBy(func(msg amqp.Publishing) bool {
			var body OutgoingMessage
			return json.Unmarshal(msg.Body, &body) == nil && body.UserID == 42 && body.Text == "часть 1"
		})).Return(nil).Once()

	require.NoError(t, NewQueue(p).Send(context.Background(), 42, "часть 1"))
	p.AssertExpectations(t)
}

func TestQueue_Send_Errors(t *testing.T) {
	p := new(MockPublisher)
	p.On("Publish", mock.Anything, mock.Anything, false, false, mock.Anything).Return(errors.New("channel closed")).Once()
	assert.Error(t, NewQueue(p).Send(context.Background(), 1, "x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewQueue(p).Send(ctx, 1, "x"), context.Canceled)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, userID int64, text string) error {
	return m.Called(ctx, userID, text).Error(0)
}

func TestForwarder_Handle(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name          string
		body          string
		setupMock     func(*MockSender)
		wantErr       bool
		wantPermanent bool
	}{
		{
			name: "forwarded",
			body: `{"user_id":42,"text":"Подписка активна"}`,
			setupMock: func(m *MockSender) {
				m.On("Send", mock.Anything, int64(42), "Подписка активна").Return(nil).Once()
			},
		},
		{
			name: "sender error is retried",
			body: `{"user_id":42,"text":"x"}`,
			setupMock: func(m *MockSender) {
				m.On("Send", mock.Anything, int64(42), "x").Return(errors.New("timeout")).Once()
			},
			wantErr: true,
		},
		{
			name: "blocked recipient is dead-lettered",
			body: `{"user_id":42,"text":"x"}`,
			setupMock: func(m *MockSender) {
				m.On("Send", mock.Anything, int64(42), "x").
					Return(fmt.Errorf("telegram: %w", models.ErrUndeliverable)).Once()
			},
			wantErr:       true,
			wantPermanent: true,
		},
		{name: "broken json", body: `{`, setupMock: func(*MockSender) {}, wantErr: true, wantPermanent: true},
		{name: "empty text", body: `{"user_id":42}`, setupMock: func(*MockSender) {}, wantErr: true, wantPermanent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := new(MockSender)
			tt.setupMock(s)

			err := NewForwarder(s, log).Handle(context.Background(), []byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantPermanent, errors.Is(err, rabbitmq.ErrPermanent))
			} else {
				require.NoError(t, err)
			}
			s.AssertExpectations(t)
		})
	}
}
