package paymentcheck

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/progress-engine/internal/models"
	"github.com/magabrotheeeer/progress-engine/internal/services/payment"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Confirm(ctx context.Context, id int64, source payment.Source) (*payment.Result, error) {
	args := m.Called(ctx, id, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Result), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestPaymentCheckHandler_ServeHTTP(t *testing.T) {
	end := time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		id             string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "confirmed",
			id:   "5",
			setupMock: func(m *MockService) {
				m.On("Confirm", mock.Anything, int64(5), payment.SourceUser).Return(&payment.Result{
					Outcome:      payment.OutcomeConfirmed,
					Payment:      &models.Payment{ID: 5, Status: models.PaymentPaid},
					Subscription: &models.Subscription{EndDate: end},
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody: `{"status":"OK","data":{"outcome":"confirmed","payment_id":5,"status":"paid",` +
				`"subscription_end":"2025-04-10T12:00:00Z"}}`,
		},
		{
			name: "already processed",
			id:   "5",
			setupMock: func(m *MockService) {
				m.On("Confirm", mock.Anything, int64(5), payment.SourceUser).Return(&payment.Result{
					Outcome: payment.OutcomeAlreadyProcessed,
					Payment: &models.Payment{ID: 5, Status: models.PaymentPaid},
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"outcome":"already_processed","payment_id":5,"status":"paid"}}`,
		},
		{
			name: "not yet paid",
			id:   "6",
			setupMock: func(m *MockService) {
				m.On("Confirm", mock.Anything, int64(6), payment.SourceUser).Return(&payment.Result{
					Outcome: payment.OutcomeNotYetPaid,
					Payment: &models.Payment{ID: 6, Status: models.PaymentPending},
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"outcome":"not_yet_paid","payment_id":6,"status":"pending"}}`,
		},
		{
			name:           "bad id",
			id:             "abc",
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"failed to decode id from url"}`,
		},
		{
			name: "gateway unavailable",
			id:   "7",
			setupMock: func(m *MockService) {
				m.On("Confirm", mock.Anything, int64(7), payment.SourceUser).
					Return(nil, fmt.Errorf("payment.Confirm: %w: status 502", models.ErrGatewayUnavailable)).Once()
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `{"status":"Error","error":"payment not yet confirmed, try again shortly"}`,
		},
		{
			name: "paid but activation pending",
			id:   "8",
			setupMock: func(m *MockService) {
				m.On("Confirm", mock.Anything, int64(8), payment.SourceUser).Return(&payment.Result{
					Outcome: payment.OutcomeConfirmed,
				}, fmt.Errorf("payment.Confirm: %w", models.ErrInconsistentState)).Once()
			},
			expectedStatus: http.StatusAccepted,
			expectedBody:   `{"status":"Error","error":"payment received, activation in progress"}`,
		},
		{
			name: "unknown payment",
			id:   "9",
			setupMock: func(m *MockService) {
				m.On("Confirm", mock.Anything, int64(9), payment.SourceUser).Return(nil, models.ErrNotFound).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"status":"Error","error":"not found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/"+tt.id+"/check", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.id)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
