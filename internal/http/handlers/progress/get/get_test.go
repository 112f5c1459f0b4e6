package get

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/progress-engine/internal/lib/rank"
	"github.com/magabrotheeeer/progress-engine/internal/models"
	"github.com/magabrotheeeer/progress-engine/internal/services/progression"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) GetProgress(ctx context.Context, userID int64) (*progression.Progress, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*progression.Progress), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestProgressGetHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		id             string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   []string
	}{
		{
			name: "success",
			id:   "10",
			setupMock: func(m *MockService) {
				m.On("GetProgress", mock.Anything, int64(10)).Return(&progression.Progress{
					UserID:        10,
					Progress:      rank.Compute(1700),
					CurrentStreak: 3,
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   []string{`"user_id":10`, `"rank":"D"`, `"next_rank":"C"`, `"experience":1700`, `"current_streak":3`},
		},
		{
			name: "no stats",
			id:   "11",
			setupMock: func(m *MockService) {
				m.On("GetProgress", mock.Anything, int64(11)).Return(nil, fmt.Errorf("progression.GetProgress: %w", models.ErrNotFound)).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   []string{`{"status":"Error","error":"not found"}`},
		},
		{
			name: "store down",
			id:   "12",
			setupMock: func(m *MockService) {
				m.On("GetProgress", mock.Anything, int64(12)).Return(nil, errors.New("pq: connection reset")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   []string{`{"status":"Error","error":"internal error"}`},
		},
		{
			name:           "bad id",
			id:             "x",
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   []string{`failed to decode id from url`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/"+tt.id+"/progress", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.id)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			for _, part := range tt.expectedBody {
				assert.True(t, strings.Contains(w.Body.String(), part),
					"response body should contain %s, got %s", part, w.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}
