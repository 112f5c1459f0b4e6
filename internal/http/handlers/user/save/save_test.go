package save

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/progress-engine/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) SaveUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestSaveHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success",
			body: `{"user_id":42,"name":"Иван","birth_date":"1990-05-17","height":180,"weight":75,"goal":"сила"}`,
			setupMock: func(m *MockService) {
				m.On("SaveUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
					return u.ID == 42 && u.Language == "ru" && u.Name == "Иван" &&
						u.BirthDate != nil && u.BirthDate.Equal(time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)) &&
						u.Height == 180 && u.Goal == "сила"
				})).Return(nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"user_id":42}}`,
		},
		{
			name:           "invalid JSON",
			body:           `not a json`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name:           "missing user id",
			body:           `{"name":"Иван"}`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field UserID is a required field"}`,
		},
		{
			name: "empty birth date is optional",
			body: `{"user_id":7,"birth_date":""}`,
			setupMock: func(m *MockService) {
				m.On("SaveUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
					return u.ID == 7 && u.BirthDate == nil
				})).Return(nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"user_id":7}}`,
		},
		{
			name:           "impossible birth date",
			body:           `{"user_id":42,"birth_date":"1990-02-30"}`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field BirthDate must be a date in format 2006-01-02"}`,
		},
		{
			name:           "bad birth date",
			body:           `{"user_id":42,"birth_date":"17.05.1990"}`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field BirthDate must be a date in format 2006-01-02"}`,
		},
		{
			name: "store error",
			body: `{"user_id":42,"language":"en"}`,
			setupMock: func(m *MockService) {
				m.On("SaveUser", mock.Anything, mock.Anything).Return(errors.New("connection refused")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"internal error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/users", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
