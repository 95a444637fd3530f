package me

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/http/middlewarectx"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/models"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/services/auth"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Profile(ctx context.Context, userUID string) (*models.Profile, error) {
	args := m.Called(ctx, userUID)
	p, _ := args.Get(0).(*models.Profile)
	return p, args.Error(1)
}

func TestMeHandler_ServeHTTP(t *testing.T) {
	profile := &models.Profile{ID: "u-1", Name: "Alice", Email: "alice@example.com", Role: models.RoleUser}

	tests := []struct {
		name           string
		userUID        string
		mockProfile    *models.Profile
		mockErr        error
		wantStatusCode int
		wantError      string
	}{
		{
			name:           "success",
			userUID:        "u-1",
			mockProfile:    profile,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "no identity in context",
			wantStatusCode: http.StatusUnauthorized,
			wantError:      auth.ErrUnauthorized.Error(),
		},
		{
			name:           "account vanished",
			userUID:        "u-1",
			mockErr:        fmt.Errorf("auth.Profile: %w", auth.ErrUnauthorized),
			wantStatusCode: http.StatusUnauthorized,
			wantError:      auth.ErrUnauthorized.Error(),
		},
		{
			name:           "store failure",
			userUID:        "u-1",
			mockErr:        errors.New("storage.GetUserByID: bad connection"),
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.userUID != "" {
				svc.On("Profile", mock.Anything, tt.userUID).Return(tt.mockProfile, tt.mockErr).Once()
			}
			handler := New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
			if tt.userUID != "" {
				req = req.WithContext(middlewarectx.WithIdentity(req.Context(), tt.userUID, models.RoleUser))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			var got map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, got["error"])
			} else {
				user, ok := got["user"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "u-1", user["id"])
				assert.Equal(t, "Alice", user["name"])
			}
			svc.AssertExpectations(t)
		})
	}
}
