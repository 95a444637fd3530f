package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	up := pingerFunc(func(context.Context) error { return nil })

	tests := []struct {
		name     string
		pingErr  error
		cache    Pinger
		wantCode int
		wantBody string
	}{
		{
			name:     "database up, cache disabled",
			wantCode: http.StatusOK,
			wantBody: `{"status":"OK","data":{"database":"ok","cache":"disabled"}}`,
		},
		{
			name:     "database and cache up",
			cache:    up,
			wantCode: http.StatusOK,
			wantBody: `{"status":"OK","data":{"database":"ok","cache":"ok"}}`,
		},
		{
			name:     "cache down is degraded, not failed",
			cache:    pingerFunc(func(context.Context) error { return errors.New("cache.Ping: connection refused") }),
			wantCode: http.StatusOK,
			wantBody: `{"status":"OK","data":{"database":"ok","cache":"unavailable"}}`,
		},
		{
			name:     "database down",
			pingErr:  errors.New("dial tcp: connection refused"),
			cache:    up,
			wantCode: http.StatusServiceUnavailable,
			wantBody: `{"status":"Error","error":"database unavailable"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hadDeadline bool
			db := pingerFunc(func(ctx context.Context) error {
				_, hadDeadline = ctx.Deadline()
				return tt.pingErr
			})
			h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), db, tt.cache)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.True(t, hadDeadline)
		})
	}
}
