package middlewarectx

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/http/response"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/services/auth"
)

// UserRoleHeader заголовок, который клиенты иногда присылают сами.
// Ему не доверяем.
const UserRoleHeader = "x-user-role"

// RequireRole создает middleware, пропускающий только пользователей с ролью role.
// Должен стоять после JWTMiddleware: без личности в контексте отвечает 401,
// при несовпадении роли 403.
func RequireRole(role string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.RequireRole"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			if h := r.Header.Get(UserRoleHeader); h != "" {
				log.Debug("ignoring client supplied role header", slog.String("header_role", h))
			}

			userUID, ok := UserUIDFrom(r.Context())
			if !ok {
				response.WriteError(w, r, log, "user identification missing",
					fmt.Errorf("%s: %w", op, auth.ErrUnauthorized))
				return
			}

			actual, _ := RoleFrom(r.Context())
			if actual != role {
				response.WriteError(w, r, log.With(
					slog.String("user_uid", userUID),
					slog.String("role", actual),
					slog.String("required", role),
				), "role mismatch, access denied", fmt.Errorf("%s: %w", op, auth.ErrForbidden))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
