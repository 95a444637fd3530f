// Package middlewarectx содержит HTTP middleware для проверки JWT токенов и ролей.
//
// JWTMiddleware проверяет наличие и валидность JWT токена в заголовке Authorization
// и в случае успеха добавляет в контекст идентификатор пользователя и роль
// из подписанных claims для дальнейшего использования в обработчиках.
//
// RequireRole пропускает запрос только при точном совпадении роли.
// Роль берется исключительно из контекста, заголовок x-user-role игнорируется.
package middlewarectx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/http/response"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/jwt"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/models"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/services/auth"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserUID ключ для идентификатора пользователя в контексте
	UserUID Key = "user_uid"
	// Role ключ для роли пользователя в контексте
	Role Key = "role"
)

// TokenParser проверяет подпись и срок действия токена сессии.
type TokenParser interface {
	ParseToken(token string) (*jwt.CustomClaims, error)
}

// JWTMiddleware возвращает HTTP middleware, который проверяет JWT в заголовке Authorization.
//
// Если токен валиден, добавляет идентификатор пользователя и роль в контекст запроса,
// иначе возвращает ошибку с HTTP статусом 401 Unauthorized.
func JWTMiddleware(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				response.WriteError(w, r, log, "missing or invalid authorization header",
					fmt.Errorf("%s: %w", op, auth.ErrUnauthorized))
				return
			}
			tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

			claims, err := parser.ParseToken(tokenStr)
			if err != nil {
				response.WriteError(w, r, log, "invalid or expired token",
					fmt.Errorf("%s: %w: %w", op, auth.ErrUnauthorized, err))
				return
			}

			if !models.ValidRole(claims.Role) {
				response.WriteError(w, r, log, "token carries unknown role",
					fmt.Errorf("%s: role %q: %w", op, claims.Role, auth.ErrUnauthorized))
				return
			}

			ctx := WithIdentity(r.Context(), claims.UserID, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithIdentity кладет в контекст идентификатор и роль пользователя.
func WithIdentity(ctx context.Context, userUID, role string) context.Context {
	ctx = context.WithValue(ctx, UserUID, userUID)
	return context.WithValue(ctx, Role, role)
}

// UserUIDFrom достает идентификатор пользователя из контекста.
func UserUIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(UserUID).(string)
	return v, ok && v != ""
}

// RoleFrom достает роль пользователя из контекста.
func RoleFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(Role).(string)
	return v, ok && v != ""
}
