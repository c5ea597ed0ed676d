package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"task-tracker/internal/logger"
	"task-tracker/internal/models"
	"task-tracker/internal/storage"
)

// ErrUnauthenticated единственная ошибка, которую видит клиент:
// причина отказа (нет токена, подпись, срок, нет пользователя) не раскрывается.
var ErrUnauthenticated = errors.New("could not validate credentials")

// UserLookup ищет пользователя по username из токена.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

type ctxKeyUser struct{}

// Authenticator связывает проверку токена и поиск пользователя.
type Authenticator struct {
	tokens *TokenIssuer
	users  UserLookup
}

func NewAuthenticator(tokens *TokenIssuer, users UserLookup) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Resolve проверяет токен и возвращает владельца. Ошибка хранилища
// возвращается как есть, а не как ErrUnauthenticated.
func (a *Authenticator) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	subject, err := a.tokens.Verify(token)
	if err != nil {
		logger.Debug(ctx, "Токен отклонён", "reason", err.Error())
		return nil, ErrUnauthenticated
	}
	user, err := a.users.GetUserByUsername(ctx, subject)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && user == nil) {
		logger.Debug(ctx, "Пользователь из токена не найден", "username", subject)
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, errors.Wrap(err, "load token subject")
	}
	return user, nil
}

// Middleware пропускает запрос дальше только с валидным Bearer-токеном
// и кладёт пользователя в контекст. onError отвечает клиенту при отказе.
func (a *Authenticator) Middleware(onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := a.Resolve(r.Context(), BearerToken(r))
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// BearerToken достаёт токен из заголовка Authorization.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser{}, user)
}

func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(ctxKeyUser{}).(*models.User)
	return user, ok && user != nil
}
