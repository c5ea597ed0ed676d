package manager

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"task-tracker/internal/auth"
	"task-tracker/internal/avatar"
	"task-tracker/internal/logger"
	"task-tracker/internal/models"
	"task-tracker/internal/storage"
)

var ErrInvalidCredentials = errors.New("incorrect username or password")

type UserManager struct {
	users   storage.UserStore
	hasher  *auth.PasswordHasher
	tokens  *auth.TokenIssuer
	avatars avatar.Store

	// хэш-заглушка: при неизвестном логине bcrypt всё равно выполняется
	dummyOnce sync.Once
	dummyHash string
}

func NewUserManager(users storage.UserStore, hasher *auth.PasswordHasher, tokens *auth.TokenIssuer, avatars avatar.Store) *UserManager {
	return &UserManager{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		avatars: avatars,
	}
}

// Register создаёт пользователя. Занятый username даёт storage.ErrConflict.
func (um *UserManager) Register(ctx context.Context, creds models.Credentials) (user *models.User, err error) {
	defer func() { registrationCount.WithLabelValues(status(err)).Inc() }()

	creds.Username = strings.TrimSpace(creds.Username)
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	if _, err := um.users.GetUserByUsername(ctx, creds.Username); err == nil {
		return nil, storage.ErrConflict
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, errors.Wrap(err, "check username")
	}

	hash, err := um.hasher.Hash(creds.Password)
	if err != nil {
		return nil, err
	}

	// гонку двух регистраций ловит UNIQUE в хранилище
	user, err = um.users.CreateUser(ctx, creds.Username, hash)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Пользователь зарегистрирован", "userID", user.ID, "username", user.Username)
	return user, nil
}

// Login проверяет пароль и выпускает токен доступа.
func (um *UserManager) Login(ctx context.Context, username, password string) (token string, err error) {
	defer func() { loginCount.WithLabelValues(status(err)).Inc() }()

	user, err := um.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		um.hasher.Verify(password, um.dummy())
		return "", ErrInvalidCredentials
	case err != nil:
		return "", errors.Wrap(err, "load user")
	}

	if !um.hasher.Verify(password, user.PasswordHash) {
		logger.Debug(ctx, "Неверный пароль", "username", user.Username)
		return "", ErrInvalidCredentials
	}

	token, err = um.tokens.Issue(user.Username)
	if err != nil {
		return "", err
	}
	logger.Info(ctx, "Пользователь вошёл", "userID", user.ID)
	return token, nil
}

// GetUserByUsername нужен Authenticator'у для разрешения subject токена.
func (um *UserManager) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return um.users.GetUserByUsername(ctx, username)
}

// SetAvatar сохраняет файл и записывает его URL пользователю.
// Файл не откатывается, если запись в БД не удалась.
func (um *UserManager) SetAvatar(ctx context.Context, user *models.User, filename, contentType string, r io.Reader) (string, error) {
	key, err := avatar.Key(user.ID, filename)
	if err != nil {
		return "", models.NewValidationError("file", "invalid file name")
	}

	counter := &countingReader{r: r}
	url, err := um.avatars.Save(ctx, key, contentType, counter)
	if err != nil {
		return "", err
	}
	avatarUploadBytes.Observe(float64(counter.n))

	updated, err := um.users.UpdateAvatar(ctx, user.ID, url)
	if err != nil {
		logger.Warn(ctx, "Файл аватара сохранён, но запись в БД не удалась", "userID", user.ID, "key", key)
		return "", errors.Wrap(err, "update avatar")
	}

	logger.Info(ctx, "Аватар обновлён", "userID", user.ID, "url", url)
	return *updated.Avatar, nil
}

func (um *UserManager) dummy() string {
	um.dummyOnce.Do(func() {
		um.dummyHash, _ = um.hasher.Hash("dummy-password")
	})
	return um.dummyHash
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
