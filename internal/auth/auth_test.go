package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"task-tracker/internal/models"
	"task-tracker/internal/storage"
)

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	for _, pw := range []string{"pw1", "пароль", strings.Repeat("x", 72)} {
		digest, err := h.Hash(pw)
		if err != nil {
			t.Fatalf("Hash(%q): %v", pw, err)
		}
		if digest == pw {
			t.Fatal("Хэш совпадает с паролем")
		}
		if !h.Verify(pw, digest) {
			t.Errorf("Verify(%q) = false для собственного хэша", pw)
		}
		if h.Verify(pw+"!", digest) {
			t.Errorf("Verify принял неверный пароль для %q", pw)
		}
	}

	a, _ := h.Hash("same")
	b, _ := h.Hash("same")
	if a == b {
		t.Error("Два хэша одного пароля должны различаться (соль)")
	}

	for _, digest := range []string{"", "not-a-hash", "$2a$10$short"} {
		if h.Verify("pw", digest) {
			t.Errorf("Verify принял битый хэш %q", digest)
		}
	}
}

func TestNewPasswordHasherClampsCost(t *testing.T) {
	if h := NewPasswordHasher(100); h.cost != bcrypt.DefaultCost {
		t.Errorf("cost = %d, ожидалось %d", h.cost, bcrypt.DefaultCost)
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestTokenIssuerRoundTripAndExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	issuer := NewTokenIssuer([]byte("secret"), 30*time.Minute, WithClock(clock.Now))

	token, err := issuer.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clock.t = clock.t.Add(29 * time.Minute)
	subject, err := issuer.Verify(token)
	if err != nil || subject != "alice" {
		t.Fatalf("Verify до истечения = %q, %v", subject, err)
	}

	clock.t = clock.t.Add(2 * time.Minute)
	if _, err := issuer.Verify(token); !errors.Is(err, ErrExpired) {
		t.Errorf("Ожидалась ErrExpired, получено %v", err)
	}
}

func TestTokenIssuerRejectsTampering(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret"), time.Minute)
	token, err := issuer.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other := NewTokenIssuer([]byte("rotated"), time.Minute)
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("Чужой ключ: ожидалась ErrInvalidSignature, получено %v", err)
	}

	parts := strings.Split(token, ".")
	forged, _ := NewTokenIssuer([]byte("secret"), time.Minute).Issue("mallory")
	parts[1] = strings.Split(forged, ".")[1]
	if _, err := issuer.Verify(strings.Join(parts, ".")); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("Подмена payload: ожидалась ErrInvalidSignature, получено %v", err)
	}

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := issuer.Verify(none); err == nil {
		t.Error("alg=none не должен проходить проверку")
	}

	for _, bad := range []string{"", "abc", "a.b.c"} {
		if _, err := issuer.Verify(bad); !errors.Is(err, ErrMalformed) {
			t.Errorf("Verify(%q): ожидалась ErrMalformed, получено %v", bad, err)
		}
	}
}

func TestTokenIssuerRequiresSubject(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret"), time.Minute)
	token, _ := issuer.Issue("")
	if _, err := issuer.Verify(token); !errors.Is(err, ErrMalformed) {
		t.Errorf("Пустой subject: ожидалась ErrMalformed, получено %v", err)
	}
}

type usersByName map[string]*models.User

func (u usersByName) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	if user, ok := u[username]; ok {
		return user, nil
	}
	return nil, storage.ErrNotFound
}

type failingLookup struct{ err error }

func (f failingLookup) GetUserByUsername(context.Context, string) (*models.User, error) {
	return nil, f.err
}

func TestResolveKeepsStorageErrors(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret"), time.Minute)
	token, _ := issuer.Issue("alice")
	dbErr := errors.New("database is locked")

	_, err := NewAuthenticator(issuer, failingLookup{err: dbErr}).Resolve(context.Background(), token)
	if errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("Ошибка БД превратилась в ErrUnauthenticated: %v", err)
	}
	if !errors.Is(err, dbErr) {
		t.Errorf("Ожидалась исходная ошибка БД, получено %v", err)
	}

	_, err = NewAuthenticator(issuer, failingLookup{err: storage.ErrNotFound}).Resolve(context.Background(), token)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Неизвестный пользователь: ожидалась ErrUnauthenticated, получено %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret"), time.Minute)
	alice := &models.User{ID: 1, Username: "alice"}
	authn := NewAuthenticator(issuer, usersByName{"alice": alice})

	var seen *models.User
	protected := authn.Middleware(func(w http.ResponseWriter, _ *http.Request, err error) {
		if !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("Ожидалась ErrUnauthenticated, получено %v", err)
		}
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	good, _ := issuer.Issue("alice")
	ghost, _ := issuer.Issue("ghost")
	expired, _ := NewTokenIssuer([]byte("secret"), -time.Minute).Issue("alice")

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + good, http.StatusOK},
		{"lowercase scheme", "bearer " + good, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"basic scheme", "Basic " + good, http.StatusUnauthorized},
		{"garbage", "Bearer garbage", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"unknown user", "Bearer " + ghost, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("status = %d, ожидалось %d", rec.Code, tc.want)
			}
			if tc.want == http.StatusOK && seen != alice {
				t.Errorf("Пользователь не попал в контекст: %+v", seen)
			}
		})
	}
}
