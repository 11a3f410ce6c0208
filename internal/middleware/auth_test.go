package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/saylink/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware-secret"

func sign(t *testing.T, key string, userID uint) string {
	t.Helper()
	claims := &models.JwtCustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

// serve runs mw in front of a handler that echoes the resolved user id
func serve(t *testing.T, mw echo.MiddlewareFunc, req *http.Request) (uint, error) {
	t.Helper()
	e := echo.New()
	c := e.NewContext(req, httptest.NewRecorder())
	var got uint
	err := mw(func(c echo.Context) error {
		got, _ = c.Get(UserIDKey).(uint)
		return nil
	})(c)
	return got, err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	return he.Code
}

func TestJWTAuthMiddleware(t *testing.T) {
	mw := JWTAuthMiddleware(secret)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+sign(t, secret, 7))
	id, err := serve(t, mw, req)
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)

	req = httptest.NewRequest(http.MethodGet, "/ws?token="+sign(t, secret, 8), nil)
	id, err = serve(t, mw, req)
	require.NoError(t, err)
	assert.Equal(t, uint(8), id)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"not bearer", "Basic abc"},
		{"wrong key", "Bearer " + sign(t, "other-secret", 7)},
		{"no user", "Bearer " + sign(t, secret, 0)},
		{"garbage", "Bearer not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			_, err := serve(t, mw, req)
			assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
		})
	}
}

type stubVerifier map[string]string

func (s stubVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	uid, ok := s[idToken]
	if !ok {
		return nil, errors.New("token rejected")
	}
	return &auth.Token{UID: uid}, nil
}

type stubAccounts map[string]uint

func (s stubAccounts) ResolveFirebaseUID(_ context.Context, uid string) (*models.User, error) {
	id, ok := s[uid]
	if !ok {
		return nil, errors.New("no account")
	}
	return &models.User{ID: id}, nil
}

func TestFirebaseAuthMiddleware(t *testing.T) {
	mw := FirebaseAuthMiddleware(
		stubVerifier{"good": "uid-1", "orphan": "uid-2"},
		stubAccounts{"uid-1": 11},
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer good")
	id, err := serve(t, mw, req)
	require.NoError(t, err)
	assert.Equal(t, uint(11), id)

	for _, tok := range []string{"bad", "orphan"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
		_, err := serve(t, mw, req)
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err), tok)
	}
}
