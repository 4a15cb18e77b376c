package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newAdmin(t *testing.T) (*Admin, *TokenMaker) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	require.NoError(t, err)
	tm := NewTokenMaker(testSecret)
	return NewAdmin(string(hash), tm), tm
}

func TestTokenMaker_RoundTrip(t *testing.T) {
	tm := NewTokenMaker(testSecret)
	tok, err := tm.New("admin", RoleAdmin, time.Minute)
	require.NoError(t, err)

	c, err := tm.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, c.Role)
	assert.Equal(t, "admin", c.Subject)
}

func TestTokenMaker_Rejects(t *testing.T) {
	tm := NewTokenMaker(testSecret)

	expired, err := tm.New("admin", RoleAdmin, -time.Minute)
	require.NoError(t, err)
	_, err = tm.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewTokenMaker(strings.Repeat("x", 32)).New("admin", RoleAdmin, time.Minute)
	require.NoError(t, err)
	_, err = tm.Parse(other)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAdmin_Login(t *testing.T) {
	admin, tm := newAdmin(t)

	tok, err := admin.Login("letmein")
	require.NoError(t, err)
	c, err := tm.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, c.Role)

	_, err = admin.Login("wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = NewAdmin("", tm).Login("letmein")
	assert.ErrorIs(t, err, ErrAdminDisabled)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")))
}

func TestTokenHandler(t *testing.T) {
	admin, _ := newAdmin(t)
	h := TokenHandler(admin, zap.NewNop())

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"password":"letmein"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp tokenResp
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.AccessToken)

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"password":"nope"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"user":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTokenHandler_PasswordIsNotTrimmed(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("  spaced out "), bcrypt.MinCost)
	require.NoError(t, err)
	h := TokenHandler(NewAdmin(string(hash), NewTokenMaker(testSecret)), zap.NewNop())

	for _, tc := range []struct {
		password string
		want     int
	}{
		{"  spaced out ", http.StatusOK},
		{"spaced out", http.StatusUnauthorized},
		{"", http.StatusBadRequest},
		{"   ", http.StatusUnauthorized},
	} {
		body, err := json.Marshal(map[string]string{"password": tc.password})
		require.NoError(t, err)
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(string(body))))
		assert.Equal(t, tc.want, rec.Code, "%q", tc.password)
	}
}

func TestRequireRole(t *testing.T) {
	tm := NewTokenMaker(testSecret)
	h := RequireRole(tm, RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := ClaimsFromContext(r.Context())
		assert.True(t, ok)
		assert.Equal(t, RoleAdmin, c.Role)
		w.WriteHeader(http.StatusNoContent)
	}))

	adminTok, err := tm.New("admin", RoleAdmin, time.Minute)
	require.NoError(t, err)
	userTok, err := tm.New("u1", "user", time.Minute)
	require.NoError(t, err)

	for _, tc := range []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Bearer garbage", http.StatusUnauthorized},
		{"Bearer " + userTok, http.StatusForbidden},
		{"Bearer " + adminTok, http.StatusNoContent},
	} {
		req := httptest.NewRequest(http.MethodPost, "/admin/dump", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code)
	}
}
