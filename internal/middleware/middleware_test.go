package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"central-illustration/internal/logger"
	"central-illustration/internal/models"
	"central-illustration/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubAuth map[string]*models.User

func (s stubAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	if token == "inactive" {
		return nil, service.ErrInactiveUser
	}
	u, ok := s[token]
	if !ok {
		return nil, service.ErrInvalidToken
	}
	return u, nil
}

var (
	admin   = &models.User{ID: uuid.New(), Username: "admin", Role: models.RoleAdmin, IsActive: true}
	visitor = &models.User{ID: uuid.New(), Username: "vis", Role: models.RoleUser, IsActive: true}
	tokens  = stubAuth{"admin-token": admin, "user-token": visitor}
)

func whoami(w http.ResponseWriter, r *http.Request) {
	if u, ok := UserFrom(r.Context()); ok {
		w.Write([]byte(u.Username))
		return
	}
	w.Write([]byte("anonymous"))
}

func call(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Detail
}

func TestRequireUser(t *testing.T) {
	a := NewAuth(tokens, nil)
	h := a.RequireUser(http.HandlerFunc(whoami))

	rec := call(h, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Could not validate credentials", detail(t, rec))
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	rec = call(h, "forged")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(h, "inactive")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(h, "user-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "vis", rec.Body.String())
}

func TestRequireAdmin(t *testing.T) {
	h := NewAuth(tokens, nil).RequireAdmin(http.HandlerFunc(whoami))

	rec := call(h, "user-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not enough permissions", detail(t, rec))

	rec = call(h, "admin-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, call(h, "").Code)
}

func TestOptionalAuthAndQueryToken(t *testing.T) {
	h := NewAuth(tokens, nil).Optional(http.HandlerFunc(whoami))

	assert.Equal(t, "anonymous", call(h, "").Body.String())
	assert.Equal(t, "anonymous", call(h, "forged").Body.String())
	assert.Equal(t, "admin", call(h, "admin-token").Body.String())

	req := httptest.NewRequest(http.MethodGet, "/?token=user-token", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "vis", rec.Body.String())
}

func TestRateLimitPerUser(t *testing.T) {
	limiter := PerMinute(2)
	h := NewAuth(tokens, nil).Optional(RateLimit(limiter)(http.HandlerFunc(whoami)))

	assert.Equal(t, http.StatusOK, call(h, "user-token").Code)
	assert.Equal(t, http.StatusOK, call(h, "user-token").Code)
	rec := call(h, "user-token")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests", detail(t, rec))

	assert.Equal(t, http.StatusOK, call(h, "admin-token").Code)
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	h := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	call(h, "")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.EqualValues(t, http.StatusNotFound, entries[0].ContextMap()["status"])
}
