package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/devroad-io/devroad-api/pkg/logging"
)

func validMockService(userID uuid.UUID) AuthService {
	return NewAuthService(&mockJWKSClient{
		claims: &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String()}},
	}, zap.NewNop())
}

func TestRequireAuth_NoToken(t *testing.T) {
	mw := NewMiddleware(NewAuthService(&mockJWKSClient{}, zap.NewNop()), zap.NewNop())

	called := false
	handler := mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	r := httptest.NewRequest("PATCH", "/api/topics/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	handler(rec, r)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "unauthorized", body["error"])
}

func TestRequireAuth_RejectionLogRedactsToken(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	svc := NewAuthService(&mockJWKSClient{err: jwt.ErrTokenSignatureInvalid}, zap.NewNop())
	mw := NewMiddleware(svc, zap.New(core))

	handler := mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})

	r := httptest.NewRequest("PATCH", "/api/topics/"+uuid.New().String(), nil)
	r.Header.Set("Authorization", "Bearer stolen.jwt.token")
	rec := httptest.NewRecorder()
	handler(rec, r)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.Equal(t, 1, logs.Len())
	logged, _ := logs.All()[0].ContextMap()["authorization"].(string)
	assert.NotContains(t, logged, "stolen.jwt.token")
	assert.Contains(t, logged, logging.RedactedText)
}

func TestRequireAuth_NonUUIDSubject(t *testing.T) {
	svc := NewAuthService(&mockJWKSClient{
		claims: &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "not-a-uuid"}},
	}, zap.NewNop())
	mw := NewMiddleware(svc, zap.NewNop())

	handler := mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})

	r := httptest.NewRequest("GET", "/api/topics", nil)
	r.Header.Set("Authorization", "Bearer some.jwt.token")
	rec := httptest.NewRecorder()
	handler(rec, r)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_SetsClaimsInContext(t *testing.T) {
	userID := uuid.New()
	mw := NewMiddleware(validMockService(userID), zap.NewNop())

	handler := mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		got, err := RequireUserUUIDFromContext(r.Context())
		require.NoError(t, err)
		assert.Equal(t, userID, got)

		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest("GET", "/api/topics", nil)
	r.Header.Set("Authorization", "Bearer some.jwt.token")
	rec := httptest.NewRecorder()
	handler(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
}
