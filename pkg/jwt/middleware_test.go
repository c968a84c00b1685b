package jwt_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wealthcrm/pkg/jwt"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	svc, err := jwt.NewFromString("test-secret")
	require.NoError(t, err)

	token, err := svc.Generate("user-1", "advisor")
	require.NoError(t, err)

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := jwt.GetClaims(r.Context())
		if !ok {
			http.Error(w, "no claims", http.StatusInternalServerError)
			return
		}
		raw, _ := jwt.GetToken(r.Context())
		assert.Equal(t, token, raw)
		_, _ = w.Write([]byte(claims.UserID()))
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		jwt.Middleware(svc)(echo).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", rec.Body.String())
	})

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		jwt.Middleware(svc)(echo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Token "+token)
		rec := httptest.NewRecorder()

		jwt.Middleware(svc)(echo).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("custom error handler and skip", func(t *testing.T) {
		mw := jwt.MiddlewareWithConfig(jwt.MiddlewareConfig{
			Service: svc,
			Skip:    func(r *http.Request) bool { return r.URL.Path == "/health" },
			ErrorHandler: func(w http.ResponseWriter, _ *http.Request, err error) {
				w.WriteHeader(http.StatusTeapot)
			},
		})

		rec := httptest.NewRecorder()
		mw(echo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private", nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)

		skipped := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
		rec = httptest.NewRecorder()
		mw(skipped).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestExtractors(t *testing.T) {
	t.Parallel()

	extract := jwt.FirstOf(jwt.QueryTokenExtractor("token"), jwt.BearerTokenExtractor)

	req := httptest.NewRequest(http.MethodGet, "/ws?token=abc", nil)
	req.Header.Set("Authorization", "Bearer xyz")
	token, err := extract(req)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	req = httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer xyz")
	token, err = extract(req)
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)

	_, err = extract(httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}
