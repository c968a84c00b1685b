package requestid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wealthcrm/pkg/requestid"
)

func serve(t *testing.T, inbound string) (string, *httptest.ResponseRecorder) {
	t.Helper()

	var seen string
	h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestid.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	if inbound != "" {
		req.Header.Set(requestid.Header, inbound)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return seen, rec
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("mints an id when none is sent", func(t *testing.T) {
		t.Parallel()
		seen, rec := serve(t, "")
		require.NotEmpty(t, seen)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
		assert.Equal(t, seen, rec.Header().Get(requestid.Header))
	})

	t.Run("keeps a well-formed gateway id", func(t *testing.T) {
		t.Parallel()
		seen, rec := serve(t, "crm-gw_01H8Z")
		assert.Equal(t, "crm-gw_01H8Z", seen)
		assert.Equal(t, "crm-gw_01H8Z", rec.Header().Get(requestid.Header))
	})

	for name, inbound := range map[string]string{
		"header injection": "abc\r\nSet-Cookie: x=1",
		"spaces":           "two words",
		"too long":         strings.Repeat("a", 129),
	} {
		t.Run("replaces "+name, func(t *testing.T) {
			t.Parallel()
			seen, _ := serve(t, inbound)
			assert.NotEqual(t, inbound, seen)
			assert.True(t, requestid.Valid(seen))
		})
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	assert.True(t, requestid.Valid("a"))
	assert.True(t, requestid.Valid(strings.Repeat("z", 128)))
	assert.False(t, requestid.Valid(""))
	assert.False(t, requestid.Valid("a.b"))
}

func TestContext(t *testing.T) {
	t.Parallel()

	assert.Empty(t, requestid.FromContext(context.Background()))
	//nolint:staticcheck // nil context is tolerated
	assert.Empty(t, requestid.FromContext(nil))

	ctx := requestid.WithContext(context.Background(), "req-1")
	assert.Equal(t, "req-1", requestid.FromContext(ctx))
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := requestid.LoggerExtractor()

	_, ok := extract(context.Background())
	assert.False(t, ok)

	attr, ok := extract(requestid.WithContext(context.Background(), "req-7"))
	require.True(t, ok)
	assert.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "req-7", attr.Value.String())
}
