package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fyrsmithlabs/pluginbuild/internal/config"
	"github.com/fyrsmithlabs/pluginbuild/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Options{
		BaseURL:           server.URL + "/",
		Key:               config.Secret("xlweb-key"),
		RequestsPerSecond: 1000,
		Timeout:           5 * time.Second,
	}, nil)
}

func TestRegisterMessageID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/Plogon/RegisterMessageId", r.URL.Path)
		assert.Equal(t, "xlweb-key", r.URL.Query().Get("key"))
		assert.Equal(t, "42", r.URL.Query().Get("prNumber"))
		assert.Equal(t, "1234567890123456789", r.URL.Query().Get("messageId"))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.RegisterMessageID(context.Background(), 42, 1234567890123456789))
}

func TestGetMessageIDs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/Plogon/GetMessageIds", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("prNumber"))
		assert.Empty(t, r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`["111","222"]`))
	})

	ids, err := client.GetMessageIDs(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, []string{"111", "222"}, ids)
}

func TestGetMessageIDs_Null(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	})

	ids, err := client.GetMessageIDs(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NotNil(t, ids)
}

func TestGetMessageIDs_BadJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{`))
	})

	_, err := client.GetMessageIDs(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestRegisterPRNumber(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/Plogon/RegisterVersionPrNumber", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "xlweb-key", q.Get("key"))
		assert.Equal(t, "7", q.Get("prNumber"))
		assert.Equal(t, "Sample Plugin", q.Get("internalName"))
		assert.Equal(t, "1.0.0.0", q.Get("version"))
		_, _ = w.Write([]byte("ok"))
	})

	require.NoError(t, client.RegisterPRNumber(context.Background(), "Sample Plugin", "1.0.0.0", 7))
}

func TestGetPRNumber(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Plogon/GetVersionChangelog", r.URL.Path)
		assert.Equal(t, "Plugin", r.URL.Query().Get("internalName"))
		assert.Equal(t, "2.0", r.URL.Query().Get("version"))
		_, _ = w.Write([]byte("1234"))
	})

	pr, ok, err := client.GetPRNumber(context.Background(), "Plugin", "2.0")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1234", pr)
}

func TestGetPRNumber_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	pr, ok, err := client.GetPRNumber(context.Background(), "Plugin", "2.0")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, pr)
}

func TestStatusErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("database unavailable\n"))
	})
	ctx := context.Background()

	_, _, err := client.GetPRNumber(ctx, "Plugin", "2.0")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStatus)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "get pr number: unexpected status 500: database unavailable", se.Error())

	assert.ErrorIs(t, client.RegisterMessageID(ctx, 1, 2), ErrStatus)
	assert.ErrorIs(t, client.RegisterPRNumber(ctx, "a", "b", 3), ErrStatus)
	_, err = client.GetMessageIDs(ctx, 1)
	assert.ErrorIs(t, err, ErrStatus)
}

func TestTransportErrorHidesKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(Options{BaseURL: url, Key: config.Secret("super-secret-key")}, nil)
	err := client.RegisterMessageID(context.Background(), 1, 2)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "super-secret-key")
	assert.Contains(t, err.Error(), "register message id: request failed")
}

func TestRateLimiterHonoursContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	client.limiter.SetLimit(0.001)

	_, err := client.GetMessageIDs(context.Background(), 1)
	require.NoError(t, err, "first request uses the burst")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.GetMessageIDs(ctx, 1)
	require.Error(t, err)
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Options{}, nil)
	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.Equal(t, 30*time.Second, client.client.Timeout)
	assert.InDelta(t, 5.0, float64(client.limiter.Limit()), 0.0001)
}

func TestNewClient_LogsKeyRedacted(t *testing.T) {
	tl := logging.NewTestLogger()
	NewClient(Options{Key: config.Secret("super-secret-key")}, tl.Logger)

	tl.AssertField(t, "registry client configured", "key", "[REDACTED:16]")
	for _, entry := range tl.All() {
		assert.NotContains(t, fmt.Sprint(entry.ContextMap()), "super-secret-key")
	}
}
