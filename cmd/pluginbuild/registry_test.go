package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	exitCode = 0
	configPath = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestRegistryCommands(t *testing.T) {
	var lastPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastPath = r.URL.Path
		switch r.URL.Path {
		case "/Plogon/GetMessageIds":
			_, _ = w.Write([]byte(`["111","222"]`))
		case "/Plogon/GetVersionChangelog":
			if r.URL.Query().Get("version") == "9.9" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte("42"))
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	t.Setenv("PLUGINBUILD_REGISTRY_BASE_URL", server.URL)
	t.Setenv("XLWEB_KEY", "test-key")

	out, err := executeRoot(t, "registry", "message-ids", "7")
	require.NoError(t, err)
	assert.Equal(t, "111\n222\n", out)

	out, err = executeRoot(t, "registry", "pr-number", "Sample", "1.0")
	require.NoError(t, err)
	assert.Equal(t, "42\n", out)
	assert.Equal(t, 0, exitCode)

	out, err = executeRoot(t, "registry", "pr-number", "Sample", "9.9")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 1, exitCode)

	_, err = executeRoot(t, "registry", "register-message", "7", "1234567890")
	require.NoError(t, err)
	assert.Equal(t, "/Plogon/RegisterMessageId", lastPath)

	_, err = executeRoot(t, "registry", "register-pr", "Sample", "1.0", "7")
	require.NoError(t, err)
	assert.Equal(t, "/Plogon/RegisterVersionPrNumber", lastPath)
}

func TestRegistryCommands_KeyRequired(t *testing.T) {
	t.Setenv("XLWEB_KEY", "")

	_, err := executeRoot(t, "registry", "register-pr", "Sample", "1.0", "7")
	require.Error(t, err)
	assert.ErrorIs(t, err, errKeyRequired)
}

func TestParsePR(t *testing.T) {
	pr, err := parsePR("12")
	require.NoError(t, err)
	assert.Equal(t, 12, pr)

	for _, bad := range []string{"", "x", "0", "-3"} {
		_, err := parsePR(bad)
		assert.Error(t, err, bad)
	}
}
