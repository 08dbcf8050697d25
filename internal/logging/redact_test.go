package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/fyrsmithlabs/pluginbuild/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBufferedLogger(t *testing.T) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg := NewDefaultConfig()
	cfg.Format = "json"
	cfg.Output.Writer = &buf
	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)
	return logger, &buf
}

func TestRedaction_SensitiveKeys(t *testing.T) {
	logger, buf := newBufferedLogger(t)

	logger.Info(context.Background(), "calling api",
		zap.String("github_token", "ghp_abcdef123456"),
		zap.String("Authorization", "whatever"),
		zap.String("repo", "goatcorp/DalamudPluginsD17"),
	)

	out := buf.String()
	assert.NotContains(t, out, "ghp_abcdef123456")
	assert.NotContains(t, out, "whatever")
	assert.Contains(t, out, "goatcorp/DalamudPluginsD17")
	assert.Contains(t, out, "[REDACTED]")
}

func TestRedaction_ValuePatterns(t *testing.T) {
	logger, buf := newBufferedLogger(t)

	logger.Info(context.Background(), "request",
		zap.String("header", "Bearer sk-live-123"),
		zap.String("url", "https://kamori.goats.dev/Plogon/RegisterMessageId?key=hunter2"),
	)

	out := buf.String()
	assert.NotContains(t, out, "sk-live-123")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "[REDACTED:pattern]")
}

func TestRedaction_WithFields(t *testing.T) {
	logger, buf := newBufferedLogger(t)

	logger.With(zap.String("registry_key", "s3cr3t")).Info(context.Background(), "registering")

	assert.NotContains(t, buf.String(), "s3cr3t")
}

func TestRedaction_Disabled(t *testing.T) {
	var buf bytes.Buffer
	cfg := NewDefaultConfig()
	cfg.Format = "json"
	cfg.Output.Writer = &buf
	cfg.Redaction.Enabled = false
	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)

	logger.Info(context.Background(), "plain", zap.String("token", "visible"))
	assert.Contains(t, buf.String(), "visible")
}

func TestSecretField(t *testing.T) {
	unset := Secret("gh", config.Secret(""))
	assert.Equal(t, "[UNSET]", unset.String)

	set := Secret("gh", config.Secret("abcd"))
	assert.Equal(t, "[REDACTED:4]", set.String)
}

func TestNewRedactingEncoder_BadPattern(t *testing.T) {
	_, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{
		Enabled:  true,
		Patterns: []string{"[unterminated"},
	})
	require.Error(t, err)
}
