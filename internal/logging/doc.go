// Package logging provides structured logging for pluginbuild.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Console output for CI logs, JSON for log shipping, optional OpenTelemetry bridge
//   - Automatic context field injection (trace_id, run.id, task.name)
//   - Secret redaction at the encoder
//   - GitHub Actions annotations for warnings and errors in CI
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithRunID(ctx, "7123456789")
//	ctx = logging.WithTask(ctx, "SamplePlugin", "stable")
//	logger.Info(ctx, "built", zap.String("version", "1.2.0"))
//
// # Secret Redaction
//
// Tokens are redacted at two layers: the config.Secret type, and the encoder
// which replaces values of sensitive field names (token, authorization, key)
// and values matching bearer/api-key patterns.
//
// # Annotations
//
// With Output.Annotations set, Warn and Error entries are also written as
// workflow commands (::warning title=<logger>::msg) so they surface on the
// run page. Fields are appended as key=value lines after the same redaction.
//
// # Testing
//
// Use TestLogger for assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
package logging
