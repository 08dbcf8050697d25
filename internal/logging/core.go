package logging

import (
	"fmt"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

// newCore tees the enabled outputs: the runner log, workflow annotations
// and the OTEL log bridge.
func newCore(cfg *Config, otelProvider log.LoggerProvider) (zapcore.Core, error) {
	var cores []zapcore.Core

	redacting, err := NewRedactingEncoder(newEncoder(cfg.Format), cfg.Redaction)
	if err != nil {
		return nil, fmt.Errorf("failed to create redacting encoder: %w", err)
	}

	var out zapcore.WriteSyncer = zapcore.AddSync(os.Stdout)
	if cfg.Output.Writer != nil {
		out = zapcore.AddSync(cfg.Output.Writer)
	}

	if cfg.Output.Stdout {
		cores = append(cores, zapcore.NewCore(redacting, out, cfg.Level))
	}

	// Annotations share the runner log so they appear in step order.
	if cfg.Output.Annotations {
		cores = append(cores, newAnnotationCore(out, redacting))
	}

	if cfg.Output.OTEL && otelProvider != nil {
		cores = append(cores, otelzap.NewCore("pluginbuild",
			otelzap.WithLoggerProvider(otelProvider),
		))
	}

	switch len(cores) {
	case 0:
		return nil, fmt.Errorf("at least one output must be enabled and available")
	case 1:
		return cores[0], nil
	}
	return zapcore.NewTee(cores...), nil
}
