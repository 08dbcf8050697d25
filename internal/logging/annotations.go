package logging

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap/zapcore"
)

// annotationCore turns warnings and errors into GitHub Actions workflow
// commands so they show up on the run page and the pull request:
//
//	::warning title=notify::failed to push metrics%0Aerror=gateway down
//
// Entries below Warn are ignored.
type annotationCore struct {
	zapcore.LevelEnabler
	w      io.Writer
	redact *RedactingEncoder
	fields []zapcore.Field
}

// newAnnotationCore writes annotations to w, applying the same field
// redaction as the log encoder.
func newAnnotationCore(w io.Writer, redact *RedactingEncoder) zapcore.Core {
	return &annotationCore{LevelEnabler: zapcore.WarnLevel, w: w, redact: redact}
}

func (c *annotationCore) With(fields []zapcore.Field) zapcore.Core {
	return &annotationCore{
		LevelEnabler: c.LevelEnabler,
		w:            c.w,
		redact:       c.redact,
		fields:       append(append([]zapcore.Field{}, c.fields...), c.redact.redact(fields)...),
	}
}

func (c *annotationCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *annotationCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	command := "warning"
	if ent.Level >= zapcore.ErrorLevel {
		command = "error"
	}

	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range c.redact.redact(fields) {
		f.AddTo(enc)
	}

	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		if k == "service" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var msg strings.Builder
	msg.WriteString(ent.Message)
	for _, k := range keys {
		fmt.Fprintf(&msg, "\n%s=%v", k, enc.Fields[k])
	}

	var props string
	if ent.LoggerName != "" {
		props = " title=" + escapeProperty(ent.LoggerName)
	}

	_, err := fmt.Fprintf(c.w, "::%s%s::%s\n", command, props, escapeData(msg.String()))
	return err
}

func (c *annotationCore) Sync() error {
	return nil
}

var dataEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")

var propertyEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C")

func escapeData(s string) string {
	return dataEscaper.Replace(s)
}

func escapeProperty(s string) string {
	return propertyEscaper.Replace(s)
}
