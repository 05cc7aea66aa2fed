package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBufLogger() (*SlogLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	h := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogLogger(slog.New(h)), buf
}

func TestSlogLoggerLevels(t *testing.T) {
	ctx := context.Background()
	l, buf := newBufLogger()

	l.Debug(ctx, "d")
	l.Info(ctx, "i", "k", "v")
	l.Warn(ctx, "w")
	l.Error(ctx, "e")

	out := buf.String()
	assert.Contains(t, out, `"msg":"d"`)
	assert.Contains(t, out, `"msg":"i"`)
	assert.Contains(t, out, `"k":"v"`)
	assert.Contains(t, out, `"msg":"w"`)
	assert.Contains(t, out, `"msg":"e"`)
}

func TestSlogLoggerWith(t *testing.T) {
	ctx := context.Background()
	l, buf := newBufLogger()

	child := l.With("module", "test")
	child.Info(ctx, "hello")

	assert.Contains(t, buf.String(), `"module":"test"`)
}
