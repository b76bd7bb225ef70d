package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
}

func TestToHlogLevel(t *testing.T) {
	assert.Equal(t, hlog.LevelDebug, toHlogLevel(zapcore.DebugLevel))
	assert.Equal(t, hlog.LevelWarn, toHlogLevel(zapcore.WarnLevel))
	assert.Equal(t, hlog.LevelFatal, toHlogLevel(zapcore.PanicLevel))
}

func TestSetupWritesJSONToFile(t *testing.T) {
	prev := Logger
	t.Cleanup(func() {
		Sync()
		Logger = prev
	})

	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, Setup(Options{Level: "info", Format: "json", Output: path, Service: "fieldforce"}))

	Named("attendance").Info("check-in recorded", zap.Int64("employee_id", 42))
	Logger.Debug("filtered out")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"check-in recorded"`)
	assert.Contains(t, out, `"component":"attendance"`)
	assert.Contains(t, out, `"service":"fieldforce"`)
	assert.NotContains(t, out, "filtered out")
}

func TestSetupRejectsUnwritablePath(t *testing.T) {
	err := Setup(Options{Output: filepath.Join(t.TempDir(), "missing", "app.log")})
	assert.Error(t, err)
}
