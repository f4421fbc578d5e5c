package logger

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })
	return logs
}

func TestInfoWritesStructuredFields(t *testing.T) {
	logs := observe(t)

	Info("rendered", Fields{"notes": 3, "title": "Lullaby"})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "rendered", entry.Message)
	ctx := entry.ContextMap()
	assert.EqualValues(t, 3, ctx["notes"])
	assert.Equal(t, "Lullaby", ctx["title"])
}

func TestErrorIncludesError(t *testing.T) {
	logs := observe(t)

	Error("render failed", errors.New("boom"), Fields{"request_id": "abc"})

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "boom", ctx["error"])
	assert.Equal(t, "abc", ctx["request_id"])
}

func TestWithContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/api/v1/melodies/midi", nil)
	c.Set("request_id", "req-1")
	c.Set("user_id", "user-9")

	fields := WithContext(c)

	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, "/api/v1/melodies/midi", fields["path"])
	assert.Equal(t, "user-9", fields["user_id"])
}

func TestInitFallsBackToInfo(t *testing.T) {
	require.NoError(t, Init("nonsense", false))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	assert.False(t, current().Core().Enabled(zap.DebugLevel))
	assert.True(t, current().Core().Enabled(zap.InfoLevel))
}
