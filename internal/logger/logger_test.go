package logger

import (
	"bytes"
	"errors"
	"log"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	})
	return &buf
}

func TestFormatFields_SortedKeys(t *testing.T) {
	got := formatFields(Fields{"b": 2, "a": "x", "c": 1.5, "d": 250 * time.Millisecond})
	assert.Equal(t, "{a=x, b=2, c=1.50, d=250ms}", got)
	assert.Equal(t, "", formatFields(nil))
}

func TestLevels(t *testing.T) {
	buf := captureLog(t)

	Info("plan generated", Fields{"user_id": "u1"})
	Warn("attempt failed", Fields{"attempt": 2})
	Error("generation exhausted", errors.New("boom"), Fields{"schema": "weekly_plan"})

	out := buf.String()
	assert.Contains(t, out, "[INFO] plan generated {user_id=u1}")
	assert.Contains(t, out, "[WARN] attempt failed {attempt=2}")
	assert.Contains(t, out, "[ERROR] generation exhausted: boom {schema=weekly_plan}")
}

func TestWithContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/v1/meal-plans", nil)
	c.Set("request_id", "req-1")
	c.Set("user_id", "u1")

	fields := WithContext(c)
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "u1", fields["user_id"])
	assert.Equal(t, "/api/v1/meal-plans", fields["path"])
}

func TestMerge(t *testing.T) {
	base := Fields{"a": 1}
	merged := base.Merge(Fields{"b": 2, "a": 3})
	assert.Equal(t, Fields{"a": 3, "b": 2}, merged)
	assert.Equal(t, Fields{"a": 1}, base)
}
