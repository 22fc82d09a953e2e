package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"guarded-meal-planner/internal/database"
	"guarded-meal-planner/internal/guard"
	"guarded-meal-planner/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, now time.Time) *Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "metrics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewStore(db.SQL)
	s.now = func() time.Time { return now }
	return s
}

func TestStore_ObservesAttempts(t *testing.T) {
	now := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, now)
	ctx := context.Background()

	usage := shared.TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150, Model: "gemini-2.5-flash"}
	s.OnAttempt(ctx, guard.AttemptOutcome{RunID: "r1", Schema: "weekly_plan", Attempt: 1,
		Kind: guard.KindValidation, Err: errors.New("bad"), Usage: usage, Latency: 2 * time.Second})
	s.OnAttempt(ctx, guard.AttemptOutcome{RunID: "r1", Schema: "weekly_plan", Attempt: 2,
		Usage: usage, Latency: time.Second})
	s.OnFinish(ctx, guard.Summary{RunID: "r1"})

	daily, err := s.GetDailyUsage(ctx, 7)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, DailyUsage{Date: "2025-11-03", TotalPrompt: 200, TotalCompletion: 100, TotalExecution: 2, Runs: 1}, daily[0])

	counts, err := s.GetOutcomeCounts(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"validation": 1, OutcomeSuccess: 1}, counts)
}

func TestStore_OnAttemptIgnoresCanceledContext(t *testing.T) {
	s := newTestStore(t, time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.OnAttempt(ctx, guard.AttemptOutcome{RunID: "r1", Schema: "meal", Attempt: 1, Kind: guard.KindGeneration, Err: context.Canceled})

	counts, err := s.GetOutcomeCounts(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["generation"])
}

func TestStore_Cleanup(t *testing.T) {
	now := time.Date(2025, 11, 30, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, now)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, ExecutionMetric{RunID: "old", AgentName: "weekly_plan", Attempt: 1, Timestamp: now.AddDate(0, 0, -40)}))
	require.NoError(t, s.Record(ctx, ExecutionMetric{RunID: "new", AgentName: "weekly_plan", Attempt: 1, Timestamp: now.AddDate(0, 0, -1)}))
	require.NoError(t, s.Record(ctx, ExecutionMetric{RunID: "today", AgentName: "meal_alternatives", Attempt: 2}))

	n, err := s.Cleanup(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	daily, err := s.GetDailyUsage(ctx, 90)
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.Equal(t, "2025-11-30", daily[0].Date)
}

func TestGetSysHealth(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.db"), make([]byte, 2048), 0o644))

	h := GetSysHealth(dir)
	assert.Equal(t, "2.0 KB", h.DataDiskSize)
	assert.Positive(t, h.Goroutines)
	assert.Equal(t, "12 B", HumanBytes(12))
}
