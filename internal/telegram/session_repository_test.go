package telegram

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"guarded-meal-planner/internal/database"
	"guarded-meal-planner/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository(t *testing.T) {
	db, err := database.NewDB(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	now := fixedNow
	repo := NewSessionRepository(db.SQL)
	repo.now = func() time.Time { return now }

	id, err := repo.Create(ctx, "43", SessionSwap, StateAwaitingChoice, SessionContextData{
		PlanID:       "p1",
		DayOfWeek:    2,
		MealType:     "lunch",
		Alternatives: []schema.Meal{{Title: "Soup", Ingredients: []string{"leeks"}}},
	}, time.Hour)
	require.NoError(t, err)

	got, err := repo.Get(ctx, id, "43")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, SessionSwap, got.SessionType)
	assert.Equal(t, now.Add(time.Hour), got.ExpiresAt)

	data, err := got.GetContextData()
	require.NoError(t, err)
	assert.Equal(t, "p1", data.PlanID)
	require.Len(t, data.Alternatives, 1)
	assert.Equal(t, "Soup", data.Alternatives[0].Title)

	other, err := repo.Get(ctx, id, "99")
	require.NoError(t, err)
	assert.Nil(t, other, "sessions belong to their user")

	active, err := repo.GetActive(ctx, "43")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, id, active.ID)

	now = now.Add(2 * time.Hour)
	expired, err := repo.Get(ctx, id, "43")
	require.NoError(t, err)
	assert.Nil(t, expired)

	removed, err := repo.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
