package shopping

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"guarded-meal-planner/internal/database"
	"guarded-meal-planner/internal/recipe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	recipes := []recipe.Recipe{
		{Ingredients: []string{"Oats", "milk", " honey "}},
		{Ingredients: []string{"MILK", "spinach", ""}},
		{Ingredients: []string{"oats", "Salmon"}},
	}

	assert.Equal(t, []string{"Oats", "milk", "honey", "spinach", "Salmon"}, Build(recipes))
	assert.Equal(t, []string{}, Build(nil))
}

func TestRepository(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "shopping.db"))
	require.NoError(t, err)
	defer db.Close()

	now := database.FormatTime(time.Now())
	_, err = db.SQL.Exec(`INSERT INTO meal_plans (id, user_id, week_start, created_at, updated_at)
		VALUES ('p1', 'u1', '2025-11-03', ?, ?)`, now, now)
	require.NoError(t, err)

	repo := NewRepository(db.SQL)

	missing, err := repo.GetByMealPlanID(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	first := &ShoppingList{UserID: "u1", MealPlanID: "p1", Items: []string{"oats"}}
	id, err := repo.Save(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, id, first.ID)

	_, err = repo.Save(ctx, &ShoppingList{UserID: "u1", MealPlanID: "p1", Items: []string{"oats", "milk"}})
	require.NoError(t, err)

	got, err := repo.GetByUserAndWeek(ctx, "u1", time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"oats", "milk"}, got.Items)
	assert.Equal(t, "p1", got.MealPlanID)

	require.NoError(t, repo.DeleteByMealPlanID(ctx, "p1"))
	got, err = repo.GetByMealPlanID(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
