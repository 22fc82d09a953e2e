package app

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"guarded-meal-planner/internal/config"
	"guarded-meal-planner/internal/database"
	"guarded-meal-planner/internal/guard"
	"guarded-meal-planner/internal/llm/llmtest"
	"guarded-meal-planner/internal/planner"
	"guarded-meal-planner/internal/profile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, gen *llmtest.Scripted) *App {
	t.Helper()
	cfg := config.Default()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "app.db")
	cfg.Generation.BaseDelay = 0

	db, err := database.NewDB(cfg.DatabasePath)
	require.NoError(t, err)

	a := newApp(context.Background(), cfg, db, gen)
	t.Cleanup(func() { a.Close() })
	return a
}

func weekPlan() string {
	return llmtest.WeeklyPlan(map[string]llmtest.Day{
		"Wednesday": {
			"lunch": llmtest.Meal("Chickpea Salad", 480, "chickpeas", "cucumber"),
		},
	})
}

var monday = time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)

func TestGenerateMealPlan(t *testing.T) {
	a := newTestApp(t, llmtest.New(llmtest.Text("Here you go: {meals: oops}"), llmtest.Text(weekPlan())))
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, a.GenerateMealPlan(ctx, &out, "cli", monday, ""))

	assert.Contains(t, out.String(), "=== MEAL PLAN Nov 3 - Nov 9, 2025 (2025-11-03) ===")
	assert.Contains(t, out.String(), "Chickpea Salad (480 kcal, 20g protein, 10 min)")
	assert.Contains(t, out.String(), "- chickpeas\n- cucumber\n")

	out.Reset()
	require.NoError(t, a.ReportMetrics(ctx, &out, 7))
	assert.Contains(t, out.String(), "attempts=2 runs=1")
	assert.Contains(t, out.String(), "success")
	assert.Contains(t, out.String(), "parse")

	out.Reset()
	require.NoError(t, a.ShowMealPlans(ctx, &out, "cli"))
	assert.Contains(t, out.String(), "Wednesday  lunch")

	out.Reset()
	require.NoError(t, a.ShowMealPlans(ctx, &out, "nobody"))
	assert.Contains(t, out.String(), "No meal plans for nobody.")
}

func TestShowAlternatives(t *testing.T) {
	alternatives := llmtest.JSON([]any{llmtest.Meal("Falafel Wrap", 550, "falafel", "pita")})
	a := newTestApp(t, llmtest.New(llmtest.Text(weekPlan()), llmtest.Text(alternatives)))
	ctx := context.Background()

	_, err := a.Planner().GenerateWeeklyPlan(ctx, "cli", monday, planner.Request{})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, a.ShowAlternatives(ctx, &out, "cli", monday, 3, planner.Lunch))
	assert.Contains(t, out.String(), "Alternatives for Wednesday lunch (currently Chickpea Salad):")
	assert.Contains(t, out.String(), "1. Falafel Wrap (550 kcal)")

	err = a.ShowAlternatives(ctx, &out, "cli", monday, 3, planner.Dinner)
	assert.ErrorIs(t, err, planner.ErrMealNotFound)
}

func TestGenerateMealPlan_Exhausted(t *testing.T) {
	a := newTestApp(t, llmtest.New(llmtest.Fail(errors.New("upstream unavailable"))))

	var out bytes.Buffer
	err := a.GenerateMealPlan(context.Background(), &out, "cli", monday, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, guard.ErrExhausted)

	var exhausted *guard.ExhaustionError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, guard.KindGeneration, exhausted.LastKind)
	assert.Equal(t, a.Config().Generation.MaxAttempts, exhausted.Attempts)
}

func TestProfileAndCleanup(t *testing.T) {
	a := newTestApp(t, llmtest.New(llmtest.Text("{}")))
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, a.ShowProfile(ctx, &out, "cli"))
	assert.Contains(t, out.String(), "No profile for cli.")

	goal := 2200
	out.Reset()
	require.NoError(t, a.SaveProfile(ctx, &out, &profile.Profile{
		UserID: "cli", DietType: "vegan", Allergies: []string{"soy"}, CalorieGoal: &goal,
	}))
	assert.Contains(t, out.String(), "Profile saved.")
	assert.Contains(t, out.String(), "Calories:    2200")

	bad := 1
	err := a.SaveProfile(ctx, &out, &profile.Profile{UserID: "cli", CalorieGoal: &bad})
	assert.ErrorIs(t, err, profile.ErrInvalidProfile)

	out.Reset()
	require.NoError(t, a.CleanupMetrics(ctx, &out, 30))
	assert.Contains(t, out.String(), "Successfully removed 0 old metric records.")
}
