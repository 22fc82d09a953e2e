package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"guarded-meal-planner/internal/database"
	"guarded-meal-planner/internal/metrics"
	"guarded-meal-planner/internal/planner"
	"guarded-meal-planner/internal/profile"
)

// GenerateMealPlan creates the plan for the week containing weekStart and
// prints it with its shopping list.
func (a *App) GenerateMealPlan(ctx context.Context, w io.Writer, userID string, weekStart time.Time, notes string) error {
	fmt.Fprintf(w, "Generating meal plan for %s...\n", planner.FormatWeekRange(planner.WeekStart(weekStart)))

	plan, err := a.mealPlanner.GenerateWeeklyPlan(ctx, userID, weekStart, planner.Request{Notes: notes})
	if err != nil {
		return fmt.Errorf("failed to generate plan: %w", err)
	}
	printPlan(w, plan)

	list, err := a.mealPlanner.ShoppingList(ctx, userID, plan.WeekStart)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "\n=== SHOPPING LIST ===")
	for _, item := range list.Items {
		fmt.Fprintf(w, "- %s\n", item)
	}
	return nil
}

// ShowMealPlans lists the user's stored plans, newest week first.
func (a *App) ShowMealPlans(ctx context.Context, w io.Writer, userID string) error {
	plans, err := a.mealPlanner.ListMealPlans(ctx, userID)
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		fmt.Fprintf(w, "No meal plans for %s.\n", userID)
		return nil
	}
	for i := range plans {
		printPlan(w, &plans[i])
		fmt.Fprintln(w)
	}
	return nil
}

// ShowAlternatives prints replacement ideas for one stored slot.
func (a *App) ShowAlternatives(ctx context.Context, w io.Writer, userID string, weekStart time.Time, day int, t planner.MealType) error {
	plan, err := a.mealPlanner.GetMealPlan(ctx, userID, weekStart)
	if err != nil {
		return err
	}
	current, err := a.mealPlanner.CurrentMealFor(ctx, userID, plan.ID, day, t)
	if err != nil {
		return err
	}
	alternatives, err := a.mealPlanner.GenerateAlternatives(ctx, userID, current)
	if err != nil {
		return fmt.Errorf("failed to generate alternatives: %w", err)
	}

	fmt.Fprintf(w, "Alternatives for %s %s (currently %s):\n", planner.DayNames[day-1], t, current.Title)
	for i, alt := range alternatives {
		fmt.Fprintf(w, "%d. %s (%.0f kcal)\n", i+1, alt.Title, alt.Nutrition.Calories)
		if alt.Description != "" {
			fmt.Fprintf(w, "   %s\n", alt.Description)
		}
	}
	return nil
}

// ShowProfile prints the user's preferences.
func (a *App) ShowProfile(ctx context.Context, w io.Writer, userID string) error {
	p, err := a.mealPlanner.Profiles().Get(ctx, userID)
	if err != nil {
		return err
	}
	if p == nil {
		fmt.Fprintf(w, "No profile for %s.\n", userID)
		return nil
	}
	fmt.Fprintf(w, "User:        %s\n", p.UserID)
	fmt.Fprintf(w, "Diet:        %s\n", p.DietType)
	fmt.Fprintf(w, "Allergies:   %s\n", profile.JoinAllergies(p.Allergies))
	if p.CalorieGoal != nil {
		fmt.Fprintf(w, "Calories:    %d\n", *p.CalorieGoal)
	}
	return nil
}

// SaveProfile stores p and prints the result.
func (a *App) SaveProfile(ctx context.Context, w io.Writer, p *profile.Profile) error {
	if err := a.mealPlanner.Profiles().Save(ctx, p); err != nil {
		return err
	}
	fmt.Fprintln(w, "Profile saved.")
	return a.ShowProfile(ctx, w, p.UserID)
}

// ReportMetrics prints token usage, attempt outcomes and system health
// for the last days.
func (a *App) ReportMetrics(ctx context.Context, w io.Writer, days int) error {
	usage, err := a.metricsStore.GetDailyUsage(ctx, days)
	if err != nil {
		return err
	}
	outcomes, err := a.metricsStore.GetOutcomeCounts(ctx, days)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "=== USAGE (last %d days) ===\n", days)
	if len(usage) == 0 {
		fmt.Fprintln(w, "No data yet.")
	}
	for _, d := range usage {
		fmt.Fprintf(w, "%s  prompt=%d completion=%d attempts=%d runs=%d\n",
			d.Date, d.TotalPrompt, d.TotalCompletion, d.TotalExecution, d.Runs)
	}

	keys := make([]string, 0, len(outcomes))
	for k := range outcomes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(w, "\n=== OUTCOMES ===")
	for _, k := range keys {
		fmt.Fprintf(w, "%-12s %d\n", k, outcomes[k])
	}

	health := metrics.GetSysHealth(filepath.Dir(a.cfg.DatabasePath))
	fmt.Fprintln(w, "\n=== SYSTEM ===")
	fmt.Fprintf(w, "RAM: %dMB alloc / %dMB sys, goroutines: %d, data: %s\n",
		health.AllocMB, health.SysMB, health.Goroutines, health.DataDiskSize)
	return nil
}

// CleanupMetrics removes metric records older than days.
func (a *App) CleanupMetrics(ctx context.Context, w io.Writer, days int) error {
	affected, err := a.metricsStore.Cleanup(ctx, days)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	fmt.Fprintf(w, "Successfully removed %d old metric records.\n", affected)
	return nil
}

func printPlan(w io.Writer, plan *planner.WeekMealPlan) {
	fmt.Fprintf(w, "\n=== MEAL PLAN %s (%s) ===\n", planner.FormatWeekRange(plan.WeekStart), database.FormatDate(plan.WeekStart))
	for i := range plan.Days {
		day := &plan.Days[i]
		for _, t := range planner.MealTypes {
			if m := day.Slot(t); m != nil {
				fmt.Fprintf(w, "%-10s %-10s %s\n", day.Day, t, m.Recipe.Summary())
			}
		}
	}
}
