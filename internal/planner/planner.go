// Package planner generates, stores and edits weekly meal plans. Every
// model call goes through a guard.Guard, so the planner only ever sees
// schema-validated plans and meals.
package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"guarded-meal-planner/internal/database"
	"guarded-meal-planner/internal/guard"
	"guarded-meal-planner/internal/logger"
	"guarded-meal-planner/internal/profile"
	"guarded-meal-planner/internal/recipe"
	"guarded-meal-planner/internal/schema"
	"guarded-meal-planner/internal/shopping"
)

// Rate limiter actions.
const (
	ActionGeneratePlan         = "generate_meal_plan"
	ActionGenerateAlternatives = "generate_meal_alternatives"
)

// DefaultMaxAttempts bounds each guarded generation.
const DefaultMaxAttempts = 3

// RateLimiter is consulted before any generation quota is spent.
type RateLimiter interface {
	CheckLimit(subject, action string) error
}

// Request carries the optional free-text wishes of a plan request.
type Request struct {
	Notes string
}

// CurrentMeal describes the meal an alternatives request should replace.
type CurrentMeal struct {
	Title       string
	Type        MealType
	Ingredients []string
	Calories    float64
}

// Planner handles the generation of meal plans.
type Planner struct {
	uow      database.UnitOfWork
	plans    *PlanRepository
	profiles *profile.Repository
	shopping *shopping.Repository

	guard       *guard.Guard
	limiter     RateLimiter
	maxAttempts int
	now         func() time.Time
}

// Option configures a Planner.
type Option func(*Planner)

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(p *Planner) { p.maxAttempts = n }
}

// WithNow replaces the wall clock used for timestamps.
func WithNow(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

// NewPlanner creates a new Planner instance.
func NewPlanner(db *database.DB, g *guard.Guard, limiter RateLimiter, opts ...Option) *Planner {
	p := &Planner{
		uow:         db.UnitOfWork(),
		plans:       NewPlanRepository(db.SQL),
		profiles:    profile.NewRepository(db.SQL),
		shopping:    shopping.NewRepository(db.SQL),
		guard:       g,
		limiter:     limiter,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Profiles exposes the profile repository for transports that edit profiles.
func (p *Planner) Profiles() *profile.Repository { return p.profiles }

// GenerateWeeklyPlan generates the user's plan for the week containing
// weekStart, replaces any stored plan for that week and refreshes its
// shopping list.
func (p *Planner) GenerateWeeklyPlan(ctx context.Context, userID string, weekStart time.Time, req Request) (*WeekMealPlan, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if err := p.limiter.CheckLimit(userID, ActionGeneratePlan); err != nil {
		return nil, err
	}

	prefs, err := p.preferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	weekStart = WeekStart(weekStart)
	prompt, err := buildWeeklyPrompt(prefs, weekStart, req.Notes)
	if err != nil {
		return nil, err
	}

	res, err := guard.Run(ctx, p.guard, prompt, schema.WeeklyPlanSchema, p.maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate meal plan: %w", err)
	}

	plan := FromWeeklyPlan(res.Value, weekStart, p.now())
	plan.UserID = userID

	err = p.uow.WithinTx(ctx, func(ctx context.Context, tx database.DBTX) error {
		if err := p.plans.WithTx(tx).Replace(ctx, &plan); err != nil {
			return err
		}
		return p.saveShoppingList(ctx, tx, &plan)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save meal plan: %w", err)
	}

	logger.Info("Meal plan generated", logger.Fields{
		"user_id":    userID,
		"run_id":     res.RunID,
		"week_start": database.FormatDate(weekStart),
		"meals":      len(Slots(&plan)),
		"attempts":   res.Attempts,
		"tokens":     res.Meta.Usage.TotalTokens,
		"latency":    res.Meta.Latency.Round(time.Millisecond).String(),
	})
	return &plan, nil
}

// GetMealPlan returns the stored plan for the week containing weekStart.
func (p *Planner) GetMealPlan(ctx context.Context, userID string, weekStart time.Time) (*WeekMealPlan, error) {
	plan, err := p.plans.GetByWeek(ctx, userID, WeekStart(weekStart))
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}

// ListMealPlans returns all of the user's plans, newest week first.
func (p *Planner) ListMealPlans(ctx context.Context, userID string) ([]WeekMealPlan, error) {
	return p.plans.ListByUser(ctx, userID)
}

// CurrentMealFor describes the stored meal in a slot, ready for
// GenerateAlternatives.
func (p *Planner) CurrentMealFor(ctx context.Context, userID, planID string, dayOfWeek int, t MealType) (CurrentMeal, error) {
	plan, err := p.plans.GetByID(ctx, userID, planID)
	if err != nil {
		return CurrentMeal{}, err
	}
	if plan == nil {
		return CurrentMeal{}, ErrPlanNotFound
	}
	day := plan.Day(dayOfWeek)
	if day == nil {
		return CurrentMeal{}, fmt.Errorf("%w: day of week must be 1..7", ErrInvalidInput)
	}
	m := day.Slot(t)
	if m == nil {
		return CurrentMeal{}, ErrMealNotFound
	}
	return CurrentMeal{
		Title:       m.Recipe.Title,
		Type:        t,
		Ingredients: m.Recipe.Ingredients,
		Calories:    m.Recipe.Nutrition.Calories,
	}, nil
}

// GenerateAlternatives proposes replacements for current.
func (p *Planner) GenerateAlternatives(ctx context.Context, userID string, current CurrentMeal) ([]schema.Meal, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(current.Title) == "" {
		return nil, fmt.Errorf("%w: current meal title is required", ErrInvalidInput)
	}
	if _, err := ParseMealType(string(current.Type)); err != nil {
		return nil, err
	}
	if err := p.limiter.CheckLimit(userID, ActionGenerateAlternatives); err != nil {
		return nil, err
	}

	prefs, err := p.preferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	prompt, err := buildAlternativesPrompt(prefs, current)
	if err != nil {
		return nil, err
	}

	res, err := guard.Run(ctx, p.guard, prompt, schema.AlternativesArraySchema, p.maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate meal alternatives: %w", err)
	}
	return res.Value, nil
}

// SwapMeal replaces the recipe in one slot of the user's plan with meal.
// The new recipe and the slot update commit together; an empty slot
// yields ErrMealNotFound and leaves no recipe behind.
func (p *Planner) SwapMeal(ctx context.Context, userID, planID string, dayOfWeek int, t MealType, meal schema.Meal) (*recipe.Recipe, error) {
	if strings.TrimSpace(planID) == "" {
		return nil, fmt.Errorf("%w: meal plan id is required", ErrInvalidInput)
	}
	if dayOfWeek < 1 || dayOfWeek > 7 {
		return nil, fmt.Errorf("%w: day of week must be 1..7, got %d", ErrInvalidInput, dayOfWeek)
	}
	if _, err := ParseMealType(string(t)); err != nil {
		return nil, err
	}

	var swapped recipe.Recipe
	err := p.uow.WithinTx(ctx, func(ctx context.Context, tx database.DBTX) error {
		plans := p.plans.WithTx(tx)
		plan, err := plans.GetByID(ctx, userID, planID)
		if err != nil {
			return err
		}
		if plan == nil {
			return ErrPlanNotFound
		}

		now := p.now()
		swapped = recipe.FromMeal(userID, meal, now)
		if err := plans.Recipes().Create(ctx, &swapped); err != nil {
			return err
		}

		oldID, found, err := plans.UpdateMealRecipe(ctx, planID, dayOfWeek, t, swapped.ID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: plan %s day %d %s", ErrMealNotFound, planID, dayOfWeek, t)
		}
		if _, err := plans.Recipes().DeleteUnreferenced(ctx, []string{oldID}); err != nil {
			return err
		}
		if err := plans.Touch(ctx, planID, now); err != nil {
			return err
		}

		updated, err := plans.GetByID(ctx, userID, planID)
		if err != nil {
			return err
		}
		return p.saveShoppingList(ctx, tx, updated)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to swap meal: %w", err)
	}
	return &swapped, nil
}

// ShoppingList returns the stored list for the week containing weekStart.
func (p *Planner) ShoppingList(ctx context.Context, userID string, weekStart time.Time) (*shopping.ShoppingList, error) {
	list, err := p.shopping.GetByUserAndWeek(ctx, userID, WeekStart(weekStart))
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, ErrPlanNotFound
	}
	return list, nil
}

func (p *Planner) saveShoppingList(ctx context.Context, tx database.DBTX, plan *WeekMealPlan) error {
	_, err := p.shopping.WithTx(tx).Save(ctx, &shopping.ShoppingList{
		UserID:     plan.UserID,
		MealPlanID: plan.ID,
		Items:      shopping.Build(plan.Recipes()),
		CreatedAt:  p.now(),
	})
	return err
}

func (p *Planner) preferences(ctx context.Context, userID string) (profile.Preferences, error) {
	prof, err := p.profiles.Get(ctx, userID)
	if err != nil {
		return profile.Preferences{}, fmt.Errorf("failed to load preferences: %w", err)
	}
	return prof.Preferences(), nil
}
