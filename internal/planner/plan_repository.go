package planner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"guarded-meal-planner/internal/database"
	"guarded-meal-planner/internal/recipe"

	"github.com/google/uuid"
)

// PlanRepository is a database-backed repository for meal plans. Recipes
// are written through the recipe repository sharing the same handle.
type PlanRepository struct {
	db      database.DBTX
	recipes *recipe.Repository
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(db database.DBTX) *PlanRepository {
	return &PlanRepository{db: db, recipes: recipe.NewRepository(db)}
}

// WithTx returns a repository that runs its queries inside tx.
func (r *PlanRepository) WithTx(tx database.DBTX) *PlanRepository {
	return &PlanRepository{db: tx, recipes: r.recipes.WithTx(tx)}
}

// Replace stores plan as the user's plan for its week. An existing plan for
// the same week is deleted first, along with recipes no other meal uses.
// One recipe row is created per filled slot. Run it inside a transaction.
func (r *PlanRepository) Replace(ctx context.Context, plan *WeekMealPlan) error {
	week := database.FormatDate(plan.WeekStart)

	var oldID string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM meal_plans WHERE user_id = ? AND week_start = ?`,
		plan.UserID, week).Scan(&oldID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("failed to look up existing plan: %w", err)
	default:
		if err := r.delete(ctx, oldID); err != nil {
			return err
		}
	}

	plan.ID = uuid.NewString()
	_, err = r.db.ExecContext(ctx, `INSERT INTO meal_plans (id, user_id, week_start, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		plan.ID, plan.UserID, week, database.FormatTime(plan.CreatedAt), database.FormatTime(plan.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert meal plan: %w", err)
	}

	for i := range plan.Days {
		for _, t := range MealTypes {
			m := plan.Days[i].Slot(t)
			if m == nil {
				continue
			}
			m.Recipe.ID = ""
			m.Recipe.UserID = plan.UserID
			if err := r.recipes.Create(ctx, &m.Recipe); err != nil {
				return err
			}
			m.ID = uuid.NewString()
			m.MealPlanID = plan.ID
			_, err := r.db.ExecContext(ctx, `INSERT INTO meals (id, meal_plan_id, day_of_week, meal_type, recipe_id, created_at)
				VALUES (?, ?, ?, ?, ?, ?)`,
				m.ID, m.MealPlanID, m.DayOfWeek, string(m.Type), m.Recipe.ID, database.FormatTime(m.CreatedAt))
			if err != nil {
				return fmt.Errorf("failed to insert %s for day %d: %w", m.Type, m.DayOfWeek, err)
			}
		}
	}
	return nil
}

func (r *PlanRepository) delete(ctx context.Context, planID string) error {
	rows, err := r.db.QueryContext(ctx, `SELECT recipe_id FROM meals WHERE meal_plan_id = ?`, planID)
	if err != nil {
		return fmt.Errorf("failed to list recipes of plan %s: %w", planID, err)
	}
	var recipeIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan recipe id: %w", err)
		}
		recipeIDs = append(recipeIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM meal_plans WHERE id = ?`, planID); err != nil {
		return fmt.Errorf("failed to delete meal plan %s: %w", planID, err)
	}
	_, err = r.recipes.DeleteUnreferenced(ctx, recipeIDs)
	return err
}

// GetByWeek returns the user's plan for the week starting at weekStart, or
// nil, nil when there is none.
func (r *PlanRepository) GetByWeek(ctx context.Context, userID string, weekStart time.Time) (*WeekMealPlan, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, user_id, week_start, created_at, updated_at
		FROM meal_plans WHERE user_id = ? AND week_start = ?`, userID, database.FormatDate(weekStart))
	return r.load(ctx, row)
}

// GetByID returns the user's plan with the given id, or nil, nil.
func (r *PlanRepository) GetByID(ctx context.Context, userID, planID string) (*WeekMealPlan, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, user_id, week_start, created_at, updated_at
		FROM meal_plans WHERE user_id = ? AND id = ?`, userID, planID)
	return r.load(ctx, row)
}

// ListByUser returns every plan of the user, newest week first.
func (r *PlanRepository) ListByUser(ctx context.Context, userID string) ([]WeekMealPlan, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, week_start, created_at, updated_at
		FROM meal_plans WHERE user_id = ? ORDER BY week_start DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plans for user %s: %w", userID, err)
	}

	var headers []WeekMealPlan
	for rows.Next() {
		h, err := scanHeader(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		headers = append(headers, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	plans := make([]WeekMealPlan, 0, len(headers))
	for _, h := range headers {
		meals, err := r.meals(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		plans = append(plans, FromStored(h, meals))
	}
	return plans, nil
}

// UpdateMealRecipe points the (day, type) slot of a plan at recipeID and
// returns the recipe it replaced. found is false when the slot is empty.
func (r *PlanRepository) UpdateMealRecipe(ctx context.Context, planID string, dayOfWeek int, t MealType, recipeID string) (oldRecipeID string, found bool, err error) {
	err = r.db.QueryRowContext(ctx, `SELECT recipe_id FROM meals
		WHERE meal_plan_id = ? AND day_of_week = ? AND meal_type = ?`, planID, dayOfWeek, string(t)).Scan(&oldRecipeID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up meal: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `UPDATE meals SET recipe_id = ?
		WHERE meal_plan_id = ? AND day_of_week = ? AND meal_type = ?`, recipeID, planID, dayOfWeek, string(t))
	if err != nil {
		return "", false, fmt.Errorf("failed to update meal: %w", err)
	}
	return oldRecipeID, true, nil
}

// Touch sets the plan's updated_at.
func (r *PlanRepository) Touch(ctx context.Context, planID string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE meal_plans SET updated_at = ? WHERE id = ?`,
		database.FormatTime(at), planID); err != nil {
		return fmt.Errorf("failed to touch meal plan: %w", err)
	}
	return nil
}

// Recipes exposes the recipe repository bound to the same handle.
func (r *PlanRepository) Recipes() *recipe.Repository { return r.recipes }

func (r *PlanRepository) load(ctx context.Context, row *sql.Row) (*WeekMealPlan, error) {
	h, err := scanHeader(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	meals, err := r.meals(ctx, h.ID)
	if err != nil {
		return nil, err
	}
	plan := FromStored(h, meals)
	return &plan, nil
}

func (r *PlanRepository) meals(ctx context.Context, planID string) ([]Meal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT m.id, m.meal_plan_id, m.day_of_week, m.meal_type, m.created_at, `+
		recipe.ColumnsOf("r")+`
		FROM meals m JOIN recipes r ON r.id = m.recipe_id
		WHERE m.meal_plan_id = ?
		ORDER BY m.day_of_week`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to load meals of plan %s: %w", planID, err)
	}
	defer rows.Close()

	var meals []Meal
	for rows.Next() {
		var (
			m         Meal
			mealType  string
			createdAt string
			rec       *recipe.Recipe
		)
		rec, err = recipe.Scan(prefixScanner{rows: rows, prefix: []any{&m.ID, &m.MealPlanID, &m.DayOfWeek, &mealType, &createdAt}})
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}
		m.Type = MealType(mealType)
		m.Recipe = *rec
		if m.CreatedAt, err = database.ParseTime(createdAt); err != nil {
			return nil, err
		}
		meals = append(meals, m)
	}
	return meals, rows.Err()
}

// prefixScanner lets recipe.Scan read rows that carry extra leading columns.
type prefixScanner struct {
	rows   *sql.Rows
	prefix []any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.rows.Scan(append(append([]any{}, p.prefix...), dest...)...)
}

func scanHeader(s recipe.Scanner) (WeekMealPlan, error) {
	var p WeekMealPlan
	var week, createdAt, updatedAt string
	err := s.Scan(&p.ID, &p.UserID, &week, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("failed to scan meal plan: %w", err)
	}
	if p.WeekStart, err = database.ParseDate(week); err != nil {
		return p, err
	}
	if p.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return p, err
	}
	if p.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return p, err
	}
	return p, nil
}
