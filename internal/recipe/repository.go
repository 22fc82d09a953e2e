package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"guarded-meal-planner/internal/database"
	"guarded-meal-planner/internal/schema"

	"github.com/google/uuid"
)

// Columns lists the recipe columns in the order Scan expects. Queries that
// join recipes can select them with a table prefix via ColumnsOf.
const Columns = `id, user_id, title, description, ingredients, instructions,
	calories, protein_g, carbs_g, fat_g, fiber_g,
	prep_time_minutes, cook_time_minutes, servings, created_at`

// ColumnsOf returns Columns qualified with alias, e.g. "r.id, r.user_id, ...".
func ColumnsOf(alias string) string {
	return fmt.Sprintf(`%[1]s.id, %[1]s.user_id, %[1]s.title, %[1]s.description, %[1]s.ingredients, %[1]s.instructions,
	%[1]s.calories, %[1]s.protein_g, %[1]s.carbs_g, %[1]s.fat_g, %[1]s.fiber_g,
	%[1]s.prep_time_minutes, %[1]s.cook_time_minutes, %[1]s.servings, %[1]s.created_at`, alias)
}

// Scanner is implemented by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Repository is a database-backed repository for recipes.
type Repository struct {
	db  database.DBTX
	now func() time.Time
}

// NewRepository creates a new Repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db, now: time.Now}
}

// WithTx returns a repository that runs its queries inside tx.
func (r *Repository) WithTx(tx database.DBTX) *Repository {
	return &Repository{db: tx, now: r.now}
}

// Create inserts rec, assigning an id and creation time when unset.
func (r *Repository) Create(ctx context.Context, rec *Recipe) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}

	ingredients, err := json.Marshal(nonNil(rec.Ingredients))
	if err != nil {
		return fmt.Errorf("failed to marshal ingredients: %w", err)
	}
	instructions, err := json.Marshal(nonNil(rec.Instructions))
	if err != nil {
		return fmt.Errorf("failed to marshal instructions: %w", err)
	}

	n := rec.Nutrition
	_, err = r.db.ExecContext(ctx, `INSERT INTO recipes (`+Columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Title, rec.Description, string(ingredients), string(instructions),
		n.Calories, database.NullFloat(n.ProteinG), database.NullFloat(n.CarbsG),
		database.NullFloat(n.FatG), database.NullFloat(n.FiberG),
		rec.PrepTimeMinutes, rec.CookTimeMinutes, rec.Servings, database.FormatTime(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert recipe: %w", err)
	}
	return nil
}

// Get retrieves a recipe by its ID. It returns nil, nil when none exists.
func (r *Repository) Get(ctx context.Context, id string) (*Recipe, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+Columns+` FROM recipes WHERE id = ?`, id)
	rec, err := Scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recipe by ID: %w", err)
	}
	return rec, nil
}

// Delete removes a recipe. Deleting a missing recipe is not an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	return nil
}

// DeleteUnreferenced removes the given recipes when no meal points at them
// any more and returns how many rows went away.
func (r *Repository) DeleteUnreferenced(ctx context.Context, ids []string) (int64, error) {
	var total int64
	for _, id := range ids {
		res, err := r.db.ExecContext(ctx,
			`DELETE FROM recipes WHERE id = ? AND NOT EXISTS (SELECT 1 FROM meals WHERE recipe_id = ?)`, id, id)
		if err != nil {
			return total, fmt.Errorf("failed to delete recipe %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("failed to count deleted recipes: %w", err)
		}
		total += n
	}
	return total, nil
}

// Scan reads one recipe selected with Columns or ColumnsOf.
func Scan(s Scanner) (*Recipe, error) {
	var (
		rec                       Recipe
		ingredients, instructions string
		protein, carbs, fat, fib  sql.NullFloat64
		createdAt                 string
	)
	err := s.Scan(&rec.ID, &rec.UserID, &rec.Title, &rec.Description, &ingredients, &instructions,
		&rec.Nutrition.Calories, &protein, &carbs, &fat, &fib,
		&rec.PrepTimeMinutes, &rec.CookTimeMinutes, &rec.Servings, &createdAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(ingredients), &rec.Ingredients); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ingredients for recipe %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(instructions), &rec.Instructions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal instructions for recipe %s: %w", rec.ID, err)
	}
	rec.Nutrition = schema.Nutrition{
		Calories: rec.Nutrition.Calories,
		ProteinG: database.FloatPtr(protein),
		CarbsG:   database.FloatPtr(carbs),
		FatG:     database.FloatPtr(fat),
		FiberG:   database.FloatPtr(fib),
	}
	if rec.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
