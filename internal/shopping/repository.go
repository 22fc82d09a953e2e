package shopping

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"guarded-meal-planner/internal/database"
)

// Repository handles persistence of shopping lists.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a new shopping list repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository that runs its queries inside tx.
func (r *Repository) WithTx(tx database.DBTX) *Repository {
	return &Repository{db: tx}
}

// Save stores the list for its meal plan, replacing any previous one, and
// returns the row id.
func (r *Repository) Save(ctx context.Context, list *ShoppingList) (int64, error) {
	itemsJSON, err := json.Marshal(list.Items)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal shopping list items: %w", err)
	}
	if list.CreatedAt.IsZero() {
		list.CreatedAt = time.Now().UTC()
	}

	var id int64
	err = r.db.QueryRowContext(ctx, `INSERT INTO shopping_lists (user_id, meal_plan_id, items, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(meal_plan_id) DO UPDATE SET items = excluded.items, created_at = excluded.created_at
		RETURNING id`,
		list.UserID, list.MealPlanID, string(itemsJSON), database.FormatTime(list.CreatedAt)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert shopping list: %w", err)
	}

	list.ID = id
	return id, nil
}

// GetByMealPlanID retrieves a shopping list by meal plan ID.
func (r *Repository) GetByMealPlanID(ctx context.Context, mealPlanID string) (*ShoppingList, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, user_id, meal_plan_id, items, created_at
		FROM shopping_lists WHERE meal_plan_id = ?`, mealPlanID)
	return scanList(row, "meal plan ID")
}

// GetByUserAndWeek retrieves a shopping list by user ID and week start date.
func (r *Repository) GetByUserAndWeek(ctx context.Context, userID string, weekStart time.Time) (*ShoppingList, error) {
	row := r.db.QueryRowContext(ctx, `SELECT s.id, s.user_id, s.meal_plan_id, s.items, s.created_at
		FROM shopping_lists s
		JOIN meal_plans p ON p.id = s.meal_plan_id
		WHERE p.user_id = ? AND p.week_start = ?`, userID, database.FormatDate(weekStart))
	return scanList(row, "user and week")
}

// DeleteByMealPlanID deletes a shopping list by meal plan ID.
func (r *Repository) DeleteByMealPlanID(ctx context.Context, mealPlanID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM shopping_lists WHERE meal_plan_id = ?`, mealPlanID); err != nil {
		return fmt.Errorf("failed to delete shopping list: %w", err)
	}
	return nil
}

func scanList(row *sql.Row, by string) (*ShoppingList, error) {
	var (
		list             ShoppingList
		items, createdAt string
	)
	if err := row.Scan(&list.ID, &list.UserID, &list.MealPlanID, &items, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No shopping list found
		}
		return nil, fmt.Errorf("failed to get shopping list by %s: %w", by, err)
	}

	if err := json.Unmarshal([]byte(items), &list.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shopping list items: %w", err)
	}
	var err error
	if list.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &list, nil
}
