package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"guarded-meal-planner/internal/database"
)

// Repository provides access to profile persistence.
type Repository struct {
	db  database.DBTX
	now func() time.Time
}

// NewRepository creates a new profile repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Get retrieves the profile for userID, or nil, nil when none exists.
func (r *Repository) Get(ctx context.Context, userID string) (*Profile, error) {
	var (
		p                    Profile
		allergies            string
		calorieGoal          sql.NullInt64
		createdAt, updatedAt string
	)
	err := r.db.QueryRowContext(ctx, `SELECT user_id, diet_type, allergies, calorie_goal, created_at, updated_at
		FROM profiles WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.DietType, &allergies, &calorieGoal, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	p.Allergies = ParseAllergies(allergies)
	if calorieGoal.Valid {
		goal := int(calorieGoal.Int64)
		p.CalorieGoal = &goal
	}
	if p.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// Save validates p and inserts or updates it, keeping the original
// creation time on update.
func (r *Repository) Save(ctx context.Context, p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	now := r.now().UTC().Truncate(time.Second)
	var goal sql.NullInt64
	if p.CalorieGoal != nil {
		goal = sql.NullInt64{Int64: int64(*p.CalorieGoal), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO profiles (user_id, diet_type, allergies, calorie_goal, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			diet_type = excluded.diet_type,
			allergies = excluded.allergies,
			calorie_goal = excluded.calorie_goal,
			updated_at = excluded.updated_at`,
		p.UserID, p.DietType, JoinAllergies(p.Allergies), goal, database.FormatTime(now), database.FormatTime(now))
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	saved, err := r.Get(ctx, p.UserID)
	if err != nil {
		return err
	}
	*p = *saved
	return nil
}
