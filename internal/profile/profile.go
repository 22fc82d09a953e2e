// Package profile stores the dietary preferences that shape generated plans.
package profile

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Calorie goal bounds, inclusive.
const (
	MinCalorieGoal = 500
	MaxCalorieGoal = 10000
)

// ErrInvalidProfile is wrapped by every Validate failure.
var ErrInvalidProfile = errors.New("invalid profile")

// Profile holds a user's diet type, allergies and daily calorie goal.
type Profile struct {
	UserID      string    `json:"user_id"`
	DietType    string    `json:"diet_type,omitempty"`
	Allergies   []string  `json:"allergies"`
	CalorieGoal *int      `json:"calorie_goal,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks the calorie goal, when set, against its bounds.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidProfile)
	}
	if p.CalorieGoal != nil && (*p.CalorieGoal < MinCalorieGoal || *p.CalorieGoal > MaxCalorieGoal) {
		return fmt.Errorf("%w: calorie goal must be between %d and %d", ErrInvalidProfile, MinCalorieGoal, MaxCalorieGoal)
	}
	return nil
}

// Preferences is the subset of a profile that prompts consume.
type Preferences struct {
	DietType    string
	Allergies   []string
	CalorieGoal int
}

// Preferences returns the prompt preferences. A nil profile yields the zero value.
func (p *Profile) Preferences() Preferences {
	if p == nil {
		return Preferences{}
	}
	prefs := Preferences{DietType: p.DietType, Allergies: p.Allergies}
	if p.CalorieGoal != nil {
		prefs.CalorieGoal = *p.CalorieGoal
	}
	return prefs
}

// ParseAllergies splits a comma-separated list, trimming blanks.
func ParseAllergies(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if a := strings.TrimSpace(part); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// JoinAllergies is the inverse of ParseAllergies.
func JoinAllergies(allergies []string) string {
	var parts []string
	for _, a := range allergies {
		if a = strings.TrimSpace(a); a != "" {
			parts = append(parts, a)
		}
	}
	return strings.Join(parts, ", ")
}
