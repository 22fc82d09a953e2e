package planner

import "errors"

var (
	// ErrPlanNotFound is returned when the user has no plan for the week or id.
	ErrPlanNotFound = errors.New("meal plan not found")
	// ErrMealNotFound is returned when a swap targets an empty slot.
	ErrMealNotFound = errors.New("meal not found")
	// ErrInvalidInput wraps argument validation failures.
	ErrInvalidInput = errors.New("invalid input")
)
