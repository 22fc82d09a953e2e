package telegram

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"guarded-meal-planner/internal/database"
	"guarded-meal-planner/internal/schema"
)

// Session types.
const (
	SessionSwap        = "swap"
	SessionPlanConfirm = "plan_confirm"
)

// Session states.
const (
	StateAwaitingChoice = "awaiting_choice"
)

// Session holds a pending conversation step, such as a user choosing one
// of several generated alternatives.
type Session struct {
	ID          int64
	UserID      string
	SessionType string
	State       string
	ContextData string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// SessionContextData holds structured data stored in the context_data JSON field
type SessionContextData struct {
	PlanID          string        `json:"plan_id,omitempty"`
	WeekStart       string        `json:"week_start,omitempty"`
	DayOfWeek       int           `json:"day_of_week,omitempty"`
	MealType        string        `json:"meal_type,omitempty"`
	Alternatives    []schema.Meal `json:"alternatives,omitempty"`
	OriginalRequest string        `json:"original_request,omitempty"`
}

// SessionRepository provides access to session persistence operations
type SessionRepository struct {
	db  database.DBTX
	now func() time.Time
}

// NewSessionRepository creates a new SessionRepository instance
func NewSessionRepository(db database.DBTX) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

// Create stores a new session and returns its ID.
func (sr *SessionRepository) Create(ctx context.Context, userID, sessionType, state string, contextData SessionContextData, ttl time.Duration) (int64, error) {
	jsonData, err := json.Marshal(contextData)
	if err != nil {
		return 0, err
	}

	now := sr.now()
	res, err := sr.db.ExecContext(ctx, `INSERT INTO telegram_sessions
		(user_id, session_type, state, context_data, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userID, sessionType, state, string(jsonData),
		database.FormatTime(now.Add(ttl)), database.FormatTime(now))
	if err != nil {
		return 0, fmt.Errorf("failed to create session: %w", err)
	}
	return res.LastInsertId()
}

// Get returns the unexpired session id owned by userID, or nil, nil.
func (sr *SessionRepository) Get(ctx context.Context, id int64, userID string) (*Session, error) {
	row := sr.db.QueryRowContext(ctx, `SELECT id, user_id, session_type, state, context_data, expires_at, created_at
		FROM telegram_sessions WHERE id = ? AND user_id = ? AND expires_at > ?`,
		id, userID, database.FormatTime(sr.now()))
	return scanSession(row)
}

// GetActive retrieves the most recent active session for a user (non-expired)
func (sr *SessionRepository) GetActive(ctx context.Context, userID string) (*Session, error) {
	row := sr.db.QueryRowContext(ctx, `SELECT id, user_id, session_type, state, context_data, expires_at, created_at
		FROM telegram_sessions WHERE user_id = ? AND expires_at > ?
		ORDER BY id DESC LIMIT 1`,
		userID, database.FormatTime(sr.now()))
	return scanSession(row)
}

// GetContextData unmarshals the context_data JSON field
func (s *Session) GetContextData() (SessionContextData, error) {
	var data SessionContextData
	err := json.Unmarshal([]byte(s.ContextData), &data)
	return data, err
}

// Delete removes a session
func (sr *SessionRepository) Delete(ctx context.Context, sessionID int64) error {
	_, err := sr.db.ExecContext(ctx, `DELETE FROM telegram_sessions WHERE id = ?`, sessionID)
	return err
}

// CleanupExpired removes every expired session and reports how many went.
func (sr *SessionRepository) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := sr.db.ExecContext(ctx, `DELETE FROM telegram_sessions WHERE expires_at <= ?`,
		database.FormatTime(sr.now()))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up sessions: %w", err)
	}
	return res.RowsAffected()
}

func scanSession(row *sql.Row) (*Session, error) {
	var (
		s                    Session
		expiresAt, createdAt string
	)
	err := row.Scan(&s.ID, &s.UserID, &s.SessionType, &s.State, &s.ContextData, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if s.ExpiresAt, err = database.ParseTime(expiresAt); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &s, nil
}
