package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"guarded-meal-planner/internal/database"
	"guarded-meal-planner/internal/guard"
	"guarded-meal-planner/internal/logger"
	"guarded-meal-planner/internal/shared"
)

// OutcomeSuccess is stored for attempts that produced a valid value. Failed
// attempts store their guard.Kind.
const OutcomeSuccess = "success"

// ExecutionMetric records metadata for a single generation attempt.
type ExecutionMetric struct {
	RunID            string
	AgentName        string
	Model            string
	Attempt          int
	Outcome          string
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
	Timestamp        time.Time
}

// Store handles persistence of metrics to SQLite. It implements
// guard.Observer so every attempt is recorded as it happens.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ guard.Observer = (*Store)(nil)

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m ExecutionMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	outcome := m.Outcome
	if outcome == "" {
		outcome = OutcomeSuccess
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO execution_metrics
		(run_id, agent_name, model, attempt, outcome, prompt_tokens, completion_tokens, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.RunID, m.AgentName, m.Model, m.Attempt, outcome,
		m.PromptTokens, m.CompletionTokens, m.LatencyMS, database.FormatTime(ts))
	if err != nil {
		return fmt.Errorf("failed to insert execution metric: %w", err)
	}
	return nil
}

// OnAttempt stores one row per attempt. Storage failures are logged, never
// surfaced to the run.
func (s *Store) OnAttempt(ctx context.Context, o guard.AttemptOutcome) {
	m := MapUsage(o.Schema, o.Usage, o.Latency)
	m.RunID = o.RunID
	m.Attempt = o.Attempt
	m.Outcome = string(o.Kind)

	// The run's context may already be canceled; the row is still wanted.
	if err := s.Record(context.WithoutCancel(ctx), m); err != nil {
		logger.Warn("Failed to record execution metric", logger.Fields{
			"run_id": o.RunID,
			"error":  err,
		})
	}
}

func (s *Store) OnFinish(context.Context, guard.Summary) {}

// DailyUsage represents token totals for a single day.
type DailyUsage struct {
	Date            string
	TotalPrompt     int
	TotalCompletion int
	TotalExecution  int
	Runs            int
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := database.FormatTime(s.now().AddDate(0, 0, -days))
	rows, err := s.db.QueryContext(ctx, `SELECT substr(timestamp, 1, 10) AS day,
			COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0),
			COUNT(*), COUNT(DISTINCT run_id)
		FROM execution_metrics
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.TotalPrompt, &u.TotalCompletion, &u.TotalExecution, &u.Runs); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// GetOutcomeCounts returns the number of attempts per outcome over the last
// N days.
func (s *Store) GetOutcomeCounts(ctx context.Context, days int) (map[string]int, error) {
	since := database.FormatTime(s.now().AddDate(0, 0, -days))
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*)
		FROM execution_metrics WHERE timestamp >= ? GROUP BY outcome`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcome counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan outcome count: %w", err)
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

// Cleanup removes records older than the specified number of days and
// returns how many were deleted.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := database.FormatTime(s.now().AddDate(0, 0, -olderThanDays))
	res, err := s.db.ExecContext(ctx, `DELETE FROM execution_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up execution metrics: %w", err)
	}
	return res.RowsAffected()
}

// MapUsage converts shared.TokenUsage to an ExecutionMetric.
func MapUsage(agentName string, usage shared.TokenUsage, latency time.Duration) ExecutionMetric {
	return ExecutionMetric{
		AgentName:        agentName,
		Model:            usage.Model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		LatencyMS:        latency.Milliseconds(),
	}
}
