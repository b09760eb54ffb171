package attempt

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"proctor/internal/proctoring/models"
	id "proctor/pkg/domain"
	"proctor/pkg/platform/sentinel"
	txcontext "proctor/pkg/platform/tx"
)

// PostgresStore persists attempts in proctoring_attempts. Violations,
// config, client info, override and decision are stored as JSONB; the
// distinct violation types are kept in a TEXT[] column for reporting.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Save(ctx context.Context, record *models.AttemptRecord) error {
	if record == nil {
		return fmt.Errorf("attempt record is required")
	}
	cfg, err := json.Marshal(record.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	client, err := json.Marshal(record.Client)
	if err != nil {
		return fmt.Errorf("marshal client info: %w", err)
	}
	violations := record.Violations
	if violations == nil {
		violations = []models.Violation{}
	}
	violationsJSON, err := json.Marshal(violations)
	if err != nil {
		return fmt.Errorf("marshal violations: %w", err)
	}
	override, err := nullableJSON(record.Override)
	if err != nil {
		return fmt.Errorf("marshal override: %w", err)
	}
	decision, err := nullableJSON(record.Decision)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}
	types := record.ViolationTypes()
	if types == nil {
		types = []string{}
	}

	query := `
		INSERT INTO proctoring_attempts (
			session_id, user_id, test_session_id, config, client,
			started_at, stopped_at, violations, violation_types, violations_count,
			behavior_score, degraded, forced_stop, override, decision
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (session_id) DO UPDATE SET
			stopped_at = EXCLUDED.stopped_at,
			violations = EXCLUDED.violations,
			violation_types = EXCLUDED.violation_types,
			violations_count = EXCLUDED.violations_count,
			behavior_score = EXCLUDED.behavior_score,
			degraded = EXCLUDED.degraded,
			forced_stop = EXCLUDED.forced_stop
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(record.SessionID),
		uuid.UUID(record.UserID),
		uuid.UUID(record.TestSessionID),
		cfg,
		client,
		record.StartedAt,
		record.StoppedAt,
		violationsJSON,
		pq.Array(types),
		len(record.Violations),
		record.BehaviorScore,
		record.Degraded,
		record.ForcedStop,
		override,
		decision,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

const selectAttempt = `
	SELECT session_id, user_id, test_session_id, config, client,
	       started_at, stopped_at, violations, behavior_score,
	       degraded, forced_stop, override, decision
	FROM proctoring_attempts
`

func (s *PostgresStore) FindBySession(ctx context.Context, sessionID id.SessionID) (*models.AttemptRecord, error) {
	row := s.execer(ctx).QueryRowContext(ctx, selectAttempt+`WHERE session_id = $1`, uuid.UUID(sessionID))
	r, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attempt for session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	return r, err
}

func (s *PostgresStore) FindByTestSession(ctx context.Context, testSessionID id.TestSessionID) (*models.AttemptRecord, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		selectAttempt+`WHERE test_session_id = $1 ORDER BY stopped_at DESC LIMIT 1`,
		uuid.UUID(testSessionID),
	)
	r, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attempt for test session %s: %w", testSessionID, sentinel.ErrNotFound)
	}
	return r, err
}

const latestForTestSession = `
	session_id = (
		SELECT session_id FROM proctoring_attempts
		WHERE test_session_id = $2
		ORDER BY stopped_at DESC
		LIMIT 1
	)
`

func (s *PostgresStore) SetAdminOverride(ctx context.Context, testSessionID id.TestSessionID, override models.AdminOverride) error {
	payload, err := json.Marshal(override)
	if err != nil {
		return fmt.Errorf("marshal override: %w", err)
	}
	return s.updateLatest(ctx, `UPDATE proctoring_attempts SET override = $1 WHERE `+latestForTestSession, payload, testSessionID)
}

func (s *PostgresStore) SaveDecision(ctx context.Context, testSessionID id.TestSessionID, decision models.CertificateDecision) error {
	payload, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}
	return s.updateLatest(ctx, `UPDATE proctoring_attempts SET decision = $1 WHERE `+latestForTestSession, payload, testSessionID)
}

func (s *PostgresStore) updateLatest(ctx context.Context, query string, payload []byte, testSessionID id.TestSessionID) error {
	res, err := s.execer(ctx).ExecContext(ctx, query, payload, uuid.UUID(testSessionID))
	if err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("attempt for test session %s: %w", testSessionID, sentinel.ErrNotFound)
	}
	return nil
}

func scanAttempt(row *sql.Row) (*models.AttemptRecord, error) {
	var (
		r                                models.AttemptRecord
		sessionID, userID, testSessionID uuid.UUID
		cfg, client, violations          []byte
		override, decision               []byte
	)
	err := row.Scan(
		&sessionID, &userID, &testSessionID, &cfg, &client,
		&r.StartedAt, &r.StoppedAt, &violations, &r.BehaviorScore,
		&r.Degraded, &r.ForcedStop, &override, &decision,
	)
	if err != nil {
		return nil, err
	}
	r.SessionID = id.SessionID(sessionID)
	r.UserID = id.UserID(userID)
	r.TestSessionID = id.TestSessionID(testSessionID)

	if err := json.Unmarshal(cfg, &r.Config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := json.Unmarshal(client, &r.Client); err != nil {
		return nil, fmt.Errorf("unmarshal client info: %w", err)
	}
	if err := json.Unmarshal(violations, &r.Violations); err != nil {
		return nil, fmt.Errorf("unmarshal violations: %w", err)
	}
	if len(override) > 0 {
		r.Override = &models.AdminOverride{}
		if err := json.Unmarshal(override, r.Override); err != nil {
			return nil, fmt.Errorf("unmarshal override: %w", err)
		}
	}
	if len(decision) > 0 {
		r.Decision = &models.CertificateDecision{}
		if err := json.Unmarshal(decision, r.Decision); err != nil {
			return nil, fmt.Errorf("unmarshal decision: %w", err)
		}
	}
	return &r, nil
}

// nullableJSON returns an untyped nil for a nil pointer so the column is
// written as SQL NULL.
func nullableJSON[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
