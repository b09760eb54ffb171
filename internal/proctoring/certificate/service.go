package certificate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"proctor/internal/proctoring/metrics"
	"proctor/internal/proctoring/models"
	"proctor/internal/proctoring/scoring"
	id "proctor/pkg/domain"
	dErrors "proctor/pkg/domain-errors"
	audit "proctor/pkg/platform/audit"
	"proctor/pkg/platform/sentinel"
	"proctor/pkg/platform/tx"
	"proctor/pkg/requestcontext"
)

// AttemptStore is the slice of the attempt store the service needs.
type AttemptStore interface {
	FindByTestSession(ctx context.Context, testSessionID id.TestSessionID) (*models.AttemptRecord, error)
	SetAdminOverride(ctx context.Context, testSessionID id.TestSessionID, override models.AdminOverride) error
	SaveDecision(ctx context.Context, testSessionID id.TestSessionID, decision models.CertificateDecision) error
}

// Review is an attempt record with the arithmetic behind its behavior score.
type Review struct {
	Attempt   *models.AttemptRecord `json:"attempt"`
	Breakdown scoring.Breakdown     `json:"score_breakdown"`
}

type Service struct {
	attempts AttemptStore
	auditor  audit.Emitter
	tx       tx.Runner
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithAuditor receives decision and override events inside the write
// transaction. A failing emitter fails the write.
func WithAuditor(e audit.Emitter) Option {
	return func(s *Service) { s.auditor = e }
}

func WithTxRunner(r tx.Runner) Option {
	return func(s *Service) {
		if r != nil {
			s.tx = r
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(attempts AttemptStore, opts ...Option) (*Service, error) {
	if attempts == nil {
		return nil, errors.New("attempt store is required")
	}
	s := &Service{
		attempts: attempts,
		tx:       tx.NoopRunner{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Evaluate decides the certificate for the latest stopped attempt of a test
// session. The behavior score is recomputed from the violation log; the
// cached score and any admin override are ignored.
func (s *Service) Evaluate(ctx context.Context, testSessionID id.TestSessionID, testScore float64) (*Decision, error) {
	if testScore < 0 || testScore > 100 {
		return nil, dErrors.New(dErrors.CodeValidation, "test_score must be within [0,100]")
	}
	record, err := s.load(ctx, testSessionID)
	if err != nil {
		return nil, err
	}

	behavior := scoring.BehaviorScore(record.Violations)
	decision := Evaluate(record.Config, testScore, behavior, record.Violations)
	stored := models.CertificateDecision{
		TestScore:     decision.TestScore,
		BehaviorScore: decision.BehaviorScore,
		FinalScore:    decision.FinalScore,
		Issue:         decision.Issue,
		Reason:        string(decision.Reason),
		DecidedAt:     requestcontext.NowOr(ctx, s.now),
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.attempts.SaveDecision(txCtx, testSessionID, stored); err != nil {
			return err
		}
		final := decision.FinalScore
		return s.emit(txCtx, audit.Event{
			UserID:        record.UserID,
			SessionID:     record.SessionID,
			TestSessionID: testSessionID,
			Action:        string(audit.EventCertificateDecided),
			Subject:       outcome(decision.Issue),
			Score:         &final,
			Decision:      outcome(decision.Issue),
			Reason:        string(decision.Reason),
		})
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record certificate decision")
	}

	s.metrics.IncCertificateDecision(string(decision.Reason))
	s.logger.InfoContext(ctx, "certificate decided",
		"test_session_id", testSessionID,
		"final_score", decision.FinalScore,
		"issue", decision.Issue,
		"reason", decision.Reason,
	)
	return &decision, nil
}

// Attempt returns the latest stopped attempt of a test session for review.
func (s *Service) Attempt(ctx context.Context, testSessionID id.TestSessionID) (*Review, error) {
	record, err := s.load(ctx, testSessionID)
	if err != nil {
		return nil, err
	}
	return &Review{Attempt: record, Breakdown: scoring.Compute(record.Violations)}, nil
}

// RecordOverride stores a reviewer's annotation on the latest attempt. The
// override is informational and never changes a certificate decision.
func (s *Service) RecordOverride(ctx context.Context, testSessionID id.TestSessionID, score float64, reason string) (*models.AdminOverride, error) {
	if score < 0 || score > 100 {
		return nil, dErrors.New(dErrors.CodeValidation, "score must be within [0,100]")
	}
	reviewer := requestcontext.Subject(ctx)
	if reviewer == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "reviewer identity is required")
	}
	record, err := s.load(ctx, testSessionID)
	if err != nil {
		return nil, err
	}

	override := models.AdminOverride{
		Score:      score,
		Reason:     reason,
		ReviewerID: reviewer,
		RecordedAt: requestcontext.NowOr(ctx, s.now),
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.attempts.SetAdminOverride(txCtx, testSessionID, override); err != nil {
			return err
		}
		return s.emit(txCtx, audit.Event{
			UserID:        record.UserID,
			SessionID:     record.SessionID,
			TestSessionID: testSessionID,
			Action:        string(audit.EventAdminOverrideRecorded),
			Score:         &override.Score,
			Reason:        reason,
			ActorID:       reviewer,
		})
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record admin override")
	}

	s.logger.InfoContext(ctx, "admin override recorded",
		"test_session_id", testSessionID,
		"reviewer", reviewer,
		"score", score,
	)
	return &override, nil
}

func (s *Service) load(ctx context.Context, testSessionID id.TestSessionID) (*models.AttemptRecord, error) {
	record, err := s.attempts.FindByTestSession(ctx, testSessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, models.AttemptNotFound(testSessionID)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load attempt record")
	}
	return record, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.auditor == nil {
		return nil
	}
	event.RequestID = requestcontext.RequestID(ctx)
	return s.auditor.Emit(ctx, event)
}

func outcome(issue bool) string {
	if issue {
		return "issued"
	}
	return "denied"
}
