package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks SessionService,CertificateService,StatusCache

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"proctor/internal/proctoring/certificate"
	"proctor/internal/proctoring/handler/mocks"
	"proctor/internal/proctoring/models"
	"proctor/internal/proctoring/session"
	id "proctor/pkg/domain"
	dErrors "proctor/pkg/domain-errors"
	"proctor/pkg/platform/sentinel"
	"proctor/pkg/testutil"
)

// =============================================================================
// Handler Test Suite
// =============================================================================
// Requests are routed through chi so URL parameters and the admin role
// guard behave as in production. Services are generated mocks.

type HandlerSuite struct {
	suite.Suite
	sessions     *mocks.MockSessionService
	certificates *mocks.MockCertificateService
	cache        *mocks.MockStatusCache
	router       chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.sessions = mocks.NewMockSessionService(ctrl)
	s.certificates = mocks.NewMockCertificateService(ctrl)
	s.cache = mocks.NewMockStatusCache(ctrl)

	h := New(s.sessions, s.certificates, slog.New(slog.NewTextHandler(io.Discard, nil)), WithStatusCache(s.cache))
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *HandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.WithCaller(req, "exam-service", "exam_service"))
}

func (s *HandlerSuite) TestStart() {
	userID, testSessionID := uuid.New(), uuid.New()

	s.Run("parses ids and client info", func() {
		s.sessions.EXPECT().Start(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, req session.StartRequest) (*models.SessionStatus, error) {
				s.Equal(id.UserID(userID), req.UserID)
				s.Equal(id.TestSessionID(testSessionID), req.TestSessionID)
				s.True(req.SessionID.IsNil())
				s.Equal("Firefox", req.Client.Browser)
				s.Equal("203.0.113.9", req.Client.IP)
				return &models.SessionStatus{SessionID: id.NewSessionID(), State: models.StateActive, IsActive: true, BehaviorScore: 100}, nil
			})

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/proctoring/sessions", map[string]any{
			"user_id":           userID.String(),
			"test_session_id":   testSessionID.String(),
			"client_user_agent": "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0",
			"client_ip":         "203.0.113.9",
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		testutil.AssertJSONContains(s.T(), rr, "state", "active")
	})

	s.Run("passes a partial config through for overlay", func() {
		s.sessions.EXPECT().Start(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, req session.StartRequest) (*models.SessionStatus, error) {
				s.Nil(req.Config)
				s.JSONEq(`{"face_absence_timeout": 4, "max_violations": 3, "detector_timeout": "2s"}`, string(req.ConfigJSON))
				return &models.SessionStatus{SessionID: id.NewSessionID(), State: models.StateActive, IsActive: true, BehaviorScore: 100}, nil
			})

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/proctoring/sessions", map[string]any{
			"user_id":         userID.String(),
			"test_session_id": testSessionID.String(),
			"config": map[string]any{
				"face_absence_timeout": 4,
				"max_violations":       3,
				"detector_timeout":     "2s",
			},
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	})

	s.Run("rejects a config that is not an object", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/proctoring/sessions", map[string]any{
			"user_id":         userID.String(),
			"test_session_id": testSessionID.String(),
			"config":          []int{1, 2},
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("rejects malformed user id", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/proctoring/sessions", map[string]any{
			"user_id":         "not-a-uuid",
			"test_session_id": testSessionID.String(),
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
	})

	s.Run("conflict when already active", func() {
		s.sessions.EXPECT().Start(gomock.Any(), gomock.Any()).Return(nil, models.AlreadyActive("test session busy"))
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/proctoring/sessions", map[string]any{
			"user_id":         userID.String(),
			"test_session_id": testSessionID.String(),
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeConflict))
	})
}

func (s *HandlerSuite) TestStatus() {
	sessionID := id.NewSessionID()
	path := fmt.Sprintf("/proctoring/sessions/%s", sessionID)

	s.Run("live session", func() {
		s.sessions.EXPECT().Status(sessionID).Return(&models.SessionStatus{SessionID: sessionID, BehaviorScore: 95}, true)
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, path))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "behavior_score", 95.0)
	})

	s.Run("falls back to cache", func() {
		s.sessions.EXPECT().Status(sessionID).Return(nil, false)
		s.cache.EXPECT().Get(gomock.Any(), sessionID).Return(&models.SessionStatus{SessionID: sessionID, BehaviorScore: 80}, nil)
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, path))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "behavior_score", 80.0)
	})

	s.Run("unknown everywhere", func() {
		s.sessions.EXPECT().Status(sessionID).Return(nil, false)
		s.cache.EXPECT().Get(gomock.Any(), sessionID).Return(nil, fmt.Errorf("status: %w", sentinel.ErrNotFound))
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, path))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})

	s.Run("bad id", func() {
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/proctoring/sessions/xyz"))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *HandlerSuite) TestStop() {
	sessionID := id.NewSessionID()
	path := fmt.Sprintf("/proctoring/sessions/%s", sessionID)

	s.sessions.EXPECT().Stop(gomock.Any(), sessionID).Return(&models.AttemptRecord{SessionID: sessionID, BehaviorScore: 90}, true, nil)
	rr := s.do(testutil.NewRequest(s.T(), http.MethodDelete, path))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "behavior_score", 90.0)

	s.sessions.EXPECT().Stop(gomock.Any(), sessionID).Return(nil, false, nil)
	rr = s.do(testutil.NewRequest(s.T(), http.MethodDelete, path))
	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
}

func (s *HandlerSuite) TestFrame() {
	sessionID := id.NewSessionID()
	path := fmt.Sprintf("/proctoring/sessions/%s/frames", sessionID)

	s.sessions.EXPECT().ProcessFrame(gomock.Any(), sessionID, gomock.Any()).DoAndReturn(
		func(_ any, _ id.SessionID, frame models.Frame) (*models.FrameResult, error) {
			s.Equal([]byte("jpeg"), frame.Data)
			s.Equal("jpeg", frame.Format)
			return &models.FrameResult{FaceCount: 1, DetectorAvailable: true, Violations: []models.Violation{}, BehaviorScore: 100}, nil
		})
	// []byte fields travel as base64 in JSON.
	rr := s.do(testutil.NewRequestWithBody(s.T(), http.MethodPost, path, `{"data":"anBlZw==","format":"JPEG"}`))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "face_count", 1.0)

	rr = s.do(testutil.NewRequestWithBody(s.T(), http.MethodPost, path, `{"format":"jpeg"}`))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
}

func (s *HandlerSuite) TestAudio() {
	sessionID := id.NewSessionID()
	path := fmt.Sprintf("/proctoring/sessions/%s/audio", sessionID)

	s.sessions.EXPECT().ProcessAudio(gomock.Any(), sessionID, gomock.Any()).
		Return(&models.AudioResult{DBLevel: 42, DetectorAvailable: true, Violations: []models.Violation{}, BehaviorScore: 100}, nil)
	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]any{
		"samples":     []float32{0.1, -0.1},
		"sample_rate": 16000,
	}))
	testutil.AssertStatusOK(s.T(), rr)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]any{
		"samples":     []float32{0.1},
		"sample_rate": 100,
	}))
	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
}

func (s *HandlerSuite) TestEvent() {
	sessionID := id.NewSessionID()
	path := fmt.Sprintf("/proctoring/sessions/%s/events", sessionID)

	s.sessions.EXPECT().InjectSignal(gomock.Any(), sessionID, models.SignalTabSwitching, gomock.Any(), gomock.Any()).
		Return(&models.EventResult{Violations: []models.Violation{{Type: models.SignalTabSwitching, Severity: 5}}, BehaviorScore: 95}, nil)
	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]any{"type": "tab_switching"}))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "behavior_score", 95.0)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]any{"type": "multiple_faces"}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
}

func (s *HandlerSuite) TestCertificate() {
	testSessionID := id.TestSessionID(uuid.New())
	path := fmt.Sprintf("/proctoring/attempts/%s/certificate", testSessionID)

	s.certificates.EXPECT().Evaluate(gomock.Any(), testSessionID, 92.0).
		Return(&certificate.Decision{TestScore: 92, BehaviorScore: 100, FinalScore: 95.2, Issue: true, Reason: certificate.ReasonEligible}, nil)
	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]any{"test_score": 92}))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "issue", true)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]any{}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))

	s.certificates.EXPECT().Evaluate(gomock.Any(), testSessionID, 50.0).Return(nil, models.AttemptNotFound(testSessionID))
	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]any{"test_score": 50}))
	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
}

func (s *HandlerSuite) TestAttempt() {
	testSessionID := id.TestSessionID(uuid.New())
	s.certificates.EXPECT().Attempt(gomock.Any(), testSessionID).
		Return(&certificate.Review{Attempt: &models.AttemptRecord{TestSessionID: testSessionID}}, nil)

	rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, fmt.Sprintf("/proctoring/attempts/%s", testSessionID)))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONHasKey(s.T(), rr, "score_breakdown")
}

func (s *HandlerSuite) TestOverride_RequiresAdmin() {
	testSessionID := id.TestSessionID(uuid.New())
	path := fmt.Sprintf("/proctoring/attempts/%s/override", testSessionID)
	body := map[string]any{"score": 70, "reason": "camera glare"}

	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPut, path, body))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, string(dErrors.CodeForbidden))

	s.certificates.EXPECT().RecordOverride(gomock.Any(), testSessionID, 70.0, "camera glare").
		Return(&models.AdminOverride{Score: 70, ReviewerID: "reviewer-1", RecordedAt: time.Now()}, nil)
	req := testutil.WithCaller(testutil.NewJSONRequest(s.T(), http.MethodPut, path, body), "reviewer-1", RoleAdmin)
	rr = testutil.DoRequest(s.router, req)
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "reviewer_id", "reviewer-1")
}
