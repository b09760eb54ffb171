package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"proctor/internal/proctoring/models"
	"proctor/internal/proctoring/store/attempt"
	id "proctor/pkg/domain"
	dErrors "proctor/pkg/domain-errors"
	audit "proctor/pkg/platform/audit"
	"proctor/pkg/platform/audit/publisher"
	auditmemory "proctor/pkg/platform/audit/store/memory"
)

// =============================================================================
// Manager Test Suite
// =============================================================================
// Sessions are driven synchronously through ProcessFrame, ProcessAudio and
// InjectSignal with a scripted detector. The default capture feed stays empty
// so the background loops never race the synchronous ticks.

type ManagerSuite struct {
	suite.Suite
	detector *scriptedDetector
	attempts *attempt.InMemoryStore
	events   *auditmemory.InMemoryStore
	statuses *recordingPublisher
	manager  *Manager
	now      time.Time
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.now = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s.detector = &scriptedDetector{}
	s.attempts = attempt.NewInMemory()
	s.events = auditmemory.NewInMemoryStore()
	s.statuses = &recordingPublisher{}

	m, err := New(s.detector, s.attempts,
		WithAuditor(publisher.NewPublisher(s.events)),
		WithComplianceAuditor(publisher.NewPublisher(s.events)),
		WithStatusPublisher(s.statuses),
		WithClock(func() time.Time { return s.now }),
		WithJoinTimeout(time.Second),
	)
	s.Require().NoError(err)
	s.manager = m
}

func (s *ManagerSuite) TearDownTest() {
	s.Require().NoError(s.manager.Shutdown(context.Background()))
}

func (s *ManagerSuite) start() id.SessionID {
	st, err := s.manager.Start(context.Background(), StartRequest{
		UserID:        id.UserID(newUUID()),
		TestSessionID: id.TestSessionID(newUUID()),
	})
	s.Require().NoError(err)
	return st.SessionID
}

func (s *ManagerSuite) frame(sessionID id.SessionID) *models.FrameResult {
	res, err := s.manager.ProcessFrame(context.Background(), sessionID, models.Frame{Data: []byte("frame")})
	s.Require().NoError(err)
	return res
}

func (s *ManagerSuite) TestStart_ReturnsActiveSnapshot() {
	sessionID := s.start()

	st, ok := s.manager.Status(sessionID)
	s.Require().True(ok)
	s.Equal(models.StateActive, st.State)
	s.True(st.IsActive)
	s.Equal(100.0, st.BehaviorScore)
	s.NotNil(st.Violations)
	s.Empty(st.Violations)
	s.Equal(1, s.manager.ActiveCount())
}

func (s *ManagerSuite) TestStart_Validation() {
	s.Run("missing user", func() {
		_, err := s.manager.Start(context.Background(), StartRequest{TestSessionID: id.TestSessionID(newUUID())})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("invalid config spawns nothing", func() {
		cfg := models.DefaultConfig()
		cfg.FaceAbsenceTimeout = 0
		_, err := s.manager.Start(context.Background(), StartRequest{
			UserID:        id.UserID(newUUID()),
			TestSessionID: id.TestSessionID(newUUID()),
			Config:        &cfg,
		})
		s.ErrorIs(err, models.ErrConfigInvalid)
		s.Zero(s.manager.ActiveCount())
	})

	s.Run("one live session per test session", func() {
		testSessionID := id.TestSessionID(newUUID())
		req := StartRequest{UserID: id.UserID(newUUID()), TestSessionID: testSessionID}
		_, err := s.manager.Start(context.Background(), req)
		s.Require().NoError(err)

		_, err = s.manager.Start(context.Background(), req)
		s.ErrorIs(err, models.ErrAlreadyActive)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ManagerSuite) TestFaceAbsentForTimeoutConfirmsOnce() {
	s.detector.setVideo(func(models.Frame) models.VideoSignals { return noFace() })
	sessionID := s.start()

	for i := 0; i < 4; i++ {
		res := s.frame(sessionID)
		s.Empty(res.Violations, "tick %d", i+1)
		s.Equal(100.0, res.BehaviorScore)
	}
	res := s.frame(sessionID)
	s.Require().Len(res.Violations, 1)
	s.Equal(models.SignalFaceAbsent, res.Violations[0].Type)
	s.Equal(95.0, res.BehaviorScore)
	s.NotEmpty(res.Violations[0].Metadata["frame_digest"])

	st, _ := s.manager.Status(sessionID)
	s.Equal(1, st.ViolationsCount)
	s.Equal(int64(5), st.FramesAnalyzed)
}

func (s *ManagerSuite) TestVisibleFaceResetsAbsenceStreak() {
	script := []models.VideoSignals{noFace(), noFace(), noFace(), noFace(), oneFace(), noFace(), noFace(), noFace(), noFace()}
	s.detector.setVideo(sequence(script))
	sessionID := s.start()

	for range script {
		s.Empty(s.frame(sessionID).Violations)
	}
	st, _ := s.manager.Status(sessionID)
	s.Equal(100.0, st.BehaviorScore)
}

func (s *ManagerSuite) TestUnavailableDetectorNeverConfirms() {
	script := []models.VideoSignals{
		noFace(), noFace(), noFace(), noFace(),
		models.UnavailableVideo(models.ReasonTimeout),
		noFace(), noFace(),
	}
	s.detector.setVideo(sequence(script))
	sessionID := s.start()

	for range script {
		s.Empty(s.frame(sessionID).Violations)
	}
	st, _ := s.manager.Status(sessionID)
	s.Equal(int64(1), st.UnavailableTicks)
	s.Equal(100.0, st.BehaviorScore)

	events, err := s.events.ListBySession(context.Background(), sessionID)
	s.Require().NoError(err)
	s.Contains(actions(events), string(audit.EventDetectorUnavailable))
}

func (s *ManagerSuite) TestProhibitedObjectConfirmsAfterThreshold() {
	s.detector.setVideo(func(models.Frame) models.VideoSignals {
		r := oneFace()
		r.Objects = []models.DetectedObject{{Class: "cell phone", Confidence: 0.9}}
		return r
	})
	sessionID := s.start()

	var confirmed []models.Violation
	for i := 0; i < 5; i++ {
		confirmed = append(confirmed, s.frame(sessionID).Violations...)
	}
	s.Require().Len(confirmed, 1)
	s.Equal(models.SignalProhibitedObject, confirmed[0].Type)
	s.Equal(10, confirmed[0].Severity)

	st, _ := s.manager.Status(sessionID)
	s.Equal(90.0, st.BehaviorScore)
}

func (s *ManagerSuite) TestTabSwitchConfirmsImmediately() {
	sessionID := s.start()

	res, err := s.manager.InjectSignal(context.Background(), sessionID, models.SignalTabSwitching, time.Time{}, map[string]any{"hidden_ms": 1200})
	s.Require().NoError(err)
	s.Require().Len(res.Violations, 1)
	s.Equal(models.SignalTabSwitching, res.Violations[0].Type)
	s.Equal(95.0, res.BehaviorScore)

	_, err = s.manager.InjectSignal(context.Background(), sessionID, models.SignalSpeech, time.Time{}, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ManagerSuite) TestAudioNoiseAndSpeech() {
	s.detector.setAudio(func(models.AudioChunk) models.AudioSignals {
		return models.AudioSignals{Available: true, DBLevel: 72, SpeechDetected: true}
	})
	sessionID := s.start()

	var confirmed []models.Violation
	for i := 0; i < 5; i++ {
		res, err := s.manager.ProcessAudio(context.Background(), sessionID, models.AudioChunk{Samples: []float32{0.1}, SampleRate: 16000})
		s.Require().NoError(err)
		s.True(res.DetectorAvailable)
		confirmed = append(confirmed, res.Violations...)
	}
	s.Require().Len(confirmed, 2)
	s.Equal(models.SignalNoise, confirmed[0].Type)
	s.Equal(models.SignalSpeech, confirmed[1].Type)

	st, _ := s.manager.Status(sessionID)
	s.Equal(92.0, st.BehaviorScore)
	s.Equal(int64(5), st.AudioAnalyzed)
}

func (s *ManagerSuite) TestStop_PersistsAndReleases() {
	s.detector.setVideo(func(models.Frame) models.VideoSignals { return noFace() })
	testSessionID := id.TestSessionID(newUUID())
	st, err := s.manager.Start(context.Background(), StartRequest{UserID: id.UserID(newUUID()), TestSessionID: testSessionID})
	s.Require().NoError(err)
	for i := 0; i < 5; i++ {
		s.frame(st.SessionID)
	}

	record, stopped, err := s.manager.Stop(context.Background(), st.SessionID)
	s.Require().NoError(err)
	s.True(stopped)
	s.False(record.ForcedStop)
	s.Len(record.Violations, 1)
	s.Equal(95.0, record.BehaviorScore)

	saved, err := s.attempts.FindBySession(context.Background(), st.SessionID)
	s.Require().NoError(err)
	s.Equal(record.Violations[0].ID, saved.Violations[0].ID)

	_, live := s.manager.ActiveSession(testSessionID)
	s.False(live)
	s.Zero(s.manager.ActiveCount())

	last := s.statuses.last(st.SessionID)
	s.Equal(models.StateStopped, last.State)
	s.False(last.IsActive)

	events, err := s.events.ListBySession(context.Background(), st.SessionID)
	s.Require().NoError(err)
	s.Contains(actions(events), string(audit.EventSessionStopped))

	s.Run("second stop is a no-op", func() {
		record, stopped, err := s.manager.Stop(context.Background(), st.SessionID)
		s.NoError(err)
		s.False(stopped)
		s.Nil(record)
	})

	s.Run("stopped session rejects input", func() {
		_, err := s.manager.ProcessFrame(context.Background(), st.SessionID, models.Frame{})
		s.ErrorIs(err, models.ErrSessionNotFound)
		s.ErrorIs(s.manager.PushFrame(st.SessionID, models.Frame{}), models.ErrSessionNotFound)
	})

	s.Run("test session can start again", func() {
		_, err := s.manager.Start(context.Background(), StartRequest{UserID: id.UserID(newUUID()), TestSessionID: testSessionID})
		s.NoError(err)
	})
}

func (s *ManagerSuite) TestStop_UnknownSession() {
	record, stopped, err := s.manager.Stop(context.Background(), id.NewSessionID())
	s.NoError(err)
	s.False(stopped)
	s.Nil(record)
}

func (s *ManagerSuite) TestStreamedFramesReachTheLoop() {
	s.detector.setVideo(func(models.Frame) models.VideoSignals { return oneFace() })
	sessionID := s.start()

	for i := 0; i < 3; i++ {
		s.Require().NoError(s.manager.PushFrame(sessionID, models.Frame{Data: []byte{byte(i)}}))
	}
	s.Eventually(func() bool {
		st, _ := s.manager.Status(sessionID)
		return st.FramesAnalyzed == 3
	}, time.Second, 5*time.Millisecond)
}

func (s *ManagerSuite) TestConcurrentProcessingCountsEveryTick() {
	s.detector.setVideo(func(models.Frame) models.VideoSignals { return oneFace() })
	sessionID := s.start()

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := s.manager.ProcessFrame(context.Background(), sessionID, models.Frame{})
				s.NoError(err)
				_, ok := s.manager.Status(sessionID)
				s.True(ok)
			}
		}()
	}
	wg.Wait()

	st, _ := s.manager.Status(sessionID)
	s.Equal(int64(workers*perWorker), st.FramesAnalyzed)
}

// =============================================================================
// Lifecycle edge cases
// =============================================================================

func TestStop_ForcesStuckSource(t *testing.T) {
	frames := newStuckSource()
	m, err := New(&scriptedDetector{}, attempt.NewInMemory(),
		WithJoinTimeout(30*time.Millisecond),
		WithSourceFactory(func(id.SessionID, models.ProctoringConfig) Sources {
			return Sources{Frames: frames, Audio: &idleAudio{}}
		}),
	)
	require.NoError(t, err)

	st, err := m.Start(context.Background(), StartRequest{UserID: id.UserID(newUUID()), TestSessionID: id.TestSessionID(newUUID())})
	require.NoError(t, err)

	record, stopped, err := m.Stop(context.Background(), st.SessionID)
	require.NoError(t, err)
	assert.True(t, stopped)
	assert.True(t, record.ForcedStop)
	assert.True(t, frames.closed())
}

func TestLoopPanicDegradesSession(t *testing.T) {
	det := &scriptedDetector{}
	det.setVideo(func(models.Frame) models.VideoSignals { panic("model crashed") })
	m, err := New(det, attempt.NewInMemory(),
		WithSourceFactory(func(id.SessionID, models.ProctoringConfig) Sources {
			return Sources{Frames: &oneShotFrames{}, Audio: &idleAudio{}}
		}),
	)
	require.NoError(t, err)

	st, err := m.Start(context.Background(), StartRequest{UserID: id.UserID(newUUID()), TestSessionID: id.TestSessionID(newUUID())})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		cur, _ := m.Status(st.SessionID)
		return cur.Degraded
	}, time.Second, 5*time.Millisecond)

	cur, ok := m.Status(st.SessionID)
	require.True(t, ok)
	assert.True(t, strings.Contains(cur.DegradedReason, "video loop panic"))
	assert.Equal(t, 100.0, cur.BehaviorScore)

	record, _, err := m.Stop(context.Background(), st.SessionID)
	require.NoError(t, err)
	assert.True(t, record.Degraded)
}

func TestSourceFailureDegradesSession(t *testing.T) {
	m, err := New(&scriptedDetector{}, attempt.NewInMemory(),
		WithSourceFactory(func(id.SessionID, models.ProctoringConfig) Sources {
			return Sources{Frames: &failingFrames{err: errors.New("camera unplugged")}, Audio: &idleAudio{}}
		}),
	)
	require.NoError(t, err)

	st, err := m.Start(context.Background(), StartRequest{UserID: id.UserID(newUUID()), TestSessionID: id.TestSessionID(newUUID())})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		cur, _ := m.Status(st.SessionID)
		return cur.Degraded
	}, time.Second, 5*time.Millisecond)

	cur, _ := m.Status(st.SessionID)
	assert.Contains(t, cur.DegradedReason, "camera unplugged")
	assert.True(t, dErrors.HasCode(m.PushFrame(st.SessionID, models.Frame{}), dErrors.CodeBadRequest))
}

func TestStop_ComplianceFailureStillReleases(t *testing.T) {
	failing := publisher.NewPublisher(failingSink{})
	m, err := New(&scriptedDetector{}, attempt.NewInMemory(), WithComplianceAuditor(failing))
	require.NoError(t, err)

	testSessionID := id.TestSessionID(newUUID())
	st, err := m.Start(context.Background(), StartRequest{UserID: id.UserID(newUUID()), TestSessionID: testSessionID})
	require.NoError(t, err)

	record, stopped, err := m.Stop(context.Background(), st.SessionID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	assert.True(t, stopped)
	assert.NotNil(t, record)

	_, live := m.ActiveSession(testSessionID)
	assert.False(t, live)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(nil, attempt.NewInMemory())
	assert.Error(t, err)
	_, err = New(&scriptedDetector{}, nil)
	assert.Error(t, err)
}

func TestStatusOfUnknownSession(t *testing.T) {
	m, err := New(&scriptedDetector{}, attempt.NewInMemory())
	require.NoError(t, err)

	_, ok := m.Status(id.NewSessionID())
	assert.False(t, ok)

	_, err = m.ProcessAudio(context.Background(), id.NewSessionID(), models.AudioChunk{})
	assert.True(t, errors.Is(err, models.ErrSessionNotFound))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestSetDefaultConfig_AppliesToNewSessionsOnly(t *testing.T) {
	m, err := New(&scriptedDetector{}, attempt.NewInMemory())
	require.NoError(t, err)
	ctx := context.Background()

	start := func() id.SessionID {
		st, err := m.Start(ctx, StartRequest{UserID: id.UserID(newUUID()), TestSessionID: id.TestSessionID(newUUID())})
		require.NoError(t, err)
		return st.SessionID
	}

	before := start()
	cfg := models.DefaultConfig()
	cfg.FaceAbsenceTimeout = 2
	require.NoError(t, m.SetDefaultConfig(cfg))
	after := start()

	bad := cfg
	bad.DebounceThreshold = 0
	assert.ErrorIs(t, m.SetDefaultConfig(bad), models.ErrConfigInvalid)
	assert.Equal(t, 2, m.DefaultConfig().FaceAbsenceTimeout)

	oldRecord, _, err := m.Stop(ctx, before)
	require.NoError(t, err)
	newRecord, _, err := m.Stop(ctx, after)
	require.NoError(t, err)
	assert.Equal(t, 5, oldRecord.Config.FaceAbsenceTimeout)
	assert.Equal(t, 2, newRecord.Config.FaceAbsenceTimeout)
}
