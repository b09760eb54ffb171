// Package proctoring holds the session lifecycle and certificate steps.
package proctoring

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

type TestContext interface {
	Do(method, path string, body any) error
	ResponseField(field string) (any, error)
	UserID() string
	TestSessionID() string
	SessionID() string
	SetSessionID(id string)
}

func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &proctoringSteps{tc: tc}

	ctx.Step(`^I start a proctoring session for a new candidate$`, s.startSession)
	ctx.Step(`^I start another session for the same candidate$`, s.startSecondSession)
	ctx.Step(`^I save the session id$`, s.saveSessionID)
	ctx.Step(`^I report a "([^"]*)" event$`, s.reportEvent)
	ctx.Step(`^I request the session status$`, s.requestStatus)
	ctx.Step(`^I stop the session$`, s.stopSession)
	ctx.Step(`^I request a certificate with test score (\d+(?:\.\d+)?)$`, s.requestCertificate)
	ctx.Step(`^I record an override score of (\d+(?:\.\d+)?) with reason "([^"]*)"$`, s.recordOverride)
}

type proctoringSteps struct {
	tc TestContext
}

func (s *proctoringSteps) startSession(context.Context) error {
	return s.tc.Do(http.MethodPost, "/proctoring/sessions", map[string]any{
		"user_id":           s.tc.UserID(),
		"test_session_id":   s.tc.TestSessionID(),
		"client_user_agent": "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0",
		"client_ip":         "198.51.100.20",
	})
}

func (s *proctoringSteps) startSecondSession(ctx context.Context) error {
	if err := s.saveSessionID(ctx); err != nil {
		return err
	}
	return s.tc.Do(http.MethodPost, "/proctoring/sessions", map[string]any{
		"user_id":         s.tc.UserID(),
		"test_session_id": s.tc.TestSessionID(),
	})
}

func (s *proctoringSteps) saveSessionID(context.Context) error {
	v, err := s.tc.ResponseField("session_id")
	if err != nil {
		return err
	}
	id, ok := v.(string)
	if !ok || id == "" {
		return fmt.Errorf("session_id is not a string: %v", v)
	}
	s.tc.SetSessionID(id)
	return nil
}

func (s *proctoringSteps) sessionPath(suffix string) (string, error) {
	if s.tc.SessionID() == "" {
		return "", errors.New("no session id saved")
	}
	return "/proctoring/sessions/" + s.tc.SessionID() + suffix, nil
}

func (s *proctoringSteps) reportEvent(_ context.Context, signal string) error {
	path, err := s.sessionPath("/events")
	if err != nil {
		return err
	}
	return s.tc.Do(http.MethodPost, path, map[string]any{"type": signal})
}

func (s *proctoringSteps) requestStatus(context.Context) error {
	path, err := s.sessionPath("")
	if err != nil {
		return err
	}
	return s.tc.Do(http.MethodGet, path, nil)
}

func (s *proctoringSteps) stopSession(context.Context) error {
	path, err := s.sessionPath("")
	if err != nil {
		return err
	}
	return s.tc.Do(http.MethodDelete, path, nil)
}

func (s *proctoringSteps) requestCertificate(_ context.Context, score float64) error {
	return s.tc.Do(http.MethodPost, "/proctoring/attempts/"+s.tc.TestSessionID()+"/certificate",
		map[string]any{"test_score": score})
}

func (s *proctoringSteps) recordOverride(_ context.Context, score float64, reason string) error {
	return s.tc.Do(http.MethodPut, "/proctoring/attempts/"+s.tc.TestSessionID()+"/override",
		map[string]any{"score": score, "reason": reason})
}
