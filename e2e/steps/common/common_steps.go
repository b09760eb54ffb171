// Package common holds steps shared by every feature: service reachability,
// caller identity and response assertions.
package common

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the scenario state these steps need.
type TestContext interface {
	Do(method, path string, body any) error
	LastStatus() int
	LastBody() string
	ResponseField(field string) (any, error)
	MintToken(subject string, roles ...string) error
	ClearToken()
}

func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &commonSteps{tc: tc}

	ctx.Step(`^the proctor service is running$`, s.serviceIsRunning)
	ctx.Step(`^I am authenticated as the exam service$`, s.asExamService)
	ctx.Step(`^I am authenticated as an admin reviewer$`, s.asAdmin)
	ctx.Step(`^I am not authenticated$`, s.anonymous)

	ctx.Step(`^the response status should be (\d+)$`, s.statusShouldBe)
	ctx.Step(`^the response error should be "([^"]*)"$`, s.errorShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, s.fieldShouldBeString)
	ctx.Step(`^the response field "([^"]*)" should be (true|false)$`, s.fieldShouldBeBool)
	ctx.Step(`^the response field "([^"]*)" should be (-?\d+(?:\.\d+)?)$`, s.fieldShouldBeNumber)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) serviceIsRunning(context.Context) error {
	if err := s.tc.Do(http.MethodGet, "/healthz", nil); err != nil {
		return err
	}
	if s.tc.LastStatus() != http.StatusOK {
		return fmt.Errorf("healthz returned %d: %s", s.tc.LastStatus(), s.tc.LastBody())
	}
	return nil
}

func (s *commonSteps) asExamService(context.Context) error {
	return s.tc.MintToken("exam-service", "exam_service")
}

func (s *commonSteps) asAdmin(context.Context) error {
	return s.tc.MintToken("reviewer-e2e", "admin")
}

func (s *commonSteps) anonymous(context.Context) error {
	s.tc.ClearToken()
	return nil
}

func (s *commonSteps) statusShouldBe(_ context.Context, want int) error {
	if got := s.tc.LastStatus(); got != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, got, s.tc.LastBody())
	}
	return nil
}

func (s *commonSteps) errorShouldBe(ctx context.Context, code string) error {
	return s.fieldShouldBeString(ctx, "error", code)
}

func (s *commonSteps) fieldShouldBeString(_ context.Context, field, want string) error {
	v, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	if got, ok := v.(string); !ok || got != want {
		return fmt.Errorf("field %q: expected %q, got %v", field, want, v)
	}
	return nil
}

func (s *commonSteps) fieldShouldBeBool(_ context.Context, field, want string) error {
	v, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	expected := want == "true"
	if got, ok := v.(bool); !ok || got != expected {
		return fmt.Errorf("field %q: expected %s, got %v", field, want, v)
	}
	return nil
}

func (s *commonSteps) fieldShouldBeNumber(_ context.Context, field, want string) error {
	expected, err := strconv.ParseFloat(want, 64)
	if err != nil {
		return err
	}
	v, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	got, ok := v.(float64)
	if !ok || got != expected {
		return fmt.Errorf("field %q: expected %v, got %v", field, expected, v)
	}
	return nil
}
