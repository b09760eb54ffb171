// Package e2e drives a running proctor server through the public HTTP API.
// Set E2E_BASE_URL (and JWT_SIGNING_KEY when the server uses a non-default
// key) and run `go test ./...` from this directory.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultSigningKey = "dev-secret-key-change-in-production"

// TestContext carries per-scenario state between steps.
type TestContext struct {
	BaseURL    string
	HTTPClient *http.Client

	signingKey string
	issuer     string
	audience   string

	token        string
	userID       string
	testSession  string
	sessionID    string
	lastStatus   int
	lastResponse map[string]any
	lastBody     []byte
}

func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL:    os.Getenv("E2E_BASE_URL"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		signingKey: envOr("JWT_SIGNING_KEY", defaultSigningKey),
		issuer:     envOr("JWT_ISSUER", "exam-service"),
		audience:   envOr("JWT_AUDIENCE", "proctor"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Reset clears scenario state and allocates fresh candidate identifiers.
func (tc *TestContext) Reset() {
	tc.token = ""
	tc.userID = uuid.NewString()
	tc.testSession = uuid.NewString()
	tc.sessionID = ""
	tc.lastStatus = 0
	tc.lastResponse = nil
	tc.lastBody = nil
}

// MintToken signs a short-lived access token the way the exam service would.
func (tc *TestContext) MintToken(subject string, roles ...string) error {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   subject,
		"roles": roles,
		"iss":   tc.issuer,
		"aud":   []string{tc.audience},
		"iat":   now.Unix(),
		"exp":   now.Add(10 * time.Minute).Unix(),
		"jti":   uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(tc.signingKey))
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	tc.token = signed
	return nil
}

func (tc *TestContext) ClearToken() { tc.token = "" }

func (tc *TestContext) UserID() string        { return tc.userID }
func (tc *TestContext) TestSessionID() string { return tc.testSession }
func (tc *TestContext) SessionID() string     { return tc.sessionID }
func (tc *TestContext) SetSessionID(id string) {
	tc.sessionID = id
}

func (tc *TestContext) Do(method, path string, body any) error {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	tc.lastResponse = nil
	if len(tc.lastBody) > 0 {
		// Non-object bodies leave lastResponse nil; field steps then fail.
		_ = json.Unmarshal(tc.lastBody, &tc.lastResponse)
	}
	return nil
}

func (tc *TestContext) LastStatus() int { return tc.lastStatus }

func (tc *TestContext) LastBody() string { return string(tc.lastBody) }

// ResponseField returns a top-level field of the last JSON response.
func (tc *TestContext) ResponseField(field string) (any, error) {
	if tc.lastResponse == nil {
		return nil, fmt.Errorf("last response is not a JSON object: %s", tc.lastBody)
	}
	v, ok := tc.lastResponse[field]
	if !ok {
		return nil, fmt.Errorf("field %q missing from response: %s", field, tc.lastBody)
	}
	return v, nil
}
