package detector

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"proctor/internal/proctoring/models"
)

// RemoteModel calls an HTTP inference service. It implements VideoModel
// against POST {base}/v1/detect and AudioAnalyzer against POST {base}/v1/audio.
type RemoteModel struct {
	baseURL    string
	httpClient *http.Client
}

func NewRemoteModel(baseURL string, timeout time.Duration) *RemoteModel {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RemoteModel{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type detectRequest struct {
	Image  string `json:"image"`
	Format string `json:"format,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

type audioRequest struct {
	Samples    []float32 `json:"samples"`
	SampleRate int       `json:"sample_rate"`
}

func (m *RemoteModel) Detect(ctx context.Context, frame models.Frame) (*models.Detection, error) {
	var det models.Detection
	err := m.post(ctx, "/v1/detect", detectRequest{
		Image:  base64.StdEncoding.EncodeToString(frame.Data),
		Format: frame.Format,
		Width:  frame.Width,
		Height: frame.Height,
	}, &det)
	if err != nil {
		return nil, err
	}
	return &det, nil
}

func (m *RemoteModel) Analyze(ctx context.Context, chunk models.AudioChunk) (*models.AudioAnalysis, error) {
	var res models.AudioAnalysis
	err := m.post(ctx, "/v1/audio", audioRequest{
		Samples:    chunk.Samples,
		SampleRate: chunk.SampleRate,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (m *RemoteModel) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call inference service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("inference service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("decode inference response: %w", err)
	}
	return nil
}
