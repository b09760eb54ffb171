package detector

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proctor/internal/proctoring/models"
)

type faceFunc func(context.Context, models.Frame) ([]models.Face, error)

func (f faceFunc) DetectFaces(ctx context.Context, frame models.Frame) ([]models.Face, error) {
	return f(ctx, frame)
}

type objectFunc func(context.Context, models.Frame) ([]models.DetectedObject, error)

func (f objectFunc) DetectObjects(ctx context.Context, frame models.Frame) ([]models.DetectedObject, error) {
	return f(ctx, frame)
}

type poseFunc func(context.Context, models.Frame) (*models.Pose, error)

func (f poseFunc) EstimatePose(ctx context.Context, frame models.Frame) (*models.Pose, error) {
	return f(ctx, frame)
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestComposite_MergesSubModels(t *testing.T) {
	c := NewComposite(
		faceFunc(func(context.Context, models.Frame) ([]models.Face, error) {
			return []models.Face{{Confidence: 0.95}}, nil
		}),
		WithObjectDetector(objectFunc(func(context.Context, models.Frame) ([]models.DetectedObject, error) {
			return []models.DetectedObject{{Class: "cell phone", Confidence: 0.6}}, nil
		})),
		WithPoseEstimator(poseFunc(func(context.Context, models.Frame) (*models.Pose, error) {
			return &models.Pose{Yaw: 40}, nil
		})),
		WithCompositeLogger(discard()),
	)

	det, err := c.Detect(context.Background(), models.Frame{Data: []byte{1}})
	require.NoError(t, err)
	assert.Len(t, det.Faces, 1)
	assert.Len(t, det.Objects, 1)
	require.NotNil(t, det.Pose)
	assert.InDelta(t, 40.0, det.Pose.Yaw, 1e-9)
}

func TestComposite_OptionalModelFailuresAreTolerated(t *testing.T) {
	c := NewComposite(
		faceFunc(func(context.Context, models.Frame) ([]models.Face, error) {
			return []models.Face{{Confidence: 0.8}}, nil
		}),
		WithObjectDetector(objectFunc(func(context.Context, models.Frame) ([]models.DetectedObject, error) {
			return nil, errors.New("object model offline")
		})),
		WithPoseEstimator(poseFunc(func(context.Context, models.Frame) (*models.Pose, error) {
			return nil, errors.New("pose model offline")
		})),
		WithCompositeLogger(discard()),
	)

	det, err := c.Detect(context.Background(), models.Frame{Data: []byte{1}})
	require.NoError(t, err)
	assert.Len(t, det.Faces, 1)
	assert.Empty(t, det.Objects)
	assert.Nil(t, det.Pose)
}

func TestComposite_FaceFailureFailsDetection(t *testing.T) {
	c := NewComposite(faceFunc(func(context.Context, models.Frame) ([]models.Face, error) {
		return nil, errors.New("face model offline")
	}))

	_, err := c.Detect(context.Background(), models.Frame{Data: []byte{1}})
	assert.ErrorContains(t, err, "face model offline")
}

func TestRemoteModel_Detect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/detect", r.URL.Path)
		var req detectRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "AQID", req.Image)
		_ = json.NewEncoder(w).Encode(models.Detection{
			Faces: []models.Face{{Confidence: 0.88}},
			Pose:  &models.Pose{Yaw: 5, Pitch: 1},
		})
	}))
	defer srv.Close()

	m := NewRemoteModel(srv.URL+"/", time.Second)
	det, err := m.Detect(context.Background(), models.Frame{Data: []byte{1, 2, 3}})
	require.NoError(t, err)
	require.Len(t, det.Faces, 1)
	assert.InDelta(t, 0.88, det.Faces[0].Confidence, 1e-9)
	require.NotNil(t, det.Pose)
}

func TestRemoteModel_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model warming up", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m := NewRemoteModel(srv.URL, time.Second)
	_, err := m.Analyze(context.Background(), models.AudioChunk{Samples: []float32{0.1}, SampleRate: 8000})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model warming up")
}
