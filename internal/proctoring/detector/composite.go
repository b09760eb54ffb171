package detector

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"proctor/internal/proctoring/models"
)

type FaceDetector interface {
	DetectFaces(ctx context.Context, frame models.Frame) ([]models.Face, error)
}

type ObjectDetector interface {
	DetectObjects(ctx context.Context, frame models.Frame) ([]models.DetectedObject, error)
}

type PoseEstimator interface {
	EstimatePose(ctx context.Context, frame models.Frame) (*models.Pose, error)
}

// Composite is a VideoModel assembled from independent sub-models that run
// in parallel on each frame. Faces are required: a face model failure fails
// the whole detection. Objects and pose are optional evidence; their
// failures are logged and the reading is returned without them.
type Composite struct {
	faces   FaceDetector
	objects ObjectDetector
	pose    PoseEstimator
	logger  *slog.Logger
}

type CompositeOption func(*Composite)

func WithObjectDetector(d ObjectDetector) CompositeOption {
	return func(c *Composite) { c.objects = d }
}

func WithPoseEstimator(p PoseEstimator) CompositeOption {
	return func(c *Composite) { c.pose = p }
}

func WithCompositeLogger(logger *slog.Logger) CompositeOption {
	return func(c *Composite) { c.logger = logger }
}

func NewComposite(faces FaceDetector, opts ...CompositeOption) *Composite {
	c := &Composite{faces: faces, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Composite) Detect(ctx context.Context, frame models.Frame) (*models.Detection, error) {
	var (
		det models.Detection
		g   errgroup.Group
	)

	g.Go(func() error {
		faces, err := c.faces.DetectFaces(ctx, frame)
		if err != nil {
			return err
		}
		det.Faces = faces
		return nil
	})
	if c.objects != nil {
		g.Go(func() error {
			objects, err := c.objects.DetectObjects(ctx, frame)
			if err != nil {
				c.logger.WarnContext(ctx, "object detection failed", "error", err)
				return nil
			}
			det.Objects = objects
			return nil
		})
	}
	if c.pose != nil {
		g.Go(func() error {
			pose, err := c.pose.EstimatePose(ctx, frame)
			if err != nil {
				c.logger.WarnContext(ctx, "pose estimation failed", "error", err)
				return nil
			}
			det.Pose = pose
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &det, nil
}
