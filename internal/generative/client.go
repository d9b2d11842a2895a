// Package generative defines the boundary to the external image/text/video
// synthesis API. The rest of the system depends only on the Client interface;
// the concrete implementation lives in the gemini subpackage.
package generative

import (
	"context"
	"errors"

	"github.com/niadesignwork-svg/stagecraft/pkg/models"
)

var (
	ErrAPIKeyRequired  = errors.New("API key is required")
	ErrMissingArtifact = errors.New("response contained no artifact")
	ErrVideoNotReady   = errors.New("video operation did not complete")
)

// Viewpoint tags accepted by ChangeViewpoint.
const (
	ViewpointFront     = "front"
	ViewpointAudience  = "audience"
	ViewpointAerial    = "aerial"
	ViewpointStageLeft = "stage-left"
	ViewpointCloseUp   = "close-up"
)

// Client is the generative API consumed by the batch coordinator and the
// studio controller. Images travel as mime-typed bytes; a mask, when given,
// is a PNG binary mask where white marks the edit region and black the
// preserved region. Every call is a pure request with no side effect on
// failure, so callers may safely retry.
type Client interface {
	// GenerateImage produces one image for the configuration. The batch
	// coordinator issues one call per requested image.
	GenerateImage(ctx context.Context, cfg *models.StageConfig) (*models.ImageArtifact, error)

	// GenerateText produces the design metadata (title, summary, narrative,
	// technical notes) for a configuration, once per generation batch.
	GenerateText(ctx context.Context, cfg *models.StageConfig) (*models.DesignMetadata, error)

	// EditImage applies an instruction to an image, optionally constrained by
	// a mask.
	EditImage(ctx context.Context, img *models.ImageArtifact, instruction string, mask *models.ImageArtifact) (*models.ImageArtifact, error)

	// ChangeViewpoint re-renders the scene from the given viewpoint tag.
	ChangeViewpoint(ctx context.Context, img *models.ImageArtifact, viewpoint string) (*models.ImageArtifact, error)

	// Upscale produces a higher-resolution version of the image.
	Upscale(ctx context.Context, img *models.ImageArtifact) (*models.ImageArtifact, error)

	// GenerateVariant produces count sibling interpretations of the image.
	GenerateVariant(ctx context.Context, img *models.ImageArtifact, count int) ([]*models.ImageArtifact, error)

	// GenerateVideo animates the image. The call is long-running: the
	// implementation polls the operation handle until done and resolves the
	// downloaded artifact.
	GenerateVideo(ctx context.Context, img *models.ImageArtifact) (*models.VideoArtifact, error)
}
