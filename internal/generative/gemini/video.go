package gemini

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/niadesignwork-svg/stagecraft/internal/generative"
	"github.com/niadesignwork-svg/stagecraft/internal/prompt"
	"github.com/niadesignwork-svg/stagecraft/pkg/models"
)

// GenerateVideo animates the image through the Veo long-running operation:
// start the job, poll the operation handle until its done flag is set, then
// download the produced video.
func (c *Client) GenerateVideo(ctx context.Context, img *models.ImageArtifact) (*models.VideoArtifact, error) {
	op, err := c.api.Models.GenerateVideos(ctx, c.videoModel, prompt.Video(), &genai.Image{
		ImageBytes: img.Data,
		MIMEType:   img.MIMEType,
	}, nil)
	if err != nil {
		return nil, classify(err)
	}

	op, err = c.pollVideoOperation(ctx, op)
	if err != nil {
		return nil, err
	}

	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		return nil, fmt.Errorf("%w: operation completed with no video", generative.ErrMissingArtifact)
	}

	video := op.Response.GeneratedVideos[0]
	if len(video.Video.VideoBytes) == 0 {
		if _, err := c.api.Files.Download(ctx, video.Video, nil); err != nil {
			return nil, fmt.Errorf("%w: download video: %v", models.ErrUpstream, err)
		}
	}

	mime := video.Video.MIMEType
	if mime == "" {
		mime = "video/mp4"
	}
	return &models.VideoArtifact{MIMEType: mime, Data: video.Video.VideoBytes}, nil
}

func (c *Client) pollVideoOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < maxPollAttempts; attempt++ {
		if op.Done {
			return op, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		next, err := c.api.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return nil, classify(err)
		}
		op = next

		c.logger.Debug("polling video operation", "name", op.Name, "done", op.Done, "attempt", attempt+1)
	}

	return nil, fmt.Errorf("%w: exceeded maximum poll attempts", generative.ErrVideoNotReady)
}
