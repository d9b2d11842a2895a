// Package batch turns "generate N images" into 1..N produced artifacts,
// tolerating partial failure. Calls run strictly sequentially with a fixed
// pause between them; this is a robustness trade-off against the external
// rate limiter, not a performance choice.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/niadesignwork-svg/stagecraft/internal/generative"
	"github.com/niadesignwork-svg/stagecraft/internal/retry"
	"github.com/niadesignwork-svg/stagecraft/pkg/models"
)

// DefaultPause is the fixed delay between consecutive generation calls.
const DefaultPause = time.Second

// Coordinator orchestrates a generation batch against the external API.
type Coordinator struct {
	client generative.Client
	policy *retry.Policy
	pause  time.Duration
	logger *slog.Logger
}

func NewCoordinator(client generative.Client, policy *retry.Policy, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		client: client,
		policy: policy,
		pause:  DefaultPause,
		logger: logger,
	}
}

// SetPause overrides the inter-call pause. Tests use a short pause.
func (c *Coordinator) SetPause(d time.Duration) { c.pause = d }

// Generate runs up to n image generations for cfg, each wrapped in the retry
// policy. A call that fails permanently with a non-rate-limit error is logged
// and skipped. A rate-limit exhaustion stops the loop early; whatever has
// succeeded so far is still returned. Only a batch with zero produced images
// fails, with ErrNoArtifacts.
func (c *Coordinator) Generate(ctx context.Context, cfg *models.StageConfig, n int) ([]*models.ImageArtifact, error) {
	if err := models.ValidateCount(n); err != nil {
		return nil, err
	}

	produced := make([]*models.ImageArtifact, 0, n)
	var lastErr error

	for i := 0; i < n; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return produced, ctx.Err()
			case <-time.After(c.pause):
			}
		}

		img, err := retry.Do(ctx, c.policy, "generate image", func(ctx context.Context) (*models.ImageArtifact, error) {
			return c.client.GenerateImage(ctx, cfg)
		})
		if err != nil {
			lastErr = err
			if retry.IsRateLimit(err) {
				c.logger.Warn("batch stopped early: rate limit exhausted",
					"produced", len(produced), "requested", n)
				break
			}
			c.logger.Warn("generation call failed, continuing batch",
				"call", i+1, "requested", n, "error", err)
			continue
		}
		produced = append(produced, img)
	}

	if len(produced) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrNoArtifacts, lastErr)
		}
		return nil, models.ErrNoArtifacts
	}
	return produced, nil
}

// Variants runs a sibling-variant batch off an existing image with the same
// partial-failure semantics as Generate.
func (c *Coordinator) Variants(ctx context.Context, img *models.ImageArtifact, n int) ([]*models.ImageArtifact, error) {
	if err := models.ValidateCount(n); err != nil {
		return nil, err
	}

	produced := make([]*models.ImageArtifact, 0, n)
	var lastErr error

	for i := 0; i < n; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return produced, ctx.Err()
			case <-time.After(c.pause):
			}
		}

		v, err := retry.Do(ctx, c.policy, "generate variant", func(ctx context.Context) (*models.ImageArtifact, error) {
			vs, err := c.client.GenerateVariant(ctx, img, 1)
			if err != nil {
				return nil, err
			}
			if len(vs) == 0 {
				return nil, generative.ErrMissingArtifact
			}
			return vs[0], nil
		})
		if err != nil {
			lastErr = err
			if retry.IsRateLimit(err) {
				c.logger.Warn("variant batch stopped early: rate limit exhausted",
					"produced", len(produced), "requested", n)
				break
			}
			c.logger.Warn("variant call failed, continuing batch",
				"call", i+1, "requested", n, "error", err)
			continue
		}
		produced = append(produced, v)
	}

	if len(produced) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrNoArtifacts, lastErr)
		}
		return nil, models.ErrNoArtifacts
	}
	return produced, nil
}

// Metadata fetches the descriptive text for a batch, retry-wrapped. Metadata
// is generated once per batch and shared by every candidate.
func (c *Coordinator) Metadata(ctx context.Context, cfg *models.StageConfig) (*models.DesignMetadata, error) {
	return retry.Do(ctx, c.policy, "generate text", func(ctx context.Context) (*models.DesignMetadata, error) {
		return c.client.GenerateText(ctx, cfg)
	})
}
