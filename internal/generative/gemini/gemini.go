// Package gemini implements the generative boundary on the Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/niadesignwork-svg/stagecraft/internal/generative"
	"github.com/niadesignwork-svg/stagecraft/internal/prompt"
	"github.com/niadesignwork-svg/stagecraft/pkg/models"
)

const (
	defaultImageModel = "gemini-2.5-flash-image"
	defaultTextModel  = "gemini-2.5-flash"
	defaultVideoModel = "veo-3.0-generate-001"

	defaultPollInterval = 5 * time.Second
	maxPollAttempts     = 120 // 10 minutes at the default interval
)

// Config configures the Gemini client.
type Config struct {
	APIKey       string
	ImageModel   string
	TextModel    string
	VideoModel   string
	PollInterval time.Duration
}

// Client talks to the Gemini API. It implements generative.Client.
type Client struct {
	api          *genai.Client
	imageModel   string
	textModel    string
	videoModel   string
	pollInterval time.Duration
	logger       *slog.Logger
}

var _ generative.Client = (*Client)(nil)

func New(ctx context.Context, cfg *Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, generative.ErrAPIKeyRequired
	}

	api, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	c := &Client{
		api:          api,
		imageModel:   cfg.ImageModel,
		textModel:    cfg.TextModel,
		videoModel:   cfg.VideoModel,
		pollInterval: cfg.PollInterval,
		logger:       logger,
	}
	if c.imageModel == "" {
		c.imageModel = defaultImageModel
	}
	if c.textModel == "" {
		c.textModel = defaultTextModel
	}
	if c.videoModel == "" {
		c.videoModel = defaultVideoModel
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}
	return c, nil
}

func (c *Client) GenerateImage(ctx context.Context, cfg *models.StageConfig) (*models.ImageArtifact, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt.Image(cfg))}
	return c.generateImageFromParts(ctx, parts)
}

func (c *Client) EditImage(ctx context.Context, img *models.ImageArtifact, instruction string, mask *models.ImageArtifact) (*models.ImageArtifact, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(img.Data, img.MIMEType),
	}
	if mask != nil {
		parts = append(parts, genai.NewPartFromBytes(mask.Data, mask.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(prompt.Edit(instruction, mask != nil)))
	return c.generateImageFromParts(ctx, parts)
}

func (c *Client) ChangeViewpoint(ctx context.Context, img *models.ImageArtifact, viewpoint string) (*models.ImageArtifact, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(img.Data, img.MIMEType),
		genai.NewPartFromText(prompt.Viewpoint(viewpoint)),
	}
	return c.generateImageFromParts(ctx, parts)
}

func (c *Client) Upscale(ctx context.Context, img *models.ImageArtifact) (*models.ImageArtifact, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(img.Data, img.MIMEType),
		genai.NewPartFromText(prompt.Upscale()),
	}
	return c.generateImageFromParts(ctx, parts)
}

func (c *Client) GenerateVariant(ctx context.Context, img *models.ImageArtifact, count int) ([]*models.ImageArtifact, error) {
	variants := make([]*models.ImageArtifact, 0, count)
	for i := 0; i < count; i++ {
		parts := []*genai.Part{
			genai.NewPartFromBytes(img.Data, img.MIMEType),
			genai.NewPartFromText(prompt.Variant()),
		}
		v, err := c.generateImageFromParts(ctx, parts)
		if err != nil {
			return variants, err
		}
		variants = append(variants, v)
	}
	return variants, nil
}

func (c *Client) GenerateText(ctx context.Context, cfg *models.StageConfig) (*models.DesignMetadata, error) {
	resp, err := c.api.Models.GenerateContent(ctx, c.textModel,
		genai.Text(prompt.Text(cfg)),
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, classify(err)
	}
	if err := blocked(resp); err != nil {
		return nil, err
	}

	raw := strings.TrimSpace(resp.Text())
	if raw == "" {
		return nil, fmt.Errorf("%w: empty text response", generative.ErrMissingArtifact)
	}

	var meta models.DesignMetadata
	if err := json.Unmarshal([]byte(stripFences(raw)), &meta); err != nil {
		return nil, fmt.Errorf("%w: parse metadata: %v", models.ErrUpstream, err)
	}
	return &meta, nil
}

// generateImageFromParts runs one image-producing call and extracts the first
// inline image from the response.
func (c *Client) generateImageFromParts(ctx context.Context, parts []*genai.Part) (*models.ImageArtifact, error) {
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := c.api.Models.GenerateContent(ctx, c.imageModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return nil, classify(err)
	}
	return extractImage(resp)
}

// extractImage pulls the first inline image artifact out of a response.
func extractImage(resp *genai.GenerateContentResponse) (*models.ImageArtifact, error) {
	if err := blocked(resp); err != nil {
		return nil, err
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &models.ImageArtifact{
					MIMEType: part.InlineData.MIMEType,
					Data:     part.InlineData.Data,
				}, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: response had no inline image", generative.ErrMissingArtifact)
}

// blocked reports a content-filter rejection carried inside a response.
func blocked(resp *genai.GenerateContentResponse) error {
	if resp == nil {
		return fmt.Errorf("%w: nil response", models.ErrUpstream)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return fmt.Errorf("%w: %s", models.ErrContentRejected, resp.PromptFeedback.BlockReason)
	}
	for _, cand := range resp.Candidates {
		if cand.FinishReason == genai.FinishReasonSafety ||
			cand.FinishReason == genai.FinishReasonProhibitedContent {
			return fmt.Errorf("%w: %s", models.ErrContentRejected, cand.FinishReason)
		}
	}
	return nil
}

// classify maps a transport-level genai error onto the error taxonomy.
// Rate-limit failures keep their shape so the retry policy can see them.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429:
			return fmt.Errorf("%w: %s", models.ErrRateLimited, apiErr.Message)
		case strings.Contains(strings.ToLower(apiErr.Message), "safety"),
			strings.Contains(strings.ToLower(apiErr.Message), "blocked"):
			return fmt.Errorf("%w: %s", models.ErrContentRejected, apiErr.Message)
		}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "quota") || strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "429") {
		return fmt.Errorf("%w: %v", models.ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %v", models.ErrUpstream, err)
}

// stripFences removes a markdown code fence the text model sometimes wraps
// JSON output in despite the response mime type.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
