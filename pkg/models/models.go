package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptyElements = errors.New("stage elements description cannot be empty")
	ErrInvalidCount  = errors.New("count must be at least 1")
	ErrCountTooLarge = errors.New("count exceeds maximum batch size")
)

// MaxBatchSize bounds a single generation batch.
const MaxBatchSize = 4

// ImageArtifact is a self-describing image payload. Callers must carry the
// mime type across every round trip to the generative API.
type ImageArtifact struct {
	MIMEType string
	Data     []byte
}

// VideoArtifact is a generated animation tied to a design's current image.
type VideoArtifact struct {
	MIMEType string
	Data     []byte
}

// StageConfig describes the concert stage concept being visualized.
type StageConfig struct {
	Elements  string // visual elements: set pieces, rigging, scenery
	Palette   string // color palette
	Vibe      string // mood tag, e.g. "industrial", "ethereal"
	Mechanics string // stage mechanics: lifts, turntables, flying rigs
	Notes     string // free-form extra direction
}

func NewStageConfig(elements string) *StageConfig {
	return &StageConfig{Elements: elements}
}

func (c *StageConfig) Validate() error {
	if c.Elements == "" {
		return ErrEmptyElements
	}
	return nil
}

// ValidateCount checks a requested batch size against the allowed range.
func ValidateCount(n int) error {
	if n < 1 {
		return ErrInvalidCount
	}
	if n > MaxBatchSize {
		return fmt.Errorf("%w: max %d, got %d", ErrCountTooLarge, MaxBatchSize, n)
	}
	return nil
}

// TechnicalNotes holds the structured production notes generated alongside a
// design.
type TechnicalNotes struct {
	Lighting string `json:"lighting,omitempty"`
	Video    string `json:"video,omitempty"`
	Effects  string `json:"effects,omitempty"`
}

// DesignMetadata is produced once per generation batch and carried forward
// unchanged by downstream edits unless explicitly regenerated.
type DesignMetadata struct {
	Title     string         `json:"title,omitempty"`
	Summary   string         `json:"summary,omitempty"`
	Narrative string         `json:"narrative,omitempty"`
	Technical TechnicalNotes `json:"technical,omitempty"`
}

// Design is the unit of persistence and display: one stage concept with its
// image revision history.
type Design struct {
	ID        string
	History   History
	Video     string // locator of the generated animation, if any
	Metadata  DesignMetadata
	Config    StageConfig
	CreatedAt time.Time
	Folder    string // free-floating label; empty means uncategorized
}

// PrimaryImage returns the locator of the currently active image state.
func (d *Design) PrimaryImage() string {
	return d.History.Current()
}

// SavedConcept is a reusable configuration preset, independent of any Design.
type SavedConcept struct {
	ID        string
	Title     string
	Elements  string
	Palette   string
	Vibe      string
	Mechanics string
	CreatedAt time.Time
}

// Config returns the stage configuration the preset captures.
func (c *SavedConcept) StageConfig() *StageConfig {
	return &StageConfig{
		Elements:  c.Elements,
		Palette:   c.Palette,
		Vibe:      c.Vibe,
		Mechanics: c.Mechanics,
	}
}
