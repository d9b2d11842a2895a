// Package prompt assembles the instruction strings sent to the generative
// API. Assembly is deterministic string concatenation; all creative decisions
// live in the user's StageConfig.
package prompt

import (
	"fmt"
	"strings"

	"github.com/niadesignwork-svg/stagecraft/pkg/models"
)

// Image builds the image-generation prompt for a stage configuration.
func Image(cfg *models.StageConfig) string {
	var b strings.Builder
	b.WriteString("Photorealistic wide shot of a concert stage design. ")
	b.WriteString("Visual elements: ")
	b.WriteString(cfg.Elements)
	b.WriteString(".")
	if cfg.Palette != "" {
		fmt.Fprintf(&b, " Color palette: %s.", cfg.Palette)
	}
	if cfg.Vibe != "" {
		fmt.Fprintf(&b, " Overall vibe: %s.", cfg.Vibe)
	}
	if cfg.Mechanics != "" {
		fmt.Fprintf(&b, " Stage mechanics in view: %s.", cfg.Mechanics)
	}
	if cfg.Notes != "" {
		fmt.Fprintf(&b, " Additional direction: %s.", cfg.Notes)
	}
	b.WriteString(" Professional concert lighting, full rig visible, no text or watermarks.")
	return b.String()
}

// Text builds the metadata-generation prompt. The model is instructed to
// return a single JSON object matching models.DesignMetadata.
func Text(cfg *models.StageConfig) string {
	var b strings.Builder
	b.WriteString("You are a concert production designer. For the stage concept below, ")
	b.WriteString("return a JSON object with the fields: ")
	b.WriteString(`"title" (a short evocative name), `)
	b.WriteString(`"summary" (two sentences describing the design), `)
	b.WriteString(`"narrative" (how the stage transforms over the show), and `)
	b.WriteString(`"technical" (an object with "lighting", "video" and "effects" production notes). `)
	b.WriteString("Return only the JSON object.\n\nConcept: ")
	b.WriteString(Image(cfg))
	return b.String()
}

// Edit builds the instruction for a masked or unmasked image edit.
func Edit(instruction string, hasMask bool) string {
	if hasMask {
		return "Apply this change only inside the white region of the provided mask, " +
			"preserving the black region exactly: " + instruction
	}
	return "Modify the stage design as follows, keeping composition and lighting consistent: " + instruction
}

// Viewpoint builds the instruction for a camera viewpoint change.
func Viewpoint(tag string) string {
	return fmt.Sprintf("Re-render this exact stage design from a %s viewpoint. "+
		"Keep every set piece, color and lighting cue identical.", tag)
}

// Upscale builds the instruction for resolution enhancement.
func Upscale() string {
	return "Recreate this image at the highest possible detail and resolution, " +
		"changing nothing about the design itself."
}

// Variant builds the instruction for sibling variations of a design.
func Variant() string {
	return "Produce a fresh interpretation of this stage concept: same venue, " +
		"same mood and palette, but a distinct arrangement of set pieces and rigging."
}

// Video builds the instruction for animating a design.
func Video() string {
	return "Animate this concert stage: moving lights sweep the set, video walls " +
		"cycle content, haze drifts, and the camera pushes in slowly from front of house."
}
