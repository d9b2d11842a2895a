// Package artifact persists generated image and video payloads to the data
// directory and hands back the locators stored in a design's history.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/niadesignwork-svg/stagecraft/pkg/models"
)

// Saver writes artifacts under baseDir, one subdirectory per design.
type Saver struct {
	baseDir string
}

func NewSaver(baseDir string) *Saver {
	return &Saver{baseDir: baseDir}
}

// SaveImage writes an image artifact for a design and returns its locator.
func (s *Saver) SaveImage(designID string, img *models.ImageArtifact) (string, error) {
	if len(img.Data) == 0 {
		return "", fmt.Errorf("no image data to save")
	}
	return s.write(designID, img.Data, extForMIME(img.MIMEType, ".png"))
}

// SaveVideo writes a video artifact for a design and returns its locator.
func (s *Saver) SaveVideo(designID string, vid *models.VideoArtifact) (string, error) {
	if len(vid.Data) == 0 {
		return "", fmt.Errorf("no video data to save")
	}
	return s.write(designID, vid.Data, extForMIME(vid.MIMEType, ".mp4"))
}

// Load reads an artifact back by locator, recovering its mime type from the
// file extension.
func (s *Saver) Load(locator string) (*models.ImageArtifact, error) {
	data, err := os.ReadFile(locator)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return &models.ImageArtifact{MIMEType: mimeForExt(filepath.Ext(locator)), Data: data}, nil
}

// Export copies the artifact at locator to destPath.
func (s *Saver) Export(locator, destPath string) error {
	data, err := os.ReadFile(locator)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// RemoveDesignDir deletes every artifact stored for a design.
func (s *Saver) RemoveDesignDir(designID string) error {
	return os.RemoveAll(filepath.Join(s.baseDir, designID))
}

func (s *Saver) write(designID string, data []byte, ext string) (string, error) {
	dir := filepath.Join(s.baseDir, designID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create artifact directory: %w", err)
	}

	path := filepath.Join(dir, uuid.New().String()+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

func extForMIME(mime, fallback string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	}
	return fallback
}

func mimeForExt(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	}
	return "application/octet-stream"
}
