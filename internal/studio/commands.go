package studio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/niadesignwork-svg/stagecraft/internal/retry"
	"github.com/niadesignwork-svg/stagecraft/pkg/models"
)

// Generate runs a fresh generation batch. A single-image batch finalizes
// immediately; a multi-image batch parks its images as candidates and waits
// for SelectCandidate. Until then nothing touches the library.
func (c *Controller) Generate(ctx context.Context, cfg *models.StageConfig, count int) (*View, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := c.begin(opGenerating); err != nil {
		return nil, err
	}
	defer c.end()

	images, err := c.coordinator.Generate(ctx, cfg, count)
	if err != nil {
		return nil, err
	}

	meta, err := c.coordinator.Metadata(ctx, cfg)
	if err != nil {
		// Descriptive text is decoration next to the images; a titleless
		// design beats a failed batch.
		c.logger.Warn("metadata generation failed, continuing without", "error", err)
		meta = &models.DesignMetadata{}
	}

	c.library.LogOperation(ctx, "", "generate", len(images))

	if len(images) == 1 {
		return c.finalizeNew(ctx, images[0], cfg, meta)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = &selection{
		id:         uuid.New().String(),
		config:     *cfg,
		metadata:   *meta,
		candidates: images,
		createdAt:  time.Now(),
	}
	c.current = nil
	return c.view(""), nil
}

// finalizeNew persists a single produced image as a brand-new design and makes
// it current.
func (c *Controller) finalizeNew(ctx context.Context, img *models.ImageArtifact, cfg *models.StageConfig, meta *models.DesignMetadata) (*View, error) {
	id := uuid.New().String()
	locator, err := c.saver.SaveImage(id, img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistenceFailed, err)
	}

	d := &models.Design{
		ID:        id,
		History:   models.NewHistory(locator),
		Metadata:  *meta,
		Config:    *cfg,
		CreatedAt: time.Now(),
	}

	warning := c.persistIfAutosave(ctx, d)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = d
	c.selection = nil
	return c.view(warning), nil
}

// SelectCandidate promotes candidate i: the image is upscaled, the design gets
// a fresh identity with a single-entry history, and the remaining candidates
// are discarded. On failure the candidate batch stays intact for another try.
func (c *Controller) SelectCandidate(ctx context.Context, i int) (*View, error) {
	c.mu.Lock()
	sel := c.selection
	c.mu.Unlock()
	if sel == nil {
		return nil, ErrNoSelection
	}
	if i < 0 || i >= len(sel.candidates) {
		return nil, fmt.Errorf("candidate index %d out of range [0,%d)", i, len(sel.candidates))
	}
	if err := c.begin(opEditing); err != nil {
		return nil, err
	}
	defer c.end()

	upscaled, err := retry.Do(ctx, c.policy, "upscale candidate", func(ctx context.Context) (*models.ImageArtifact, error) {
		return c.client.Upscale(ctx, sel.candidates[i])
	})
	if err != nil {
		return nil, err
	}
	c.library.LogOperation(ctx, sel.id, "upscale", 1)

	id := uuid.New().String()
	locator, err := c.saver.SaveImage(id, upscaled)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistenceFailed, err)
	}

	d := &models.Design{
		ID:        id,
		History:   models.NewHistory(locator),
		Metadata:  sel.metadata,
		Config:    sel.config,
		CreatedAt: time.Now(),
	}
	warning := c.persistIfAutosave(ctx, d)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = d
	c.selection = nil
	return c.view(warning), nil
}

// DiscardCandidates abandons a pending candidate batch without promoting
// anything.
func (c *Controller) DiscardCandidates() (*View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selection == nil {
		return nil, ErrNoSelection
	}
	c.selection = nil
	return c.view(""), nil
}

// EditImage applies an instruction to the current image and appends the
// result to history. A failed edit leaves the history untouched.
func (c *Controller) EditImage(ctx context.Context, instruction string, mask *models.ImageArtifact) (*View, error) {
	return c.editCurrent(ctx, "edit", func(ctx context.Context, img *models.ImageArtifact) (*models.ImageArtifact, error) {
		return c.client.EditImage(ctx, img, instruction, mask)
	})
}

// ChangeViewpoint re-renders the current image from another viewpoint and
// appends the result to history.
func (c *Controller) ChangeViewpoint(ctx context.Context, viewpoint string) (*View, error) {
	return c.editCurrent(ctx, "viewpoint", func(ctx context.Context, img *models.ImageArtifact) (*models.ImageArtifact, error) {
		return c.client.ChangeViewpoint(ctx, img, viewpoint)
	})
}

// Upscale replaces the current image state with a higher-resolution render,
// appended to history like any other edit.
func (c *Controller) Upscale(ctx context.Context) (*View, error) {
	return c.editCurrent(ctx, "upscale", func(ctx context.Context, img *models.ImageArtifact) (*models.ImageArtifact, error) {
		return c.client.Upscale(ctx, img)
	})
}

// editCurrent is the shared append-to-history workflow: load the primary
// image, transform it, save the result, append its locator. History is only
// touched after the new artifact is safely on disk.
func (c *Controller) editCurrent(ctx context.Context, op string, transform func(context.Context, *models.ImageArtifact) (*models.ImageArtifact, error)) (*View, error) {
	d, err := c.requireCurrent()
	if err != nil {
		return nil, err
	}
	if err := c.begin(opEditing); err != nil {
		return nil, err
	}
	defer c.end()

	img, err := c.saver.Load(d.PrimaryImage())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistenceFailed, err)
	}

	result, err := retry.Do(ctx, c.policy, op, func(ctx context.Context) (*models.ImageArtifact, error) {
		return transform(ctx, img)
	})
	if err != nil {
		return nil, err
	}
	c.library.LogOperation(ctx, d.ID, op, 1)

	locator, err := c.saver.SaveImage(d.ID, result)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistenceFailed, err)
	}

	c.mu.Lock()
	d.History.Append(locator)
	// The animation was rendered from an image that is no longer current.
	d.Video = ""
	c.mu.Unlock()

	warning := c.persistIfAutosave(ctx, d)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view(warning), nil
}

// GenerateSimilar produces up to count sibling designs from the current
// image. Each sibling is an independent record with its own id and
// single-entry history; the current design is left untouched and stays
// current. Siblings persist concurrently, and the call returns only after
// every write has settled.
func (c *Controller) GenerateSimilar(ctx context.Context, count int) ([]*models.Design, error) {
	d, err := c.requireCurrent()
	if err != nil {
		return nil, err
	}
	if err := c.begin(opGenerating); err != nil {
		return nil, err
	}
	defer c.end()

	img, err := c.saver.Load(d.PrimaryImage())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistenceFailed, err)
	}

	variants, err := c.coordinator.Variants(ctx, img, count)
	if err != nil {
		return nil, err
	}
	c.library.LogOperation(ctx, d.ID, "similar", len(variants))

	siblings := make([]*models.Design, 0, len(variants))
	for _, v := range variants {
		id := uuid.New().String()
		locator, err := c.saver.SaveImage(id, v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrPersistenceFailed, err)
		}
		siblings = append(siblings, &models.Design{
			ID:        id,
			History:   models.NewHistory(locator),
			Metadata:  d.Metadata,
			Config:    d.Config,
			CreatedAt: time.Now(),
		})
	}

	if c.Autosave() {
		var wg sync.WaitGroup
		errs := make([]error, len(siblings))
		for i, s := range siblings {
			wg.Add(1)
			go func(i int, s *models.Design) {
				defer wg.Done()
				errs[i] = c.library.Upsert(ctx, s, nil)
			}(i, s)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				c.logger.Warn("sibling persistence failed", "error", err)
			}
		}
	}
	return siblings, nil
}

// GenerateVideo animates the current image. The video locator is attached to
// the design; it stays valid only as long as the primary image it was
// rendered from.
func (c *Controller) GenerateVideo(ctx context.Context) (*View, error) {
	d, err := c.requireCurrent()
	if err != nil {
		return nil, err
	}
	if err := c.begin(opAnimating); err != nil {
		return nil, err
	}
	defer c.end()

	img, err := c.saver.Load(d.PrimaryImage())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistenceFailed, err)
	}

	vid, err := retry.Do(ctx, c.policy, "generate video", func(ctx context.Context) (*models.VideoArtifact, error) {
		return c.client.GenerateVideo(ctx, img)
	})
	if err != nil {
		return nil, err
	}
	c.library.LogOperation(ctx, d.ID, "video", 1)

	locator, err := c.saver.SaveVideo(d.ID, vid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistenceFailed, err)
	}

	c.mu.Lock()
	d.Video = locator
	c.mu.Unlock()

	warning := c.persistIfAutosave(ctx, d)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view(warning), nil
}

// Undo steps the current design one image state back. At the first entry it
// is a no-op, not an error.
func (c *Controller) Undo(ctx context.Context) (*View, error) {
	return c.step(ctx, func(h *models.History) bool { return h.Undo() })
}

// Redo steps forward along a previously undone branch.
func (c *Controller) Redo(ctx context.Context) (*View, error) {
	return c.step(ctx, func(h *models.History) bool { return h.Redo() })
}

func (c *Controller) step(ctx context.Context, move func(*models.History) bool) (*View, error) {
	d, err := c.requireCurrent()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	moved := move(&d.History)
	c.mu.Unlock()

	var warning string
	if moved {
		warning = c.persistIfAutosave(ctx, d)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view(warning), nil
}

// Save persists the current design explicitly, regardless of the autosave
// flag. With asCopy the design is duplicated under a fresh id and the copy
// becomes current, leaving the original as a frozen snapshot in the library.
func (c *Controller) Save(ctx context.Context, asCopy bool) (*View, error) {
	d, err := c.requireCurrent()
	if err != nil {
		return nil, err
	}

	if asCopy {
		c.mu.Lock()
		dup := &models.Design{
			ID:        uuid.New().String(),
			History:   d.History.Clone(),
			Video:     d.Video,
			Metadata:  d.Metadata,
			Config:    d.Config,
			CreatedAt: time.Now(),
			Folder:    d.Folder,
		}
		c.mu.Unlock()

		if err := c.library.Upsert(ctx, dup, nil); err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.current = dup
		defer c.mu.Unlock()
		return c.view(""), nil
	}

	if err := c.library.Upsert(ctx, d, nil); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view(""), nil
}

// SelectDesign loads a design from the library and makes it current,
// dropping any pending candidate batch. If the store lost the record but it
// is the design already in memory, the in-memory copy is kept.
func (c *Controller) SelectDesign(ctx context.Context, id string) (*View, error) {
	d, err := c.library.Get(ctx, id)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if errors.Is(err, models.ErrNotFound) && c.current != nil && c.current.ID == id {
			c.selection = nil
			return c.view("design missing from library; using in-memory copy"), nil
		}
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = d
	c.selection = nil
	return c.view(""), nil
}

// DeleteDesign removes a design and its artifacts. Deleting the current
// design clears the current pointer.
func (c *Controller) DeleteDesign(ctx context.Context, id string) error {
	if err := c.library.Delete(ctx, id); err != nil {
		return err
	}
	if err := c.saver.RemoveDesignDir(id); err != nil {
		c.logger.Warn("failed to remove artifact directory", "id", id, "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil && c.current.ID == id {
		c.current = nil
	}
	return nil
}

// MoveToFolder relabels a design; moving the current design also updates the
// in-memory copy.
func (c *Controller) MoveToFolder(ctx context.Context, id, folder string) error {
	if err := c.library.MoveToFolder(ctx, id, folder); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil && c.current.ID == id {
		c.current.Folder = folder
	}
	return nil
}

// DeleteFolder dissolves a folder; the in-memory current design sheds the
// label along with the persisted ones.
func (c *Controller) DeleteFolder(ctx context.Context, name string) error {
	if err := c.library.DeleteFolder(ctx, name); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil && c.current.Folder == name {
		c.current.Folder = ""
	}
	return nil
}

// persistIfAutosave writes the design when autosave is on. A storage failure
// never undoes the in-memory mutation; it comes back as a warning string for
// the view.
func (c *Controller) persistIfAutosave(ctx context.Context, d *models.Design) string {
	if !c.Autosave() {
		return ""
	}
	if err := c.library.Upsert(ctx, d, nil); err != nil {
		c.logger.Warn("autosave failed", "id", d.ID, "error", err)
		return fmt.Sprintf("changes kept in memory but not saved: %v", err)
	}
	return ""
}

// Describe maps any command error onto its taxonomy category and a user
// hint suitable for display.
func Describe(err error) (models.Category, string) {
	cat := models.Categorize(err)
	return cat, cat.Advice()
}
