package library

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/niadesignwork-svg/stagecraft/pkg/models"
)

// Manager is the only component that reads or writes the store. Storage
// failures surface wrapped in models.ErrPersistenceFailed and never corrupt
// the caller's in-memory state: a failed write simply leaves the persisted
// copy stale.
type Manager struct {
	store  *Store
	logger *slog.Logger
}

func NewManager(store *Store, logger *slog.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// ListAll returns every persisted design, newest-created first.
func (m *Manager) ListAll(ctx context.Context) ([]*models.Design, error) {
	designs, err := m.store.ListDesigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistenceFailed, err)
	}
	return designs, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*models.Design, error) {
	return m.store.GetDesign(ctx, id)
}

// Upsert persists a design. When a record with the same id already exists its
// stored folder wins unless folder is non-nil: routine edits must not clear a
// folder assignment the caller never touched. folder pointing at an empty
// string explicitly clears the label.
func (m *Manager) Upsert(ctx context.Context, d *models.Design, folder *string) error {
	if folder != nil {
		d.Folder = *folder
	} else if existing, err := m.store.GetDesign(ctx, d.ID); err == nil {
		d.Folder = existing.Folder
	}

	if err := m.store.PutDesign(ctx, d); err != nil {
		return fmt.Errorf("%w: %v", models.ErrPersistenceFailed, err)
	}
	m.logger.Debug("design persisted", "id", d.ID, "history_len", d.History.Len())
	return nil
}

// Delete removes a design. A missing id is not an error; the library is
// simply unchanged.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.store.DeleteDesign(ctx, id); err != nil {
		return fmt.Errorf("%w: %v", models.ErrPersistenceFailed, err)
	}
	return nil
}

// MoveToFolder sets or clears a design's folder label. Folder names are free
// labels: no check that the name exists in the folder list.
func (m *Manager) MoveToFolder(ctx context.Context, id, folder string) error {
	if err := m.store.SetFolder(ctx, id, folder); err != nil {
		return err
	}
	return nil
}

func (m *Manager) Folders(ctx context.Context) ([]string, error) {
	return m.store.ListFolders(ctx)
}

func (m *Manager) AddFolder(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("folder name cannot be empty")
	}
	if err := m.store.AddFolder(ctx, name); err != nil {
		return fmt.Errorf("%w: %v", models.ErrPersistenceFailed, err)
	}
	return nil
}

// DeleteFolder removes the name from the folder list and clears the label on
// every design assigned to it. The designs themselves survive. The two steps
// are not transactional; a failure between them leaves dangling labels, which
// the data model tolerates.
func (m *Manager) DeleteFolder(ctx context.Context, name string) error {
	if err := m.store.RemoveFolder(ctx, name); err != nil {
		return fmt.Errorf("%w: %v", models.ErrPersistenceFailed, err)
	}
	if err := m.store.ClearFolderLabel(ctx, name); err != nil {
		return fmt.Errorf("%w: %v", models.ErrPersistenceFailed, err)
	}
	m.logger.Debug("folder deleted", "name", name)
	return nil
}

// SaveConcept stores a reusable configuration preset.
func (m *Manager) SaveConcept(ctx context.Context, title string, cfg *models.StageConfig) (*models.SavedConcept, error) {
	c := &models.SavedConcept{
		ID:        uuid.New().String(),
		Title:     title,
		Elements:  cfg.Elements,
		Palette:   cfg.Palette,
		Vibe:      cfg.Vibe,
		Mechanics: cfg.Mechanics,
		CreatedAt: time.Now(),
	}
	if err := m.store.PutConcept(ctx, c); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistenceFailed, err)
	}
	return c, nil
}

func (m *Manager) ListConcepts(ctx context.Context) ([]*models.SavedConcept, error) {
	return m.store.ListConcepts(ctx)
}

func (m *Manager) DeleteConcept(ctx context.Context, id string) error {
	return m.store.DeleteConcept(ctx, id)
}

// LogOperation records one external API operation for usage stats. Logging
// failures are reported to the logger only; they never fail the operation.
func (m *Manager) LogOperation(ctx context.Context, designID, operation string, artifacts int) {
	err := m.store.LogOperation(ctx, &OpEntry{
		DesignID:      designID,
		Operation:     operation,
		ArtifactCount: artifacts,
		Timestamp:     time.Now(),
	})
	if err != nil {
		m.logger.Warn("failed to log operation", "operation", operation, "error", err)
	}
}

func (m *Manager) UsageSummary(ctx context.Context) ([]UsageRow, error) {
	return m.store.UsageSummary(ctx)
}
