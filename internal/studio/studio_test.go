package studio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/niadesignwork-svg/stagecraft/internal/artifact"
	"github.com/niadesignwork-svg/stagecraft/internal/batch"
	"github.com/niadesignwork-svg/stagecraft/internal/library"
	"github.com/niadesignwork-svg/stagecraft/internal/log"
	"github.com/niadesignwork-svg/stagecraft/internal/retry"
	"github.com/niadesignwork-svg/stagecraft/pkg/models"
)

// fakeClient scripts the generative API. Zero value: every call succeeds.
type fakeClient struct {
	generateErr  error
	editErr      error
	upscaleErr   error
	variantErr   error
	videoErr     error
	textErr      error
	generateN    int
	editN        int
	upscaleN     int
	variantN     int
	videoN       int
}

func pngArtifact(tag string) *models.ImageArtifact {
	return &models.ImageArtifact{MIMEType: "image/png", Data: []byte("png:" + tag)}
}

func (f *fakeClient) GenerateImage(ctx context.Context, cfg *models.StageConfig) (*models.ImageArtifact, error) {
	f.generateN++
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return pngArtifact(fmt.Sprintf("gen-%d", f.generateN)), nil
}

func (f *fakeClient) GenerateText(ctx context.Context, cfg *models.StageConfig) (*models.DesignMetadata, error) {
	if f.textErr != nil {
		return nil, f.textErr
	}
	return &models.DesignMetadata{Title: "Neon Cathedral", Summary: "test summary"}, nil
}

func (f *fakeClient) EditImage(ctx context.Context, img *models.ImageArtifact, instruction string, mask *models.ImageArtifact) (*models.ImageArtifact, error) {
	f.editN++
	if f.editErr != nil {
		return nil, f.editErr
	}
	return pngArtifact(fmt.Sprintf("edit-%d", f.editN)), nil
}

func (f *fakeClient) ChangeViewpoint(ctx context.Context, img *models.ImageArtifact, viewpoint string) (*models.ImageArtifact, error) {
	return pngArtifact("viewpoint-" + viewpoint), nil
}

func (f *fakeClient) Upscale(ctx context.Context, img *models.ImageArtifact) (*models.ImageArtifact, error) {
	f.upscaleN++
	if f.upscaleErr != nil {
		return nil, f.upscaleErr
	}
	return pngArtifact(fmt.Sprintf("upscale-%d", f.upscaleN)), nil
}

func (f *fakeClient) GenerateVariant(ctx context.Context, img *models.ImageArtifact, count int) ([]*models.ImageArtifact, error) {
	f.variantN++
	if f.variantErr != nil {
		return nil, f.variantErr
	}
	return []*models.ImageArtifact{pngArtifact(fmt.Sprintf("variant-%d", f.variantN))}, nil
}

func (f *fakeClient) GenerateVideo(ctx context.Context, img *models.ImageArtifact) (*models.VideoArtifact, error) {
	f.videoN++
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	return &models.VideoArtifact{MIMEType: "video/mp4", Data: []byte("mp4")}, nil
}

func testController(t *testing.T, fake *fakeClient, autosave bool) (*Controller, *library.Manager) {
	t.Helper()
	logger := log.NewNop()

	store, err := library.NewStore(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	lib := library.NewManager(store, logger)

	policy := retry.NewPolicy(logger)
	policy.MaxRetries = 1
	policy.InitialDelay = time.Millisecond

	coord := batch.NewCoordinator(fake, policy, logger)
	coord.SetPause(time.Millisecond)

	ctrl := NewController(&Config{
		Coordinator: coord,
		Client:      fake,
		Library:     lib,
		Saver:       artifact.NewSaver(t.TempDir()),
		Policy:      policy,
		Logger:      logger,
		Autosave:    autosave,
	})
	return ctrl, lib
}

func testConfig() *models.StageConfig {
	return &models.StageConfig{Elements: "mirrored obelisks", Palette: "violet", Vibe: "ominous"}
}

func TestGenerate_SingleImageFinalizes(t *testing.T) {
	ctrl, lib := testController(t, &fakeClient{}, true)
	ctx := context.Background()

	v, err := ctrl.Generate(ctx, testConfig(), 1)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if v.AwaitingSelection {
		t.Error("single-image batch should finalize, not await selection")
	}
	if v.HistoryLen != 1 || v.Cursor != 0 {
		t.Errorf("history = len %d cursor %d, want 1/0", v.HistoryLen, v.Cursor)
	}
	if v.Title != "Neon Cathedral" {
		t.Errorf("Title = %q, want metadata title", v.Title)
	}

	got, err := lib.Get(ctx, v.ID)
	if err != nil {
		t.Fatalf("autosave should have persisted the design: %v", err)
	}
	if got.PrimaryImage() == "" {
		t.Error("persisted design has no primary image")
	}
}

func TestGenerate_MultiImageAwaitsSelection(t *testing.T) {
	ctrl, lib := testController(t, &fakeClient{}, true)
	ctx := context.Background()

	v, err := ctrl.Generate(ctx, testConfig(), 3)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !v.AwaitingSelection {
		t.Fatal("multi-image batch should await selection")
	}
	if v.CandidateCount != 3 {
		t.Errorf("CandidateCount = %d, want 3", v.CandidateCount)
	}

	// Candidates are ephemeral: nothing is in the library yet.
	designs, err := lib.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(designs) != 0 {
		t.Errorf("library has %d designs before promotion, want 0", len(designs))
	}
}

func TestSelectCandidate_PromotesWithFreshHistory(t *testing.T) {
	fake := &fakeClient{}
	ctrl, lib := testController(t, fake, true)
	ctx := context.Background()

	if _, err := ctrl.Generate(ctx, testConfig(), 3); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	v, err := ctrl.SelectCandidate(ctx, 1)
	if err != nil {
		t.Fatalf("SelectCandidate() error = %v", err)
	}
	if v.AwaitingSelection {
		t.Error("promotion should clear the candidate batch")
	}
	if v.HistoryLen != 1 {
		t.Errorf("promoted history len = %d, want 1", v.HistoryLen)
	}
	if fake.upscaleN != 1 {
		t.Errorf("upscale calls = %d, want 1 (promotion upscales)", fake.upscaleN)
	}

	designs, err := lib.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(designs) != 1 {
		t.Errorf("library has %d designs, want exactly the promoted one", len(designs))
	}
}

func TestSelectCandidate_FailureKeepsBatch(t *testing.T) {
	fake := &fakeClient{upscaleErr: errors.New("model choked")}
	ctrl, _ := testController(t, fake, true)
	ctx := context.Background()

	if _, err := ctrl.Generate(ctx, testConfig(), 2); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := ctrl.SelectCandidate(ctx, 0); err == nil {
		t.Fatal("SelectCandidate() should fail when upscale fails")
	}
	if !ctrl.AwaitingSelection() {
		t.Error("failed promotion must leave the candidate batch intact")
	}
}

func TestSelectCandidate_IndexOutOfRange(t *testing.T) {
	ctrl, _ := testController(t, &fakeClient{}, false)
	ctx := context.Background()

	if _, err := ctrl.Generate(ctx, testConfig(), 2); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := ctrl.SelectCandidate(ctx, 5); err == nil {
		t.Error("SelectCandidate(5) should fail for a 2-candidate batch")
	}
}

func TestEditImage_AppendsHistory(t *testing.T) {
	ctrl, _ := testController(t, &fakeClient{}, false)
	ctx := context.Background()

	if _, err := ctrl.Generate(ctx, testConfig(), 1); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	v, err := ctrl.EditImage(ctx, "add fog cannons", nil)
	if err != nil {
		t.Fatalf("EditImage() error = %v", err)
	}
	if v.HistoryLen != 2 || v.Cursor != 1 {
		t.Errorf("history = len %d cursor %d, want 2/1", v.HistoryLen, v.Cursor)
	}
	if !v.CanUndo {
		t.Error("CanUndo = false after an edit")
	}
}

func TestEditImage_FailureLeavesHistoryUntouched(t *testing.T) {
	fake := &fakeClient{editErr: errors.New("model choked")}
	ctrl, _ := testController(t, fake, false)
	ctx := context.Background()

	if _, err := ctrl.Generate(ctx, testConfig(), 1); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	before := ctrl.View()

	if _, err := ctrl.EditImage(ctx, "add fog cannons", nil); err == nil {
		t.Fatal("EditImage() should propagate the failure")
	}

	after := ctrl.View()
	if after.HistoryLen != before.HistoryLen || after.Cursor != before.Cursor {
		t.Errorf("history changed on failed edit: before %d/%d after %d/%d",
			before.HistoryLen, before.Cursor, after.HistoryLen, after.Cursor)
	}
}

func TestEdit_ClearsStaleVideo(t *testing.T) {
	ctrl, _ := testController(t, &fakeClient{}, false)
	ctx := context.Background()

	if _, err := ctrl.Generate(ctx, testConfig(), 1); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	v, err := ctrl.GenerateVideo(ctx)
	if err != nil {
		t.Fatalf("GenerateVideo() error = %v", err)
	}
	if v.Video == "" {
		t.Fatal("GenerateVideo() attached no locator")
	}

	v, err = ctrl.EditImage(ctx, "swap pyro for lasers", nil)
	if err != nil {
		t.Fatalf("EditImage() error = %v", err)
	}
	if v.Video != "" {
		t.Error("editing the image must drop the now-stale video")
	}
}

func TestUndoRedo(t *testing.T) {
	ctrl, _ := testController(t, &fakeClient{}, false)
	ctx := context.Background()

	if _, err := ctrl.Generate(ctx, testConfig(), 1); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := ctrl.EditImage(ctx, "raise the catwalk", nil); err != nil {
		t.Fatalf("EditImage() error = %v", err)
	}

	v, err := ctrl.Undo(ctx)
	if err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	if v.Cursor != 0 {
		t.Errorf("Cursor after undo = %d, want 0", v.Cursor)
	}

	// At the first entry a further undo is a silent no-op.
	v, err = ctrl.Undo(ctx)
	if err != nil {
		t.Fatalf("Undo() at bounds error = %v", err)
	}
	if v.Cursor != 0 {
		t.Errorf("Cursor after bounded undo = %d, want 0", v.Cursor)
	}

	v, err = ctrl.Redo(ctx)
	if err != nil {
		t.Fatalf("Redo() error = %v", err)
	}
	if v.Cursor != 1 {
		t.Errorf("Cursor after redo = %d, want 1", v.Cursor)
	}
}

func TestGenerateSimilar_CreatesIndependentSiblings(t *testing.T) {
	ctrl, lib := testController(t, &fakeClient{}, true)
	ctx := context.Background()

	if _, err := ctrl.Generate(ctx, testConfig(), 1); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	original := ctrl.View()

	siblings, err := ctrl.GenerateSimilar(ctx, 2)
	if err != nil {
		t.Fatalf("GenerateSimilar() error = %v", err)
	}
	if len(siblings) != 2 {
		t.Fatalf("len(siblings) = %d, want 2", len(siblings))
	}
	seen := map[string]bool{original.ID: true}
	for _, s := range siblings {
		if seen[s.ID] {
			t.Errorf("sibling id %s collides", s.ID)
		}
		seen[s.ID] = true
		if s.History.Len() != 1 {
			t.Errorf("sibling history len = %d, want 1 (independent record)", s.History.Len())
		}
		if s.Metadata.Title != original.Title {
			t.Errorf("sibling title = %q, want inherited %q", s.Metadata.Title, original.Title)
		}
	}

	// Original stays current with its history untouched.
	if got := ctrl.View(); got.ID != original.ID || got.HistoryLen != original.HistoryLen {
		t.Errorf("current design changed: %+v", got)
	}

	designs, err := lib.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(designs) != 3 {
		t.Errorf("library has %d designs, want original + 2 siblings", len(designs))
	}
}

func TestSave_AsCopyMintsNewID(t *testing.T) {
	ctrl, lib := testController(t, &fakeClient{}, false)
	ctx := context.Background()

	v, err := ctrl.Generate(ctx, testConfig(), 1)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	originalID := v.ID

	v, err = ctrl.Save(ctx, true)
	if err != nil {
		t.Fatalf("Save(asCopy) error = %v", err)
	}
	if v.ID == originalID {
		t.Error("Save(asCopy) kept the original id")
	}

	designs, err := lib.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(designs) != 1 {
		t.Errorf("library has %d designs, want only the copy (autosave off)", len(designs))
	}
	if designs[0].ID != v.ID {
		t.Errorf("persisted id = %s, want the copy %s", designs[0].ID, v.ID)
	}
}

func TestBusyGateRejectsOverlap(t *testing.T) {
	ctrl, _ := testController(t, &fakeClient{}, false)
	ctx := context.Background()

	if _, err := ctrl.Generate(ctx, testConfig(), 1); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if err := ctrl.begin(opEditing); err != nil {
		t.Fatalf("begin() error = %v", err)
	}
	defer ctrl.end()

	if _, err := ctrl.Generate(ctx, testConfig(), 1); !errors.Is(err, ErrBusy) {
		t.Errorf("Generate() during an edit = %v, want ErrBusy", err)
	}
	if _, err := ctrl.EditImage(ctx, "x", nil); !errors.Is(err, ErrBusy) {
		t.Errorf("EditImage() during an edit = %v, want ErrBusy", err)
	}
}

func TestCommandsRequireCurrentDesign(t *testing.T) {
	ctrl, _ := testController(t, &fakeClient{}, false)
	ctx := context.Background()

	if _, err := ctrl.EditImage(ctx, "x", nil); !errors.Is(err, ErrNoCurrentDesign) {
		t.Errorf("EditImage() = %v, want ErrNoCurrentDesign", err)
	}
	if _, err := ctrl.Undo(ctx); !errors.Is(err, ErrNoCurrentDesign) {
		t.Errorf("Undo() = %v, want ErrNoCurrentDesign", err)
	}
	if _, err := ctrl.SelectCandidate(ctx, 0); !errors.Is(err, ErrNoSelection) {
		t.Errorf("SelectCandidate() = %v, want ErrNoSelection", err)
	}
}

func TestEditBlockedWhileAwaitingSelection(t *testing.T) {
	ctrl, _ := testController(t, &fakeClient{}, false)
	ctx := context.Background()

	if _, err := ctrl.Generate(ctx, testConfig(), 2); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := ctrl.EditImage(ctx, "x", nil); !errors.Is(err, ErrAwaitingSelection) {
		t.Errorf("EditImage() with pending candidates = %v, want ErrAwaitingSelection", err)
	}
}

func TestSelectDesign_MissingFallsBackToMemory(t *testing.T) {
	ctrl, _ := testController(t, &fakeClient{}, false)
	ctx := context.Background()

	v, err := ctrl.Generate(ctx, testConfig(), 1)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	// Autosave is off, so the store has never seen this id; the in-memory
	// copy is the only one and must survive.
	got, err := ctrl.SelectDesign(ctx, v.ID)
	if err != nil {
		t.Fatalf("SelectDesign() error = %v", err)
	}
	if got.ID != v.ID {
		t.Errorf("ID = %s, want %s", got.ID, v.ID)
	}
	if got.Warning == "" {
		t.Error("expected a warning about the missing library record")
	}
}

func TestSelectDesign_UnknownID(t *testing.T) {
	ctrl, _ := testController(t, &fakeClient{}, false)
	if _, err := ctrl.SelectDesign(context.Background(), "nope"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("SelectDesign() = %v, want ErrNotFound", err)
	}
}

func TestDeleteDesign_ClearsCurrent(t *testing.T) {
	ctrl, _ := testController(t, &fakeClient{}, true)
	ctx := context.Background()

	v, err := ctrl.Generate(ctx, testConfig(), 1)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if err := ctrl.DeleteDesign(ctx, v.ID); err != nil {
		t.Fatalf("DeleteDesign() error = %v", err)
	}
	if ctrl.HasCurrent() {
		t.Error("deleting the current design must clear the current pointer")
	}
}

func TestMoveToFolder_UpdatesCurrentCopy(t *testing.T) {
	ctrl, _ := testController(t, &fakeClient{}, true)
	ctx := context.Background()

	v, err := ctrl.Generate(ctx, testConfig(), 1)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if err := ctrl.MoveToFolder(ctx, v.ID, "Arena Tour"); err != nil {
		t.Fatalf("MoveToFolder() error = %v", err)
	}
	if got := ctrl.View().Folder; got != "Arena Tour" {
		t.Errorf("Folder = %q, want %q", got, "Arena Tour")
	}

	if err := ctrl.DeleteFolder(ctx, "Arena Tour"); err != nil {
		t.Fatalf("DeleteFolder() error = %v", err)
	}
	if got := ctrl.View().Folder; got != "" {
		t.Errorf("Folder after folder deletion = %q, want cleared", got)
	}
}

func TestGenerate_MetadataFailureIsNotFatal(t *testing.T) {
	fake := &fakeClient{textErr: errors.New("model choked")}
	ctrl, _ := testController(t, fake, false)

	v, err := ctrl.Generate(context.Background(), testConfig(), 1)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if v.Title != "" {
		t.Errorf("Title = %q, want empty when metadata fails", v.Title)
	}
}

func TestDiscardCandidates(t *testing.T) {
	ctrl, _ := testController(t, &fakeClient{}, false)
	ctx := context.Background()

	if _, err := ctrl.Generate(ctx, testConfig(), 2); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	v, err := ctrl.DiscardCandidates()
	if err != nil {
		t.Fatalf("DiscardCandidates() error = %v", err)
	}
	if v.AwaitingSelection {
		t.Error("candidates should be gone")
	}
	if ctrl.HasCurrent() {
		t.Error("discard should not conjure a current design")
	}
}
