// Package studio is the coordination point a UI or CLI drives. The
// Controller owns the current-design pointer and the autosave flag,
// serializes artifact-mutating operations, and maps failures onto the error
// taxonomy in pkg/models.
package studio

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/niadesignwork-svg/stagecraft/internal/artifact"
	"github.com/niadesignwork-svg/stagecraft/internal/batch"
	"github.com/niadesignwork-svg/stagecraft/internal/generative"
	"github.com/niadesignwork-svg/stagecraft/internal/library"
	"github.com/niadesignwork-svg/stagecraft/internal/retry"
	"github.com/niadesignwork-svg/stagecraft/pkg/models"
)

var (
	// ErrBusy: a second artifact-mutating operation was requested while one
	// is in flight. Operations against the current design are strictly
	// serialized; the last-to-settle-wins race this prevents would silently
	// discard work.
	ErrBusy = errors.New("another operation is in progress")

	// ErrNoCurrentDesign: the command needs a current design and none is
	// selected.
	ErrNoCurrentDesign = errors.New("no current design")

	// ErrAwaitingSelection: the command needs a finalized design but the
	// current batch still has unpromoted candidates.
	ErrAwaitingSelection = errors.New("pick a candidate first")

	// ErrNoSelection: a candidate command was issued outside selection mode.
	ErrNoSelection = errors.New("no candidate batch is awaiting selection")
)

// opState tracks the single permitted in-flight operation kind.
type opState int

const (
	opIdle opState = iota
	opGenerating
	opEditing
	opAnimating
)

func (o opState) String() string {
	switch o {
	case opGenerating:
		return "generating"
	case opEditing:
		return "editing"
	case opAnimating:
		return "animating"
	default:
		return "idle"
	}
}

// selection is a provisional design awaiting candidate promotion. It lives
// only in memory; the library first sees the design when a candidate is
// promoted.
type selection struct {
	id         string
	config     models.StageConfig
	metadata   models.DesignMetadata
	candidates []*models.ImageArtifact
	createdAt  time.Time
}

// Controller sequences the session-facing commands.
type Controller struct {
	coordinator *batch.Coordinator
	client      generative.Client
	library     *library.Manager
	saver       *artifact.Saver
	policy      *retry.Policy
	logger      *slog.Logger

	mu        sync.Mutex
	op        opState
	autosave  bool
	current   *models.Design
	selection *selection
}

type Config struct {
	Coordinator *batch.Coordinator
	Client      generative.Client
	Library     *library.Manager
	Saver       *artifact.Saver
	Policy      *retry.Policy
	Logger      *slog.Logger
	Autosave    bool
}

func NewController(cfg *Config) *Controller {
	return &Controller{
		coordinator: cfg.Coordinator,
		client:      cfg.Client,
		library:     cfg.Library,
		saver:       cfg.Saver,
		policy:      cfg.Policy,
		logger:      cfg.Logger,
		autosave:    cfg.Autosave,
	}
}

// View is the snapshot handed back to the caller after each command.
type View struct {
	ID                string
	Title             string
	PrimaryImage      string
	Video             string
	Folder            string
	HistoryLen        int
	Cursor            int
	CanUndo           bool
	CanRedo           bool
	AwaitingSelection bool
	CandidateCount    int

	// Warning carries a non-fatal problem, e.g. a persistence failure that
	// left the design unsaved but intact in memory.
	Warning string
}

func (c *Controller) view(warning string) *View {
	if c.selection != nil {
		return &View{
			ID:                c.selection.id,
			Title:             c.selection.metadata.Title,
			AwaitingSelection: true,
			CandidateCount:    len(c.selection.candidates),
			Warning:           warning,
		}
	}
	if c.current == nil {
		return &View{Warning: warning}
	}
	d := c.current
	return &View{
		ID:           d.ID,
		Title:        d.Metadata.Title,
		PrimaryImage: d.PrimaryImage(),
		Video:        d.Video,
		Folder:       d.Folder,
		HistoryLen:   d.History.Len(),
		Cursor:       d.History.Cursor,
		CanUndo:      d.History.CanUndo(),
		CanRedo:      d.History.CanRedo(),
		Warning:      warning,
	}
}

// View returns the current snapshot without running a command.
func (c *Controller) View() *View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view("")
}

// SetAutosave toggles immediate persistence of every mutation.
func (c *Controller) SetAutosave(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autosave = on
}

func (c *Controller) Autosave() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autosave
}

// HasCurrent reports whether a finalized design is selected.
func (c *Controller) HasCurrent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// AwaitingSelection reports whether a candidate batch is pending promotion.
func (c *Controller) AwaitingSelection() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection != nil
}

// Candidates returns the pending candidate artifacts, for preview.
func (c *Controller) Candidates() []*models.ImageArtifact {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selection == nil {
		return nil
	}
	return c.selection.candidates
}

// begin claims the operation slot; every artifact-mutating command goes
// through it so no two ever overlap on the current design.
func (c *Controller) begin(op opState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.op != opIdle {
		return ErrBusy
	}
	c.op = op
	return nil
}

func (c *Controller) end() {
	c.mu.Lock()
	c.op = opIdle
	c.mu.Unlock()
}

// requireCurrent returns the current finalized design or the applicable
// state error.
func (c *Controller) requireCurrent() (*models.Design, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selection != nil {
		return nil, ErrAwaitingSelection
	}
	if c.current == nil {
		return nil, ErrNoCurrentDesign
	}
	return c.current, nil
}
