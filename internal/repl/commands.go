package repl

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/niadesignwork-svg/stagecraft/internal/generative"
	"github.com/niadesignwork-svg/stagecraft/internal/security"
	"github.com/niadesignwork-svg/stagecraft/pkg/models"
)

type Command interface {
	Name() string
	Aliases() []string
	Description() string
	Usage() string
	Execute(ctx context.Context, r *REPL, args []string) error
}

func (r *REPL) registerCommands() {
	commands := []Command{
		&SetCommand{},
		&ConceptCommand{},
		&GenerateCommand{},
		&PickCommand{},
		&DiscardCommand{},
		&EditCommand{},
		&ViewpointCommand{},
		&UpscaleCommand{},
		&SimilarCommand{},
		&VideoCommand{},
		&UndoCommand{},
		&RedoCommand{},
		&SaveCommand{},
		&ShowCommand{},
		&OpenCommand{},
		&ListCommand{},
		&ExportCommand{},
		&FoldersCommand{},
		&MkFolderCommand{},
		&RmFolderCommand{},
		&MoveCommand{},
		&DeleteCommand{},
		&RememberCommand{},
		&RecallCommand{},
		&ForgetCommand{},
		&ConceptsCommand{},
		&StatsCommand{},
		&AutosaveCommand{},
		&HelpCommand{},
		&QuitCommand{},
	}

	for _, cmd := range commands {
		r.commands[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases() {
			r.commands[alias] = cmd
		}
	}
}

// currentID resolves "." to the current design's id.
func (r *REPL) currentID(arg string) (string, error) {
	if arg != "." {
		return arg, nil
	}
	v := r.studio.View()
	if v.ID == "" || v.AwaitingSelection {
		return "", studioNoCurrent()
	}
	return v.ID, nil
}

func studioNoCurrent() error {
	return fmt.Errorf("no current design - use 'generate' or 'open' first")
}

// SetCommand updates one field of the concept buffer.
type SetCommand struct{}

func (c *SetCommand) Name() string      { return "set" }
func (c *SetCommand) Aliases() []string { return nil }
func (c *SetCommand) Description() string {
	return "Set a concept field: elements, palette, vibe, mechanics, notes"
}
func (c *SetCommand) Usage() string { return "set <field> <value>" }

func (c *SetCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	value := strings.Join(args[1:], " ")
	switch strings.ToLower(args[0]) {
	case "elements":
		r.concept.Elements = value
	case "palette":
		r.concept.Palette = value
	case "vibe":
		r.concept.Vibe = value
	case "mechanics":
		r.concept.Mechanics = value
	case "notes":
		r.concept.Notes = value
	default:
		return fmt.Errorf("unknown field %q (elements, palette, vibe, mechanics, notes)", args[0])
	}

	fmt.Fprintf(r.out, "%s set\n", strings.ToLower(args[0]))
	return nil
}

// ConceptCommand prints the concept buffer.
type ConceptCommand struct{}

func (c *ConceptCommand) Name() string        { return "concept" }
func (c *ConceptCommand) Aliases() []string   { return []string{"c"} }
func (c *ConceptCommand) Description() string { return "Show the working concept" }
func (c *ConceptCommand) Usage() string       { return "concept" }

func (c *ConceptCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	rows := [][]string{
		{"elements", r.concept.Elements},
		{"palette", r.concept.Palette},
		{"vibe", r.concept.Vibe},
		{"mechanics", r.concept.Mechanics},
		{"notes", r.concept.Notes},
	}
	fmt.Fprintln(r.out, renderTable([]string{"Field", "Value"}, rows, nil))
	return nil
}

// GenerateCommand runs a generation batch off the concept buffer.
type GenerateCommand struct{}

func (c *GenerateCommand) Name() string        { return "generate" }
func (c *GenerateCommand) Aliases() []string   { return []string{"gen", "g"} }
func (c *GenerateCommand) Description() string { return "Generate stage designs from the concept" }
func (c *GenerateCommand) Usage() string       { return "generate [count]" }

func (c *GenerateCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	count := r.defaultCount
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("count must be a number: %q", args[0])
		}
		count = n
	}

	fmt.Fprintf(r.out, "Generating %d design(s)...\n", count)

	cfg := r.concept
	v, err := r.studio.Generate(ctx, &cfg, count)
	if err != nil {
		return err
	}

	r.showView(v)
	if !v.AwaitingSelection {
		fmt.Fprintf(r.out, "Design ready: %s\n", displayTitle(v.Title, v.ID))
	}
	return nil
}

// PickCommand promotes a candidate from the pending batch.
type PickCommand struct{}

func (c *PickCommand) Name() string        { return "pick" }
func (c *PickCommand) Aliases() []string   { return []string{"p"} }
func (c *PickCommand) Description() string { return "Promote a candidate from the last batch" }
func (c *PickCommand) Usage() string       { return "pick <number>" }

func (c *PickCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("candidate must be a number: %q", args[0])
	}

	fmt.Fprintf(r.out, "Upscaling candidate %d...\n", n)
	v, err := r.studio.SelectCandidate(ctx, n-1)
	if err != nil {
		return err
	}

	r.showView(v)
	fmt.Fprintf(r.out, "Design ready: %s\n", displayTitle(v.Title, v.ID))
	return nil
}

// DiscardCommand abandons the pending candidate batch.
type DiscardCommand struct{}

func (c *DiscardCommand) Name() string        { return "discard" }
func (c *DiscardCommand) Aliases() []string   { return nil }
func (c *DiscardCommand) Description() string { return "Discard the pending candidate batch" }
func (c *DiscardCommand) Usage() string       { return "discard" }

func (c *DiscardCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if _, err := r.studio.DiscardCandidates(); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Candidates discarded.")
	return nil
}

// EditCommand applies an instruction to the current image.
type EditCommand struct{}

func (c *EditCommand) Name() string        { return "edit" }
func (c *EditCommand) Aliases() []string   { return []string{"e"} }
func (c *EditCommand) Description() string { return "Edit the current image with an instruction" }
func (c *EditCommand) Usage() string       { return "edit <instruction>" }

func (c *EditCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	instruction := strings.Join(args, " ")
	fmt.Fprintln(r.out, "Editing...")

	v, err := r.studio.EditImage(ctx, instruction, nil)
	if err != nil {
		return err
	}
	r.showView(v)
	fmt.Fprintf(r.out, "Revision %d of %d\n", v.Cursor+1, v.HistoryLen)
	return nil
}

// ViewpointCommand re-renders the scene from another camera position.
type ViewpointCommand struct{}

func (c *ViewpointCommand) Name() string      { return "viewpoint" }
func (c *ViewpointCommand) Aliases() []string { return []string{"vp"} }
func (c *ViewpointCommand) Description() string {
	return "Re-render from a viewpoint: front, audience, aerial, stage-left, close-up"
}
func (c *ViewpointCommand) Usage() string { return "viewpoint <tag>" }

func (c *ViewpointCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	tag := strings.ToLower(args[0])
	switch tag {
	case generative.ViewpointFront, generative.ViewpointAudience, generative.ViewpointAerial,
		generative.ViewpointStageLeft, generative.ViewpointCloseUp:
	default:
		return fmt.Errorf("unknown viewpoint %q", tag)
	}

	fmt.Fprintf(r.out, "Rendering %s view...\n", tag)
	v, err := r.studio.ChangeViewpoint(ctx, tag)
	if err != nil {
		return err
	}
	r.showView(v)
	return nil
}

// UpscaleCommand raises the resolution of the current image.
type UpscaleCommand struct{}

func (c *UpscaleCommand) Name() string        { return "upscale" }
func (c *UpscaleCommand) Aliases() []string   { return []string{"up"} }
func (c *UpscaleCommand) Description() string { return "Upscale the current image" }
func (c *UpscaleCommand) Usage() string       { return "upscale" }

func (c *UpscaleCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	fmt.Fprintln(r.out, "Upscaling...")
	v, err := r.studio.Upscale(ctx)
	if err != nil {
		return err
	}
	r.showView(v)
	return nil
}

// SimilarCommand spawns sibling designs off the current image.
type SimilarCommand struct{}

func (c *SimilarCommand) Name() string        { return "similar" }
func (c *SimilarCommand) Aliases() []string   { return []string{"sim"} }
func (c *SimilarCommand) Description() string { return "Generate variations as new library designs" }
func (c *SimilarCommand) Usage() string       { return "similar [count]" }

func (c *SimilarCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	count := 2
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("count must be a number: %q", args[0])
		}
		count = n
	}

	fmt.Fprintf(r.out, "Generating %d variation(s)...\n", count)
	siblings, err := r.studio.GenerateSimilar(ctx, count)
	if err != nil {
		return err
	}

	for _, s := range siblings {
		fmt.Fprintf(r.out, "New design: %s (%s)\n", displayTitle(s.Metadata.Title, s.ID), shortID(s.ID))
	}
	return nil
}

// VideoCommand animates the current image.
type VideoCommand struct{}

func (c *VideoCommand) Name() string        { return "video" }
func (c *VideoCommand) Aliases() []string   { return []string{"vid"} }
func (c *VideoCommand) Description() string { return "Animate the current image (takes minutes)" }
func (c *VideoCommand) Usage() string       { return "video" }

func (c *VideoCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	fmt.Fprintln(r.out, "Animating... this can take a few minutes.")
	v, err := r.studio.GenerateVideo(ctx)
	if err != nil {
		return err
	}
	if v.Warning != "" {
		fmt.Fprintf(r.err, "Warning: %s\n", v.Warning)
	}
	fmt.Fprintf(r.out, "Video saved: %s\n", v.Video)
	return nil
}

// UndoCommand steps the image history back.
type UndoCommand struct{}

func (c *UndoCommand) Name() string        { return "undo" }
func (c *UndoCommand) Aliases() []string   { return []string{"u"} }
func (c *UndoCommand) Description() string { return "Step back to the previous image state" }
func (c *UndoCommand) Usage() string       { return "undo" }

func (c *UndoCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	v, err := r.studio.Undo(ctx)
	if err != nil {
		return err
	}
	r.showView(v)
	fmt.Fprintf(r.out, "Revision %d of %d\n", v.Cursor+1, v.HistoryLen)
	return nil
}

// RedoCommand steps forward along an undone branch.
type RedoCommand struct{}

func (c *RedoCommand) Name() string        { return "redo" }
func (c *RedoCommand) Aliases() []string   { return nil }
func (c *RedoCommand) Description() string { return "Step forward to the next image state" }
func (c *RedoCommand) Usage() string       { return "redo" }

func (c *RedoCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	v, err := r.studio.Redo(ctx)
	if err != nil {
		return err
	}
	r.showView(v)
	fmt.Fprintf(r.out, "Revision %d of %d\n", v.Cursor+1, v.HistoryLen)
	return nil
}

// SaveCommand persists the current design.
type SaveCommand struct{}

func (c *SaveCommand) Name() string        { return "save" }
func (c *SaveCommand) Aliases() []string   { return []string{"s"} }
func (c *SaveCommand) Description() string { return "Save the current design; 'save copy' forks it" }
func (c *SaveCommand) Usage() string       { return "save [copy]" }

func (c *SaveCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	asCopy := len(args) > 0 && strings.EqualFold(args[0], "copy")

	v, err := r.studio.Save(ctx, asCopy)
	if err != nil {
		return err
	}
	if asCopy {
		fmt.Fprintf(r.out, "Saved as copy: %s\n", shortID(v.ID))
	} else {
		fmt.Fprintf(r.out, "Saved: %s\n", shortID(v.ID))
	}
	return nil
}

// ShowCommand re-renders the current image.
type ShowCommand struct{}

func (c *ShowCommand) Name() string        { return "show" }
func (c *ShowCommand) Aliases() []string   { return []string{"display"} }
func (c *ShowCommand) Description() string { return "Display the current design" }
func (c *ShowCommand) Usage() string       { return "show" }

func (c *ShowCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	v := r.studio.View()
	if v.ID == "" {
		return studioNoCurrent()
	}
	if v.AwaitingSelection {
		r.showView(v)
		return nil
	}

	rows := [][]string{
		{"id", v.ID},
		{"title", v.Title},
		{"folder", v.Folder},
		{"revision", fmt.Sprintf("%d of %d", v.Cursor+1, v.HistoryLen)},
		{"video", v.Video},
	}
	fmt.Fprintln(r.out, renderTable([]string{"Field", "Value"}, rows, nil))

	if v.PrimaryImage != "" && r.displayer != nil {
		if err := r.displayer.ShowFile(v.PrimaryImage); err != nil {
			fmt.Fprintf(r.err, "Warning: failed to display: %v\n", err)
		}
	}
	return nil
}

// OpenCommand loads a design from the library.
type OpenCommand struct{}

func (c *OpenCommand) Name() string        { return "open" }
func (c *OpenCommand) Aliases() []string   { return []string{"o"} }
func (c *OpenCommand) Description() string { return "Open a design from the library" }
func (c *OpenCommand) Usage() string       { return "open <id>" }

func (c *OpenCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	v, err := r.studio.SelectDesign(ctx, args[0])
	if err != nil {
		return err
	}
	r.showView(v)
	fmt.Fprintf(r.out, "Opened: %s\n", displayTitle(v.Title, v.ID))
	return nil
}

// ListCommand prints the library, newest first.
type ListCommand struct{}

func (c *ListCommand) Name() string        { return "list" }
func (c *ListCommand) Aliases() []string   { return []string{"ls", "l"} }
func (c *ListCommand) Description() string { return "List saved designs, optionally by folder" }
func (c *ListCommand) Usage() string       { return "list [folder]" }

func (c *ListCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	designs, err := r.library.ListAll(ctx)
	if err != nil {
		return err
	}

	var folder string
	if len(args) > 0 {
		folder = strings.Join(args, " ")
	}

	var rows [][]string
	for _, d := range designs {
		if folder != "" && d.Folder != folder {
			continue
		}
		video := ""
		if d.Video != "" {
			video = "yes"
		}
		rows = append(rows, []string{
			shortID(d.ID),
			d.Metadata.Title,
			d.Folder,
			strconv.Itoa(d.History.Len()),
			video,
			d.CreatedAt.Format(time.DateOnly),
		})
	}

	if len(rows) == 0 {
		fmt.Fprintln(r.out, "No designs found.")
		return nil
	}
	fmt.Fprintln(r.out, renderTable(
		[]string{"ID", "Title", "Folder", "Revisions", "Video", "Created"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
	return nil
}

// ExportCommand copies the current image to a user path.
type ExportCommand struct{}

func (c *ExportCommand) Name() string        { return "export" }
func (c *ExportCommand) Aliases() []string   { return nil }
func (c *ExportCommand) Description() string { return "Export the current image to a file" }
func (c *ExportCommand) Usage() string       { return "export [path]" }

func (c *ExportCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	v := r.studio.View()
	if v.ID == "" || v.AwaitingSelection {
		return studioNoCurrent()
	}

	dest := security.TitleSlug(v.Title) + ".png"
	if len(args) > 0 {
		dest = args[0]
	}
	if err := security.ValidateExportPath(dest); err != nil {
		return err
	}

	if err := r.saver.Export(v.PrimaryImage, dest); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Exported: %s\n", dest)
	return nil
}

// FoldersCommand lists folder names.
type FoldersCommand struct{}

func (c *FoldersCommand) Name() string        { return "folders" }
func (c *FoldersCommand) Aliases() []string   { return []string{"f"} }
func (c *FoldersCommand) Description() string { return "List folders" }
func (c *FoldersCommand) Usage() string       { return "folders" }

func (c *FoldersCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	folders, err := r.library.Folders(ctx)
	if err != nil {
		return err
	}

	designs, err := r.library.ListAll(ctx)
	if err != nil {
		return err
	}
	counts := make(map[string]int)
	for _, d := range designs {
		if d.Folder != "" {
			counts[d.Folder]++
		}
	}

	var rows [][]string
	for _, f := range folders {
		rows = append(rows, []string{f, strconv.Itoa(counts[f])})
		delete(counts, f)
	}
	// Labels that survived a folder deletion or were set free-form.
	var orphans []string
	for f := range counts {
		orphans = append(orphans, f)
	}
	sort.Strings(orphans)
	for _, f := range orphans {
		rows = append(rows, []string{f + " (unlisted)", strconv.Itoa(counts[f])})
	}

	fmt.Fprintln(r.out, renderTable([]string{"Folder", "Designs"}, rows, []columnAlignment{alignLeft, alignRight}))
	return nil
}

// MkFolderCommand registers a folder name.
type MkFolderCommand struct{}

func (c *MkFolderCommand) Name() string        { return "mkfolder" }
func (c *MkFolderCommand) Aliases() []string   { return nil }
func (c *MkFolderCommand) Description() string { return "Create a folder" }
func (c *MkFolderCommand) Usage() string       { return "mkfolder <name>" }

func (c *MkFolderCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	name := strings.Join(args, " ")
	if err := r.library.AddFolder(ctx, name); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Folder created: %s\n", name)
	return nil
}

// RmFolderCommand dissolves a folder, keeping its designs.
type RmFolderCommand struct{}

func (c *RmFolderCommand) Name() string        { return "rmfolder" }
func (c *RmFolderCommand) Aliases() []string   { return nil }
func (c *RmFolderCommand) Description() string { return "Delete a folder; its designs survive" }
func (c *RmFolderCommand) Usage() string       { return "rmfolder <name>" }

func (c *RmFolderCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	name := strings.Join(args, " ")
	if err := r.studio.DeleteFolder(ctx, name); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Folder deleted: %s (designs kept)\n", name)
	return nil
}

// MoveCommand assigns a design to a folder.
type MoveCommand struct{}

func (c *MoveCommand) Name() string        { return "move" }
func (c *MoveCommand) Aliases() []string   { return []string{"mv"} }
func (c *MoveCommand) Description() string { return "Move a design into a folder ('.' = current)" }
func (c *MoveCommand) Usage() string       { return "move <id|.> <folder>" }

func (c *MoveCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	id, err := r.currentID(args[0])
	if err != nil {
		return err
	}
	folder := strings.Join(args[1:], " ")

	if err := r.studio.MoveToFolder(ctx, id, folder); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Moved %s to %s\n", shortID(id), folder)
	return nil
}

// DeleteCommand removes a design and its artifacts.
type DeleteCommand struct{}

func (c *DeleteCommand) Name() string        { return "delete" }
func (c *DeleteCommand) Aliases() []string   { return []string{"del", "rm"} }
func (c *DeleteCommand) Description() string { return "Delete a design ('.' = current)" }
func (c *DeleteCommand) Usage() string       { return "delete <id|.>" }

func (c *DeleteCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	id, err := r.currentID(args[0])
	if err != nil {
		return err
	}
	if err := r.studio.DeleteDesign(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Deleted: %s\n", shortID(id))
	return nil
}

// RememberCommand saves the concept buffer as a reusable preset.
type RememberCommand struct{}

func (c *RememberCommand) Name() string        { return "remember" }
func (c *RememberCommand) Aliases() []string   { return nil }
func (c *RememberCommand) Description() string { return "Save the working concept as a preset" }
func (c *RememberCommand) Usage() string       { return "remember <title>" }

func (c *RememberCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	if err := r.concept.Validate(); err != nil {
		return err
	}

	title := strings.Join(args, " ")
	cfg := r.concept
	saved, err := r.library.SaveConcept(ctx, title, &cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Concept saved: %s (%s)\n", title, shortID(saved.ID))
	return nil
}

// RecallCommand loads a preset into the concept buffer.
type RecallCommand struct{}

func (c *RecallCommand) Name() string        { return "recall" }
func (c *RecallCommand) Aliases() []string   { return nil }
func (c *RecallCommand) Description() string { return "Load a saved concept into the buffer" }
func (c *RecallCommand) Usage() string       { return "recall <id>" }

func (c *RecallCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	concepts, err := r.library.ListConcepts(ctx)
	if err != nil {
		return err
	}
	for _, saved := range concepts {
		if saved.ID == args[0] || strings.HasPrefix(saved.ID, args[0]) {
			r.concept = *saved.StageConfig()
			fmt.Fprintf(r.out, "Concept loaded: %s\n", saved.Title)
			return nil
		}
	}
	return fmt.Errorf("%w: concept %s", models.ErrNotFound, args[0])
}

// ForgetCommand deletes a preset.
type ForgetCommand struct{}

func (c *ForgetCommand) Name() string        { return "forget" }
func (c *ForgetCommand) Aliases() []string   { return nil }
func (c *ForgetCommand) Description() string { return "Delete a saved concept" }
func (c *ForgetCommand) Usage() string       { return "forget <id>" }

func (c *ForgetCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	if err := r.library.DeleteConcept(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Concept deleted.")
	return nil
}

// ConceptsCommand lists saved presets.
type ConceptsCommand struct{}

func (c *ConceptsCommand) Name() string        { return "concepts" }
func (c *ConceptsCommand) Aliases() []string   { return nil }
func (c *ConceptsCommand) Description() string { return "List saved concepts" }
func (c *ConceptsCommand) Usage() string       { return "concepts" }

func (c *ConceptsCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	concepts, err := r.library.ListConcepts(ctx)
	if err != nil {
		return err
	}
	if len(concepts) == 0 {
		fmt.Fprintln(r.out, "No saved concepts.")
		return nil
	}

	var rows [][]string
	for _, saved := range concepts {
		rows = append(rows, []string{
			shortID(saved.ID),
			saved.Title,
			saved.Elements,
			saved.Vibe,
		})
	}
	fmt.Fprintln(r.out, renderTable([]string{"ID", "Title", "Elements", "Vibe"}, rows, nil))
	return nil
}

// StatsCommand prints API usage aggregates.
type StatsCommand struct{}

func (c *StatsCommand) Name() string        { return "stats" }
func (c *StatsCommand) Aliases() []string   { return nil }
func (c *StatsCommand) Description() string { return "Show API usage by operation" }
func (c *StatsCommand) Usage() string       { return "stats" }

func (c *StatsCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	usage, err := r.library.UsageSummary(ctx)
	if err != nil {
		return err
	}
	if len(usage) == 0 {
		fmt.Fprintln(r.out, "No operations recorded yet.")
		return nil
	}

	var rows [][]string
	for _, u := range usage {
		rows = append(rows, []string{
			u.Operation,
			strconv.Itoa(u.Calls),
			strconv.Itoa(u.ArtifactCount),
		})
	}
	fmt.Fprintln(r.out, renderTable(
		[]string{"Operation", "Calls", "Artifacts"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight},
	))
	return nil
}

// AutosaveCommand toggles autosave.
type AutosaveCommand struct{}

func (c *AutosaveCommand) Name() string        { return "autosave" }
func (c *AutosaveCommand) Aliases() []string   { return nil }
func (c *AutosaveCommand) Description() string { return "Toggle automatic persistence" }
func (c *AutosaveCommand) Usage() string       { return "autosave [on|off]" }

func (c *AutosaveCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		state := "off"
		if r.studio.Autosave() {
			state = "on"
		}
		fmt.Fprintf(r.out, "autosave is %s\n", state)
		return nil
	}

	switch strings.ToLower(args[0]) {
	case "on":
		r.studio.SetAutosave(true)
		fmt.Fprintln(r.out, "autosave on")
	case "off":
		r.studio.SetAutosave(false)
		fmt.Fprintln(r.out, "autosave off")
	default:
		return fmt.Errorf("usage: %s", c.Usage())
	}
	return nil
}

// HelpCommand lists commands.
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Aliases() []string   { return []string{"?"} }
func (c *HelpCommand) Description() string { return "Show available commands" }
func (c *HelpCommand) Usage() string       { return "help" }

func (c *HelpCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	seen := make(map[string]bool)
	var names []string
	for _, cmd := range r.commands {
		if !seen[cmd.Name()] {
			seen[cmd.Name()] = true
			names = append(names, cmd.Name())
		}
	}
	sort.Strings(names)

	fmt.Fprintln(r.out, "Commands:")
	for _, name := range names {
		cmd := r.commands[name]
		aliases := ""
		if len(cmd.Aliases()) > 0 {
			aliases = " (" + strings.Join(cmd.Aliases(), ", ") + ")"
		}
		fmt.Fprintf(r.out, "  %-28s %s%s\n", cmd.Usage(), cmd.Description(), aliases)
	}
	return nil
}

// QuitCommand exits the loop.
type QuitCommand struct{}

func (c *QuitCommand) Name() string        { return "quit" }
func (c *QuitCommand) Aliases() []string   { return []string{"exit", "q"} }
func (c *QuitCommand) Description() string { return "Exit" }
func (c *QuitCommand) Usage() string       { return "quit" }

func (c *QuitCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	r.Stop()
	fmt.Fprintln(r.out, "Bye.")
	return nil
}

func displayTitle(title, id string) string {
	if title != "" {
		return title
	}
	return shortID(id)
}
