package models

// History is a design's linear image revision timeline: an undo/redo stack
// over accepted image locators. Appending while the cursor is behind the tail
// discards the abandoned branch, matching typical editor semantics. There is
// no branch tree; the structure stays strictly linear.
type History struct {
	Entries []string
	Cursor  int
}

// NewHistory creates a history whose first entry is the design's birth image.
func NewHistory(birth string) History {
	return History{Entries: []string{birth}}
}

// Append truncates everything after the cursor, appends the new state and
// moves the cursor to the tail.
func (h *History) Append(locator string) {
	if len(h.Entries) == 0 {
		h.Entries = []string{locator}
		h.Cursor = 0
		return
	}
	h.Entries = append(h.Entries[:h.Cursor+1], locator)
	h.Cursor = len(h.Entries) - 1
}

// Undo moves the cursor back one state. It reports false, leaving the history
// unchanged, when already at the first entry.
func (h *History) Undo() bool {
	if h.Cursor == 0 {
		return false
	}
	h.Cursor--
	return true
}

// Redo moves the cursor forward one state. It reports false, leaving the
// history unchanged, when already at the tail.
func (h *History) Redo() bool {
	if h.Cursor >= len(h.Entries)-1 {
		return false
	}
	h.Cursor++
	return true
}

// Current returns the active image locator, or "" for an empty history.
// A Design's history is never empty once the design exists.
func (h *History) Current() string {
	if len(h.Entries) == 0 {
		return ""
	}
	return h.Entries[h.Cursor]
}

func (h *History) CanUndo() bool { return h.Cursor > 0 }

func (h *History) CanRedo() bool { return h.Cursor < len(h.Entries)-1 }

func (h *History) Len() int { return len(h.Entries) }

// Clone returns an independent copy; mutating the clone never aliases the
// receiver's entries.
func (h *History) Clone() History {
	entries := make([]string, len(h.Entries))
	copy(entries, h.Entries)
	return History{Entries: entries, Cursor: h.Cursor}
}
