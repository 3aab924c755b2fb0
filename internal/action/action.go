// Package action implements the undo and redo history of document edits.
package action

// Target is the object that an action modifies.
type Target interface {
	MarkDirty()
}

// Action is a reversible edit of a target.
type Action struct {
	Target      Target
	Description string

	undo func()
	redo func()
}

// New returns a new action. The redo function applies the edit, the undo
// function reverts it.
func New(target Target, description string, undo, redo func()) *Action {
	return &Action{
		Target:      target,
		Description: description,
		undo:        undo,
		redo:        redo,
	}
}

// Entry is a single history step, it contains one action or the actions of a
// transaction.
type Entry struct {
	Description string
	Actions     []*Action
}

func (e *Entry) apply(undo bool) {
	if undo {
		for i := len(e.Actions) - 1; i >= 0; i-- {
			if f := e.Actions[i].undo; f != nil {
				f()
			}
		}
		return
	}

	for _, a := range e.Actions {
		if f := a.redo; f != nil {
			f()
		}
	}
}

// Log records executed actions and provides undo and redo.
type Log struct {
	undoStack []*Entry
	redoStack []*Entry
	group     *Entry
}

// NewLog returns an empty history.
func NewLog() *Log {
	return &Log{}
}

// Do executes the action and records it. A new action clears the redo
// history. While a transaction is open, the action becomes part of it.
func (l *Log) Do(a *Action) {
	l.redoStack = nil
	if a.redo != nil {
		a.redo()
	}

	if l.group != nil {
		l.group.Actions = append(l.group.Actions, a)
		return
	}
	l.undoStack = append(l.undoStack, &Entry{
		Description: a.Description,
		Actions:     []*Action{a},
	})
}

// Begin opens a transaction. Calling it while a transaction is open has no
// effect.
func (l *Log) Begin(description string) {
	if l.group != nil {
		return
	}
	l.group = &Entry{Description: description}
}

// End closes the open transaction and records it as a single history step.
// Empty transactions are discarded.
func (l *Log) End() {
	group := l.group
	l.group = nil
	if group == nil || len(group.Actions) == 0 {
		return
	}
	l.undoStack = append(l.undoStack, group)
}

// InTransaction returns whether a transaction is open.
func (l *Log) InTransaction() bool {
	return l.group != nil
}

// Undo reverts the last history step. It returns false if there is nothing
// to undo.
func (l *Log) Undo() bool {
	if len(l.undoStack) == 0 {
		return false
	}
	entry := l.undoStack[len(l.undoStack)-1]
	l.undoStack = l.undoStack[:len(l.undoStack)-1]
	entry.apply(true)
	l.redoStack = append(l.redoStack, entry)
	return true
}

// Redo reapplies the last undone history step. It returns false if there is
// nothing to redo.
func (l *Log) Redo() bool {
	if len(l.redoStack) == 0 {
		return false
	}
	entry := l.redoStack[len(l.redoStack)-1]
	l.redoStack = l.redoStack[:len(l.redoStack)-1]
	entry.apply(false)
	l.undoStack = append(l.undoStack, entry)
	return true
}

// CanUndo returns whether there is a step to undo.
func (l *Log) CanUndo() bool {
	return len(l.undoStack) > 0
}

// CanRedo returns whether there is a step to redo.
func (l *Log) CanRedo() bool {
	return len(l.redoStack) > 0
}

// UndoDescription returns the description of the next undo step.
func (l *Log) UndoDescription() string {
	if len(l.undoStack) == 0 {
		return ""
	}
	return l.undoStack[len(l.undoStack)-1].Description
}

// RedoDescription returns the description of the next redo step.
func (l *Log) RedoDescription() string {
	if len(l.redoStack) == 0 {
		return ""
	}
	return l.redoStack[len(l.redoStack)-1].Description
}

// MarkDirty marks the targets of all recorded actions as dirty, including
// undone ones, so that a following assembly writes their current state.
func (l *Log) MarkDirty() {
	for _, stack := range [][]*Entry{l.undoStack, l.redoStack} {
		for _, entry := range stack {
			for _, a := range entry.Actions {
				if a.Target != nil {
					a.Target.MarkDirty()
				}
			}
		}
	}
}

// Clear removes the complete history.
func (l *Log) Clear() {
	l.undoStack = nil
	l.redoStack = nil
	l.group = nil
}
