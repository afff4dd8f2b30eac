package browser

import tea "github.com/charmbracelet/bubbletea"

// Action is what a key press asks the browser to do.
type Action int

const (
	ActionNone Action = iota
	ActionUp
	ActionDown
	ActionLeft
	ActionRight
	ActionSelect
	ActionAbort
)

// ActionFor maps a key press to a browser action. Vim keys mirror the
// arrows; Ctrl+C aborts because the program reads it as an ordinary key.
func ActionFor(msg tea.KeyMsg) Action {
	switch msg.String() {
	case "up", "k":
		return ActionUp
	case "down", "j":
		return ActionDown
	case "left", "h":
		return ActionLeft
	case "right", "l":
		return ActionRight
	case "enter":
		return ActionSelect
	case "esc", "ctrl+c":
		return ActionAbort
	}
	return ActionNone
}

// State is the page and in-page selection over a list of Total entries.
type State struct {
	Page     int
	Selected int
	PageSize int
	Total    int
}

// NewState starts on the first entry of the first page. A non-positive page
// size falls back to DefaultPageSize.
func NewState(total, pageSize int) State {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return State{PageSize: pageSize, Total: total}
}

// Pages is ceil(Total / PageSize).
func (s State) Pages() int {
	return (s.Total + s.PageSize - 1) / s.PageSize
}

// Bounds is the half-open range of entries shown on the current page.
func (s State) Bounds() (start, end int) {
	start = s.Page * s.PageSize
	end = start + s.PageSize
	if end > s.Total {
		end = s.Total
	}
	return start, end
}

// PageLen is the number of entries on the current page.
func (s State) PageLen() int {
	start, end := s.Bounds()
	return end - start
}

// Index is the absolute position of the selected entry.
func (s State) Index() int {
	return s.Page*s.PageSize + s.Selected
}

// Apply moves the cursor and reports whether anything changed. Moves past
// an edge are no-ops; page changes reset the selection to the top.
func (s State) Apply(a Action) (State, bool) {
	switch a {
	case ActionUp:
		if s.Selected > 0 {
			s.Selected--
			return s, true
		}
	case ActionDown:
		if s.Selected+1 < s.PageLen() {
			s.Selected++
			return s, true
		}
	case ActionLeft:
		if s.Page > 0 {
			s.Page--
			s.Selected = 0
			return s, true
		}
	case ActionRight:
		if s.Page+1 < s.Pages() {
			s.Page++
			s.Selected = 0
			return s, true
		}
	}
	return s, false
}
