// Package terminal runs the full-screen views of the player on bubbletea.
package terminal

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Run shows m on the alternate screen until it quits and returns the final
// model. The terminal is back in its original mode when Run returns, also on
// error. opts come after the defaults, so tests can swap input and output.
func Run(m tea.Model, opts ...tea.ProgramOption) (tea.Model, error) {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	return tea.NewProgram(m, opts...).Run()
}

// WaitForKey blocks until any key is pressed. It stays on the main screen so
// whatever was printed before remains visible.
func WaitForKey(opts ...tea.ProgramOption) error {
	_, err := tea.NewProgram(anyKey{}, opts...).Run()
	return err
}

type anyKey struct{}

func (anyKey) Init() tea.Cmd { return nil }

func (m anyKey) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		return m, tea.Quit
	}
	return m, nil
}

func (anyKey) View() string { return "" }
