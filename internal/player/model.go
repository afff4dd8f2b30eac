package player

import (
	"fmt"
	"lrcplay/internal/lyrics"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// step is one piece of output and the time since playback start at which it
// is due.
type step struct {
	at   time.Duration
	text string

	// Set on the first step of a line, for the timing prefix.
	lineStart bool
	stamp     float64
	perChar   time.Duration

	last bool
}

// plan lays out every write of a song. A line's runes are spread evenly over
// its slot and the newline lands on the next timestamp; the last line is
// written in one piece. Times never go backwards, so out of order stamps
// play immediately after their predecessor.
func plan(lines []lyrics.Line) []step {
	var steps []step
	add := func(s step) {
		if n := len(steps); n > 0 && s.at < steps[n-1].at {
			s.at = steps[n-1].at
		}
		steps = append(steps, s)
	}

	for i, line := range lines {
		at := lyrics.Seconds(line.Time)
		if i == len(lines)-1 {
			add(step{at: at, text: line.Text + "\n", lineStart: true, stamp: line.Time, last: true})
			break
		}

		next := lines[i+1]
		perChar := lyrics.CharDelay(line, next)
		first := step{at: at, lineStart: true, stamp: line.Time, perChar: perChar}
		k := 0
		for _, r := range line.Text {
			s := step{at: at + perChar*time.Duration(k), text: string(r)}
			if k == 0 {
				first.text = s.text
				s = first
			}
			add(s)
			k++
		}
		if k == 0 {
			add(first)
		}
		add(step{at: lyrics.Seconds(next.Time), text: "\n"})
	}
	return steps
}

// stepMsg wakes the model when the next step is due.
type stepMsg struct{}

func tick(d time.Duration) tea.Cmd {
	if d <= 0 {
		return func() tea.Msg { return stepMsg{} }
	}
	return tea.Tick(d, func(time.Time) tea.Msg { return stepMsg{} })
}

// model plays a planned song. Deadlines are measured from the start of
// playback, so slow redraws never push later lines back.
type model struct {
	steps   []step
	next    int
	clock   Clock
	start   time.Time
	offset  time.Duration
	linger  time.Duration
	verbose bool
	tick    func(time.Duration) tea.Cmd

	out         strings.Builder
	width       int
	quitAt      time.Duration
	finished    bool
	interrupted bool
}

func (m *model) Init() tea.Cmd {
	m.start = m.clock.Now().Add(-m.offset)
	return m.schedule()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		if isInterrupt(msg) {
			m.interrupted = true
			return m, tea.Quit
		}
	case stepMsg:
		m.advance()
		return m, m.schedule()
	}
	return m, nil
}

func (m *model) View() string {
	if m.width > 0 {
		return lipgloss.NewStyle().Width(m.width).Render(m.out.String())
	}
	return m.out.String()
}

func (m *model) elapsed() time.Duration {
	return m.clock.Now().Sub(m.start)
}

// advance writes every step that is due, catching up after a late wake.
func (m *model) advance() {
	now := m.elapsed()
	for m.next < len(m.steps) && m.steps[m.next].at <= now {
		s := m.steps[m.next]
		if s.lineStart && m.verbose {
			fmt.Fprintf(&m.out, "[%6.2fs | %6.2fs | %4dms] ", s.stamp, now.Seconds(), s.perChar.Milliseconds())
		}
		m.out.WriteString(s.text)
		if s.last {
			m.quitAt = now + m.linger
		}
		m.next++
	}
}

func (m *model) schedule() tea.Cmd {
	due := m.quitAt
	if m.next < len(m.steps) {
		due = m.steps[m.next].at
	} else if m.elapsed() >= m.quitAt {
		m.finished = true
		return tea.Quit
	}
	return m.tick(due - m.elapsed())
}

func isInterrupt(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "esc", "ctrl+c", "q":
		return true
	}
	return false
}
