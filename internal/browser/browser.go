package browser

import (
	"errors"
	"fmt"
	"lrcplay/internal/terminal"
	"lrcplay/pkg/lrclib"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultPageSize = 5

	helpLine = "[↑/↓] Move  [←/→] Page  [Enter] Select  [Esc] Quit"

	// The marker keeps the selection visible when colours are off.
	selectedMarker   = "> "
	unselectedMarker = "  "
)

var (
	ErrNoMatchingSongs = errors.New("no matching songs")
	ErrAborted         = errors.New("user aborted")
)

var (
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

// Browser lets the user page through search results and pick one.
type Browser struct {
	pageSize    int
	programOpts []tea.ProgramOption
	logger      zerolog.Logger
}

type Option func(*Browser)

func WithPageSize(n int) Option {
	return func(b *Browser) {
		if n > 0 {
			b.pageSize = n
		}
	}
}

// WithProgramOptions passes options such as input and output on to the
// bubbletea program.
func WithProgramOptions(opts ...tea.ProgramOption) Option {
	return func(b *Browser) { b.programOpts = append(b.programOpts, opts...) }
}

func New(opts ...Option) *Browser {
	b := &Browser{
		pageSize: DefaultPageSize,
		logger:   log.With().Str("component", "browser").Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Browsable keeps the non-instrumental results that carry synced lyrics, in
// their original order.
func Browsable(results []lrclib.SearchResult) []lrclib.SearchResult {
	var songs []lrclib.SearchResult
	for _, r := range results {
		if !r.Instrumental && r.HasSyncedLyrics() {
			songs = append(songs, r)
		}
	}
	return songs
}

// Browse runs the selection loop and returns the chosen song's synced lyrics.
func (b *Browser) Browse(results []lrclib.SearchResult) (string, error) {
	song, err := b.Choose(results)
	if err != nil {
		return "", err
	}
	return song.Synced(), nil
}

// Choose runs the selection loop and returns the chosen song. The terminal is
// restored before Choose returns, whatever the outcome.
func (b *Browser) Choose(results []lrclib.SearchResult) (lrclib.SearchResult, error) {
	songs := Browsable(results)
	if len(songs) == 0 {
		return lrclib.SearchResult{}, ErrNoMatchingSongs
	}
	b.logger.Debug().Int("results", len(results)).Int("browsable", len(songs)).Msg("Starting browser")

	final, err := terminal.Run(newModel(songs, b.pageSize), b.programOpts...)
	if err != nil {
		return lrclib.SearchResult{}, fmt.Errorf("run browser: %w", err)
	}
	m := final.(model)
	if !m.selected {
		b.logger.Info().Msg("Browser aborted")
		return lrclib.SearchResult{}, ErrAborted
	}

	chosen := m.songs[m.state.Index()]
	b.logger.Info().Int64("id", chosen.ID).Str("artist", chosen.ArtistName).Str("title", chosen.TrackName).Msg("Song selected")
	return chosen, nil
}

// model is the selection screen. It quits on Enter with selected set, or on
// Esc and Ctrl+C without.
type model struct {
	songs    []lrclib.SearchResult
	state    State
	width    int
	selected bool
}

func newModel(songs []lrclib.SearchResult, pageSize int) model {
	return model{songs: songs, state: NewState(len(songs), pageSize)}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch action := ActionFor(msg); action {
		case ActionSelect:
			m.selected = true
			return m, tea.Quit
		case ActionAbort:
			return m, tea.Quit
		default:
			m.state, _ = m.state.Apply(action)
		}
	}
	return m, nil
}

func (m model) View() string {
	return render(m.songs, m.state, m.width)
}

func formatRow(n int, song lrclib.SearchResult) string {
	return fmt.Sprintf("%d. %s - %s (%s) [%.1fs]", n, song.ArtistName, song.TrackName, song.AlbumName, song.Duration)
}

// render draws the current page. Rows are cut to width, marker included.
func render(songs []lrclib.SearchResult, state State, width int) string {
	var sb strings.Builder
	start, end := state.Bounds()
	for i := start; i < end; i++ {
		row := formatRow(i+1, songs[i])
		if width > len(selectedMarker) {
			row = runewidth.Truncate(row, width-len(selectedMarker), "…")
		}
		if i-start == state.Selected {
			sb.WriteString(selectedMarker)
			sb.WriteString(selectedStyle.Render(row))
		} else {
			sb.WriteString(unselectedMarker)
			sb.WriteString(row)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Page %d/%d\n", state.Page+1, state.Pages())
	sb.WriteString(helpStyle.Render(helpLine))
	return sb.String()
}
