package player

import (
	"fmt"
	"lrcplay/internal/lyrics"
	"lrcplay/internal/terminal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultLinger = 2 * time.Second

// Clock is the time source playback is measured against.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Player prints synced lyrics character by character, in time with their
// timestamps.
type Player struct {
	clock       Clock
	linger      time.Duration
	programOpts []tea.ProgramOption
	logger      zerolog.Logger
}

type Option func(*Player)

func WithClock(clock Clock) Option {
	return func(p *Player) { p.clock = clock }
}

// WithLinger sets how long the last line stays on screen before the player
// returns. Zero returns right after it is drawn.
func WithLinger(d time.Duration) Option {
	return func(p *Player) {
		if d >= 0 {
			p.linger = d
		}
	}
}

// WithProgramOptions passes options such as input and output on to the
// bubbletea program.
func WithProgramOptions(opts ...tea.ProgramOption) Option {
	return func(p *Player) { p.programOpts = append(p.programOpts, opts...) }
}

func New(opts ...Option) *Player {
	p := &Player{
		clock:  systemClock{},
		linger: DefaultLinger,
		logger: log.With().Str("component", "player").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play shows text from its beginning.
func (p *Player) Play(text string, verbose bool) error {
	return p.PlayFrom(text, 0, verbose)
}

// PlayFrom shows text as if playback had started offset ago; lines whose
// time has already passed are written without delay. Escape, q or Ctrl+C
// stop playback early, which is not an error.
func (p *Player) PlayFrom(text string, offset time.Duration, verbose bool) error {
	m := p.newModel(text, offset, verbose)
	if m == nil {
		p.logger.Info().Msg("Nothing to play")
		return nil
	}

	p.logger.Debug().Int("steps", len(m.steps)).Dur("offset", offset).Msg("Playback started")
	if _, err := terminal.Run(m, p.programOpts...); err != nil {
		return fmt.Errorf("run player: %w", err)
	}
	if m.interrupted {
		p.logger.Info().Msg("Playback interrupted")
	}
	return nil
}

func (p *Player) newModel(text string, offset time.Duration, verbose bool) *model {
	all := lyrics.ParseLRC(text)
	lines := lyrics.Timed(all)
	if dropped := len(all) - len(lines); dropped > 0 {
		p.logger.Debug().Int("lines", dropped).Msg("Skipping untimed lines")
	}
	if len(lines) == 0 {
		return nil
	}
	return &model{
		steps:   plan(lines),
		clock:   p.clock,
		offset:  offset,
		linger:  p.linger,
		verbose: verbose,
		tick:    tick,
	}
}
