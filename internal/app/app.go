package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"lrcplay/internal/browser"
	"lrcplay/internal/config"
	"lrcplay/internal/lyrics"
	"lrcplay/internal/player"
	"lrcplay/internal/terminal"
	"lrcplay/pkg/lrclib"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	msgDebug      = "--- DEBUG MODE ENABLED ---"
	msgPrompt     = "Enter keywords to look for a song (title, artist, album):"
	msgSearching  = "Searching..."
	msgPause      = "Press any key to continue..."
	msgNoMatches  = "No result was found for the provided search."
	msgNoSynced   = "No synced lyrics found."
	msgNoMatching = "No matching songs"
	msgAborted    = "User aborted"
	msgAmbiguous  = "Warning: 'q' overrides 'track_name'."

	searchTimeout = 30 * time.Second
)

var (
	ErrNoMatches      = errors.New("no result was found for the provided search")
	ErrNoSyncedLyrics = errors.New("no synced lyrics found")
)

// Options are the command line arguments of one run.
type Options struct {
	Title      string
	Query      string
	Artist     string
	Album      string
	Debug      bool
	NowPlaying bool
}

// Auto reports whether the run searches with structured arguments and
// plays the first result without browsing.
func (o Options) Auto() bool {
	return o.Title != "" || o.Query != "" || o.NowPlaying
}

func (o Options) Params() map[string]string {
	params := make(map[string]string)
	for key, value := range map[string]string{
		lrclib.ParamTrack:  o.Title,
		lrclib.ParamQuery:  o.Query,
		lrclib.ParamArtist: o.Artist,
		lrclib.ParamAlbum:  o.Album,
	} {
		if value != "" {
			params[key] = value
		}
	}
	return params
}

type lyricsSource interface {
	Search(ctx context.Context, params map[string]string) ([]lrclib.SearchResult, error)
	SearchText(ctx context.Context, text string) ([]lrclib.SearchResult, error)
	Export(song lrclib.SearchResult) (string, error)
}

type chooser interface {
	Choose(results []lrclib.SearchResult) (lrclib.SearchResult, error)
}

type lyricsPlayer interface {
	PlayFrom(text string, offset time.Duration, verbose bool) error
}

type trackSource interface {
	GetCurrentTrack(ctx context.Context) (player.Track, error)
	GetCurrentPlayTime(ctx context.Context) (time.Duration, error)
}

type App struct {
	cfg        *config.Config
	source     lyricsSource
	browser    chooser
	player     lyricsPlayer
	nowPlaying trackSource
	waitForKey func() error
	in         io.Reader
	out        io.Writer
	errOut     io.Writer
	closers    []io.Closer
	logger     zerolog.Logger
}

func New(cfg *config.Config, debug bool) *App {
	logFile := setupLogger(cfg, debug)

	a := &App{
		cfg:        cfg,
		nowPlaying: player.NewChain(player.NewMPRIS(cfg.App.MPRISService), player.NewPlayerctl()),
		waitForKey: func() error { return terminal.WaitForKey() },
		in:         os.Stdin,
		out:        os.Stdout,
		errOut:     os.Stderr,
		logger:     log.With().Str("component", "app").Logger(),
	}
	if logFile != nil {
		a.closers = append(a.closers, logFile)
	}

	clientOpts := []lrclib.Option{
		lrclib.WithBaseURL(cfg.LRCLib.BaseURL),
		lrclib.WithUserAgent(cfg.LRCLib.UserAgent),
		lrclib.WithRequestTimeout(cfg.LRCLib.RequestTimeout),
		lrclib.WithRetries(cfg.LRCLib.MaxRetries, 500*time.Millisecond),
		lrclib.WithRateLimit(cfg.LRCLib.RateLimit, cfg.LRCLib.RateBurst),
	}
	if cache, closer := openCache(cfg); cache != nil {
		clientOpts = append(clientOpts, lrclib.WithCache(cache, cfg.Cache.TTL))
		a.closers = append(a.closers, closer)
	}

	aiClient, err := lyrics.NewAIClient(cfg.AI.ModuleName, cfg.AI.APIKey, cfg.AI.BaseURL)
	if err != nil {
		a.logger.Warn().Err(err).Msg("AI resolver unavailable, free text goes straight to lrclib")
	}
	if closer, ok := aiClient.(io.Closer); ok {
		a.closers = append(a.closers, closer)
	}

	exportDir := ""
	if cfg.App.SaveLRC {
		exportDir = cfg.App.CacheDir
	}
	a.source = lyrics.NewProvider(lrclib.NewClient(clientOpts...), aiClient, exportDir)
	a.browser = browser.New(browser.WithPageSize(cfg.App.PageSize))
	a.player = player.New(player.WithLinger(cfg.App.Linger))
	return a
}

// Run searches once and plays the result. Errors are shown to the user and
// never change the exit status.
func (a *App) Run(ctx context.Context, opts Options) {
	err := a.run(ctx, opts)
	if err == nil {
		return
	}
	if ctx.Err() != nil {
		a.logger.Info().Err(err).Msg("Cancelled")
		return
	}
	a.logger.Error().Err(err).Bool("auto", opts.Auto()).Msg("Run failed")

	fmt.Fprintln(a.errOut, userMessage(err))
	if !opts.Auto() {
		fmt.Fprintln(a.out, msgPause)
		if err := a.waitForKey(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to wait for key press")
		}
	}
}

func (a *App) run(ctx context.Context, opts Options) error {
	if opts.Debug && !opts.Auto() {
		fmt.Fprintln(a.out, msgDebug)
	}

	if opts.NowPlaying {
		return a.runNowPlaying(ctx, opts)
	}
	if opts.Auto() {
		results, err := a.search(ctx, func(ctx context.Context) ([]lrclib.SearchResult, error) {
			return a.source.Search(ctx, opts.Params())
		})
		if err != nil {
			return err
		}
		song, err := first(results)
		if err != nil {
			return err
		}
		return a.play(song, 0, opts.Debug)
	}

	fmt.Fprintln(a.out, msgPrompt)
	text, err := readLine(ctx, a.in)
	if err != nil && !(errors.Is(err, io.EOF) && text != "") {
		return fmt.Errorf("read search keywords: %w", err)
	}
	text = strings.TrimSpace(text)
	a.logger.Info().Str("text", text).Msg("Interactive search")

	results, err := a.search(ctx, func(ctx context.Context) ([]lrclib.SearchResult, error) {
		return a.source.SearchText(ctx, text)
	})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return ErrNoMatches
	}
	song, err := a.browser.Choose(results)
	if err != nil {
		return err
	}
	return a.play(song, 0, opts.Debug)
}

// runNowPlaying looks up what the desktop player is playing and starts the
// lyrics at its current position.
func (a *App) runNowPlaying(ctx context.Context, opts Options) error {
	track, err := a.nowPlaying.GetCurrentTrack(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current track: %w", err)
	}
	a.logger.Info().Str("track", track.String()).Msg("Now playing")

	results, err := a.search(ctx, func(ctx context.Context) ([]lrclib.SearchResult, error) {
		return a.source.Search(ctx, track.Params())
	})
	if err != nil {
		return err
	}
	song, err := first(results)
	if err != nil {
		return err
	}

	offset, err := a.nowPlaying.GetCurrentPlayTime(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Unknown playback position, starting from the top")
		offset = 0
	}
	return a.play(song, offset, opts.Debug)
}

func (a *App) search(ctx context.Context, fn func(context.Context) ([]lrclib.SearchResult, error)) ([]lrclib.SearchResult, error) {
	fmt.Fprintln(a.out, msgSearching)

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	results, err := fn(ctx)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	a.logger.Info().Int("results", len(results)).Msg("Search finished")
	return results, nil
}

func first(results []lrclib.SearchResult) (lrclib.SearchResult, error) {
	if len(results) == 0 {
		return lrclib.SearchResult{}, ErrNoMatches
	}
	if !results[0].HasSyncedLyrics() {
		return lrclib.SearchResult{}, ErrNoSyncedLyrics
	}
	return results[0], nil
}

func (a *App) play(song lrclib.SearchResult, offset time.Duration, verbose bool) error {
	if path, err := a.source.Export(song); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to save lyrics")
	} else if path != "" {
		a.logger.Debug().Str("path", path).Msg("Lyrics saved")
	}

	a.logger.Info().Int64("id", song.ID).Str("artist", song.ArtistName).Str("title", song.TrackName).Msg("Playing")
	return a.player.PlayFrom(song.Synced(), offset, verbose)
}

// readLine returns the next line of r, or early with ctx's error. A cooked
// terminal turns Ctrl+C into a signal, so the read itself never sees it.
func readLine(ctx context.Context, r io.Reader) (string, error) {
	type line struct {
		text string
		err  error
	}
	ch := make(chan line, 1)
	go func() {
		text, err := bufio.NewReader(r).ReadString('\n')
		ch <- line{text, err}
	}()

	select {
	case l := <-ch:
		return l.text, l.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoMatches):
		return msgNoMatches
	case errors.Is(err, ErrNoSyncedLyrics):
		return msgNoSynced
	case errors.Is(err, browser.ErrNoMatchingSongs):
		return msgNoMatching
	case errors.Is(err, browser.ErrAborted):
		return msgAborted
	case errors.Is(err, lrclib.ErrAmbiguousQuery):
		return msgAmbiguous
	default:
		return "Error: " + err.Error()
	}
}

// Close releases the cache, the AI client and the log file.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
