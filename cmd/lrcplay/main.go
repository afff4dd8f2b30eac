package main

import (
	"context"
	"flag"
	"fmt"
	"lrcplay/internal/app"
	"lrcplay/internal/config"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func parseFlags(args []string) (app.Options, string, error) {
	var (
		opts       app.Options
		configPath string
	)
	fs := flag.NewFlagSet("lrcplay", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: lrcplay [-t title] [-q query] [--artist a] [--album b] [-d] [--now-playing] [--config path]")
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.Title, "t", "", "song title (shorthand)")
	fs.StringVar(&opts.Title, "title", "", "song title")
	fs.StringVar(&opts.Query, "q", "", "free text query (shorthand)")
	fs.StringVar(&opts.Query, "query", "", "free text query")
	fs.StringVar(&opts.Artist, "artist", "", "artist name")
	fs.StringVar(&opts.Album, "album", "", "album name")
	fs.BoolVar(&opts.Debug, "d", false, "show timing diagnostics (shorthand)")
	fs.BoolVar(&opts.Debug, "debug", false, "show timing diagnostics")
	fs.BoolVar(&opts.NowPlaying, "now-playing", false, "look up the song playing in the desktop player")
	fs.StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/lrcplay/config.toml)")

	if err := fs.Parse(args); err != nil {
		return app.Options{}, "", err
	}
	return opts, configPath, nil
}

func main() {
	opts, configPath, err := parseFlags(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			return
		}
		os.Exit(2)
	}

	// The log file is not open while the config loads; only warnings get through.
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	cfg := config.Load(configPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg, opts.Debug)
	defer a.Close()
	a.Run(ctx, opts)
}
