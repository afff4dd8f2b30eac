package player

import (
	"context"
	"errors"
	"fmt"
	"lrcplay/pkg/lrclib"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

var ErrNoTrack = errors.New("no track is playing")

const metadataFormat = "{{title}}\t{{artist}}\t{{album}}"

// Track is the song a desktop player reports.
type Track struct {
	Title  string
	Artist string
	Album  string
}

// Params turns the track into search parameters, leaving out empty fields.
func (t Track) Params() map[string]string {
	params := map[string]string{lrclib.ParamTrack: t.Title}
	if t.Artist != "" {
		params[lrclib.ParamArtist] = t.Artist
	}
	if t.Album != "" {
		params[lrclib.ParamAlbum] = t.Album
	}
	return params
}

func (t Track) String() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}

// runner runs a command and returns its standard output.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Playerctl asks the playerctl command line tool. It covers players that
// are not on the session bus, such as those reached through playerctld.
type Playerctl struct {
	run     runner
	timeout time.Duration
}

func NewPlayerctl() *Playerctl {
	return &Playerctl{run: execRunner, timeout: 3 * time.Second}
}

func (p *Playerctl) GetCurrentTrack(ctx context.Context) (Track, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.run(ctx, "playerctl", "metadata", "--format", metadataFormat)
	if err != nil {
		return Track{}, fmt.Errorf("playerctl metadata: %w", err)
	}
	return parseMetadata(string(out))
}

func (p *Playerctl) GetCurrentPlayTime(ctx context.Context) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.run(ctx, "playerctl", "position")
	if err != nil {
		return 0, fmt.Errorf("playerctl position: %w", err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse position %q: %w", strings.TrimSpace(string(out)), err)
	}
	if seconds < 0 {
		seconds = 0
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func parseMetadata(out string) (Track, error) {
	fields := strings.Split(strings.TrimRight(out, "\r\n"), "\t")
	for len(fields) < 3 {
		fields = append(fields, "")
	}
	t := Track{
		Title:  strings.TrimSpace(fields[0]),
		Artist: strings.TrimSpace(fields[1]),
		Album:  strings.TrimSpace(fields[2]),
	}
	if t.Title == "" {
		return Track{}, ErrNoTrack
	}
	return t, nil
}
