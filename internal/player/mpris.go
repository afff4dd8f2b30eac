package player

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	mprisPrefix      = "org.mpris.MediaPlayer2."
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
)

// bus is the part of a D-Bus session the MPRIS reader needs.
type bus interface {
	Names(ctx context.Context) ([]string, error)
	Property(ctx context.Context, service, name string) (dbus.Variant, error)
	Close() error
}

type sessionBus struct {
	conn *dbus.Conn
}

func connectSession() (bus, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	return sessionBus{conn: conn}, nil
}

func (b sessionBus) Names(ctx context.Context) ([]string, error) {
	var names []string
	err := b.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.ListNames", 0).Store(&names)
	return names, err
}

func (b sessionBus) Property(ctx context.Context, service, name string) (dbus.Variant, error) {
	var v dbus.Variant
	err := b.conn.Object(service, mprisPath).
		CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0, mprisPlayerIface, name).
		Store(&v)
	return v, err
}

func (b sessionBus) Close() error { return b.conn.Close() }

// MPRIS reads the desktop player over the session bus. With no service
// configured it picks the first player that is playing, or else the first
// one on the bus.
type MPRIS struct {
	connect func() (bus, error)
	service string
	timeout time.Duration
}

func NewMPRIS(service string) *MPRIS {
	return &MPRIS{connect: connectSession, service: service, timeout: 3 * time.Second}
}

func (m *MPRIS) GetCurrentTrack(ctx context.Context) (Track, error) {
	var track Track
	err := m.withPlayer(ctx, func(ctx context.Context, b bus, service string) error {
		prop, err := b.Property(ctx, service, "Metadata")
		if err != nil {
			return fmt.Errorf("read metadata of %s: %w", service, err)
		}
		metadata, ok := prop.Value().(map[string]dbus.Variant)
		if !ok {
			return fmt.Errorf("unexpected metadata type %T", prop.Value())
		}
		track = Track{
			Title:  metadataString(metadata, "xesam:title"),
			Artist: metadataString(metadata, "xesam:artist"),
			Album:  metadataString(metadata, "xesam:album"),
		}
		if track.Title == "" {
			return ErrNoTrack
		}
		return nil
	})
	return track, err
}

func (m *MPRIS) GetCurrentPlayTime(ctx context.Context) (time.Duration, error) {
	var position time.Duration
	err := m.withPlayer(ctx, func(ctx context.Context, b bus, service string) error {
		prop, err := b.Property(ctx, service, "Position")
		if err != nil {
			return fmt.Errorf("read position of %s: %w", service, err)
		}
		micros, ok := prop.Value().(int64)
		if !ok {
			return fmt.Errorf("unexpected position type %T", prop.Value())
		}
		if micros > 0 {
			position = time.Duration(micros) * time.Microsecond
		}
		return nil
	})
	return position, err
}

func (m *MPRIS) withPlayer(ctx context.Context, fn func(context.Context, bus, string) error) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	b, err := m.connect()
	if err != nil {
		return err
	}
	defer b.Close()

	service, err := m.pick(ctx, b)
	if err != nil {
		return err
	}
	return fn(ctx, b, service)
}

func (m *MPRIS) pick(ctx context.Context, b bus) (string, error) {
	if m.service != "" {
		return m.service, nil
	}
	names, err := b.Names(ctx)
	if err != nil {
		return "", fmt.Errorf("list bus names: %w", err)
	}

	var players []string
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			players = append(players, name)
		}
	}
	if len(players) == 0 {
		return "", ErrNoTrack
	}
	for _, name := range players {
		status, err := b.Property(ctx, name, "PlaybackStatus")
		if err == nil && status.Value() == "Playing" {
			return name, nil
		}
	}
	return players[0], nil
}

// metadataString reads a string entry. Artists come as a list; the first one
// is used.
func metadataString(metadata map[string]dbus.Variant, key string) string {
	v, ok := metadata[key]
	if !ok {
		return ""
	}
	switch value := v.Value().(type) {
	case string:
		return strings.TrimSpace(value)
	case []string:
		if len(value) > 0 {
			return strings.TrimSpace(value[0])
		}
	}
	return ""
}

// Source reports what the desktop player is playing.
type Source interface {
	GetCurrentTrack(ctx context.Context) (Track, error)
	GetCurrentPlayTime(ctx context.Context) (time.Duration, error)
}

// Chain asks each source in turn for the track. The position comes from the
// source that reported the track.
type Chain struct {
	sources []Source
	current Source
}

func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

func (c *Chain) GetCurrentTrack(ctx context.Context) (Track, error) {
	var errs []error
	for _, s := range c.sources {
		track, err := s.GetCurrentTrack(ctx)
		if err == nil {
			c.current = s
			return track, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Track{}, ErrNoTrack
	}
	return Track{}, errors.Join(errs...)
}

func (c *Chain) GetCurrentPlayTime(ctx context.Context) (time.Duration, error) {
	if c.current == nil {
		if len(c.sources) == 0 {
			return 0, ErrNoTrack
		}
		c.current = c.sources[0]
	}
	return c.current.GetCurrentPlayTime(ctx)
}
