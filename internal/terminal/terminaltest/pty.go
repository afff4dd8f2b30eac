// Package terminaltest runs bubbletea programs against a pseudo terminal so
// tests go through raw mode and real key decoding.
package terminaltest

import (
	"bytes"
	"io"
	"os"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/creack/pty"
	"golang.org/x/term"
)

// Pty is a pseudo terminal. Programs use TTY; the test types into and reads
// from the master side.
type Pty struct {
	TTY *os.File

	master *os.File
	mu     sync.Mutex
	out    bytes.Buffer
}

// Open allocates an 80x24 pty and skips the test where none is available.
func Open(t *testing.T) *Pty {
	t.Helper()
	master, tty, err := pty.Open()
	if err != nil {
		t.Skipf("no pty available: %v", err)
	}
	if err := pty.Setsize(master, &pty.Winsize{Rows: 24, Cols: 80}); err != nil {
		t.Fatalf("set pty size: %v", err)
	}
	p := &Pty{TTY: tty, master: master}
	go io.Copy(p, master)
	t.Cleanup(func() {
		tty.Close()
		master.Close()
	})
	return p
}

func (p *Pty) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.Write(b)
}

// Options points a program at the pty.
func (p *Pty) Options() []tea.ProgramOption {
	return []tea.ProgramOption{tea.WithInput(p.TTY), tea.WithOutput(p.TTY)}
}

// Output is everything written to the terminal so far.
func (p *Pty) Output() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.String()
}

// WaitFor blocks until the terminal shows s.
func (p *Pty) WaitFor(t *testing.T, s string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(p.Output(), s) {
		if time.Now().After(deadline) {
			t.Fatalf("terminal never showed %q; got %q", s, p.Output())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// WaitForRaw blocks until a program has switched the tty away from cooked,
// which is the moment it starts reading keys one at a time.
func (p *Pty) WaitForRaw(t *testing.T, cooked *term.State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for reflect.DeepEqual(p.State(t), cooked) {
		if time.Now().After(deadline) {
			t.Fatal("tty never left cooked mode")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// Type sends keys as the user would type them.
func (p *Pty) Type(t *testing.T, keys string) {
	t.Helper()
	if _, err := p.master.Write([]byte(keys)); err != nil {
		t.Fatalf("type %q: %v", keys, err)
	}
}

// State is the current line discipline setting of the tty.
func (p *Pty) State(t *testing.T) *term.State {
	t.Helper()
	st, err := term.GetState(int(p.TTY.Fd()))
	if err != nil {
		t.Fatalf("read tty state: %v", err)
	}
	return st
}

// Await waits for a program started in the background and fails the test if
// it does not finish in time.
func Await[T any](t *testing.T, done <-chan T) T {
	t.Helper()
	select {
	case v := <-done:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("program did not exit")
	}
	var zero T
	return zero
}
