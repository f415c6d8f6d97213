// Package passphrase reads seed-file passphrases from a terminal or a pipe.
package passphrase

import (
	"bufio"
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"

	"golang.org/x/term"
)

var (
	// ErrEmpty indicates the user entered nothing.
	ErrEmpty = errors.New("entropool/passphrase: empty passphrase")
	// ErrMismatch indicates the confirmation did not match the first entry.
	ErrMismatch = errors.New("entropool/passphrase: passphrases do not match")
)

// Read prompts on w and reads one passphrase from r. A terminal is read
// without echo and restored if the process is signalled mid-prompt; anything
// else is read up to the first newline. A nil r means os.Stdin.
func Read(r io.Reader, prompt string, w io.Writer) ([]byte, error) {
	if r == nil {
		r = os.Stdin
	}
	if err := writeString(w, prompt); err != nil {
		return nil, fmt.Errorf("write prompt: %w", err)
	}
	var (
		pass []byte
		err  error
	)
	if fd := fileDescriptor(r); fd >= 0 && term.IsTerminal(fd) {
		pass, err = readTerminal(fd)
	} else {
		pass, err = readLine(r)
	}
	if err != nil {
		return nil, err
	}
	if err := writeString(w, "\n"); err != nil {
		Zero(pass)
		return nil, fmt.Errorf("write newline: %w", err)
	}
	if len(pass) == 0 {
		return nil, ErrEmpty
	}
	return pass, nil
}

// ReadConfirmed reads a passphrase twice and fails unless both entries match.
// Use it when the passphrase is about to seal something new.
func ReadConfirmed(r io.Reader, prompt, confirm string, w io.Writer) ([]byte, error) {
	if r == nil {
		r = os.Stdin
	}
	// Anything but a terminal shares one buffered reader across both reads,
	// otherwise the first read buffers the second line away.
	if fd := fileDescriptor(r); fd < 0 || !term.IsTerminal(fd) {
		r = bufio.NewReader(r)
	}
	first, err := Read(r, prompt, w)
	if err != nil {
		return nil, err
	}
	second, err := Read(r, confirm, w)
	if err != nil {
		Zero(first)
		return nil, err
	}
	defer Zero(second)
	if subtle.ConstantTimeCompare(first, second) != 1 {
		Zero(first)
		return nil, ErrMismatch
	}
	return first, nil
}

// Zero overwrites b.
func Zero(b []byte) {
	clear(b)
}

func readTerminal(fd int) ([]byte, error) {
	state, err := term.GetState(fd)
	if err == nil {
		var once sync.Once
		restore := func() { once.Do(func() { _ = term.Restore(fd, state) }) }
		defer restore()
		if sigs := terminalSignals(); len(sigs) > 0 {
			sigCh := make(chan os.Signal, 1)
			done := make(chan struct{})
			signal.Notify(sigCh, sigs...)
			go func() {
				select {
				case <-done:
				case sig := <-sigCh:
					restore()
					os.Exit(exitCode(sig))
				}
			}()
			defer func() {
				signal.Stop(sigCh)
				close(done)
			}()
		}
	}
	pass, err := term.ReadPassword(fd)
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	return pass, nil
}

func readLine(r io.Reader) ([]byte, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	line, err := br.ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		Zero(line)
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	pass := slices.Clone(bytes.TrimRight(line, "\r\n"))
	Zero(line)
	return pass, nil
}

func writeString(w io.Writer, s string) error {
	if w == nil || s == "" {
		return nil
	}
	_, err := io.WriteString(w, s)
	return err
}

func fileDescriptor(r io.Reader) int {
	if f, ok := r.(interface{ Fd() uintptr }); ok {
		return int(f.Fd())
	}
	return -1
}

func exitCode(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return 128 + int(s)
	}
	return 1
}
