package passphrase

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadFromPipe(t *testing.T) {
	var out bytes.Buffer
	pass, err := Read(strings.NewReader("hunter2\r\nignored\n"), "Passphrase: ", &out)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if string(pass) != "hunter2" {
		t.Fatalf("unexpected passphrase %q", pass)
	}
	if out.String() != "Passphrase: \n" {
		t.Fatalf("unexpected prompt output %q", out.String())
	}
}

func TestReadWithoutTrailingNewline(t *testing.T) {
	pass, err := Read(strings.NewReader("no-newline"), "", nil)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if string(pass) != "no-newline" {
		t.Fatalf("unexpected passphrase %q", pass)
	}
}

func TestReadEmpty(t *testing.T) {
	if _, err := Read(strings.NewReader("\n"), "", nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestReadConfirmed(t *testing.T) {
	pass, err := ReadConfirmed(strings.NewReader("same\nsame\n"), "New: ", "Again: ", nil)
	if err != nil {
		t.Fatalf("ReadConfirmed error: %v", err)
	}
	if string(pass) != "same" {
		t.Fatalf("unexpected passphrase %q", pass)
	}
	if _, err := ReadConfirmed(strings.NewReader("one\ntwo\n"), "", "", nil); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
}

func TestZero(t *testing.T) {
	b := []byte("secret")
	Zero(b)
	if !bytes.Equal(b, make([]byte, 6)) {
		t.Fatalf("Zero left %q", b)
	}
}

func TestReadConfirmedFromRedirectedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pass")
	if err := os.WriteFile(path, []byte("same\nsame\n"), 0o600); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer f.Close()

	pass, err := ReadConfirmed(f, "", "", nil)
	if err != nil {
		t.Fatalf("ReadConfirmed error: %v", err)
	}
	if string(pass) != "same" {
		t.Fatalf("unexpected passphrase %q", pass)
	}
}
