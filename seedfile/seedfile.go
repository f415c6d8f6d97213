// Package seedfile saves pool output to disk and feeds it back on the next
// start, so a process can become seeded before slower sources respond.
//
// Files are raw bytes, a PEM block, or a small protobuf record; PEM and
// protobuf files may be sealed with a passphrase. A seed file must be
// rewritten after every Load, since replaying it in two processes yields
// correlated pools.
package seedfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-i2p/logger"

	"pkt.systems/entropool/pool"
)

var log = logger.GetGoI2PLogger()

var (
	// ErrRawSealed indicates a request to seal a raw-format file.
	ErrRawSealed = errors.New("entropool/seedfile: raw seed files cannot be sealed")
	// ErrPassphraseRequired indicates a sealed file loaded without a passphrase.
	ErrPassphraseRequired = errors.New("entropool/seedfile: passphrase required")
	// ErrDecrypt indicates a wrong passphrase or a tampered sealed file.
	ErrDecrypt = errors.New("entropool/seedfile: cannot open sealed seed")
	// ErrCorrupt indicates a file that does not parse in its format.
	ErrCorrupt = errors.New("entropool/seedfile: corrupt seed file")
)

// Write draws strong bytes from gen and stores them at path with mode 0600,
// replacing any existing file atomically. It fails with pool.ErrNotSeeded
// when gen is an unseeded pool.
func Write(path string, gen pool.StrongGenerator, opts ...Option) error {
	cfg := applyOptions(opts)
	format := cfg.format
	if format == FormatAuto {
		format = guessFormatFromPath(path)
	}
	if format == FormatAuto {
		format = FormatRaw
		if cfg.passphrase != nil {
			format = FormatPEM
		}
	}
	if format == FormatRaw && cfg.passphrase != nil {
		return ErrRawSealed
	}

	seed, err := gen.RandomBytes(cfg.bytes)
	if err != nil {
		return fmt.Errorf("draw seed: %w", err)
	}
	defer clear(seed)
	rec := &record{seed: seed}
	if cfg.passphrase != nil {
		if err := seal(rec, cfg, generatorReader{g: gen}); err != nil {
			return fmt.Errorf("seal seed: %w", err)
		}
	}
	data, err := encode(format, rec)
	if err != nil {
		return err
	}
	defer clear(data)
	if err := writeAtomic(path, data); err != nil {
		return err
	}
	log.Debugf("entropool: wrote %d byte %v seed file %s", cfg.bytes, format, path)
	return nil
}

// Load reads the seed file at path and adds its bytes to sink with full
// credit, returning how many bytes were added. Missing, unreadable and
// corrupt files fail with an error wrapping pool.ErrSourceUnavailable.
func Load(path string, sink pool.Sink, opts ...Option) (int, error) {
	cfg := applyOptions(opts)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, unavailable(path, err)
	}
	defer clear(data)

	format := cfg.format
	if format == FormatAuto {
		format = detectFormat(data)
	}
	rec, err := decode(format, data)
	if err != nil {
		return 0, unavailable(path, err)
	}
	if rec.sealed() {
		if err := open(rec, cfg.passphrase); err != nil {
			return 0, unavailable(path, err)
		}
		defer clear(rec.seed)
	}
	if len(rec.seed) == 0 {
		return 0, unavailable(path, fmt.Errorf("%w: empty seed", ErrCorrupt))
	}
	sink.Seed(rec.seed)
	log.Debugf("entropool: loaded %d bytes from %v seed file %s", len(rec.seed), format, path)
	return len(rec.seed), nil
}

// File is a seed file used as an entropy source.
type File struct {
	Path    string
	Options []Option
}

// Name identifies the file in logs.
func (f File) Name() string { return "seedfile:" + f.Path }

// Fill loads the file into sink.
func (f File) Fill(ctx context.Context, sink pool.Sink) error {
	if err := ctx.Err(); err != nil {
		return unavailable(f.Path, err)
	}
	_, err := Load(f.Path, sink, f.Options...)
	return err
}

func unavailable(path string, err error) error {
	return fmt.Errorf("%w: seed file %s: %w", pool.ErrSourceUnavailable, path, err)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".entropool-seed-*")
	if err != nil {
		return fmt.Errorf("create temp seed file: %w", err)
	}
	name := tmp.Name()
	defer os.Remove(name)
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod seed file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write seed file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync seed file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close seed file: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		return fmt.Errorf("replace seed file: %w", err)
	}
	return nil
}
