// Package cli implements the entropool command: it gathers entropy from the
// configured sources, runs one pool operation and prints the result.
package cli

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-i2p/logger"

	"pkt.systems/entropool/crand"
	"pkt.systems/entropool/internal/passphrase"
	"pkt.systems/entropool/pool"
	"pkt.systems/entropool/seedfile"
	"pkt.systems/entropool/source"
)

var log = logger.GetGoI2PLogger()

// Usage summarises the commands.
const Usage = `usage: entropool [flags] <command> [args]

commands:
  random N         print N strong random bytes
  pseudo N         print N unique but not unpredictable bytes
  int MAX          print a uniform integer in [0, MAX)
  status           print the pool's seeding state
  seed TEXT        mix TEXT with full credit, then print status
  add TEXT EST     mix TEXT crediting EST bytes, then print status
  egd-level        print the entropy level reported by the EGD daemon
`

// Config holds every CLI setting. Environment variables provide the defaults
// and flags override them.
type Config struct {
	Format           string        `env:"ENTROPOOL_FORMAT" envDefault:"hex"`
	OSBytes          int           `env:"ENTROPOOL_OS_BYTES" envDefault:"48"`
	SeedFile         string        `env:"ENTROPOOL_SEED_FILE"`
	WriteSeedFile    bool          `env:"ENTROPOOL_WRITE_SEED_FILE"`
	SeedFormat       string        `env:"ENTROPOOL_SEED_FORMAT" envDefault:"auto"`
	SeedCipher       string        `env:"ENTROPOOL_SEED_CIPHER"`
	SeedIterations   int           `env:"ENTROPOOL_SEED_ITERATIONS" envDefault:"600000"`
	PassphrasePrompt bool          `env:"ENTROPOOL_PASSPHRASE_PROMPT"`
	Passphrase       string        `env:"ENTROPOOL_PASSPHRASE"`
	EGDPath          string        `env:"ENTROPOOL_EGD"`
	EGDBytes         int           `env:"ENTROPOOL_EGD_BYTES" envDefault:"255"`
	EGDNonBlocking   bool          `env:"ENTROPOOL_EGD_NONBLOCK"`
	HTTPURL          string        `env:"ENTROPOOL_HTTP_URL"`
	HTTPToken        string        `env:"ENTROPOOL_HTTP_TOKEN"`
	HTTPBytes        int           `env:"ENTROPOOL_HTTP_BYTES" envDefault:"64"`
	HTTPCredit       float64       `env:"ENTROPOOL_HTTP_CREDIT"`
	Threshold        float64       `env:"ENTROPOOL_THRESHOLD" envDefault:"32"`
	MaxRequest       int           `env:"ENTROPOOL_MAX_REQUEST" envDefault:"1048576"`
	Timeout          time.Duration `env:"ENTROPOOL_TIMEOUT" envDefault:"10s"`

	Command string
	Args    []string
}

// ParseConfig reads the environment, then parses flags and the command from
// args.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	fs.StringVar(&cfg.Format, "format", cfg.Format, "output encoding: hex, base64 or raw")
	fs.IntVar(&cfg.OSBytes, "os-bytes", cfg.OSBytes, "bytes to read from the OS CSPRNG (0 disables)")
	fs.StringVar(&cfg.SeedFile, "seed-file", cfg.SeedFile, "seed file to load before the command")
	fs.BoolVar(&cfg.WriteSeedFile, "write-seed-file", cfg.WriteSeedFile, "rewrite the seed file after the command")
	fs.StringVar(&cfg.SeedFormat, "seed-format", cfg.SeedFormat, "seed file format: auto, raw, pem or protobuf")
	fs.StringVar(&cfg.SeedCipher, "seed-cipher", cfg.SeedCipher, "AEAD suite for sealed seed files")
	fs.IntVar(&cfg.SeedIterations, "seed-iterations", cfg.SeedIterations, "PBKDF2 iterations for sealed seed files")
	fs.BoolVar(&cfg.PassphrasePrompt, "passphrase-prompt", cfg.PassphrasePrompt, "prompt for the seed file passphrase")
	fs.StringVar(&cfg.EGDPath, "egd", cfg.EGDPath, "EGD daemon socket")
	fs.IntVar(&cfg.EGDBytes, "egd-bytes", cfg.EGDBytes, "bytes to request from the EGD daemon")
	fs.BoolVar(&cfg.EGDNonBlocking, "egd-nonblock", cfg.EGDNonBlocking, "take only what the EGD daemon holds instead of waiting")
	fs.StringVar(&cfg.HTTPURL, "http-url", cfg.HTTPURL, "remote entropy service URL")
	fs.StringVar(&cfg.HTTPToken, "http-token", cfg.HTTPToken, "bearer token for the remote entropy service")
	fs.IntVar(&cfg.HTTPBytes, "http-bytes", cfg.HTTPBytes, "bytes to read from the remote entropy service")
	fs.Float64Var(&cfg.HTTPCredit, "http-credit", cfg.HTTPCredit, "entropy credited per remote byte, 0..1 (negative estimates)")
	fs.Float64Var(&cfg.Threshold, "threshold", cfg.Threshold, "bytes of entropy required before strong output")
	fs.IntVar(&cfg.MaxRequest, "max-request", cfg.MaxRequest, "largest single request in bytes")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "time allowed for gathering entropy")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), Usage+"\nflags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return Config{}, errors.New("missing command")
	}
	cfg.Command, cfg.Args = rest[0], rest[1:]
	return cfg, nil
}

// Run executes cfg.Command. Prompts go to errOut and passphrases are read
// from in.
func Run(ctx context.Context, cfg Config, out io.Writer, in io.Reader, errOut io.Writer) error {
	if out == nil {
		return errors.New("output is required")
	}
	if err := validate(cfg); err != nil {
		return err
	}
	p := pool.New(
		pool.WithThreshold(cfg.Threshold),
		pool.WithEntropyCeiling(max(cfg.Threshold, pool.DefaultEntropyCeiling)),
		pool.WithMaxRequest(cfg.MaxRequest),
	)

	seedOpts, err := seedOptions(cfg, in, errOut)
	if err != nil {
		return err
	}
	gctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	err = source.Gather(gctx, p, sources(cfg, seedOpts)...)
	cancel()
	if err != nil {
		log.Warnf("entropool: no entropy source succeeded: %v", err)
	}

	if err := dispatch(ctx, cfg, p, out); err != nil {
		return err
	}

	if cfg.WriteSeedFile && cfg.SeedFile != "" {
		if !p.Status() {
			log.Warnf("entropool: not writing seed file %s: pool not seeded", cfg.SeedFile)
			return nil
		}
		if err := seedfile.Write(cfg.SeedFile, p, seedOpts...); err != nil {
			return fmt.Errorf("write seed file: %w", err)
		}
	}
	return nil
}

func validate(cfg Config) error {
	switch cfg.Format {
	case "hex", "base64", "raw":
	default:
		return fmt.Errorf("unknown output format %q", cfg.Format)
	}
	if cfg.Threshold <= 0 {
		return errors.New("threshold must be greater than zero")
	}
	if cfg.MaxRequest <= 0 {
		return errors.New("max-request must be greater than zero")
	}
	if cfg.SeedIterations <= 0 {
		return errors.New("seed-iterations must be greater than zero")
	}
	if cfg.Timeout <= 0 {
		return errors.New("timeout must be greater than zero")
	}
	return nil
}

func seedOptions(cfg Config, in io.Reader, errOut io.Writer) ([]seedfile.Option, error) {
	if cfg.SeedFile == "" {
		return nil, nil
	}
	format, err := seedfile.ParseFormat(cfg.SeedFormat)
	if err != nil {
		return nil, err
	}
	opts := []seedfile.Option{seedfile.WithFormat(format), seedfile.WithPBKDF2Iterations(cfg.SeedIterations)}
	if cfg.SeedCipher != "" {
		if opts, err = appendCipher(opts, cfg.SeedCipher); err != nil {
			return nil, err
		}
	}

	var pass []byte
	switch {
	case cfg.PassphrasePrompt:
		_, statErr := os.Stat(cfg.SeedFile)
		if errors.Is(statErr, os.ErrNotExist) && cfg.WriteSeedFile {
			pass, err = passphrase.ReadConfirmed(in, "New seed file passphrase: ", "Repeat passphrase: ", errOut)
		} else {
			pass, err = passphrase.Read(in, "Seed file passphrase: ", errOut)
		}
		if err != nil {
			return nil, fmt.Errorf("read passphrase: %w", err)
		}
		defer passphrase.Zero(pass)
	case cfg.Passphrase != "":
		pass = []byte(cfg.Passphrase)
	}
	if len(pass) > 0 {
		opts = append(opts, seedfile.WithPassphrase(pass))
	}
	return opts, nil
}

// appendCipher turns WithCipher's panic on an unknown suite into an error.
func appendCipher(opts []seedfile.Option, name string) (out []seedfile.Option, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("seed cipher: %v", r)
		}
	}()
	return append(opts, seedfile.WithCipher(name)), nil
}

func sources(cfg Config, seedOpts []seedfile.Option) []source.Source {
	var out []source.Source
	if cfg.SeedFile != "" {
		out = append(out, seedfile.File{Path: cfg.SeedFile, Options: seedOpts})
	}
	if cfg.OSBytes > 0 {
		out = append(out, source.OS{Bytes: cfg.OSBytes})
	}
	if cfg.EGDPath != "" {
		out = append(out, source.EGD{Path: cfg.EGDPath, Bytes: cfg.EGDBytes, NonBlocking: cfg.EGDNonBlocking})
	}
	if cfg.HTTPURL != "" {
		out = append(out, source.HTTP{URL: cfg.HTTPURL, Token: cfg.HTTPToken, Bytes: cfg.HTTPBytes, Credit: cfg.HTTPCredit})
	}
	return out
}

func dispatch(ctx context.Context, cfg Config, p *pool.Pool, out io.Writer) error {
	switch cfg.Command {
	case "random", "pseudo":
		n, err := intArg(cfg.Args, 0, "N")
		if err != nil {
			return err
		}
		var b []byte
		if cfg.Command == "random" {
			b, err = p.RandomBytes(n)
		} else {
			b, err = p.PseudoBytes(n)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", cfg.Command, err)
		}
		return writeBytes(out, cfg.Format, b)
	case "int":
		n, err := intArg(cfg.Args, 0, "MAX")
		if err != nil {
			return err
		}
		if n <= 0 {
			return fmt.Errorf("int: MAX must be greater than zero")
		}
		if !p.Status() {
			return fmt.Errorf("int: %w", pool.ErrNotSeeded)
		}
		_, err = fmt.Fprintln(out, crand.New(p).Int63n(int64(n)))
		return err
	case "status":
		_, err := fmt.Fprintln(out, p.Stats())
		return err
	case "seed":
		if len(cfg.Args) != 1 {
			return errors.New("seed: expected TEXT")
		}
		p.Seed([]byte(cfg.Args[0]))
		_, err := fmt.Fprintln(out, p.Stats())
		return err
	case "add":
		if len(cfg.Args) != 2 {
			return errors.New("add: expected TEXT EST")
		}
		est, err := strconv.ParseFloat(cfg.Args[1], 64)
		if err != nil {
			return fmt.Errorf("add: estimate: %w", err)
		}
		if err := p.Add([]byte(cfg.Args[0]), est); err != nil {
			return fmt.Errorf("add: %w", err)
		}
		_, err = fmt.Fprintln(out, p.Stats())
		return err
	case "egd-level":
		if cfg.EGDPath == "" {
			return errors.New("egd-level: no EGD socket configured")
		}
		bits, err := source.EGD{Path: cfg.EGDPath}.EntropyLevel(ctx)
		if err != nil {
			return fmt.Errorf("egd-level: %w", err)
		}
		_, err = fmt.Fprintln(out, bits)
		return err
	default:
		return fmt.Errorf("unknown command %q", cfg.Command)
	}
}

func intArg(args []string, i int, name string) (int, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing %s", name)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}

func writeBytes(out io.Writer, format string, b []byte) error {
	var err error
	switch format {
	case "raw":
		_, err = out.Write(b)
	case "base64":
		_, err = fmt.Fprintln(out, base64.StdEncoding.EncodeToString(b))
	default:
		_, err = fmt.Fprintln(out, hex.EncodeToString(b))
	}
	return err
}
