package seedfile

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"pkt.systems/entropool/cipher"
	"pkt.systems/entropool/pool"
)

// generatorReader adapts a StrongGenerator to io.Reader for salts and nonces.
type generatorReader struct {
	g pool.StrongGenerator
}

func (r generatorReader) Read(p []byte) (int, error) {
	b, err := r.g.RandomBytes(len(p))
	if err != nil {
		return 0, err
	}
	copy(p, b)
	clear(b)
	return len(p), nil
}

// aad binds the ciphertext to the suite and KDF recorded beside it.
func aad(rec *record) []byte {
	return fmt.Appendf(nil, "%s|%s|%s|%d", protoMagic, rec.cipher, rec.kdf, rec.iterations)
}

func sealKey(suite cipher.Suite, passphrase, salt []byte, iterations int) ([]byte, error) {
	master := pbkdf2.Key(passphrase, salt, iterations, cipher.KeySize, sha256.New)
	defer clear(master)
	return suite.DeriveKey(master, salt)
}

func seal(rec *record, cfg config, rand io.Reader) error {
	salt := make([]byte, saltBytes)
	if _, err := io.ReadFull(rand, salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	rec.cipher = cfg.suite.Name
	rec.kdf = kdfPBKDF2
	rec.iterations = cfg.iterations
	rec.salt = salt

	key, err := sealKey(cfg.suite, cfg.passphrase, salt, cfg.iterations)
	if err != nil {
		return err
	}
	defer clear(key)
	sealed, err := cfg.suite.Seal(key, rand, rec.seed, aad(rec))
	if err != nil {
		return err
	}
	rec.seed = sealed
	return nil
}

func open(rec *record, passphrase []byte) error {
	if len(passphrase) == 0 {
		return ErrPassphraseRequired
	}
	if rec.kdf != kdfPBKDF2 {
		return fmt.Errorf("%w: unsupported KDF %q", ErrCorrupt, rec.kdf)
	}
	if rec.iterations < 1 || len(rec.salt) == 0 {
		return fmt.Errorf("%w: missing KDF parameters", ErrCorrupt)
	}
	suite, err := cipher.ByName(rec.cipher)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	key, err := sealKey(suite, passphrase, rec.salt, rec.iterations)
	if err != nil {
		return err
	}
	defer clear(key)
	plain, err := suite.Open(key, rec.seed, aad(rec))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	rec.seed = plain
	return nil
}
