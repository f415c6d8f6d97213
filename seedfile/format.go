package seedfile

import (
	"bytes"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// Format enumerates seed file encodings.
type Format int

// Supported formats. FormatRaw is a bare byte string, readable by anything
// that consumes OpenSSL-style seed files, and cannot be sealed.
const (
	FormatAuto Format = iota
	FormatRaw
	FormatPEM
	FormatProtobuf
)

func (f Format) String() string {
	switch f {
	case FormatAuto:
		return "auto"
	case FormatRaw:
		return "raw"
	case FormatPEM:
		return "pem"
	case FormatProtobuf:
		return "protobuf"
	default:
		return "Format(" + strconv.Itoa(int(f)) + ")"
	}
}

// ParseFormat maps a format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "raw", "bin":
		return FormatRaw, nil
	case "pem":
		return FormatPEM, nil
	case "protobuf", "proto", "pb":
		return FormatProtobuf, nil
	default:
		return FormatAuto, fmt.Errorf("entropool/seedfile: unknown format %q", s)
	}
}

const (
	pemType     = "ENTROPOOL SEED"
	protoMagic  = "entropool-seed/v1"
	kdfPBKDF2   = "pbkdf2-sha256"
	hdrCipher   = "Cipher"
	hdrKDF      = "KDF"
	hdrRounds   = "Iterations"
	hdrSalt     = "Salt"
	fieldMagic  = protowire.Number(1)
	fieldSeed   = protowire.Number(2)
	fieldCipher = protowire.Number(3)
	fieldKDF    = protowire.Number(4)
	fieldRounds = protowire.Number(5)
	fieldSalt   = protowire.Number(6)
)

// record is the decoded content of a seed file. Cipher is empty for plain
// files.
type record struct {
	seed       []byte
	cipher     string
	kdf        string
	iterations int
	salt       []byte
}

func (r *record) sealed() bool { return r.cipher != "" }

func guessFormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pem":
		return FormatPEM
	case ".pb", ".proto":
		return FormatProtobuf
	case ".rnd", ".bin", ".raw":
		return FormatRaw
	default:
		return FormatAuto
	}
}

// detectFormat inspects data. Anything that is not recognisably PEM or
// protobuf is raw.
func detectFormat(data []byte) Format {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("-----BEGIN "+pemType+"-----")) {
		return FormatPEM
	}
	num, typ, n := protowire.ConsumeTag(data)
	if n > 0 && num == fieldMagic && typ == protowire.BytesType {
		if v, m := protowire.ConsumeBytes(data[n:]); m > 0 && string(v) == protoMagic {
			return FormatProtobuf
		}
	}
	return FormatRaw
}

func encode(f Format, rec *record) ([]byte, error) {
	switch f {
	case FormatRaw:
		if rec.sealed() {
			return nil, ErrRawSealed
		}
		return bytes.Clone(rec.seed), nil
	case FormatPEM:
		return encodePEM(rec), nil
	case FormatProtobuf:
		return encodeProto(rec), nil
	default:
		return nil, fmt.Errorf("entropool/seedfile: cannot encode format %v", f)
	}
}

func decode(f Format, data []byte) (*record, error) {
	switch f {
	case FormatRaw:
		return &record{seed: data}, nil
	case FormatPEM:
		return decodePEM(data)
	case FormatProtobuf:
		return decodeProto(data)
	default:
		return nil, fmt.Errorf("entropool/seedfile: cannot decode format %v", f)
	}
}

func encodePEM(rec *record) []byte {
	block := &pem.Block{Type: pemType, Bytes: rec.seed}
	if rec.sealed() {
		block.Headers = map[string]string{
			hdrCipher: rec.cipher,
			hdrKDF:    rec.kdf,
			hdrRounds: strconv.Itoa(rec.iterations),
			hdrSalt:   hex.EncodeToString(rec.salt),
		}
	}
	return pem.EncodeToMemory(block)
}

func decodePEM(data []byte) (*record, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: invalid PEM data", ErrCorrupt)
	}
	if block.Type != pemType {
		return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrCorrupt, block.Type)
	}
	rec := &record{seed: block.Bytes, cipher: block.Headers[hdrCipher]}
	if !rec.sealed() {
		return rec, nil
	}
	rec.kdf = block.Headers[hdrKDF]
	rounds, err := strconv.Atoi(block.Headers[hdrRounds])
	if err != nil {
		return nil, fmt.Errorf("%w: iterations: %v", ErrCorrupt, err)
	}
	rec.iterations = rounds
	if rec.salt, err = hex.DecodeString(block.Headers[hdrSalt]); err != nil {
		return nil, fmt.Errorf("%w: salt: %v", ErrCorrupt, err)
	}
	return rec, nil
}

func encodeProto(rec *record) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldMagic, protowire.BytesType)
	b = protowire.AppendString(b, protoMagic)
	b = protowire.AppendTag(b, fieldSeed, protowire.BytesType)
	b = protowire.AppendBytes(b, rec.seed)
	if rec.sealed() {
		b = protowire.AppendTag(b, fieldCipher, protowire.BytesType)
		b = protowire.AppendString(b, rec.cipher)
		b = protowire.AppendTag(b, fieldKDF, protowire.BytesType)
		b = protowire.AppendString(b, rec.kdf)
		b = protowire.AppendTag(b, fieldRounds, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(rec.iterations))
		b = protowire.AppendTag(b, fieldSalt, protowire.BytesType)
		b = protowire.AppendBytes(b, rec.salt)
	}
	return b
}

func decodeProto(data []byte) (*record, error) {
	rec := &record{}
	var magic bool
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
		}
		data = data[n:]
		if typ == protowire.BytesType && num >= fieldMagic && num <= fieldSalt && num != fieldRounds {
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(m))
			}
			data = data[m:]
			switch num {
			case fieldMagic:
				magic = string(v) == protoMagic
			case fieldSeed:
				rec.seed = v
			case fieldCipher:
				rec.cipher = string(v)
			case fieldKDF:
				rec.kdf = string(v)
			case fieldSalt:
				rec.salt = v
			}
			continue
		}
		if num == fieldRounds && typ == protowire.VarintType {
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(m))
			}
			data = data[m:]
			if v > 1<<31 {
				return nil, fmt.Errorf("%w: iterations out of range", ErrCorrupt)
			}
			rec.iterations = int(v)
			continue
		}
		// Skip fields written by newer versions.
		m := protowire.ConsumeFieldValue(num, typ, data)
		if m < 0 {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(m))
		}
		data = data[m:]
	}
	if !magic {
		return nil, fmt.Errorf("%w: missing protobuf magic", ErrCorrupt)
	}
	return rec, nil
}
