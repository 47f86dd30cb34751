package packfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"go.uber.org/zap"

	"github.com/wippyai/binpack"
)

// Codec selects the payload compression algorithm.
type Codec uint8

const (
	CodecNone Codec = iota
	CodecLZ4
	CodecZstd
	CodecBrotli
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	case CodecBrotli:
		return "brotli"
	}
	return fmt.Sprintf("codec(%d)", uint8(c))
}

const (
	headerSize = 16
	version    = 1

	// DefaultMaxPayload bounds the uncompressed payload size Open accepts.
	DefaultMaxPayload = 1 << 30
)

var magic = [4]byte{'B', 'P', 'A', 'K'}

var (
	ErrBadMagic           = errors.New("packfile: bad magic")
	ErrUnsupportedVersion = errors.New("packfile: unsupported version")
	ErrInvalidEnvelope    = errors.New("packfile: invalid envelope")
	ErrLimitExceeded      = errors.New("packfile: limit exceeded")
)

// Seal envelopes the buffer's encoded bytes with the given codec.
func Seal(b *binpack.Buffer, codec Codec) ([]byte, error) {
	payload := b.Bytes()

	var compressed []byte
	var err error
	switch codec {
	case CodecNone:
		compressed = payload
	case CodecLZ4:
		compressed, err = lz4Compress(payload)
	case CodecZstd:
		compressed, err = zstdCompress(payload)
	case CodecBrotli:
		compressed, err = brotliCompress(payload)
	default:
		return nil, fmt.Errorf("%w: unknown codec %d", ErrInvalidEnvelope, codec)
	}
	if err != nil {
		return nil, err
	}

	binpack.Logger().Debug("sealing payload",
		zap.Stringer("codec", codec),
		zap.Int("payload_size", len(payload)),
		zap.Int("compressed_size", len(compressed)))

	out := make([]byte, headerSize, headerSize+len(compressed))
	copy(out[0:4], magic[:])
	binary.LittleEndian.PutUint16(out[4:6], version)
	out[6] = byte(codec)
	out[7] = 0
	binary.LittleEndian.PutUint64(out[8:16], uint64(len(payload)))
	return append(out, compressed...), nil
}

// Open validates the envelope, decompresses the payload and returns a buffer
// positioned for reading. The uncompressed size is capped at
// DefaultMaxPayload; use OpenLimit for a different bound.
func Open(data []byte) (*binpack.Buffer, error) {
	return OpenLimit(data, DefaultMaxPayload)
}

// OpenLimit is Open with an explicit uncompressed-size bound.
func OpenLimit(data []byte, maxPayload uint64) (*binpack.Buffer, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrInvalidEnvelope, len(data), headerSize)
	}
	if !bytes.Equal(data[0:4], magic[:]) {
		return nil, ErrBadMagic
	}
	if v := binary.LittleEndian.Uint16(data[4:6]); v != version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	if data[7] != 0 {
		return nil, fmt.Errorf("%w: reserved byte must be zero", ErrInvalidEnvelope)
	}

	codec := Codec(data[6])
	uncompressedLen := binary.LittleEndian.Uint64(data[8:16])
	if uncompressedLen > maxPayload {
		return nil, fmt.Errorf("%w: uncompressed length %d exceeds %d", ErrLimitExceeded, uncompressedLen, maxPayload)
	}
	body := data[headerSize:]

	var payload []byte
	var err error
	switch codec {
	case CodecNone:
		if uint64(len(body)) != uncompressedLen {
			return nil, fmt.Errorf("%w: payload length %d != recorded %d", ErrInvalidEnvelope, len(body), uncompressedLen)
		}
		payload = body
	case CodecLZ4:
		payload, err = lz4Decompress(body, uncompressedLen)
	case CodecZstd:
		payload, err = zstdDecompress(body, uncompressedLen)
	case CodecBrotli:
		payload, err = brotliDecompress(body, uncompressedLen)
	default:
		return nil, fmt.Errorf("%w: unknown codec %d", ErrInvalidEnvelope, codec)
	}
	if err != nil {
		return nil, err
	}
	if uint64(len(payload)) != uncompressedLen {
		return nil, fmt.Errorf("%w: decompressed length %d != recorded %d", ErrInvalidEnvelope, len(payload), uncompressedLen)
	}

	return binpack.From(payload), nil
}

func zstdCompress(in []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(in, nil), nil
}

// zstdDecompress rejects output that exceeds expected bytes.
func zstdDecompress(in []byte, expected uint64) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	out, err := dec.DecodeAll(in, nil)
	if err != nil {
		return nil, err
	}
	if uint64(len(out)) > expected {
		return nil, fmt.Errorf("%w: zstd expanded beyond recorded size", ErrInvalidEnvelope)
	}
	return out, nil
}

func lz4Compress(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(in); err != nil {
		_ = zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// lz4Decompress uses a LimitReader so a hostile stream cannot expand past the
// recorded size.
func lz4Decompress(in []byte, expected uint64) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(in))
	b, err := io.ReadAll(io.LimitReader(r, int64(expected)+1))
	if err != nil {
		return nil, err
	}
	if uint64(len(b)) > expected {
		return nil, fmt.Errorf("%w: lz4 expanded beyond recorded size", ErrInvalidEnvelope)
	}
	return b, nil
}

func brotliCompress(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	if _, err := bw.Write(in); err != nil {
		_ = bw.Close()
		return nil, err
	}
	if err := bw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// brotliDecompress uses a LimitReader so a hostile stream cannot expand past
// the recorded size.
func brotliDecompress(in []byte, expected uint64) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(in))
	b, err := io.ReadAll(io.LimitReader(r, int64(expected)+1))
	if err != nil {
		return nil, err
	}
	if uint64(len(b)) > expected {
		return nil, fmt.Errorf("%w: brotli expanded beyond recorded size", ErrInvalidEnvelope)
	}
	return b, nil
}
