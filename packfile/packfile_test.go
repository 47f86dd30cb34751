package packfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/wippyai/binpack"
)

func testBuffer(t *testing.T) *binpack.Buffer {
	t.Helper()
	b, err := binpack.Pack(uint32(0xDEADBEEF), "payload", []int16{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	return b
}

func TestSealOpen_RoundTrip(t *testing.T) {
	codecs := []Codec{CodecNone, CodecLZ4, CodecZstd, CodecBrotli}

	for _, codec := range codecs {
		t.Run(codec.String(), func(t *testing.T) {
			src := testBuffer(t)

			data, err := Seal(src, codec)
			if err != nil {
				t.Fatalf("Seal failed: %v", err)
			}

			got, err := Open(data)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			if !bytes.Equal(got.Bytes(), src.Bytes()) {
				t.Errorf("payload = %v, want %v", got.Bytes(), src.Bytes())
			}

			var (
				n uint32
				s string
				l []int16
			)
			if err := got.Read(&n, &s, &l); err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if n != 0xDEADBEEF || s != "payload" || len(l) != 4 {
				t.Errorf("decoded %v %q %v", n, s, l)
			}
		})
	}
}

func TestSeal_HeaderLayout(t *testing.T) {
	src := testBuffer(t)
	data, err := Seal(src, CodecNone)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	if !bytes.Equal(data[0:4], []byte("BPAK")) {
		t.Errorf("magic = %q", data[0:4])
	}
	if v := binary.LittleEndian.Uint16(data[4:6]); v != version {
		t.Errorf("version = %d, want %d", v, version)
	}
	if data[6] != byte(CodecNone) {
		t.Errorf("codec byte = %d", data[6])
	}
	if data[7] != 0 {
		t.Errorf("reserved byte = %d", data[7])
	}
	if n := binary.LittleEndian.Uint64(data[8:16]); n != uint64(src.Len()) {
		t.Errorf("recorded length = %d, want %d", n, src.Len())
	}
	if !bytes.Equal(data[headerSize:], src.Bytes()) {
		t.Error("uncompressed payload does not follow the header verbatim")
	}
}

func TestSeal_UnknownCodec(t *testing.T) {
	if _, err := Seal(testBuffer(t), Codec(99)); !errors.Is(err, ErrInvalidEnvelope) {
		t.Errorf("Seal = %v, want ErrInvalidEnvelope", err)
	}
}

func TestOpen_Rejections(t *testing.T) {
	sealed, err := Seal(testBuffer(t), CodecZstd)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	mutate := func(f func(d []byte)) []byte {
		d := append([]byte(nil), sealed...)
		f(d)
		return d
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"truncated header", sealed[:headerSize-1], ErrInvalidEnvelope},
		{"bad magic", mutate(func(d []byte) { d[0] = 'X' }), ErrBadMagic},
		{"future version", mutate(func(d []byte) { d[4] = 2 }), ErrUnsupportedVersion},
		{"nonzero reserved", mutate(func(d []byte) { d[7] = 1 }), ErrInvalidEnvelope},
		{"unknown codec", mutate(func(d []byte) { d[6] = 99 }), ErrInvalidEnvelope},
		{"oversized recorded length", mutate(func(d []byte) {
			binary.LittleEndian.PutUint64(d[8:16], DefaultMaxPayload+1)
		}), ErrLimitExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Open(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("Open = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpen_LengthMismatch(t *testing.T) {
	sealed, err := Seal(testBuffer(t), CodecNone)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	// Claim one byte less than the payload actually holds.
	binary.LittleEndian.PutUint64(sealed[8:16], binary.LittleEndian.Uint64(sealed[8:16])-1)
	if _, err := Open(sealed); !errors.Is(err, ErrInvalidEnvelope) {
		t.Errorf("Open = %v, want ErrInvalidEnvelope", err)
	}
}

func TestOpenLimit_BombGuard(t *testing.T) {
	big := make([]byte, 1<<16)
	src, err := binpack.Pack(big)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	sealed, err := Seal(src, CodecZstd)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	if _, err := OpenLimit(sealed, 1024); !errors.Is(err, ErrLimitExceeded) {
		t.Errorf("OpenLimit = %v, want ErrLimitExceeded", err)
	}
	if _, err := OpenLimit(sealed, uint64(src.Len())); err != nil {
		t.Errorf("OpenLimit at exact size failed: %v", err)
	}
}

func TestSealOpen_EmptyPayload(t *testing.T) {
	data, err := Seal(binpack.New(), CodecLZ4)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	got, err := Open(data)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got.Len() != 0 {
		t.Errorf("Len() = %d, want 0", got.Len())
	}
}
