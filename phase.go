package binpack

import (
	"encoding/binary"
	"math"
	"reflect"

	"github.com/wippyai/binpack/errors"
	"github.com/wippyai/binpack/internal/wire"
)

// countSize is the wire width of a dynamic container's element count.
const countSize = 4

// phase is the strategy a traversal pass plugs into the engine. The engine
// is written once against this interface; reserve, write and read differ
// only where the passes are genuinely asymmetric.
type phase interface {
	name() errors.Phase
	// scalar transfers one arithmetic value of p.width bytes.
	scalar(b *Buffer, v reflect.Value, p *plan, path []string) error
	// block bulk-transfers a contiguous range of arithmetic elements whose
	// storage is exposed as data. width is the per-element byte width used
	// for byte-order normalization.
	block(b *Buffer, data []byte, width int, path []string) error
	// count frames a dynamic container. Reserve and write receive the
	// container's element count; read returns the count found on the wire.
	count(b *Buffer, n uint32, path []string) (uint32, error)
	// mutates reports whether this pass writes into destinations.
	mutates() bool
}

type reservePhase struct{}
type writePhase struct{}
type readPhase struct{}

func (reservePhase) name() errors.Phase { return errors.PhaseReserve }
func (writePhase) name() errors.Phase   { return errors.PhaseWrite }
func (readPhase) name() errors.Phase    { return errors.PhaseRead }

func (reservePhase) mutates() bool { return false }
func (writePhase) mutates() bool   { return false }
func (readPhase) mutates() bool    { return true }

// Reserve accumulates sizes and never touches the byte store: a failure
// during this pass leaves the buffer completely unmodified.

func (reservePhase) scalar(b *Buffer, _ reflect.Value, p *plan, _ []string) error {
	b.reserve += p.width
	return nil
}

func (reservePhase) block(b *Buffer, data []byte, _ int, _ []string) error {
	b.reserve += len(data)
	return nil
}

func (reservePhase) count(b *Buffer, n uint32, _ []string) (uint32, error) {
	b.reserve += countSize
	return n, nil
}

// Write appends into the region the preceding reserve pass sized. Running
// out of room here means the two passes diverged, which is a defect.

func (writePhase) scalar(b *Buffer, v reflect.Value, p *plan, path []string) error {
	dst, err := b.writeSpan(p.width, path)
	if err != nil {
		return err
	}
	putScalar(dst, v, p.width)
	return nil
}

func (writePhase) block(b *Buffer, data []byte, width int, path []string) error {
	dst, err := b.writeSpan(len(data), path)
	if err != nil {
		return err
	}
	copy(dst, data)
	if wire.NeedSwap(width) {
		wire.SwapRange(dst, width)
	}
	return nil
}

func (writePhase) count(b *Buffer, n uint32, path []string) (uint32, error) {
	dst, err := b.writeSpan(countSize, path)
	if err != nil {
		return 0, err
	}
	binary.LittleEndian.PutUint32(dst, n)
	return n, nil
}

// Read consumes wire bytes and mutates destinations. Every consumption is
// bounds-checked; overrunning the buffer means the stream does not match
// the shape being read.

func (readPhase) scalar(b *Buffer, v reflect.Value, p *plan, path []string) error {
	src, err := b.readSpan(p.width, path)
	if err != nil {
		return err
	}
	getScalar(src, v, p.width)
	return nil
}

func (readPhase) block(b *Buffer, data []byte, width int, path []string) error {
	src, err := b.readSpan(len(data), path)
	if err != nil {
		return err
	}
	copy(data, src)
	if wire.NeedSwap(width) {
		wire.SwapRange(data, width)
	}
	return nil
}

func (readPhase) count(b *Buffer, _ uint32, path []string) (uint32, error) {
	src, err := b.readSpan(countSize, path)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(src), nil
}

// putScalar stores one arithmetic value little-endian into dst, which must
// be exactly width bytes.
func putScalar(dst []byte, v reflect.Value, width int) {
	var u uint64
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			u = 1
		}
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		u = uint64(v.Int())
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u = v.Uint()
	case reflect.Float32:
		u = uint64(math.Float32bits(float32(v.Float())))
	case reflect.Float64:
		u = math.Float64bits(v.Float())
	}

	switch width {
	case 1:
		dst[0] = byte(u)
	case 2:
		binary.LittleEndian.PutUint16(dst, uint16(u))
	case 4:
		binary.LittleEndian.PutUint32(dst, uint32(u))
	case 8:
		binary.LittleEndian.PutUint64(dst, u)
	}
}

// getScalar loads one little-endian arithmetic value from src into v.
// Integers sign-extend from their wire width.
func getScalar(src []byte, v reflect.Value, width int) {
	var u uint64
	switch width {
	case 1:
		u = uint64(src[0])
	case 2:
		u = uint64(binary.LittleEndian.Uint16(src))
	case 4:
		u = uint64(binary.LittleEndian.Uint32(src))
	case 8:
		u = binary.LittleEndian.Uint64(src)
	}

	switch v.Kind() {
	case reflect.Bool:
		v.SetBool(u != 0)
	case reflect.Int8:
		v.SetInt(int64(int8(u)))
	case reflect.Int16:
		v.SetInt(int64(int16(u)))
	case reflect.Int32:
		v.SetInt(int64(int32(u)))
	case reflect.Int64:
		v.SetInt(int64(u))
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v.SetUint(u)
	case reflect.Float32:
		v.SetFloat(float64(math.Float32frombits(uint32(u))))
	case reflect.Float64:
		v.SetFloat(math.Float64frombits(u))
	}
}
