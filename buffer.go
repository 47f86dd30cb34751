package binpack

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/wippyai/binpack/errors"
)

// Buffer owns the growable byte store and the three traversal cursors.
// A Buffer must not be driven by more than one in-flight pass at a time;
// use separate instances per goroutine.
type Buffer struct {
	data     []byte
	writePos int
	readPos  int
	reserve  int
}

// New returns an empty buffer ready for writing.
func New() *Buffer {
	return &Buffer{}
}

// From wraps existing wire bytes for reading. The buffer takes ownership of
// data; the caller must not mutate it while the buffer is in use.
func From(data []byte) *Buffer {
	return &Buffer{data: data, writePos: len(data)}
}

// Pack writes args into a fresh buffer.
func Pack(args ...any) (*Buffer, error) {
	b := New()
	if err := b.Write(args...); err != nil {
		return nil, err
	}
	return b, nil
}

// Write encodes args onto the end of the buffer: one reserve pass over the
// argument list, exactly one buffer growth by the accumulated reservation,
// then one write pass. A failure during reserve leaves the buffer
// completely unmodified; a failure during the write pass truncates the
// partially written region.
//
// Args may be values or pointers to values.
func (b *Buffer) Write(args ...any) error {
	vals, err := bindArgs(args, false, errors.PhaseWrite)
	if err != nil {
		return err
	}

	b.reserve = 0
	if err := b.run(reservePhase{}, vals); err != nil {
		return err
	}

	start := len(b.data)
	b.data = append(b.data, make([]byte, b.reserve)...)
	b.writePos = start

	if err := b.run(writePhase{}, vals); err != nil {
		b.data = b.data[:start]
		b.writePos = start
		return err
	}

	if b.writePos != len(b.data) {
		written := b.writePos - start
		b.data = b.data[:start]
		b.writePos = start
		return errors.InvalidData(errors.PhaseWrite, nil,
			fmt.Sprintf("write pass produced %d bytes, reserve pass computed %d", written, b.reserve))
	}
	return nil
}

// Read decodes the next values from the buffer into args, which must all be
// non-nil pointers shaped exactly like the values that were written. The
// pointer requirement is checked for every arg before any byte is consumed.
func (b *Buffer) Read(args ...any) error {
	vals, err := bindArgs(args, true, errors.PhaseRead)
	if err != nil {
		return err
	}
	return b.run(readPhase{}, vals)
}

// Read decodes the next value of type T from the buffer.
func Read[T any](b *Buffer) (T, error) {
	var t T
	err := b.Read(&t)
	return t, err
}

// Bytes returns the encoded wire bytes. The slice aliases the buffer's
// store and is valid until the next Write or Reset.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the total number of encoded bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Remaining returns the number of unread bytes.
func (b *Buffer) Remaining() int {
	return len(b.data) - b.readPos
}

// Reset discards all contents and cursors, keeping the allocated store for
// reuse.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
	b.writePos = 0
	b.readPos = 0
	b.reserve = 0
}

// writeSpan claims the next n bytes of the pre-sized write region.
func (b *Buffer) writeSpan(n int, path []string) ([]byte, error) {
	if b.writePos+n > len(b.data) {
		return nil, errors.BoundsViolation(errors.PhaseWrite, path, n, len(b.data)-b.writePos)
	}
	s := b.data[b.writePos : b.writePos+n]
	b.writePos += n
	return s, nil
}

// readSpan consumes the next n bytes.
func (b *Buffer) readSpan(n int, path []string) ([]byte, error) {
	if b.readPos+n > len(b.data) {
		return nil, errors.BoundsViolation(errors.PhaseRead, path, n, len(b.data)-b.readPos)
	}
	s := b.data[b.readPos : b.readPos+n]
	b.readPos += n
	return s, nil
}

// bindArgs normalizes an argument list to addressable values. Pointers are
// dereferenced one level; reading requires every arg to be a pointer (Raw
// excepted, since its wrapped slice already shares backing storage).
func bindArgs(args []any, reading bool, ph errors.Phase) ([]reflect.Value, error) {
	vals := make([]reflect.Value, len(args))
	for i, a := range args {
		path := []string{"arg[" + strconv.Itoa(i) + "]"}
		if a == nil {
			return nil, errors.NilPointer(ph, path, "nil")
		}

		v := reflect.ValueOf(a)
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return nil, errors.NilPointer(ph, path, v.Type().String())
			}
			v = v.Elem()
		} else if reading {
			if _, ok := a.(Raw); !ok {
				return nil, errors.ConstViolation(ph, path, v.Type().String())
			}
		}

		vals[i] = addressable(v)
	}
	return vals, nil
}
