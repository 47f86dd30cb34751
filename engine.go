package binpack

import (
	stderrors "errors"
	"math"
	"reflect"
	"strconv"
	"unsafe"

	"github.com/wippyai/binpack/errors"
	"github.com/wippyai/binpack/internal/wire"
)

// Op is the phase-bound forwarding handle a capability hook receives. The
// hook calls Visit with its own fields; the engine re-enters the same
// classification rules for each of them. The same hook body runs for the
// reserve, write and read passes.
type Op struct {
	b    *Buffer
	ph   phase
	path []string
}

// Phase reports which traversal pass this handle is bound to.
func (op *Op) Phase() errors.Phase { return op.ph.name() }

// Visit forwards args back into the traversal under the bound phase.
// During the read pass every arg must be a settable pointer.
func (op *Op) Visit(args ...any) error {
	vals, err := bindArgs(args, op.ph.mutates(), op.ph.name())
	if err != nil {
		return err
	}
	for _, v := range vals {
		p, err := planFor(v.Type())
		if err != nil {
			return err
		}
		if err := walk(op.ph, op.b, v, p, op.path); err != nil {
			return err
		}
	}
	return nil
}

// run is one traversal pass over a bound argument list. Reserve and write
// visit the identical node set in identical order by construction: they
// share this walk.
func (b *Buffer) run(ph phase, vals []reflect.Value) error {
	for i, v := range vals {
		p, err := planFor(v.Type())
		if err != nil {
			return err
		}
		path := []string{"arg[" + strconv.Itoa(i) + "]"}
		if err := walk(ph, b, v, p, path); err != nil {
			return err
		}
	}
	return nil
}

// walk dispatches one node to its category handler and recurses into
// composite children.
func walk(ph phase, b *Buffer, v reflect.Value, p *plan, path []string) error {
	switch p.cat {
	case CatArithmetic:
		return ph.scalar(b, v, p, path)

	case CatFixedArray, CatFixedContainer:
		return walkFixed(ph, b, v, p, path)

	case CatPair:
		firstPath := append(append([]string{}, path...), p.names[0])
		if err := walk(ph, b, v.Field(0), p.first, firstPath); err != nil {
			return err
		}
		secondPath := append(append([]string{}, path...), p.names[1])
		return walk(ph, b, v.Field(1), p.second, secondPath)

	case CatSequence:
		if p.str {
			return walkString(ph, b, v, path)
		}
		return walkSequence(ph, b, v, p, path)

	case CatMap:
		return walkMap(ph, b, v, p, path)

	case CatRange:
		return walkRange(ph, b, v, path)

	case CatUserMember:
		return callMemberHook(ph, b, v, path)

	case CatUserFunc:
		return callExternalHook(ph, b, v, p, path)
	}

	return errors.UnsupportedType(ph.name(), path, v.Type().String())
}

// walkFixed codes a fixed-shape element range. No length prefix in any
// phase: the shape is part of the static type contract.
func walkFixed(ph phase, b *Buffer, v reflect.Value, p *plan, path []string) error {
	if p.contig && v.CanAddr() {
		data := wire.View(v.Addr().UnsafePointer(), int(v.Type().Size()))
		return ph.block(b, data, p.elemWidth(), path)
	}

	elemPath := append(append([]string{}, path...), "[elem]")
	for i := 0; i < v.Len(); i++ {
		if err := walk(ph, b, v.Index(i), p.elem, elemPath); err != nil {
			return err
		}
	}
	return nil
}

// walkString codes a string as a dynamic byte container: u32 count followed
// by raw bytes. Strings are immutable, so the read pass rebuilds the value.
func walkString(ph phase, b *Buffer, v reflect.Value, path []string) error {
	if ph.mutates() {
		n, err := ph.count(b, 0, path)
		if err != nil {
			return err
		}
		if int64(n) > int64(b.Remaining()) {
			return errors.BoundsViolation(errors.PhaseRead, path, int(n), b.Remaining())
		}
		data := make([]byte, n)
		if err := ph.block(b, data, 1, path); err != nil {
			return err
		}
		v.SetString(string(data))
		return nil
	}

	s := v.String()
	if uint64(len(s)) > math.MaxUint32 {
		return errors.Overflow(ph.name(), path, len(s), "string length exceeds u32 count")
	}
	if _, err := ph.count(b, uint32(len(s)), path); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	data := unsafe.Slice(unsafe.StringData(s), len(s))
	return ph.block(b, data, 1, path)
}

// walkSequence codes a slice: u32 count followed by each element in order.
// The read pass resizes the destination to the wire count, reusing capacity
// when it can.
func walkSequence(ph phase, b *Buffer, v reflect.Value, p *plan, path []string) error {
	if ph.mutates() {
		n, err := ph.count(b, 0, path)
		if err != nil {
			return err
		}
		if err := checkWireCount(b, int(n), p.elem.minSize, path); err != nil {
			return err
		}
		if int(n) <= v.Cap() {
			v.SetLen(int(n))
		} else {
			v.Set(reflect.MakeSlice(v.Type(), int(n), int(n)))
		}
	} else {
		if uint64(v.Len()) > math.MaxUint32 {
			return errors.Overflow(ph.name(), path, v.Len(), "sequence length exceeds u32 count")
		}
		if _, err := ph.count(b, uint32(v.Len()), path); err != nil {
			return err
		}
	}

	return walkElems(ph, b, v, p, path)
}

// walkElems visits the elements of a slice, taking the contiguous fast path
// for arithmetic element types. The two paths are byte-for-byte
// interchangeable.
func walkElems(ph phase, b *Buffer, v reflect.Value, p *plan, path []string) error {
	n := v.Len()
	if n == 0 {
		return nil
	}

	if p.contig {
		data := wire.View(v.UnsafePointer(), n*p.elem.width)
		return ph.block(b, data, p.elemWidth(), path)
	}

	elemPath := append(append([]string{}, path...), "[elem]")
	for i := 0; i < n; i++ {
		if err := walk(ph, b, v.Index(i), p.elem, elemPath); err != nil {
			return err
		}
	}
	return nil
}

// walkMap codes a map: u32 count followed by key/value entries in iteration
// order. The read pass replaces the destination map wholesale, discarding
// any pre-existing entries.
func walkMap(ph phase, b *Buffer, v reflect.Value, p *plan, path []string) error {
	keyPath := append(append([]string{}, path...), "[key]")
	valPath := append(append([]string{}, path...), "[value]")

	if ph.mutates() {
		n, err := ph.count(b, 0, path)
		if err != nil {
			return err
		}
		if err := checkWireCount(b, int(n), p.key.minSize+p.val.minSize, path); err != nil {
			return err
		}

		m := reflect.MakeMapWithSize(v.Type(), int(n))
		kv := reflect.New(v.Type().Key()).Elem()
		vv := reflect.New(v.Type().Elem()).Elem()
		for i := uint32(0); i < n; i++ {
			if err := walk(ph, b, kv, p.key, keyPath); err != nil {
				return err
			}
			if err := walk(ph, b, vv, p.val, valPath); err != nil {
				return err
			}
			m.SetMapIndex(kv, vv)
		}
		v.Set(m)
		return nil
	}

	if uint64(v.Len()) > math.MaxUint32 {
		return errors.Overflow(ph.name(), path, v.Len(), "map length exceeds u32 count")
	}
	if _, err := ph.count(b, uint32(v.Len()), path); err != nil {
		return err
	}

	// Entries go through addressable temporaries so hooked keys and values
	// can take their pointer receivers.
	kv := reflect.New(v.Type().Key()).Elem()
	vv := reflect.New(v.Type().Elem()).Elem()
	iter := v.MapRange()
	for iter.Next() {
		kv.SetIterKey(iter)
		vv.SetIterValue(iter)
		if err := walk(ph, b, kv, p.key, keyPath); err != nil {
			return err
		}
		if err := walk(ph, b, vv, p.val, valPath); err != nil {
			return err
		}
	}
	return nil
}

// walkRange codes a Raw-wrapped slice as a bare element range with no count
// prefix. The wrapped slice supplies the length on both sides.
func walkRange(ph phase, b *Buffer, v reflect.Value, path []string) error {
	raw, _ := v.Interface().(Raw)
	if raw.Slice == nil {
		return errors.NilPointer(ph.name(), path, "binpack.Raw")
	}

	inner := reflect.ValueOf(raw.Slice)
	if inner.Kind() != reflect.Slice {
		return errors.New(ph.name(), errors.KindUnsupportedType).
			Path(path...).
			GoType(inner.Type().String()).
			Value(raw.Slice).
			Detail("Raw requires a slice").
			Build()
	}

	p, err := planFor(inner.Type())
	if err != nil {
		return err
	}
	return walkElems(ph, b, inner, p, path)
}

func callMemberHook(ph phase, b *Buffer, v reflect.Value, path []string) error {
	op := &Op{b: b, ph: ph, path: path}

	if v.CanAddr() {
		if s, ok := v.Addr().Interface().(Serializer); ok {
			return hookError(ph, s.Serialize(op))
		}
	}
	if s, ok := v.Interface().(Serializer); ok {
		return hookError(ph, s.Serialize(op))
	}

	return errors.New(ph.name(), errors.KindInvalidData).
		Path(path...).
		GoType(v.Type().String()).
		Detail("classified as member hook but Serialize is unreachable").
		Build()
}

func callExternalHook(ph phase, b *Buffer, v reflect.Value, p *plan, path []string) error {
	op := &Op{b: b, ph: ph, path: path}
	return hookError(ph, p.hook(op, addressable(v).Addr().Interface()))
}

// hookError passes structured errors through untouched and tags plain hook
// errors with the failing phase.
func hookError(ph phase, err error) error {
	if err == nil {
		return nil
	}
	var e *errors.Error
	if stderrors.As(err, &e) {
		return err
	}
	return errors.Wrap(ph.name(), errors.KindInvalidData, err, "serializer hook failed")
}

// addressable returns v itself when addressable, or an addressable copy.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	av := reflect.New(v.Type()).Elem()
	av.Set(v)
	return av
}

// maxWireCount bounds read-side element counts whose per-element minimum
// size is zero (hook types), where the remaining-bytes check cannot bind.
const maxWireCount = 1 << 27

// checkWireCount rejects a read-side element count whose minimum encoded
// size cannot fit in the remaining bytes, before any allocation happens.
func checkWireCount(b *Buffer, n, minElemSize int, path []string) error {
	if n > maxWireCount {
		return errors.BoundsViolation(errors.PhaseRead, path, n, b.Remaining())
	}
	if minElemSize < 1 {
		return nil
	}
	if need := int64(n) * int64(minElemSize); need > int64(b.Remaining()) {
		return errors.BoundsViolation(errors.PhaseRead, path, int(need), b.Remaining())
	}
	return nil
}
