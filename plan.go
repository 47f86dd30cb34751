package binpack

import (
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/binpack/errors"
)

// Category is the closed classification of a value's structural shape.
// Exactly one category applies per type; classification is purely
// type-level and never depends on the value.
type Category uint8

const (
	CatInvalid Category = iota
	CatArithmetic
	CatFixedArray
	CatFixedContainer
	CatPair
	CatMap
	CatSequence
	CatRange
	CatUserMember
	CatUserFunc
)

var categoryNames = [...]string{
	CatInvalid:        "invalid",
	CatArithmetic:     "arithmetic",
	CatFixedArray:     "fixed_array",
	CatFixedContainer: "fixed_container",
	CatPair:           "pair",
	CatMap:            "associative_map",
	CatSequence:       "dynamic_sequence",
	CatRange:          "iterator_range",
	CatUserMember:     "user_member",
	CatUserFunc:       "user_func",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "unknown"
}

// Raw wraps a slice so it is coded as a bare element range with no count
// prefix. The length is part of the caller's contract: the reader must
// supply a slice of exactly the length that was written.
type Raw struct {
	Slice any
}

// Serializer lets a type take full control of its own encoding. The same
// Serialize body runs for the reserve, write and read passes; it forwards
// each field through the op handle, re-entering classification recursively.
// Implement it on the pointer receiver so the read pass can mutate fields.
type Serializer interface {
	Serialize(op *Op) error
}

// plan is the compiled traversal recipe for one type. Built once per
// distinct type and shared; all fields are immutable after classification.
type plan struct {
	typ     reflect.Type
	hook    externalFn // CatUserFunc only
	elem    *plan      // array / sequence element
	key     *plan      // map key
	val     *plan      // map value
	first   *plan      // pair fields
	second  *plan
	names   [2]string // pair field names, for error paths
	cat     Category
	width   int  // arithmetic byte width
	minSize int  // smallest possible wire size, for read-side count prechecks
	contig  bool // storage is one contiguous arithmetic block
	str     bool // sequence backed by a Go string
}

// elemWidth returns the arithmetic width at the bottom of a contiguous
// block, descending through nested fixed arrays.
func (p *plan) elemWidth() int {
	e := p.elem
	for e != nil && e.elem != nil {
		e = e.elem
	}
	if e != nil {
		return e.width
	}
	return p.width
}

type externalFn func(op *Op, v any) error

var (
	planCache    sync.Map // reflect.Type -> *plan
	hookRegistry sync.Map // reflect.Type -> externalFn

	serializerType = reflect.TypeOf((*Serializer)(nil)).Elem()
	rawType        = reflect.TypeOf(Raw{})
)

// RegisterSerializer registers fn as the external capability hook for T.
// It is the counterpart to implementing Serializer for types that cannot be
// modified. Register before the first traversal of T; classification
// results are cached per type.
func RegisterSerializer[T any](fn func(op *Op, v *T) error) error {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if fn == nil {
		return errors.Registration(t.String(), "nil serializer function")
	}
	wrapped := externalFn(func(op *Op, v any) error { return fn(op, v.(*T)) })
	if _, loaded := hookRegistry.LoadOrStore(t, wrapped); loaded {
		return errors.Registration(t.String(), "serializer already registered")
	}
	return nil
}

// planFor returns the cached traversal plan for t, classifying on first use.
func planFor(t reflect.Type) (*plan, error) {
	if cached, ok := planCache.Load(t); ok {
		return cached.(*plan), nil
	}

	p, err := classify(t, nil)
	if err != nil {
		return nil, err
	}

	Logger().Debug("classified type",
		zap.String("type", t.String()),
		zap.Stringer("category", p.cat))

	planCache.Store(t, p)
	return p, nil
}

// classify resolves t to exactly one category. Precedence, first match
// wins: fixed array, Raw range, member hook, external hook, map, sequence,
// string, pair, arithmetic. Pointer types are rejected outright: the wire
// has no pointer shape, and a pointer must never reach the hook checks
// (a *T whose base implements Serializer would otherwise classify and then
// be invoked on a nil pointee during the read pass).
func classify(t reflect.Type, path []string) (*plan, error) {
	if t.Kind() == reflect.Pointer {
		return nil, errors.New(errors.PhaseClassify, errors.KindUnsupportedType).
			Path(path...).
			GoType(t.String()).
			Detail("pointer types have no wire shape").
			Build()
	}

	if t.Kind() == reflect.Array {
		return classifyArray(t, path)
	}

	if t == rawType {
		// Element shape is resolved from the wrapped slice at traversal
		// time; Raw is the one deliberate dynamic point in classification.
		return &plan{typ: t, cat: CatRange}, nil
	}

	if t.Implements(serializerType) || reflect.PointerTo(t).Implements(serializerType) {
		return &plan{typ: t, cat: CatUserMember}, nil
	}

	if fn, ok := hookRegistry.Load(t); ok {
		return &plan{typ: t, cat: CatUserFunc, hook: fn.(externalFn)}, nil
	}

	switch t.Kind() {
	case reflect.Map:
		return classifyMap(t, path)

	case reflect.Slice:
		elemPath := append(append([]string{}, path...), "[elem]")
		elem, err := classify(t.Elem(), elemPath)
		if err != nil {
			return nil, err
		}
		return &plan{
			typ:     t,
			cat:     CatSequence,
			elem:    elem,
			contig:  contiguousElem(elem),
			minSize: countSize,
		}, nil

	case reflect.String:
		return &plan{typ: t, cat: CatSequence, str: true, minSize: countSize}, nil

	case reflect.Struct:
		return classifyPair(t, path)
	}

	if w := arithWidth(t.Kind()); w > 0 {
		return &plan{typ: t, cat: CatArithmetic, width: w, minSize: w}, nil
	}

	return nil, errors.UnsupportedType(errors.PhaseClassify, path, t.String())
}

func classifyArray(t reflect.Type, path []string) (*plan, error) {
	elemPath := append(append([]string{}, path...), "[elem]")
	elem, err := classify(t.Elem(), elemPath)
	if err != nil {
		return nil, err
	}

	cat := CatFixedArray
	if t.Name() != "" {
		cat = CatFixedContainer
	}

	// Nested fixed arrays of arithmetic elements flatten to one block.
	contig := contiguousElem(elem) ||
		((elem.cat == CatFixedArray || elem.cat == CatFixedContainer) && elem.contig)

	return &plan{
		typ:     t,
		cat:     cat,
		elem:    elem,
		contig:  contig,
		minSize: t.Len() * elem.minSize,
	}, nil
}

func classifyMap(t reflect.Type, path []string) (*plan, error) {
	keyPath := append(append([]string{}, path...), "[key]")
	key, err := classify(t.Key(), keyPath)
	if err != nil {
		return nil, err
	}

	valPath := append(append([]string{}, path...), "[value]")
	val, err := classify(t.Elem(), valPath)
	if err != nil {
		return nil, err
	}

	return &plan{typ: t, cat: CatMap, key: key, val: val, minSize: countSize}, nil
}

// classifyPair accepts structs with exactly two exported fields. Structs of
// any other shape participate only through capability hooks.
func classifyPair(t reflect.Type, path []string) (*plan, error) {
	if t.NumField() != 2 {
		return nil, errors.New(errors.PhaseClassify, errors.KindUnsupportedType).
			Path(path...).
			GoType(t.String()).
			Detail("struct has %d fields; only two-field structs are pair-like, others need a Serializer hook", t.NumField()).
			Build()
	}

	f0, f1 := t.Field(0), t.Field(1)
	if !f0.IsExported() || !f1.IsExported() {
		return nil, errors.New(errors.PhaseClassify, errors.KindUnsupportedType).
			Path(path...).
			GoType(t.String()).
			Detail("pair fields must be exported").
			Build()
	}

	firstPath := append(append([]string{}, path...), f0.Name)
	first, err := classify(f0.Type, firstPath)
	if err != nil {
		return nil, err
	}

	secondPath := append(append([]string{}, path...), f1.Name)
	second, err := classify(f1.Type, secondPath)
	if err != nil {
		return nil, err
	}

	return &plan{
		typ:     t,
		cat:     CatPair,
		first:   first,
		second:  second,
		names:   [2]string{f0.Name, f1.Name},
		minSize: first.minSize + second.minSize,
	}, nil
}

// contiguousElem reports whether a range of elem values can be
// bulk-transferred as one byte block. Bools are excluded: their storage is
// copyable, but the read side must canonicalize every wire byte to exactly
// 0 or 1, which only the per-element path does.
func contiguousElem(elem *plan) bool {
	return elem.cat == CatArithmetic && elem.typ.Kind() != reflect.Bool
}

// arithWidth returns the wire width of an arithmetic kind, or 0 if the kind
// is not arithmetic. Platform-sized int, uint and uintptr are deliberately
// excluded: their width differs across targets.
func arithWidth(k reflect.Kind) int {
	switch k {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4
	case reflect.Int64, reflect.Uint64, reflect.Float64:
		return 8
	}
	return 0
}
