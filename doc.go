// Package binpack provides a compact, header-less binary codec for
// structured Go values.
//
// Given arbitrary values - primitives, fixed arrays, pairs, slices, maps and
// user-defined composites - binpack produces a byte-order-normalized wire
// encoding and reconstructs equivalent values from it, without per-type
// encode/decode routines.
//
// # Traversal Model
//
// The codec is a single generic traversal reused across three passes:
//
//	Reserve  - compute the exact encoded size, no buffer mutation
//	Write    - append wire bytes into the pre-sized region
//	Read     - consume wire bytes, mutating destinations
//
// A Write call runs Reserve over the argument list, grows the buffer exactly
// once by the accumulated reservation, then runs the Write pass. A Read call
// runs a single Read pass:
//
//	┌──────────────────────────────────────────────────────────┐
//	│ Go Values ←→ [Classifier → Phase × Engine] ←→ Buffer     │
//	└──────────────────────────────────────────────────────────┘
//
// # Type Categories
//
// Every type is statically classified into exactly one category:
//
//	Category        Go shape                    Wire encoding
//	─────────────────────────────────────────────────────────────
//	Arithmetic      bool, intN, uintN, floatN   N raw LE bytes
//	FixedArray      [N]T (unnamed)              elements, no prefix
//	FixedContainer  named array type            elements, no prefix
//	Pair            two-field struct            first then second
//	DynamicSequence slice, string               u32 count + elements
//	AssociativeMap  map                         u32 count + entries
//	IteratorRange   Raw-wrapped slice           elements, no prefix
//	UserMember      implements Serializer       whatever the hook emits
//	UserFunc        RegisterSerializer hook     whatever the hook emits
//
// Classification is resolved once per distinct type and cached. Types that
// match no category fail with an unsupported_type error at first use.
// Platform-sized int, uint and uintptr are rejected: their wire width is not
// portable.
//
// # Wire Format
//
// No magic number, no version, no checksum. Arithmetic primitives are stored
// little-endian regardless of host order (two's-complement integers, IEEE 754
// floats). Dynamic containers carry a 4-byte little-endian element count;
// fixed shapes carry no prefix, so both sides must agree on them
// structurally. The decoder must be driven with destinations shaped exactly
// like the values that were written - the stream is strictly sequential and
// position-based.
//
// # Usage
//
//	buf := binpack.New()
//	if err := buf.Write(uint32(7), "hello", []int16{1, 2, 3}); err != nil {
//	    return err
//	}
//
//	var (
//	    n  uint32
//	    s  string
//	    xs []int16
//	)
//	dec := binpack.From(buf.Bytes())
//	if err := dec.Read(&n, &s, &xs); err != nil {
//	    return err
//	}
//
// # User-Defined Types
//
// A type takes control of its own encoding by implementing Serializer on its
// pointer receiver, forwarding each field through the phase-bound handle:
//
//	func (p *Point) Serialize(op *binpack.Op) error {
//	    return op.Visit(&p.X, &p.Y)
//	}
//
// The same body runs for all three passes. Types that cannot be modified can
// be registered with an external hook of identical shape:
//
//	binpack.RegisterSerializer(func(op *binpack.Op, p *legacy.Point) error {
//	    return op.Visit(&p.X, &p.Y)
//	})
//
// # Performance
//
// Slices and arrays of arithmetic elements take a contiguous fast path: one
// bulk byte copy plus, on big-endian hosts only, one batched in-place swap.
// The fast path is byte-for-byte interchangeable with element-by-element
// dispatch.
//
// # Thread Safety
//
// Classification and hook registration are safe for concurrent use. A Buffer
// carries exclusive cursor state and must not be driven by more than one
// in-flight pass at a time; use separate Buffer instances per goroutine.
//
// # Error Handling
//
// Errors use the structured types from the errors package:
//
//	[classify] unsupported_type at arg[1].Second: Go type chan int
//	[read] bounds_violation at arg[0].[elem]: need 4 bytes, 2 remaining
//
// All failures are contract violations, not transient conditions: nothing is
// retried and there is no corruption-tolerant decoding mode. A failure during
// Reserve leaves the buffer completely unmodified.
package binpack
