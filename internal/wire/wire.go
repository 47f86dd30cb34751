package wire

import (
	"encoding/binary"
	"math/bits"
	"unsafe"
)

// HostLittle reports whether the host stores multi-byte integers
// little-endian. Computed once from a one-word probe.
var HostLittle = func() bool {
	probe := uint16(1)
	return *(*byte)(unsafe.Pointer(&probe)) == 1
}()

// NeedSwap reports whether elements of the given byte width must be
// byte-reversed to match the wire order on this host.
func NeedSwap(width int) bool {
	return !HostLittle && width > 1
}

func Swap16(v uint16) uint16 { return bits.ReverseBytes16(v) }
func Swap32(v uint32) uint32 { return bits.ReverseBytes32(v) }
func Swap64(v uint64) uint64 { return bits.ReverseBytes64(v) }

// SwapRange reverses each width-sized element of b in place. len(b) must be
// a multiple of width; trailing bytes short of a full element are ignored.
func SwapRange(b []byte, width int) {
	switch width {
	case 2:
		for i := 0; i+2 <= len(b); i += 2 {
			binary.LittleEndian.PutUint16(b[i:], Swap16(binary.LittleEndian.Uint16(b[i:])))
		}
	case 4:
		for i := 0; i+4 <= len(b); i += 4 {
			binary.LittleEndian.PutUint32(b[i:], Swap32(binary.LittleEndian.Uint32(b[i:])))
		}
	case 8:
		for i := 0; i+8 <= len(b); i += 8 {
			binary.LittleEndian.PutUint64(b[i:], Swap64(binary.LittleEndian.Uint64(b[i:])))
		}
	}
}

// View returns an n-byte view over the storage at ptr. The caller is
// responsible for n matching the real extent of the storage.
func View(ptr unsafe.Pointer, n int) []byte {
	if n == 0 || ptr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(ptr), n)
}
