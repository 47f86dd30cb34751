// Package wire provides the byte-order primitives under the binpack engine.
//
// The wire byte order is little-endian for every arithmetic width. On
// big-endian hosts multi-byte elements are byte-reversed immediately after
// being copied into the buffer (write) or into the destination (read).
// Single-byte elements are never swapped. All swaps are self-inverse.
//
// View exposes typed storage as a byte slice for the contiguous-range bulk
// copy; it is the only place the engine reinterprets memory.
package wire
