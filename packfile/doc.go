// Package packfile wraps encoded binpack payloads in a small self-describing
// envelope for storage and transport.
//
// The envelope is a 16-byte little-endian header followed by the payload:
//
//	offset  size  field
//	0       4     magic "BPAK"
//	4       2     format version (currently 1)
//	6       1     codec (none, lz4, zstd, brotli)
//	7       1     reserved, must be zero
//	8       8     uncompressed payload length
//
// The uncompressed length is recorded for every codec, including CodecNone,
// and is enforced on open so a corrupt or hostile envelope cannot force an
// oversized allocation or a decompression bomb.
//
// Sealing and opening are symmetric:
//
//	data, err := packfile.Seal(buf, packfile.CodecZstd)
//	...
//	buf, err := packfile.Open(data)
package packfile
