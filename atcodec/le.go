// Package atcodec provides the byte-packing and hashing primitives shared
// by the AT execution engine and the cross-chain wallet. Every function
// here is a pure transform: no state, no I/O, byte-identical across
// implementations by construction.
package atcodec

import "encoding/binary"

// FromLE64 reads an 8-byte little-endian unsigned integer at offset.
func FromLE64(b []byte, offset int) uint64 {
	return binary.LittleEndian.Uint64(b[offset : offset+8])
}

// FromLE32 reads a 4-byte little-endian unsigned integer at offset.
func FromLE32(b []byte, offset int) uint32 {
	return binary.LittleEndian.Uint32(b[offset : offset+4])
}

// ToLE64 packs v into 8 little-endian bytes.
func ToLE64(v uint64) []byte {
	var out [8]byte
	binary.LittleEndian.PutUint64(out[:], v)
	return out[:]
}

// ToLE32 packs v into 4 little-endian bytes.
func ToLE32(v uint32) []byte {
	var out [4]byte
	binary.LittleEndian.PutUint32(out[:], v)
	return out[:]
}

// cursor is a minimal forward-only byte reader for this package, following
// the same discipline as the AT state blob and HTLC script decoders (which
// each keep their own reader): explicit bounds checks, no silent truncation.
type cursor struct {
	b   []byte
	pos int
}

func newCursor(b []byte) *cursor {
	return &cursor{b: b}
}

func (c *cursor) remaining() int {
	if c.pos >= len(c.b) {
		return 0
	}
	return len(c.b) - c.pos
}

func (c *cursor) readExact(n int) ([]byte, error) {
	if n < 0 || c.remaining() < n {
		return nil, errTruncated
	}
	start := c.pos
	c.pos += n
	return c.b[start:c.pos], nil
}

func (c *cursor) readU8() (byte, error) {
	b, err := c.readExact(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) readU32LE() (uint32, error) {
	b, err := c.readExact(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *cursor) readU64LE() (uint64, error) {
	b, err := c.readExact(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
