package htlc

import "github.com/atswap-dev/node/swaperr"

// pushData encodes data as a minimal Bitcoin-script push: a direct length
// byte for payloads up to 75 bytes, OP_PUSHDATA1 for up to 255, and
// OP_PUSHDATA2 beyond that (redeem scripts never need more).
func pushData(data []byte) []byte {
	n := len(data)
	switch {
	case n <= 75:
		out := make([]byte, 0, 1+n)
		out = append(out, byte(n))
		return append(out, data...)
	case n <= 0xff:
		out := make([]byte, 0, 2+n)
		out = append(out, opPushdata1, byte(n))
		return append(out, data...)
	default:
		out := make([]byte, 0, 3+n)
		out = append(out, opPushdata2, byte(n), byte(n>>8))
		return append(out, data...)
	}
}

// pushScriptNum encodes v using the CScriptNum minimal-length little-endian
// signed representation and wraps it in a pushData, except for the two
// single-opcode special cases OP_FALSE (0) and OP_1NEGATE (-1).
func pushScriptNum(v int64) []byte {
	if v == 0 {
		return []byte{opFalse}
	}
	if v == -1 {
		return []byte{op1negate}
	}
	neg := v < 0
	abs := v
	if neg {
		abs = -abs
	}
	var result []byte
	for abs > 0 {
		result = append(result, byte(abs&0xff))
		abs >>= 8
	}
	if result[len(result)-1]&0x80 != 0 {
		if neg {
			result = append(result, 0x80)
		} else {
			result = append(result, 0x00)
		}
	} else if neg {
		result[len(result)-1] |= 0x80
	}
	return pushData(result)
}

// cursor is a forward-only reader over a script's raw bytes, used by
// ParseScript to recognise the canonical HTLC layout byte by byte.
type cursor struct {
	b   []byte
	pos int
}

func (c *cursor) atEnd() bool { return c.pos >= len(c.b) }

func (c *cursor) expectByte(want byte) error {
	if c.pos >= len(c.b) {
		return swaperr.InvalidInput("htlc: script ended unexpectedly")
	}
	if c.b[c.pos] != want {
		return swaperr.InvalidInput("htlc: unexpected opcode in script")
	}
	c.pos++
	return nil
}

// readPush reads a push-data opcode and its payload, requiring the payload
// be exactly wantLen bytes.
func (c *cursor) readPush(wantLen int) ([]byte, error) {
	data, err := c.readAnyPush()
	if err != nil {
		return nil, err
	}
	if len(data) != wantLen {
		return nil, swaperr.InvalidInput("htlc: push-data length mismatch")
	}
	return data, nil
}

func (c *cursor) readAnyPush() ([]byte, error) {
	if c.pos >= len(c.b) {
		return nil, swaperr.InvalidInput("htlc: script ended unexpectedly")
	}
	op := c.b[c.pos]
	c.pos++
	var n int
	switch {
	case op <= 75:
		n = int(op)
	case op == opPushdata1:
		if c.pos >= len(c.b) {
			return nil, swaperr.InvalidInput("htlc: truncated OP_PUSHDATA1")
		}
		n = int(c.b[c.pos])
		c.pos++
	case op == opPushdata2:
		if c.pos+2 > len(c.b) {
			return nil, swaperr.InvalidInput("htlc: truncated OP_PUSHDATA2")
		}
		n = int(c.b[c.pos]) | int(c.b[c.pos+1])<<8
		c.pos += 2
	default:
		return nil, swaperr.InvalidInput("htlc: expected a push-data opcode")
	}
	if c.pos+n > len(c.b) {
		return nil, swaperr.InvalidInput("htlc: push-data payload truncated")
	}
	data := c.b[c.pos : c.pos+n]
	c.pos += n
	return data, nil
}

// readScriptNum reads an OP_FALSE/OP_1NEGATE/push-data-encoded CScriptNum
// and decodes its little-endian sign-magnitude representation.
func (c *cursor) readScriptNum() (int64, error) {
	if c.pos < len(c.b) && c.b[c.pos] == opFalse {
		c.pos++
		return 0, nil
	}
	if c.pos < len(c.b) && c.b[c.pos] == op1negate {
		c.pos++
		return -1, nil
	}
	data, err := c.readAnyPush()
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}
	var result int64
	for i, b := range data {
		result |= int64(b) << uint(8*i)
	}
	last := data[len(data)-1]
	if last&0x80 != 0 {
		result &^= int64(0x80) << uint(8*(len(data)-1))
		result = -result
	}
	return result, nil
}
