package atcodec

import (
	"errors"
	"math/big"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var (
	base58Base  = big.NewInt(58)
	base58Index = func() map[byte]int64 {
		m := make(map[byte]int64, len(base58Alphabet))
		for i := 0; i < len(base58Alphabet); i++ {
			m[base58Alphabet[i]] = int64(i)
		}
		return m
	}()
)

// ErrBase58Checksum is returned by Base58CheckDecode when the trailing
// 4-byte checksum does not match Hash256(payload)[0:4].
var ErrBase58Checksum = errors.New("atcodec: base58check checksum mismatch")

// Base58Encode encodes b using the Bitcoin-style Base58 alphabet, preserving
// leading zero bytes as leading '1' characters.
func Base58Encode(b []byte) string {
	if len(b) == 0 {
		return ""
	}

	zeros := 0
	for zeros < len(b) && b[zeros] == 0 {
		zeros++
	}

	n := new(big.Int).SetBytes(b)
	var out []byte
	mod := new(big.Int)
	for n.Sign() > 0 {
		n.DivMod(n, base58Base, mod)
		out = append(out, base58Alphabet[mod.Int64()])
	}
	for i := 0; i < zeros; i++ {
		out = append(out, base58Alphabet[0])
	}
	// digits were produced least-significant-first; reverse in place.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

// Base58Decode is the inverse of Base58Encode.
func Base58Decode(s string) ([]byte, error) {
	n := new(big.Int)
	for i := 0; i < len(s); i++ {
		v, ok := base58Index[s[i]]
		if !ok {
			return nil, errors.New("atcodec: invalid base58 character")
		}
		n.Mul(n, base58Base)
		n.Add(n, big.NewInt(v))
	}

	zeros := 0
	for zeros < len(s) && s[zeros] == base58Alphabet[0] {
		zeros++
	}

	decoded := n.Bytes()
	out := make([]byte, zeros+len(decoded))
	copy(out[zeros:], decoded)
	return out, nil
}

// Base58CheckEncode encodes versionByte||payload with a trailing 4-byte
// Hash256 checksum, as used by both the HTLC P2SH address and the wallet's
// P2PKH addresses.
func Base58CheckEncode(versionByte byte, payload []byte) string {
	body := make([]byte, 0, 1+len(payload)+4)
	body = append(body, versionByte)
	body = append(body, payload...)
	checksum := Hash256(body)
	body = append(body, checksum[:4]...)
	return Base58Encode(body)
}

// Base58CheckDecode is the inverse of Base58CheckEncode; it returns the
// version byte and payload, after verifying the checksum.
func Base58CheckDecode(s string) (versionByte byte, payload []byte, err error) {
	raw, err := Base58Decode(s)
	if err != nil {
		return 0, nil, err
	}
	if len(raw) < 5 {
		return 0, nil, errors.New("atcodec: base58check input too short")
	}
	body := raw[:len(raw)-4]
	checksum := raw[len(raw)-4:]
	expected := Hash256(body)
	for i := 0; i < 4; i++ {
		if checksum[i] != expected[i] {
			return 0, nil, ErrBase58Checksum
		}
	}
	return body[0], body[1:], nil
}
