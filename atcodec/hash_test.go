package atcodec

import (
	"bytes"
	"testing"
)

func TestSHA192IsPrefixOfSHA256(t *testing.T) {
	full := SHA256([]byte("rubin-at-register-fingerprint"))
	short := SHA192([]byte("rubin-at-register-fingerprint"))
	if !bytes.Equal(full[:24], short[:]) {
		t.Fatalf("SHA192 must be the first 24 bytes of SHA256")
	}
}

func TestHash160IsDeterministicAndDiffersFromSHA256(t *testing.T) {
	input := []byte("rubin-at-hash160")
	got1 := Hash160(input)
	got2 := Hash160(input)
	if got1 != got2 {
		t.Fatalf("Hash160 must be deterministic")
	}
	sha := SHA256(input)
	if bytes.Equal(got1[:], sha[:20]) {
		t.Fatalf("Hash160 must not equal a truncated SHA256 (RIPEMD160 pass is required)")
	}
}

func TestBase58CheckRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 20)
	encoded := Base58CheckEncode(0x05, payload)
	version, decoded, err := Base58CheckDecode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if version != 0x05 {
		t.Fatalf("version = %x, want 0x05", version)
	}
	if !bytes.Equal(decoded, payload) {
		t.Fatalf("payload mismatch: got %x want %x", decoded, payload)
	}
}

func TestBase58CheckDecodeRejectsBadChecksum(t *testing.T) {
	encoded := Base58CheckEncode(0x00, []byte{1, 2, 3})
	tampered := encoded[:len(encoded)-1] + "9"
	if _, _, err := Base58CheckDecode(tampered); err == nil {
		t.Fatalf("expected checksum error for tampered input")
	}
}

func TestHMACSHA512IsDeterministicAndKeySensitive(t *testing.T) {
	data := []byte("m/44'/0'/0'/0")
	mac1 := HMACSHA512([]byte("key-a"), data)
	mac2 := HMACSHA512([]byte("key-a"), data)
	if mac1 != mac2 {
		t.Fatalf("HMACSHA512 must be deterministic for the same key and data")
	}
	mac3 := HMACSHA512([]byte("key-b"), data)
	if mac1 == mac3 {
		t.Fatalf("different keys must not produce the same HMAC-SHA512 output")
	}
}

func TestFromLEToLERoundTrip(t *testing.T) {
	v := uint64(0x0102030405060708)
	b := ToLE64(v)
	if got := FromLE64(b, 0); got != v {
		t.Fatalf("FromLE64(ToLE64(v)) = %x, want %x", got, v)
	}
}
