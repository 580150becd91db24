package htlc

import (
	"bytes"
	"testing"

	"github.com/atswap-dev/node/atcodec"
)

func testParams() Params {
	var secretHash, redeemerPKH, refunderPKH [20]byte
	for i := range secretHash {
		secretHash[i] = byte(i + 1)
	}
	for i := range redeemerPKH {
		redeemerPKH[i] = byte(i + 100)
	}
	for i := range refunderPKH {
		refunderPKH[i] = byte(i + 200)
	}
	return Params{
		SecretLen:   32,
		SecretHash:  secretHash,
		RedeemerPKH: redeemerPKH,
		LockTime:    1700000000,
		RefunderPKH: refunderPKH,
	}
}

func TestBuildScriptRoundTripsThroughParseScript(t *testing.T) {
	p := testParams()
	script := BuildScript(p)

	got, err := ParseScript(script)
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	if got != p {
		t.Fatalf("round-tripped params mismatch: got %+v, want %+v", got, p)
	}
}

func TestBuildScriptIsByteForByteCanonical(t *testing.T) {
	p := testParams()
	script := BuildScript(p)

	var want bytes.Buffer
	want.WriteByte(opIf)
	want.WriteByte(opSize)
	want.Write(pushScriptNum(32))
	want.WriteByte(opEqualVerify)
	want.WriteByte(opHash160)
	want.Write(pushData(p.SecretHash[:]))
	want.WriteByte(opEqualVerify)
	want.WriteByte(opDup)
	want.WriteByte(opHash160)
	want.Write(pushData(p.RedeemerPKH[:]))
	want.WriteByte(opElse)
	want.Write(pushScriptNum(p.LockTime))
	want.WriteByte(opCheckLockTimeVerify)
	want.WriteByte(opDrop)
	want.WriteByte(opDup)
	want.WriteByte(opHash160)
	want.Write(pushData(p.RefunderPKH[:]))
	want.WriteByte(opEndif)
	want.WriteByte(opEqualVerify)
	want.WriteByte(opCheckSig)

	if !bytes.Equal(script, want.Bytes()) {
		t.Fatalf("BuildScript layout diverged from the pinned byte sequence:\ngot  %x\nwant %x", script, want.Bytes())
	}
}

func TestParseScriptRejectsWrongOpcode(t *testing.T) {
	p := testParams()
	script := BuildScript(p)
	script[0] = opElse // corrupt the leading OP_IF

	if _, err := ParseScript(script); err == nil {
		t.Fatal("expected ParseScript to reject a corrupted leading opcode")
	}
}

func TestParseScriptRejectsTrailingBytes(t *testing.T) {
	p := testParams()
	script := append(BuildScript(p), 0xAB)

	if _, err := ParseScript(script); err == nil {
		t.Fatal("expected ParseScript to reject trailing bytes")
	}
}

func TestParseScriptRejectsWrongPushLength(t *testing.T) {
	p := testParams()
	script := BuildScript(p)
	// Corrupt the push-length byte that follows the first OP_HASH160, so
	// the 20-byte secret-hash push length check fails.
	idx := bytes.IndexByte(script, opHash160)
	script[idx+1] = 19 // claim a 19-byte hash instead of 20

	if _, err := ParseScript(script); err == nil {
		t.Fatal("expected ParseScript to reject a mismatched push length")
	}
}

func TestP2SHAddressIsDeterministicAndVersionSensitive(t *testing.T) {
	p := testParams()
	script := BuildScript(p)

	addr1 := P2SHAddress(script, 0x05)
	addr2 := P2SHAddress(script, 0x05)
	if addr1 != addr2 {
		t.Fatal("P2SHAddress is not deterministic")
	}

	addr3 := P2SHAddress(script, 0xC4)
	if addr1 == addr3 {
		t.Fatal("different version bytes produced the same P2SH address")
	}

	version, payload, err := atcodec.Base58CheckDecode(addr1)
	if err != nil {
		t.Fatalf("Base58CheckDecode: %v", err)
	}
	if version != 0x05 {
		t.Fatalf("decoded version byte = %x, want 0x05", version)
	}
	wantHash := atcodec.Hash160(script)
	if !bytes.Equal(payload, wantHash[:]) {
		t.Fatalf("decoded payload = %x, want HASH160(script) = %x", payload, wantHash)
	}
}

func TestRedeemScriptSigLayout(t *testing.T) {
	sig := []byte{0x01, 0x02, 0x03}
	pubKey := []byte{0x04, 0x05}
	secret := bytes.Repeat([]byte{0xAA}, 32)
	redeemScript := []byte{0x99, 0x99}

	got := RedeemScriptSig(sig, pubKey, secret, redeemScript)

	var want bytes.Buffer
	want.Write(pushData(sig))
	want.Write(pushData(pubKey))
	want.Write(pushData(secret))
	want.WriteByte(opTrue)
	want.Write(pushData(redeemScript))

	if !bytes.Equal(got, want.Bytes()) {
		t.Fatalf("RedeemScriptSig layout mismatch:\ngot  %x\nwant %x", got, want.Bytes())
	}
}

func TestRefundScriptSigLayout(t *testing.T) {
	sig := []byte{0x01, 0x02, 0x03}
	redeemScript := []byte{0x99, 0x99}

	got := RefundScriptSig(sig, redeemScript)

	var want bytes.Buffer
	want.Write(pushData(sig))
	want.WriteByte(opFalse)
	want.Write(pushData(redeemScript))

	if !bytes.Equal(got, want.Bytes()) {
		t.Fatalf("RefundScriptSig layout mismatch:\ngot  %x\nwant %x", got, want.Bytes())
	}
}

func TestPushScriptNumRoundTrip(t *testing.T) {
	cases := []int64{0, -1, 1, 127, 128, 255, 256, -256, 1700000000, -1700000000}
	for _, v := range cases {
		encoded := pushScriptNum(v)
		c := &cursor{b: encoded}
		got, err := c.readScriptNum()
		if err != nil {
			t.Fatalf("readScriptNum(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("pushScriptNum/readScriptNum round trip: got %d, want %d", got, v)
		}
	}
}

func TestPushDataLargePayloadUsesPushdata1(t *testing.T) {
	data := bytes.Repeat([]byte{0x7a}, 200)
	encoded := pushData(data)
	if encoded[0] != opPushdata1 {
		t.Fatalf("expected OP_PUSHDATA1 for a 200-byte payload, got opcode %x", encoded[0])
	}
	if int(encoded[1]) != len(data) {
		t.Fatalf("OP_PUSHDATA1 length byte = %d, want %d", encoded[1], len(data))
	}
}
