// Package btctx builds, serialises, and signs the legacy (pre-segwit)
// Bitcoin-style transactions the cross-chain wallet (C7) and swap
// orchestrator (C9) need: a P2PKH spend out of freshly discovered UTXOs,
// and an HTLC P2SH spend along either its redeem or refund branch. It
// knows nothing about HTLC script shape itself — that lives in the htlc
// package — only about the wire format a scriptSig/scriptPubKey pair is
// wrapped in.
package btctx

import (
	"encoding/binary"

	"github.com/atswap-dev/node/atcodec"
	"github.com/atswap-dev/node/swaperr"
)

// SighashAll is the only sighash type this module ever constructs; the
// cross-chain flows here never need ANYONECANPAY or SINGLE.
const SighashAll uint32 = 1

// TxIn is one transaction input.
type TxIn struct {
	PrevTxID  [32]byte // internal byte order (not the reversed display order)
	PrevIndex uint32
	ScriptSig []byte
	Sequence  uint32
}

// TxOut is one transaction output.
type TxOut struct {
	Value        uint64
	ScriptPubKey []byte
}

// Tx is a legacy (non-segwit) Bitcoin-style transaction.
type Tx struct {
	Version  int32
	Inputs   []TxIn
	Outputs  []TxOut
	LockTime uint32
}

// Serialize renders tx in the classic wire format: version, varint input
// count, inputs, varint output count, outputs, locktime. No segwit marker
// or witness data — every script this module spends is a legacy P2SH/P2PKH
// scriptSig.
func (tx *Tx) Serialize() []byte {
	out := make([]byte, 0, 256)
	out = appendU32LE(out, uint32(tx.Version))
	out = appendVarInt(out, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		out = append(out, in.PrevTxID[:]...)
		out = appendU32LE(out, in.PrevIndex)
		out = appendVarInt(out, uint64(len(in.ScriptSig)))
		out = append(out, in.ScriptSig...)
		out = appendU32LE(out, in.Sequence)
	}
	out = appendVarInt(out, uint64(len(tx.Outputs)))
	for _, o := range tx.Outputs {
		out = appendU64LE(out, o.Value)
		out = appendVarInt(out, uint64(len(o.ScriptPubKey)))
		out = append(out, o.ScriptPubKey...)
	}
	out = appendU32LE(out, tx.LockTime)
	return out
}

// Deserialize parses raw as a legacy (non-segwit) transaction, the exact
// inverse of Serialize. It is used to resolve a UTXO's value/scriptPubKey
// from a provider's raw-transaction fetch when GetUTXOs itself didn't
// already supply them (spec.md §4.7: "Re-queries transaction outputs from
// the provider when value/script resolution requires it").
func Deserialize(raw []byte) (*Tx, error) {
	r := &reader{buf: raw}

	version, err := r.readU32LE()
	if err != nil {
		return nil, err
	}
	inCount, err := r.readVarInt()
	if err != nil {
		return nil, err
	}
	tx := &Tx{Version: int32(version), Inputs: make([]TxIn, inCount)}
	for i := range tx.Inputs {
		prevTxID, err := r.readBytes(32)
		if err != nil {
			return nil, err
		}
		prevIndex, err := r.readU32LE()
		if err != nil {
			return nil, err
		}
		scriptLen, err := r.readVarInt()
		if err != nil {
			return nil, err
		}
		scriptSig, err := r.readBytes(int(scriptLen))
		if err != nil {
			return nil, err
		}
		sequence, err := r.readU32LE()
		if err != nil {
			return nil, err
		}
		tx.Inputs[i] = TxIn{
			PrevIndex: prevIndex,
			ScriptSig: scriptSig,
			Sequence:  sequence,
		}
		copy(tx.Inputs[i].PrevTxID[:], prevTxID)
	}

	outCount, err := r.readVarInt()
	if err != nil {
		return nil, err
	}
	tx.Outputs = make([]TxOut, outCount)
	for i := range tx.Outputs {
		value, err := r.readU64LE()
		if err != nil {
			return nil, err
		}
		scriptLen, err := r.readVarInt()
		if err != nil {
			return nil, err
		}
		scriptPubKey, err := r.readBytes(int(scriptLen))
		if err != nil {
			return nil, err
		}
		tx.Outputs[i] = TxOut{Value: value, ScriptPubKey: scriptPubKey}
	}

	lockTime, err := r.readU32LE()
	if err != nil {
		return nil, err
	}
	tx.LockTime = lockTime

	return tx, nil
}

// reader walks a byte slice front-to-back, erroring rather than panicking
// on truncated input — a raw transaction fetched from an untrusted
// external-chain node is not a trusted input.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, swaperr.InvalidInput("btctx: truncated transaction")
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *reader) readU32LE() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) readU64LE() (uint64, error) {
	b, err := r.readBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) readVarInt() (uint64, error) {
	prefix, err := r.readBytes(1)
	if err != nil {
		return 0, err
	}
	switch prefix[0] {
	case 0xfd:
		b, err := r.readBytes(2)
		if err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint16(b)), nil
	case 0xfe:
		b, err := r.readBytes(4)
		if err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint32(b)), nil
	case 0xff:
		b, err := r.readBytes(8)
		if err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(b), nil
	default:
		return uint64(prefix[0]), nil
	}
}

// SignatureHashLegacy computes the pre-segwit SIGHASH_ALL digest for
// spending input inputIndex, whose previous output carries prevScript.
// Per the classic algorithm: every input's ScriptSig is blanked except
// inputIndex's, which is temporarily replaced by prevScript; the result is
// serialised with a trailing little-endian hashType and double-SHA256'd.
func (tx *Tx) SignatureHashLegacy(inputIndex int, prevScript []byte, hashType uint32) ([32]byte, error) {
	if inputIndex < 0 || inputIndex >= len(tx.Inputs) {
		return [32]byte{}, swaperr.InvalidInput("btctx: input index out of range")
	}

	copyTx := &Tx{
		Version:  tx.Version,
		Inputs:   make([]TxIn, len(tx.Inputs)),
		Outputs:  tx.Outputs,
		LockTime: tx.LockTime,
	}
	for i, in := range tx.Inputs {
		copyTx.Inputs[i] = TxIn{
			PrevTxID:  in.PrevTxID,
			PrevIndex: in.PrevIndex,
			Sequence:  in.Sequence,
		}
		if i == inputIndex {
			copyTx.Inputs[i].ScriptSig = prevScript
		}
	}

	buf := copyTx.Serialize()
	buf = appendU32LE(buf, hashType)
	return atcodec.Hash256(buf), nil
}

func appendU32LE(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendU64LE(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}

// appendVarInt encodes v as a Bitcoin CompactSize integer.
func appendVarInt(b []byte, v uint64) []byte {
	switch {
	case v < 0xfd:
		return append(b, byte(v))
	case v <= 0xffff:
		b = append(b, 0xfd)
		return appendU16LE(b, uint16(v))
	case v <= 0xffffffff:
		b = append(b, 0xfe)
		return appendU32LE(b, uint32(v))
	default:
		b = append(b, 0xff)
		return appendU64LE(b, v)
	}
}

func appendU16LE(b []byte, v uint16) []byte {
	return append(b, byte(v), byte(v>>8))
}
