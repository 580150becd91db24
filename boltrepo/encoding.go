package boltrepo

import (
	"encoding/binary"
	"fmt"

	"github.com/atswap-dev/node/chaintypes"
)

// Every encode/decode pair here is a fixed-or-length-prefixed binary
// layout private to this store — unlike the AT state blob (atvm.MachineState),
// none of these layouts are consensus-critical, so they are free to change
// between versions of this package without any cross-implementation
// compatibility requirement.

func encodeBlockSummary(s chaintypes.BlockSummary) ([]byte, error) {
	out := make([]byte, 4+64+8+32)
	binary.BigEndian.PutUint32(out[0:4], s.Height)
	copy(out[4:68], s.Signature[:])
	binary.BigEndian.PutUint64(out[68:76], s.Timestamp)
	copy(out[76:108], s.Minter[:])
	return out, nil
}

func decodeBlockSummary(b []byte) (chaintypes.BlockSummary, error) {
	if len(b) != 108 {
		return chaintypes.BlockSummary{}, fmt.Errorf("boltrepo: corrupt block summary")
	}
	var s chaintypes.BlockSummary
	s.Height = binary.BigEndian.Uint32(b[0:4])
	copy(s.Signature[:], b[4:68])
	s.Timestamp = binary.BigEndian.Uint64(b[68:76])
	copy(s.Minter[:], b[76:108])
	return s, nil
}

func encodeAccountRecord(a chaintypes.AccountRecord) ([]byte, error) {
	out := make([]byte, 0, 32+1+32+64+8)
	out = append(out, a.Address[:]...)
	if a.HasPublicKey {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = append(out, a.PublicKey[:]...)
	out = append(out, a.LastReference[:]...)
	var bal [8]byte
	binary.BigEndian.PutUint64(bal[:], a.Balance)
	out = append(out, bal[:]...)
	return out, nil
}

func decodeAccountRecord(b []byte) (chaintypes.AccountRecord, error) {
	const want = 32 + 1 + 32 + 64 + 8
	if len(b) != want {
		return chaintypes.AccountRecord{}, fmt.Errorf("boltrepo: corrupt account record")
	}
	var a chaintypes.AccountRecord
	copy(a.Address[:], b[0:32])
	a.HasPublicKey = b[32] != 0
	copy(a.PublicKey[:], b[33:65])
	copy(a.LastReference[:], b[65:129])
	a.Balance = binary.BigEndian.Uint64(b[129:137])
	return a, nil
}

func encodeATData(a chaintypes.ATData) ([]byte, error) {
	out := make([]byte, 0, 32+32+64+4+4+1+4+4+len(a.StateBlob))
	out = append(out, a.Address[:]...)
	out = append(out, a.CreatorPublicKey[:]...)
	out = append(out, a.CreationRef[:]...)
	out = appendU32(out, a.CreationHeight)
	out = appendU32(out, a.AssetID)
	var flags byte
	if a.Frozen {
		flags |= 1
	}
	if a.Finished {
		flags |= 2
	}
	if a.Sleeping {
		flags |= 4
	}
	out = append(out, flags)
	out = appendU32(out, a.SleepUntilHeight)
	out = appendU32(out, uint32(len(a.StateBlob)))
	out = append(out, a.StateBlob...)
	return out, nil
}

func decodeATData(b []byte) (chaintypes.ATData, error) {
	const fixed = 32 + 32 + 64 + 4 + 4 + 1 + 4 + 4
	if len(b) < fixed {
		return chaintypes.ATData{}, fmt.Errorf("boltrepo: corrupt AT data: too short")
	}
	var a chaintypes.ATData
	off := 0
	copy(a.Address[:], b[off:off+32])
	off += 32
	copy(a.CreatorPublicKey[:], b[off:off+32])
	off += 32
	copy(a.CreationRef[:], b[off:off+64])
	off += 64
	a.CreationHeight = readU32(b, &off)
	a.AssetID = readU32(b, &off)
	flags := b[off]
	off++
	a.Frozen = flags&1 != 0
	a.Finished = flags&2 != 0
	a.Sleeping = flags&4 != 0
	a.SleepUntilHeight = readU32(b, &off)
	blobLen := readU32(b, &off)
	if off+int(blobLen) != len(b) {
		return chaintypes.ATData{}, fmt.Errorf("boltrepo: corrupt AT data: blob length mismatch")
	}
	a.StateBlob = append([]byte(nil), b[off:]...)
	return a, nil
}

func encodeTransaction(t chaintypes.Transaction) ([]byte, error) {
	out := make([]byte, 0, 2+8+32+64+64+4+8+32+1+8+4+len(t.Payload))
	out = appendU16(out, uint16(t.Type))
	out = appendU64(out, uint64(t.Timestamp))
	out = append(out, t.Creator[:]...)
	out = append(out, t.Signature[:]...)
	out = append(out, t.Reference[:]...)
	out = appendU32(out, t.GroupID)
	out = appendU64(out, t.Fee)
	out = append(out, t.Recipient[:]...)
	if t.AmountSet {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = appendU64(out, t.Amount)
	out = appendU32(out, uint32(len(t.Payload)))
	out = append(out, t.Payload...)
	return out, nil
}

func decodeTransaction(b []byte) (chaintypes.Transaction, error) {
	const fixed = 2 + 8 + 32 + 64 + 64 + 4 + 8 + 32 + 1 + 8 + 4
	if len(b) < fixed {
		return chaintypes.Transaction{}, fmt.Errorf("boltrepo: corrupt transaction: too short")
	}
	var t chaintypes.Transaction
	off := 0
	t.Type = chaintypes.TxType(readU16(b, &off))
	t.Timestamp = chaintypes.Timestamp(readU64(b, &off))
	copy(t.Creator[:], b[off:off+32])
	off += 32
	copy(t.Signature[:], b[off:off+64])
	off += 64
	copy(t.Reference[:], b[off:off+64])
	off += 64
	t.GroupID = readU32(b, &off)
	t.Fee = readU64(b, &off)
	copy(t.Recipient[:], b[off:off+32])
	off += 32
	t.AmountSet = b[off] != 0
	off++
	t.Amount = readU64(b, &off)
	payloadLen := readU32(b, &off)
	if off+int(payloadLen) != len(b) {
		return chaintypes.Transaction{}, fmt.Errorf("boltrepo: corrupt transaction: payload length mismatch")
	}
	t.Payload = append([]byte(nil), b[off:]...)
	return t, nil
}

func appendU16(dst []byte, v uint16) []byte {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return append(dst, buf[:]...)
}

func appendU32(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

func appendU64(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

func readU16(b []byte, off *int) uint16 {
	v := binary.BigEndian.Uint16(b[*off : *off+2])
	*off += 2
	return v
}

func readU32(b []byte, off *int) uint32 {
	v := binary.BigEndian.Uint32(b[*off : *off+4])
	*off += 4
	return v
}

func readU64(b []byte, off *int) uint64 {
	v := binary.BigEndian.Uint64(b[*off : *off+8])
	*off += 8
	return v
}
