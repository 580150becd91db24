package boltrepo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/atswap-dev/node/chaintypes"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "kv.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestATStateRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	at := chaintypes.ATData{
		Address:          chaintypes.Address32{1, 2, 3},
		CreatorPublicKey: chaintypes.PublicKey{9, 9},
		CreationHeight:   42,
		AssetID:          0,
		Sleeping:         true,
		SleepUntilHeight: 50,
		StateBlob:        []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}
	if err := db.ApplyBlock(ctx, ApplyBlockResult{UpdatedATStates: []chaintypes.ATData{at}}); err != nil {
		t.Fatalf("ApplyBlock: %v", err)
	}

	got, ok, err := db.ATState(ctx, at.Address)
	if err != nil || !ok {
		t.Fatalf("ATState: ok=%v err=%v", ok, err)
	}
	if got.CreationHeight != 42 || !got.Sleeping || got.SleepUntilHeight != 50 {
		t.Fatalf("round-tripped AT data mismatch: %+v", got)
	}
	if string(got.StateBlob) != string(at.StateBlob) {
		t.Fatalf("state blob mismatch: got %x want %x", got.StateBlob, at.StateBlob)
	}
}

func TestFirstTransactionAfterScansInOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	target := chaintypes.Address32{7}
	other := chaintypes.Address32{8}

	txs := []chaintypes.Transaction{
		{Type: chaintypes.TxTypePayment, Timestamp: chaintypes.NewTimestamp(10, 0), Recipient: other},
		{Type: chaintypes.TxTypeMessage, Timestamp: chaintypes.NewTimestamp(10, 3), Recipient: target, Payload: []byte("hi")},
		{Type: chaintypes.TxTypePayment, Timestamp: chaintypes.NewTimestamp(11, 0), Recipient: target},
	}
	if err := db.ApplyBlock(ctx, ApplyBlockResult{
		BlockHeight:       10,
		EmittedTxStartSeq: 0,
		EmittedTxs:        txs[:2],
	}); err != nil {
		t.Fatalf("ApplyBlock h10: %v", err)
	}
	if err := db.ApplyBlock(ctx, ApplyBlockResult{
		BlockHeight:       11,
		EmittedTxStartSeq: 0,
		EmittedTxs:        txs[2:],
	}); err != nil {
		t.Fatalf("ApplyBlock h11: %v", err)
	}

	found, ts, ok, err := db.FirstTransactionAfter(ctx, chaintypes.NewTimestamp(9, 0), target)
	if err != nil || !ok {
		t.Fatalf("FirstTransactionAfter: ok=%v err=%v", ok, err)
	}
	if ts != chaintypes.NewTimestamp(10, 3) {
		t.Fatalf("expected first match at (10,3), got %d/%d", ts.Height(), ts.Seq())
	}
	if string(found.Payload) != "hi" {
		t.Fatalf("unexpected payload: %q", found.Payload)
	}

	_, _, ok, err = db.FirstTransactionAfter(ctx, chaintypes.NewTimestamp(12, 0), target)
	if err != nil {
		t.Fatalf("FirstTransactionAfter at tip: %v", err)
	}
	if ok {
		t.Fatalf("expected exhaustion (no match) scanning past the tip")
	}
}
