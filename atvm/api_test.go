package atvm

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/atswap-dev/node/atcodec"
	"github.com/atswap-dev/node/boltrepo"
	"github.com/atswap-dev/node/chaintypes"
)

func putTx(t *testing.T, db *boltrepo.DB, height, seq uint32, tx chaintypes.Transaction) {
	t.Helper()
	tx.Timestamp = chaintypes.NewTimestamp(height, seq)
	err := db.ApplyBlock(context.Background(), boltrepo.ApplyBlockResult{
		EmittedTxs:        []chaintypes.Transaction{tx},
		EmittedTxStartSeq: seq,
		BlockHeight:       height,
	})
	if err != nil {
		t.Fatalf("putTx: %v", err)
	}
}

func newTestLedgerAPI(t *testing.T, db *boltrepo.DB, blockHeight uint32, at chaintypes.ATData, balance uint64) (*LedgerAPI, *uint32) {
	t.Helper()
	seq := uint32(1000)
	return NewLedgerAPI(context.Background(), db, blockHeight, &seq, at, balance, [64]byte{}, false), &seq
}

func TestVerifyAndFetchAAcceptsMatchingFingerprint(t *testing.T) {
	db, err := boltrepo.Open(filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var sig [64]byte
	sig[0] = 0x42
	tx := chaintypes.Transaction{Type: chaintypes.TxTypePayment, Signature: sig, AmountSet: true, Amount: 77}
	putTx(t, db, 5, 3, tx)

	var at chaintypes.ATData
	api, _ := newTestLedgerAPI(t, db, 10, at, 0)

	m := NewMachineState(nil, 0)
	ts := chaintypes.NewTimestamp(5, 3)
	m.A[0] = uint64(ts)
	fp := atcodec.SHA192(sig[:])
	setFingerprint(&m.A, fp)

	amount, err := api.GetAmountFromTransactionInA(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amount != 77 {
		t.Fatalf("amount = %d, want 77", amount)
	}
}

func TestVerifyAndFetchARejectsFingerprintMismatch(t *testing.T) {
	db, err := boltrepo.Open(filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var sig [64]byte
	sig[0] = 0x01
	tx := chaintypes.Transaction{Type: chaintypes.TxTypePayment, Signature: sig, AmountSet: true, Amount: 5}
	putTx(t, db, 5, 3, tx)

	var at chaintypes.ATData
	api, _ := newTestLedgerAPI(t, db, 10, at, 0)

	m := NewMachineState(nil, 0)
	ts := chaintypes.NewTimestamp(5, 3)
	m.A[0] = uint64(ts)
	m.A[1], m.A[2], m.A[3] = 1, 2, 3 // deliberately wrong fingerprint

	_, err = api.GetAmountFromTransactionInA(m)
	if err == nil {
		t.Fatal("expected signature-mismatch error")
	}
	fatalErr, ok := err.(*ATFatalError)
	if !ok || fatalErr.Code != ErrSignatureMismatch {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}
}

func TestGetTypeFromTransactionInAZeroARegisterMeansNoTransaction(t *testing.T) {
	db, err := boltrepo.Open(filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var at chaintypes.ATData
	api, _ := newTestLedgerAPI(t, db, 10, at, 0)
	m := NewMachineState(nil, 0)

	typ, err := api.GetTypeFromTransactionInA(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typ != sentinelUnknownType {
		t.Fatalf("expected sentinel unknown type for zero A, got %d", typ)
	}
}

func TestPutTransactionAfterTimestampIntoAZeroesAOnExhaustion(t *testing.T) {
	db, err := boltrepo.Open(filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var at chaintypes.ATData
	at.Address[0] = 0xAA
	api, _ := newTestLedgerAPI(t, db, 10, at, 0)

	m := NewMachineState(nil, 0)
	m.A = [4]uint64{1, 2, 3, 4}
	if err := api.PutTransactionAfterTimestampIntoA(m, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.A != ([4]uint64{}) {
		t.Fatalf("expected A to be zeroed on scan exhaustion, got %v", m.A)
	}
}

func TestGenerateRandomUsingTransactionInATwoPhaseProtocol(t *testing.T) {
	db, err := boltrepo.Open(filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var at chaintypes.ATData
	api, _ := newTestLedgerAPI(t, db, 10, at, 0)
	m := NewMachineState(nil, 0)

	result, err := api.GenerateRandomUsingTransactionInA(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 0 {
		t.Fatalf("first-phase call should return 0, got %d", result)
	}
	if !m.Sleeping {
		t.Fatal("first-phase call should flag the machine sleeping")
	}
	if !m.retainRegisters() {
		t.Fatal("first-phase call should set the retain-registers flag")
	}

	resumedAPI, _ := newTestLedgerAPI(t, db, 11, at, 0)
	resumedAPI.resumedFromRandomSleep = true
	result2, err := resumedAPI.GenerateRandomUsingTransactionInA(m)
	if err != nil {
		t.Fatalf("unexpected error on resume: %v", err)
	}
	_ = result2 // deterministic given seed data; just confirm no error and single-shot consumption below

	if resumedAPI.resumedFromRandomSleep {
		t.Fatal("resumedFromRandomSleep should be consumed after one use")
	}
}

func TestOnFinishedEmitsRefundToCreator(t *testing.T) {
	db, err := boltrepo.Open(filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var at chaintypes.ATData
	at.CreatorPublicKey[0] = 0x55
	api, _ := newTestLedgerAPI(t, db, 10, at, 0)

	api.OnFinished(999)
	emitted := api.Emitted()
	if len(emitted) != 1 {
		t.Fatalf("expected exactly one emission, got %d", len(emitted))
	}
	want := addressFromPublicKey(at.CreatorPublicKey)
	if emitted[0].Recipient != want {
		t.Fatalf("refund recipient = %x, want creator address %x", emitted[0].Recipient, want)
	}
	if emitted[0].Amount != 999 || !emitted[0].AmountSet {
		t.Fatalf("unexpected refund amount: %+v", emitted[0])
	}
}
