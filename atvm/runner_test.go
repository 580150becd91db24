package atvm

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/atswap-dev/node/boltrepo"
	"github.com/atswap-dev/node/chaintypes"
)

func openTestDB(t *testing.T) *boltrepo.DB {
	t.Helper()
	db, err := boltrepo.Open(filepath.Join(t.TempDir(), "at_test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func deployAT(t *testing.T, db *boltrepo.DB, addr chaintypes.Address32, code []byte, dataWords int, balance uint64) {
	t.Helper()
	state := NewMachineState(code, dataWords)
	at := chaintypes.ATData{
		Address:        addr,
		CreationHeight: 1,
		StateBlob:      state.Serialize(),
	}
	err := db.ApplyBlock(context.Background(), boltrepo.ApplyBlockResult{
		UpdatedATStates: []chaintypes.ATData{at},
		Accounts:        []chaintypes.AccountRecord{{Address: addr, Balance: balance}},
		BlockHeight:     1,
	})
	if err != nil {
		t.Fatalf("deploy AT: %v", err)
	}
}

func TestRunBlockPaymentEmissionScenario(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var atAddr chaintypes.Address32
	atAddr[0] = 0x01

	// B is whatever PutCreatorAddressIntoB last staged; bytecode has no
	// opcode that writes A/B directly (only the extension functions do), so
	// this program stages B via putCreatorAddressIntoB before paying it —
	// the recipient ends up being the AT's own creator, which is enough to
	// exercise the pay-then-finish emission path end to end.
	a := newAsm()
	a.extFun(FnPutCreatorAddressIntoB)
	a.setVal(0, 500)
	a.extFunDat(FnPayAmountToB, 0)
	a.fin()

	deployAT(t, db, atAddr, a.bytes(), 8, 10000)

	result, err := RunBlock(ctx, db, 2, RunnerParams{MaxStepsPerRound: 1000, FeePerStep: 1, EmittedTxStartSeq: 0}, nil)
	if err != nil {
		t.Fatalf("RunBlock: %v", err)
	}
	if len(result.Outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(result.Outcomes))
	}
	outcome := result.Outcomes[0]
	if outcome.RoundError != nil {
		t.Fatalf("unexpected round error: %v", outcome.RoundError)
	}
	if !outcome.NewState.Finished {
		t.Fatal("expected AT to finish")
	}
	if len(outcome.Emitted) != 2 {
		t.Fatalf("expected 2 emissions (payment + finish refund), got %d", len(outcome.Emitted))
	}
	if outcome.Emitted[0].Amount != 500 || !outcome.Emitted[0].AmountSet {
		t.Fatalf("expected first emission to pay 500, got %+v", outcome.Emitted[0])
	}
	if outcome.NewBalance != 0 {
		t.Fatalf("expected zero balance after finish refund, got %d", outcome.NewBalance)
	}
}

func TestRunBlockStepOverrunChargesFullBudget(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var atAddr chaintypes.Address32
	atAddr[0] = 0x03

	a := newAsm()
	a.jmp(0) // infinite loop: one step per iteration

	deployAT(t, db, atAddr, a.bytes(), 1, 10000)

	params := RunnerParams{MaxStepsPerRound: 50, FeePerStep: 2, EmittedTxStartSeq: 0}
	result, err := RunBlock(ctx, db, 2, params, nil)
	if err != nil {
		t.Fatalf("RunBlock: %v", err)
	}
	outcome := result.Outcomes[0]
	if outcome.RoundError == nil {
		t.Fatal("expected a step-overrun round error")
	}
	if outcome.StepsUsed != params.MaxStepsPerRound {
		t.Fatalf("StepsUsed = %d, want %d (full budget charged)", outcome.StepsUsed, params.MaxStepsPerRound)
	}
	wantBalance := uint64(10000) - uint64(params.MaxStepsPerRound)*params.FeePerStep
	if outcome.NewBalance != wantBalance {
		t.Fatalf("NewBalance = %d, want %d", outcome.NewBalance, wantBalance)
	}
	if len(outcome.Emitted) != 0 {
		t.Fatal("expected no emissions on a fatal round")
	}
}

func TestRunBlockStepOverrunLeavesDataUnchanged(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var atAddr chaintypes.Address32
	atAddr[0] = 0x06

	// Data[1] = 1, then loop forever incrementing Data[0] by it — several
	// steps mutate Data before the round finally faults on step overrun.
	a := newAsm().setVal(1, 1)
	loopStart := uint32(len(a.bytes()))
	a.addDat(0, 1)
	a.jmp(loopStart)

	deployAT(t, db, atAddr, a.bytes(), 2, 10000)

	params := RunnerParams{MaxStepsPerRound: 50, FeePerStep: 1, EmittedTxStartSeq: 0}
	result, err := RunBlock(ctx, db, 2, params, nil)
	if err != nil {
		t.Fatalf("RunBlock: %v", err)
	}
	outcome := result.Outcomes[0]
	if outcome.RoundError == nil {
		t.Fatal("expected a step-overrun round error")
	}

	got, err := DeserializeMachineState(outcome.NewState.StateBlob)
	if err != nil {
		t.Fatalf("DeserializeMachineState: %v", err)
	}
	if got.PC != 0 {
		t.Fatalf("PC = %d, want 0 (pre-round value restored)", got.PC)
	}
	for i, w := range got.Data {
		if w != 0 {
			t.Fatalf("Data[%d] = %d, want 0 (pre-round value restored, not the mutated in-round value)", i, w)
		}
	}
}

func TestRunBlockInsufficientBalanceFreezes(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var atAddr chaintypes.Address32
	atAddr[0] = 0x04

	a := newAsm().setVal(0, 1).fin()
	deployAT(t, db, atAddr, a.bytes(), 1, 0)

	params := RunnerParams{MaxStepsPerRound: 100, FeePerStep: 5, EmittedTxStartSeq: 0}
	result, err := RunBlock(ctx, db, 2, params, nil)
	if err != nil {
		t.Fatalf("RunBlock: %v", err)
	}
	outcome := result.Outcomes[0]
	if !outcome.NewState.Frozen {
		t.Fatal("expected AT to be frozen when balance cannot cover fees")
	}
	if len(outcome.Emitted) != 0 {
		t.Fatal("expected no emissions when frozen for insufficient balance")
	}
}

func TestRunBlockSkipsNonRunnableATs(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var atAddr chaintypes.Address32
	atAddr[0] = 0x05
	state := NewMachineState([]byte{byte(OpFinImd)}, 0)
	at := chaintypes.ATData{Address: atAddr, Finished: true, StateBlob: state.Serialize()}
	if err := db.ApplyBlock(ctx, boltrepo.ApplyBlockResult{
		UpdatedATStates: []chaintypes.ATData{at},
		Accounts:        []chaintypes.AccountRecord{{Address: atAddr, Balance: 100}},
		BlockHeight:     1,
	}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	result, err := RunBlock(ctx, db, 2, RunnerParams{MaxStepsPerRound: 10, FeePerStep: 1}, nil)
	if err != nil {
		t.Fatalf("RunBlock: %v", err)
	}
	if len(result.Outcomes) != 0 {
		t.Fatalf("expected finished AT to be skipped, got %d outcomes", len(result.Outcomes))
	}
}

func TestRunBlockCanonicalAddressOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	addrs := []byte{0x09, 0x01, 0x05}
	for _, b := range addrs {
		var addr chaintypes.Address32
		addr[0] = b
		deployAT(t, db, addr, []byte{byte(OpFinImd)}, 0, 100)
	}

	result, err := RunBlock(ctx, db, 2, RunnerParams{MaxStepsPerRound: 10, FeePerStep: 1}, nil)
	if err != nil {
		t.Fatalf("RunBlock: %v", err)
	}
	if len(result.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(result.Outcomes))
	}
	for i := 1; i < len(result.Outcomes); i++ {
		if result.Outcomes[i-1].Address[0] >= result.Outcomes[i].Address[0] {
			t.Fatalf("outcomes not in ascending address order: %v", result.Outcomes)
		}
	}
}
