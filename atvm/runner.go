package atvm

import (
	"context"
	"log/slog"

	"github.com/atswap-dev/node/chaintypes"
	"github.com/atswap-dev/node/repo"
)

// RunnerParams bounds one block's AT execution: the per-round step budget
// and the fee charged per consumed step, plus the sequence number the
// runner's emitted transactions should start from (so they don't collide
// with the block's already-assigned ordinary transaction sequences).
type RunnerParams struct {
	MaxStepsPerRound uint32
	FeePerStep       uint64
	EmittedTxStartSeq uint32
}

// ATRoundOutcome is one AT's contribution to a block: its re-serialized
// state, the transactions it emitted (empty if the round failed), and the
// fee actually debited from its balance.
type ATRoundOutcome struct {
	Address    chaintypes.Address32
	NewState   chaintypes.ATData
	NewBalance uint64
	StepsUsed  uint32
	Emitted    []chaintypes.Transaction
	RoundError error
}

// BlockATResult is RunBlock's complete output for one block: every AT's
// round outcome plus the combined, already block-sequenced, list of
// transactions to splice into the block's transaction stream in emission
// order.
type BlockATResult struct {
	Outcomes   []ATRoundOutcome
	EmittedTxs []chaintypes.Transaction
}

// RunBlock drives every runnable AT through exactly one round, in
// canonical ascending-address order (spec.md §4.5), and returns the
// combined persistence batch the caller applies atomically alongside
// ordinary block application. It is the single entry point C5 exposes.
func RunBlock(ctx context.Context, rp repo.Repository, blockHeight uint32, params RunnerParams, logger *slog.Logger) (*BlockATResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	addrs, err := rp.ATAddresses(ctx)
	if err != nil {
		return nil, repoErr(err)
	}

	result := &BlockATResult{}
	blockSeq := params.EmittedTxStartSeq

	for _, addr := range addrs {
		atData, ok, err := rp.ATState(ctx, addr)
		if err != nil {
			return nil, repoErr(err)
		}
		if !ok || !atData.IsRunnable(blockHeight) {
			continue
		}

		outcome, err := runOneAT(ctx, rp, blockHeight, &blockSeq, atData, params)
		if err != nil {
			return nil, err
		}
		result.Outcomes = append(result.Outcomes, *outcome)
		result.EmittedTxs = append(result.EmittedTxs, outcome.Emitted...)

		logger.Info("at.round",
			"address", EncodeNativeAddress(addr),
			"height", blockHeight,
			"steps", outcome.StepsUsed,
			"emitted", len(outcome.Emitted),
			"frozen", outcome.NewState.Frozen,
			"finished", outcome.NewState.Finished,
			"error", outcome.RoundError,
		)
	}

	return result, nil
}

func runOneAT(ctx context.Context, rp repo.Repository, blockHeight uint32, blockSeq *uint32, atData chaintypes.ATData, params RunnerParams) (*ATRoundOutcome, error) {
	account, _, err := rp.Account(ctx, atData.Address)
	if err != nil {
		return nil, repoErr(err)
	}

	state, err := DeserializeMachineState(atData.StateBlob)
	if err != nil {
		// A corrupt blob is this AT's own problem, not the block's:
		// freeze it so it never runs again rather than rejecting the
		// whole block.
		atData.Frozen = true
		return &ATRoundOutcome{Address: atData.Address, NewState: atData, NewBalance: account.Balance, RoundError: err}, nil
	}
	if err := state.Validate(); err != nil {
		atData.Frozen = true
		return &ATRoundOutcome{Address: atData.Address, NewState: atData, NewBalance: account.Balance, RoundError: err}, nil
	}

	resumedFromRandomSleep := state.Sleeping && state.retainRegisters()
	state.clearRetainRegisters()
	if !resumedFromRandomSleep {
		state.ClearRegisters()
	}
	state.Sleeping = false
	state.Errored = false
	state.StepsUsed = 0

	// Snapshot everything the VM can mutate mid-round so a fatal round can
	// be rolled back to it: spec.md §7 requires ATFatalError to leave AT
	// state unchanged besides the fee debit, but the VM may have executed
	// several successful steps (each free to mutate Data/PC/A/B) before
	// the step that actually faults.
	preRoundData := append([]uint64(nil), state.Data...)
	preRoundPC := state.PC
	preRoundA := state.A
	preRoundB := state.B
	preRoundStopped := state.Stopped
	preRoundFinished := state.Finished
	preRoundSleeping := state.Sleeping
	preRoundErrored := state.Errored
	preRoundSleepUntilHeight := state.SleepUntilHeight
	preRoundRetainRegisters := state.retainRegistersFlag

	api := NewLedgerAPI(ctx, rp, blockHeight, blockSeq, atData, account.Balance, account.LastReference, resumedFromRandomSleep)
	vm := NewVM(state, api, DefaultFuncTable())

	roundErr := vm.Run(params.MaxStepsPerRound)

	fee := params.FeePerStep * uint64(state.StepsUsed)
	newBalance := account.Balance
	var emitted []chaintypes.Transaction

	if roundErr != nil {
		// ATFatalError: discard emissions, roll the machine back to its
		// pre-round snapshot, and still attempt the fee debit described in
		// §4.4. Any other (repository) error aborts the whole block.
		if _, isFatal := roundErr.(*ATFatalError); !isFatal {
			return nil, roundErr
		}
		state.Data = preRoundData
		state.PC = preRoundPC
		state.A = preRoundA
		state.B = preRoundB
		state.Stopped = preRoundStopped
		state.Finished = preRoundFinished
		state.Sleeping = preRoundSleeping
		state.Errored = preRoundErrored
		state.SleepUntilHeight = preRoundSleepUntilHeight
		state.retainRegistersFlag = preRoundRetainRegisters
		if fee <= newBalance {
			newBalance -= fee
		} else {
			fee = newBalance
			newBalance = 0
		}
	} else {
		if fee > newBalance {
			atData.Frozen = true
			state.Frozen = true
		} else {
			newBalance -= fee
			if state.Finished {
				api.OnFinished(newBalance)
				newBalance = 0
			}
			emitted = api.Emitted()
		}
	}

	atData.Frozen = state.Frozen
	atData.Finished = state.Finished
	atData.Sleeping = state.Sleeping
	atData.SleepUntilHeight = state.SleepUntilHeight
	state.PreviousBalance = newBalance
	atData.StateBlob = state.Serialize()

	return &ATRoundOutcome{
		Address:    atData.Address,
		NewState:   atData,
		NewBalance: newBalance,
		StepsUsed:  state.StepsUsed,
		Emitted:    emitted,
		RoundError: roundErr,
	}, nil
}
