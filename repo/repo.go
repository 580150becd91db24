// Package repo defines the read/write surface the AT engine needs from the
// node's persistent store. It is an interface only — no SQL schema, no
// connection pool, no HTTP surface; those are collaborators out of scope
// for this module (see SPEC_FULL.md §1).
package repo

import (
	"context"

	"github.com/atswap-dev/node/chaintypes"
)

// Repository is the abstract access point the AT runner and platform API
// use to read the ledger and to read/write AT state. All reads are
// read-only for the duration of a VM round; writes are collected by the
// caller (the AT runner) and applied atomically alongside normal block
// application.
type Repository interface {
	// BlockchainHeight returns the current chain tip height.
	BlockchainHeight(ctx context.Context) (uint32, error)

	// BlockByHeight returns the block summary at height, or ok=false if
	// no such block exists yet.
	BlockByHeight(ctx context.Context, height uint32) (chaintypes.BlockSummary, bool, error)

	// LastBlock returns the current tip's summary. ok is false only for an
	// empty chain.
	LastBlock(ctx context.Context) (chaintypes.BlockSummary, bool, error)

	// TransactionAt returns the transaction at (height, seq), or
	// ok=false if none exists there yet.
	TransactionAt(ctx context.Context, height, seq uint32) (chaintypes.Transaction, bool, error)

	// TransactionBySignature looks up a transaction by its signature,
	// used to re-verify a fingerprint found in AT register lanes.
	TransactionBySignature(ctx context.Context, sig [64]byte) (chaintypes.Transaction, bool, error)

	// FirstTransactionAfter scans forward from `from` (inclusive) for the
	// first transaction whose recipient set contains addr. ok=false means
	// exhaustion (scanned to the chain tip without a match).
	FirstTransactionAfter(ctx context.Context, from chaintypes.Timestamp, addr chaintypes.Address32) (chaintypes.Transaction, chaintypes.Timestamp, bool, error)

	// Account returns the account record for addr. A never-seen address
	// returns a zero-value record with ok=false, not an error.
	Account(ctx context.Context, addr chaintypes.Address32) (chaintypes.AccountRecord, bool, error)

	// ATState returns the persisted AT record for addr.
	ATState(ctx context.Context, addr chaintypes.Address32) (chaintypes.ATData, bool, error)

	// ATCreationHeight returns the block height at which the AT at addr
	// was deployed.
	ATCreationHeight(ctx context.Context, addr chaintypes.Address32) (uint32, bool, error)

	// ATAddresses returns every deployed AT's address in ascending byte
	// order — the canonical per-block execution order the AT runner (C5)
	// requires.
	ATAddresses(ctx context.Context) ([]chaintypes.Address32, error)
}
