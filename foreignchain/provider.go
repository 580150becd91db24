// Package foreignchain defines the client-facing surface this module uses
// to reach a Bitcoin-like external chain: UTXO lookups, address history,
// raw block headers for median-time-past, transaction fetch, and
// broadcast. Callers depend only on the BlockchainProvider interface, which
// is injected wherever a provider is required; this package also contains
// one concrete provider, the JSON-RPC-over-HTTP HTTPRPCProvider.
package foreignchain

import "context"

// UTXO is one unspent transaction output as reported by a BlockchainProvider.
type UTXO struct {
	TxID         [32]byte
	Vout         uint32
	Value        uint64
	Height       uint32
	ScriptPubKey []byte
}

// Confirmed reports whether the UTXO has been included in a block. A
// height of zero means still in the mempool.
func (u UTXO) Confirmed() bool { return u.Height > 0 }

// HistoryEntry is one entry in an address's transaction history, as
// reported by a BlockchainProvider.
type HistoryEntry struct {
	TxID   [32]byte
	Height uint32
}

// ForeignNetworkParams holds the per-network constants a BlockchainProvider
// exposes so the wallet, HTLC, and orchestrator packages never hardcode a
// specific foreign chain's address-version bytes or fee policy.
type ForeignNetworkParams struct {
	P2SHVersionByte  byte
	P2PKHVersionByte byte

	// DefaultFeePerKB is the fallback fee rate, in the foreign chain's
	// smallest unit per kilobyte, used whenever a caller doesn't supply
	// an explicit fee (spec.md §4.7's buildSpend feePerByteOrNull).
	DefaultFeePerKB uint64

	// CoinType is the BIP44 coin_type used when deriving this network's
	// wallet key-chain (m/44'/coinType'/...).
	CoinType uint32
}

// BlockchainProvider is the sole path by which C6/C7/C9 reach the external
// chain. Implementations must be safe for concurrent use across unrelated
// swaps; per-swap calls may be issued serially from any scheduling
// context. Timeouts and retries are internal to the implementation.
type BlockchainProvider interface {
	GetUTXOs(ctx context.Context, address string) ([]UTXO, error)
	GetAddressHistory(ctx context.Context, address string) ([]HistoryEntry, error)
	GetRawBlockHeaders(ctx context.Context, count int) ([][]byte, error)
	GetRawTransaction(ctx context.Context, txid [32]byte) ([]byte, error)
	Broadcast(ctx context.Context, rawTx []byte) (txid [32]byte, err error)
	NetworkParams() ForeignNetworkParams
}
