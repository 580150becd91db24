package wallet

import (
	"context"

	"github.com/atswap-dev/node/btctx"
	"github.com/atswap-dev/node/foreignchain"
)

// Wallet ties one BIP32 account key to a BlockchainProvider, giving the
// three operations spec.md §4.7 names as the wallet's public surface:
// unused-address discovery, balance, and spend construction. Each call
// gets its own fresh KeyChain so the spentKeys set and lookahead window
// never leak between unrelated calls against the same account — callers
// that want the optimisation of a warm cache should keep their own
// *KeyChain and call the package-level functions directly instead.
type Wallet struct {
	Account  *ExtendedKey
	Provider foreignchain.BlockchainProvider
}

// NewWallet parses xprv and binds it to p.
func NewWallet(xprv string, p foreignchain.BlockchainProvider) (*Wallet, error) {
	account, err := ParseExtendedPrivateKey(xprv)
	if err != nil {
		return nil, err
	}
	return &Wallet{Account: account, Provider: p}, nil
}

// GetUnusedReceiveAddress returns the first never-used address on w's
// external receive chain.
func (w *Wallet) GetUnusedReceiveAddress(ctx context.Context) (string, error) {
	return GetUnusedReceiveAddress(ctx, NewKeyChain(w.Account), w.Provider)
}

// GetWalletBalance sums every UTXO discoverable across w's key-chain.
func (w *Wallet) GetWalletBalance(ctx context.Context) (uint64, error) {
	return GetWalletBalance(ctx, NewKeyChain(w.Account), w.Provider)
}

// BuildSpend constructs a signed spend of amount to recipientAddr, per
// BuildSpend's package-level contract.
func (w *Wallet) BuildSpend(ctx context.Context, recipientAddr string, amount uint64, feePerByte *uint64) (*btctx.Tx, error) {
	return BuildSpend(ctx, w.Account, recipientAddr, amount, feePerByte, w.Provider)
}
