package wallet

import (
	"context"

	"github.com/atswap-dev/node/foreignchain"
	"github.com/atswap-dev/node/swaperr"
)

// GetUnusedReceiveAddress walks kc's leaf keys in order looking for the
// first address with no on-chain history, per spec.md §4.7:
//
//   - if the leaf's current UTXO set is non-empty, the key is active (not
//     spent) — note it and continue;
//   - if the key has no UTXOs and was previously marked spent, skip it
//     without re-querying history;
//   - otherwise query address history: empty means this is the first
//     never-used address (return it); non-empty means it's spent (mark
//     it and continue).
//
// When a full lookahead batch completes without finding an unused address,
// the window widens and the walk continues from where it left off.
func GetUnusedReceiveAddress(ctx context.Context, kc *KeyChain, p foreignchain.BlockchainProvider) (string, error) {
	params := p.NetworkParams()
	next := uint32(0)

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		batchEnd := next + uint32(kc.Lookahead())
		for i := next; i < batchEnd; i++ {
			leaf, err := kc.LeafKey(i)
			if err != nil {
				return "", err
			}
			addr := P2PKHAddress(leaf.PKH(), params.P2PKHVersionByte)

			utxos, err := p.GetUTXOs(ctx, addr)
			if err != nil {
				return "", swaperr.ForeignBlockchainError(err)
			}
			if len(utxos) > 0 {
				continue
			}
			if kc.IsSpent(i) {
				continue
			}

			history, err := p.GetAddressHistory(ctx, addr)
			if err != nil {
				return "", swaperr.ForeignBlockchainError(err)
			}
			if len(history) == 0 {
				return addr, nil
			}
			kc.MarkSpent(i)
		}

		next = batchEnd
		kc.widen()
	}
}
