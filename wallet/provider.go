package wallet

import (
	"context"

	"github.com/atswap-dev/node/btctx"
	"github.com/atswap-dev/node/foreignchain"
	"github.com/atswap-dev/node/swaperr"
)

// KeyUTXO is one discovered UTXO paired with the leaf key that can spend
// it, so a spend builder never has to re-derive which key owns which
// output.
type KeyUTXO struct {
	Key  *ExtendedKey
	UTXO foreignchain.UTXO
}

// OpenUTXOsForKeys walks kc exactly the way GetUnusedReceiveAddress does —
// same spentKeys/lookahead discipline — but collects every unspent leaf's
// UTXOs instead of stopping at the first never-used address. The walk
// ends when a full lookahead batch produces no newly-active key, since at
// that point the active key-chain prefix has been fully discovered.
func OpenUTXOsForKeys(ctx context.Context, kc *KeyChain, p foreignchain.BlockchainProvider) ([]KeyUTXO, error) {
	params := p.NetworkParams()
	var out []KeyUTXO
	next := uint32(0)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batchEnd := next + uint32(kc.Lookahead())
		activeInBatch := false

		for i := next; i < batchEnd; i++ {
			leaf, err := kc.LeafKey(i)
			if err != nil {
				return nil, err
			}
			addr := P2PKHAddress(leaf.PKH(), params.P2PKHVersionByte)

			utxos, err := p.GetUTXOs(ctx, addr)
			if err != nil {
				return nil, swaperr.ForeignBlockchainError(err)
			}
			if len(utxos) > 0 {
				activeInBatch = true
				for _, u := range utxos {
					resolved, err := resolveUTXO(ctx, p, u)
					if err != nil {
						return nil, err
					}
					out = append(out, KeyUTXO{Key: leaf, UTXO: resolved})
				}
				continue
			}
			if kc.IsSpent(i) {
				continue
			}

			history, err := p.GetAddressHistory(ctx, addr)
			if err != nil {
				return nil, swaperr.ForeignBlockchainError(err)
			}
			if len(history) == 0 {
				// Never used: this leaf contributes nothing, but a gap in
				// a lookahead batch doesn't mean the rest of the batch is
				// unused too — keep scanning the batch, same as
				// GetUnusedReceiveAddress and the Java reference's
				// getOpenTransactionOutputs.
				continue
			}
			kc.MarkSpent(i)
			activeInBatch = true
		}

		next = batchEnd
		if !activeInBatch {
			return out, nil
		}
		kc.widen()
	}
}

// resolveUTXO fills in value/scriptPubKey from the provider's raw
// transaction lookup when the UTXO as reported doesn't already carry a
// script — some providers return a bare (txid, vout, value) tuple and
// expect the caller to fetch and parse the output itself.
func resolveUTXO(ctx context.Context, p foreignchain.BlockchainProvider, u foreignchain.UTXO) (foreignchain.UTXO, error) {
	if len(u.ScriptPubKey) > 0 {
		return u, nil
	}
	raw, err := p.GetRawTransaction(ctx, u.TxID)
	if err != nil {
		return foreignchain.UTXO{}, swaperr.ForeignBlockchainError(err)
	}
	tx, err := btctx.Deserialize(raw)
	if err != nil {
		return foreignchain.UTXO{}, swaperr.ForeignBlockchainError(err)
	}
	if int(u.Vout) >= len(tx.Outputs) {
		return foreignchain.UTXO{}, swaperr.InvalidInput("wallet: vout out of range in fetched transaction")
	}
	out := tx.Outputs[u.Vout]
	u.Value = out.Value
	u.ScriptPubKey = out.ScriptPubKey
	return u, nil
}

// GetWalletBalance sums the value of every UTXO discoverable across kc's
// key-chain.
func GetWalletBalance(ctx context.Context, kc *KeyChain, p foreignchain.BlockchainProvider) (uint64, error) {
	utxos, err := OpenUTXOsForKeys(ctx, kc, p)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, ku := range utxos {
		total += ku.UTXO.Value
	}
	return total, nil
}
