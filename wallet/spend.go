package wallet

import (
	"context"
	"sort"

	ecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/atswap-dev/node/atcodec"
	"github.com/atswap-dev/node/btctx"
	"github.com/atswap-dev/node/foreignchain"
	"github.com/atswap-dev/node/swaperr"
)

// Estimated legacy P2PKH transaction sizes (bytes), used only to size a
// fee when the caller doesn't pin an exact feePerByte — consistent with
// how a real wallet sizes its own change output before signing settles
// the final byte count.
const (
	estBaseOverhead = 10
	estPerInput     = 148
	estPerOutput    = 34
)

// BuildSpend constructs a signed legacy P2PKH transaction spending UTXOs
// discovered across account's key-chain, paying amount to recipientAddr.
// If feePerByte is nil, p's network default is used. Returns
// swaperr.InsufficientFunds (nil tx) if the discovered UTXOs can't cover
// amount plus fee, per spec.md §4.7's "returns null" contract.
func BuildSpend(ctx context.Context, account *ExtendedKey, recipientAddr string, amount uint64, feePerByte *uint64, p foreignchain.BlockchainProvider) (*btctx.Tx, error) {
	params := p.NetworkParams()
	rateVersion, recipientPKH, err := atcodec.Base58CheckDecode(recipientAddr)
	if err != nil {
		return nil, swaperr.InvalidInput("wallet: malformed recipient address: " + err.Error())
	}
	if rateVersion != params.P2PKHVersionByte || len(recipientPKH) != 20 {
		return nil, swaperr.InvalidInput("wallet: recipient address is not a P2PKH address on this network")
	}
	var recipientPKH20 [20]byte
	copy(recipientPKH20[:], recipientPKH)

	rate := params.DefaultFeePerKB / 1000
	if feePerByte != nil {
		rate = *feePerByte
	}

	kc := NewKeyChain(account)
	available, err := OpenUTXOsForKeys(ctx, kc, p)
	if err != nil {
		return nil, err
	}
	// Spend smallest-first so dust accumulates into fewer leftover UTXOs.
	sort.Slice(available, func(i, j int) bool { return available[i].UTXO.Value < available[j].UTXO.Value })

	var chosen []KeyUTXO
	var total uint64
	for _, ku := range available {
		chosen = append(chosen, ku)
		total += ku.UTXO.Value
		fee := estimateFee(len(chosen), rate)
		if total >= amount+fee {
			break
		}
	}
	fee := estimateFee(len(chosen), rate)
	if total < amount+fee {
		return nil, swaperr.InsufficientFunds("wallet: discovered UTXOs do not cover amount plus fee")
	}

	tx := &btctx.Tx{
		Version: 1,
		Outputs: []btctx.TxOut{
			{Value: amount, ScriptPubKey: btctx.P2PKHScript(recipientPKH20)},
		},
		LockTime: 0,
	}
	change := total - amount - fee
	if change > 0 {
		// Change returns to the first chosen key's own address, the
		// simplest policy that needs no extra address-discovery round
		// trip.
		tx.Outputs = append(tx.Outputs, btctx.TxOut{
			Value:        change,
			ScriptPubKey: btctx.P2PKHScript(chosen[0].Key.PKH()),
		})
	}
	for _, ku := range chosen {
		tx.Inputs = append(tx.Inputs, btctx.TxIn{
			PrevTxID:  ku.UTXO.TxID,
			PrevIndex: ku.UTXO.Vout,
			Sequence:  0xffffffff,
		})
	}

	for i, ku := range chosen {
		prevScript := btctx.P2PKHScript(ku.Key.PKH())
		sigHash, err := tx.SignatureHashLegacy(i, prevScript, btctx.SighashAll)
		if err != nil {
			return nil, err
		}
		sig, err := signDER(ku.Key, sigHash)
		if err != nil {
			return nil, err
		}
		sig = append(sig, byte(btctx.SighashAll))
		tx.Inputs[i].ScriptSig = btctx.P2PKHScriptSig(sig, ku.Key.PublicKeyCompressed())
	}

	return tx, nil
}

func estimateFee(numInputs int, ratePerByte uint64) uint64 {
	size := estBaseOverhead + numInputs*estPerInput + 2*estPerOutput
	return uint64(size) * ratePerByte
}

// signDER signs digest with key's private scalar and returns a DER-encoded
// ECDSA signature (without the trailing sighash-type byte).
func signDER(key *ExtendedKey, digest [32]byte) ([]byte, error) {
	priv, _ := privFromExtended(key)
	sig := ecdsa.Sign(priv, digest[:])
	return sig.Serialize(), nil
}
