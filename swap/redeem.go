package swap

import (
	"context"

	ecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/atswap-dev/node/atcodec"
	"github.com/atswap-dev/node/btctx"
	"github.com/atswap-dev/node/foreignchain"
	"github.com/atswap-dev/node/htlc"
	"github.com/atswap-dev/node/swaperr"
)

// redeemSequence is the nSequence the redeem-branch input uses: no
// CHECKLOCKTIMEVERIFY applies on this branch, so the input is final.
const redeemSequence = 0xFFFFFFFF

// RedeemArgs is the parsed, validated form of the standalone redeem
// tool's command-line arguments — symmetric to RefundArgs, per spec.md
// §4.8's "Redeem flow is symmetric".
type RedeemArgs struct {
	P2SHAddress          string
	RedeemPrivateKey     []byte // 32 bytes, or 37/38 before auto-trim
	RefunderP2PKHAddress string
	Secret               []byte
	Fee                  *uint64 // satoshis; nil means network default
}

// ExecuteRedeem runs the responder's redeem flow: rebuild and verify the
// HTLC contract, confirm the supplied secret actually hashes to the
// contract's secret hash, then build and sign a single-input transaction
// spending the contract's one confirmed UTXO to the redeemer using the
// secret-revealing branch. Unlike ExecuteRefund, there is no lockTime or
// median-time-past constraint on this branch.
func ExecuteRedeem(ctx context.Context, args RedeemArgs, p foreignchain.BlockchainProvider) (*btctx.Tx, error) {
	fb := foreignchain.NewForeignBlockchain(p)
	params := fb.NetworkParams()

	if !fb.IsValidAddress(args.P2SHAddress) {
		return nil, swaperr.InvalidInput("swap: malformed P2SH contract address")
	}
	if !fb.IsValidAddress(args.RefunderP2PKHAddress) {
		return nil, swaperr.InvalidInput("swap: malformed refunder P2PKH address")
	}

	redeemKey, err := TrimPrivateKey(args.RedeemPrivateKey)
	if err != nil {
		return nil, err
	}
	redeemerPKH := pkhFromPrivateKey(redeemKey)
	_, redeemerPub := btcecPrivKey(redeemKey)

	refunderPKH, err := pkhFromP2PKHAddress(args.RefunderP2PKHAddress, params.P2PKHVersionByte)
	if err != nil {
		return nil, err
	}

	if len(args.Secret) == 0 {
		return nil, swaperr.InvalidInput("swap: secret must not be empty")
	}
	secretHash := atcodec.Hash160(args.Secret)

	htlcParams := htlc.Params{
		SecretLen:   len(args.Secret),
		SecretHash:  secretHash,
		RedeemerPKH: redeemerPKH,
		LockTime:    0,
		RefunderPKH: refunderPKH,
	}
	script := htlc.BuildScript(htlcParams)
	derivedAddr := htlc.P2SHAddress(script, params.P2SHVersionByte)
	if derivedAddr != args.P2SHAddress {
		return nil, swaperr.SafetyViolation("swap: derived P2SH address does not match the advertised contract")
	}

	utxo, err := singleConfirmedUTXO(ctx, p, args.P2SHAddress)
	if err != nil {
		return nil, err
	}

	fee := resolveFee(args.Fee, fb)
	if fee >= utxo.Value {
		return nil, swaperr.SafetyViolation("swap: fee exceeds the contract's funded value")
	}

	tx := &btctx.Tx{
		Version: 2,
		Inputs: []btctx.TxIn{
			{PrevTxID: utxo.TxID, PrevIndex: utxo.Vout, Sequence: redeemSequence},
		},
		Outputs: []btctx.TxOut{
			{Value: utxo.Value - fee, ScriptPubKey: btctx.P2PKHScript(redeemerPKH)},
		},
		LockTime: 0,
	}

	sigHash, err := tx.SignatureHashLegacy(0, script, btctx.SighashAll)
	if err != nil {
		return nil, err
	}
	priv, _ := btcecPrivKey(redeemKey)
	sig := ecdsa.Sign(priv, sigHash[:]).Serialize()
	sig = append(sig, byte(btctx.SighashAll))
	tx.Inputs[0].ScriptSig = htlc.RedeemScriptSig(sig, redeemerPub.SerializeCompressed(), args.Secret, script)

	return tx, nil
}
