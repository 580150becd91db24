package swap

import (
	"context"

	"github.com/btcsuite/btcd/btcec/v2"
	ecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/atswap-dev/node/btctx"
	"github.com/atswap-dev/node/foreignchain"
	"github.com/atswap-dev/node/htlc"
	"github.com/atswap-dev/node/swaperr"
)

// DefaultSecretLength is the secret preimage length this module assumes
// when a flow's arguments don't pin one explicitly — the CLI argument
// list in spec.md §6/§4.8 never carries a secret length, only its
// HASH160, so both ends of a swap must agree on this out of band. 32
// bytes is the conventional atomic-swap secret size.
const DefaultSecretLength = 32

// refundSequence is the nSequence value every refund-branch input uses:
// anything less than 0xFFFFFFFF so BIP65's CHECKLOCKTIMEVERIFY is live
// for this input, per spec.md §4.8 step 5.
const refundSequence = 0xFFFFFFFE

// RefundArgs is the parsed, validated form of the standalone refund
// tool's command-line arguments (spec.md §4.8 step 1 / §6).
type RefundArgs struct {
	P2SHAddress          string
	RefundPrivateKey     []byte // 32 bytes, or 37/38 before auto-trim
	RedeemerP2PKHAddress string
	SecretHash           [20]byte
	SecretLen            int // 0 means DefaultSecretLength
	LockTime             int64
	Fee                  *uint64 // satoshis; nil means network default
}

// ExecuteRefund runs the initiator's refund flow: rebuild and verify the
// HTLC contract, enforce the median-time-past and lockTime safety checks,
// then build and sign a single-input transaction spending the contract's
// one confirmed UTXO back to the refunder. now is the caller's current
// time in Unix seconds — passed explicitly rather than read from the
// clock internally so the safety check is exercised deterministically by
// tests (the flow itself is not consensus code, but spec.md ties its
// safety property to median-time-past, which is injected the same way).
func ExecuteRefund(ctx context.Context, args RefundArgs, now int64, p foreignchain.BlockchainProvider) (*btctx.Tx, error) {
	fb := foreignchain.NewForeignBlockchain(p)
	params := fb.NetworkParams()

	if !fb.IsValidAddress(args.P2SHAddress) {
		return nil, swaperr.InvalidInput("swap: malformed P2SH contract address")
	}
	if !fb.IsValidAddress(args.RedeemerP2PKHAddress) {
		return nil, swaperr.InvalidInput("swap: malformed redeemer P2PKH address")
	}

	refundKey, err := TrimPrivateKey(args.RefundPrivateKey)
	if err != nil {
		return nil, err
	}
	refunderPKH := pkhFromPrivateKey(refundKey)

	redeemerPKH, err := pkhFromP2PKHAddress(args.RedeemerP2PKHAddress, params.P2PKHVersionByte)
	if err != nil {
		return nil, err
	}

	secretLen := args.SecretLen
	if secretLen == 0 {
		secretLen = DefaultSecretLength
	}

	htlcParams := htlc.Params{
		SecretLen:   secretLen,
		SecretHash:  args.SecretHash,
		RedeemerPKH: redeemerPKH,
		LockTime:    args.LockTime,
		RefunderPKH: refunderPKH,
	}
	script := htlc.BuildScript(htlcParams)
	derivedAddr := htlc.P2SHAddress(script, params.P2SHVersionByte)
	if derivedAddr != args.P2SHAddress {
		return nil, swaperr.SafetyViolation("swap: derived P2SH address does not match the advertised contract")
	}

	mtp, err := foreignchain.MedianTimePast(ctx, p)
	if err != nil {
		return nil, err
	}
	if now < mtp || now < args.LockTime {
		return nil, swaperr.SafetyViolation("swap: too early to refund — lockTime has not yet passed median-time-past")
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
			{PrevTxID: utxo.TxID, PrevIndex: utxo.Vout, Sequence: refundSequence},
		},
		Outputs: []btctx.TxOut{
			{Value: utxo.Value - fee, ScriptPubKey: btctx.P2PKHScript(refunderPKH)},
		},
		LockTime: uint32(args.LockTime),
	}

	sigHash, err := tx.SignatureHashLegacy(0, script, btctx.SighashAll)
	if err != nil {
		return nil, err
	}
	priv, _ := btcecPrivKey(refundKey)
	sig := ecdsa.Sign(priv, sigHash[:]).Serialize()
	sig = append(sig, byte(btctx.SighashAll))
	tx.Inputs[0].ScriptSig = htlc.RefundScriptSig(sig, script)

	return tx, nil
}

func resolveFee(explicit *uint64, fb *foreignchain.ForeignBlockchain) uint64 {
	if explicit != nil {
		return *explicit
	}
	return fb.GetP2SHFee(estimatedHTLCSpendSize)
}

// singleConfirmedUTXO fetches the UTXO set for addr and requires exactly
// one confirmed entry, per spec.md §4.8 step 4 / §8's "too early"
// boundary case family.
func singleConfirmedUTXO(ctx context.Context, p foreignchain.BlockchainProvider, addr string) (foreignchain.UTXO, error) {
	utxos, err := p.GetUTXOs(ctx, addr)
	if err != nil {
		return foreignchain.UTXO{}, swaperr.ForeignBlockchainError(err)
	}
	var confirmed []foreignchain.UTXO
	for _, u := range utxos {
		if u.Confirmed() {
			confirmed = append(confirmed, u)
		}
	}
	if len(confirmed) == 0 {
		return foreignchain.UTXO{}, swaperr.SafetyViolation("swap: no confirmed UTXO funding this contract")
	}
	if len(confirmed) != 1 {
		return foreignchain.UTXO{}, swaperr.SafetyViolation("swap: expected exactly one confirmed UTXO funding this contract")
	}
	return confirmed[0], nil
}

func btcecPrivKey(k [32]byte) (*btcec.PrivateKey, *btcec.PublicKey) {
	return btcec.PrivKeyFromBytes(k[:])
}
