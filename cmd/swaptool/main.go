// Command swaptool is the standalone refund/redeem tool for the
// cross-chain atomic-swap protocol: it rebuilds and verifies an HTLC
// contract, enforces the refund-branch safety checks, and broadcasts the
// resulting transaction through a JSON-RPC BlockchainProvider.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/atswap-dev/node/btctx"
	"github.com/atswap-dev/node/foreignchain"
	"github.com/atswap-dev/node/swap"
	"github.com/atswap-dev/node/swaperr"
	"github.com/atswap-dev/node/wallet"
)

// exitCode maps an error into the exit codes spec.md §6 pins for this
// tool: 0 success, 1 usage error, 2 runtime/safety failure.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if swaperr.Is(err, swaperr.KindInvalidInput) {
		return 1
	}
	return 2
}

func main() {
	var (
		rpcURL           string
		p2shVersionByte  uint8
		p2pkhVersionByte uint8
		feePerKB         uint64
		coinType         uint32
	)

	rootCmd := &cobra.Command{
		Use:   "swaptool",
		Short: "Cross-chain atomic-swap refund/redeem/balance tool",
	}
	rootCmd.PersistentFlags().StringVar(&rpcURL, "rpc-url", "", "external chain JSON-RPC endpoint (required)")
	rootCmd.PersistentFlags().Uint8Var(&p2shVersionByte, "p2sh-version", 0xc4, "P2SH address version byte")
	rootCmd.PersistentFlags().Uint8Var(&p2pkhVersionByte, "p2pkh-version", 0x6f, "P2PKH address version byte")
	rootCmd.PersistentFlags().Uint64Var(&feePerKB, "fee-per-kb", 1000, "default fee rate in satoshis per KB")
	rootCmd.PersistentFlags().Uint32Var(&coinType, "coin-type", 1, "BIP44 coin_type for wallet derivation")

	networkParams := func() foreignchain.ForeignNetworkParams {
		return foreignchain.ForeignNetworkParams{
			P2SHVersionByte:  p2shVersionByte,
			P2PKHVersionByte: p2pkhVersionByte,
			DefaultFeePerKB:  feePerKB,
			CoinType:         coinType,
		}
	}
	provider := func() (*foreignchain.HTTPRPCProvider, error) {
		if rpcURL == "" {
			return nil, fmt.Errorf("--rpc-url is required")
		}
		return foreignchain.NewHTTPRPCProvider(rpcURL, networkParams()), nil
	}

	var (
		refundPrivateKeyHex string
		redeemerAddr        string
		secretHashHex       string
		lockTime            int64
		refundFee           uint64
		refundFeeSet        bool
	)
	refundCmd := &cobra.Command{
		Use:   "refund <p2sh-address>",
		Short: "Recover funds from a timed-out HTLC contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := provider()
			if err != nil {
				return usageErr(err)
			}
			privKey, err := hex.DecodeString(refundPrivateKeyHex)
			if err != nil {
				return usageErr(fmt.Errorf("invalid --private-key hex: %w", err))
			}
			secretHashBytes, err := hex.DecodeString(secretHashHex)
			if err != nil || len(secretHashBytes) != 20 {
				return usageErr(fmt.Errorf("--secret-hash must be 20 bytes of hex"))
			}
			var secretHash [20]byte
			copy(secretHash[:], secretHashBytes)

			refundArgs := swap.RefundArgs{
				P2SHAddress:          args[0],
				RefundPrivateKey:     privKey,
				RedeemerP2PKHAddress: redeemerAddr,
				SecretHash:           secretHash,
				LockTime:             lockTime,
			}
			if refundFeeSet {
				refundArgs.Fee = &refundFee
			}

			ctx := context.Background()
			tx, err := swap.ExecuteRefund(ctx, refundArgs, time.Now().Unix(), p)
			if err != nil {
				return err
			}
			return broadcastAndReport(ctx, p, tx)
		},
	}
	refundCmd.Flags().StringVar(&refundPrivateKeyHex, "private-key", "", "refunder's private key, hex (32, or 37/38 bytes before auto-trim)")
	refundCmd.Flags().StringVar(&redeemerAddr, "redeemer-address", "", "redeemer's P2PKH address")
	refundCmd.Flags().StringVar(&secretHashHex, "secret-hash", "", "HASH160 of the swap secret, hex (20 bytes)")
	refundCmd.Flags().Int64Var(&lockTime, "lock-time", 0, "contract lockTime, Unix seconds")
	refundCmd.Flags().Uint64Var(&refundFee, "fee", 0, "explicit fee in satoshis (default: network rate)")
	refundCmd.PreRun = func(cmd *cobra.Command, args []string) {
		refundFeeSet = cmd.Flags().Changed("fee")
	}
	_ = refundCmd.MarkFlagRequired("private-key")
	_ = refundCmd.MarkFlagRequired("redeemer-address")
	_ = refundCmd.MarkFlagRequired("secret-hash")
	_ = refundCmd.MarkFlagRequired("lock-time")

	var (
		redeemPrivateKeyHex string
		refunderAddr        string
		secretHex           string
		redeemFee           uint64
		redeemFeeSet        bool
	)
	redeemCmd := &cobra.Command{
		Use:   "redeem <p2sh-address>",
		Short: "Claim funds from an HTLC contract by revealing its secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := provider()
			if err != nil {
				return usageErr(err)
			}
			privKey, err := hex.DecodeString(redeemPrivateKeyHex)
			if err != nil {
				return usageErr(fmt.Errorf("invalid --private-key hex: %w", err))
			}
			secret, err := hex.DecodeString(secretHex)
			if err != nil {
				return usageErr(fmt.Errorf("invalid --secret hex: %w", err))
			}

			redeemArgs := swap.RedeemArgs{
				P2SHAddress:          args[0],
				RedeemPrivateKey:     privKey,
				RefunderP2PKHAddress: refunderAddr,
				Secret:               secret,
			}
			if redeemFeeSet {
				redeemArgs.Fee = &redeemFee
			}

			ctx := context.Background()
			tx, err := swap.ExecuteRedeem(ctx, redeemArgs, p)
			if err != nil {
				return err
			}
			return broadcastAndReport(ctx, p, tx)
		},
	}
	redeemCmd.Flags().StringVar(&redeemPrivateKeyHex, "private-key", "", "redeemer's private key, hex (32, or 37/38 bytes before auto-trim)")
	redeemCmd.Flags().StringVar(&refunderAddr, "refunder-address", "", "refunder's P2PKH address")
	redeemCmd.Flags().StringVar(&secretHex, "secret", "", "the swap secret preimage, hex")
	redeemCmd.Flags().Uint64Var(&redeemFee, "fee", 0, "explicit fee in satoshis (default: network rate)")
	redeemCmd.PreRun = func(cmd *cobra.Command, args []string) {
		redeemFeeSet = cmd.Flags().Changed("fee")
	}
	_ = redeemCmd.MarkFlagRequired("private-key")
	_ = redeemCmd.MarkFlagRequired("refunder-address")
	_ = redeemCmd.MarkFlagRequired("secret")

	var xprv string
	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "Sum the spendable balance of a wallet account key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := provider()
			if err != nil {
				return usageErr(err)
			}
			w, err := wallet.NewWallet(xprv, p)
			if err != nil {
				return err
			}
			balance, err := w.GetWalletBalance(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%d\n", balance)
			return nil
		},
	}
	balanceCmd.Flags().StringVar(&xprv, "xprv", "", "BIP32 extended private key for the wallet account")
	_ = balanceCmd.MarkFlagRequired("xprv")

	var receiveXprv string
	receiveCmd := &cobra.Command{
		Use:   "receive-address",
		Short: "Print the next unused receive address for a wallet account key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := provider()
			if err != nil {
				return usageErr(err)
			}
			w, err := wallet.NewWallet(receiveXprv, p)
			if err != nil {
				return err
			}
			addr, err := w.GetUnusedReceiveAddress(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, addr)
			return nil
		},
	}
	receiveCmd.Flags().StringVar(&receiveXprv, "xprv", "", "BIP32 extended private key for the wallet account")
	_ = receiveCmd.MarkFlagRequired("xprv")

	rootCmd.AddCommand(refundCmd, redeemCmd, balanceCmd, receiveCmd)
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "swaptool: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// usageErr marks err as a usage-level failure, so a malformed flag (not a
// runtime/safety failure against the chain) maps to exit code 1 even
// though it didn't originate inside the swap package.
func usageErr(err error) error {
	return &swaperr.Error{Kind: swaperr.KindInvalidInput, Msg: err.Error()}
}

func broadcastAndReport(ctx context.Context, p *foreignchain.HTTPRPCProvider, tx *btctx.Tx) error {
	raw := tx.Serialize()
	txid, err := p.Broadcast(ctx, raw)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "broadcast: %s\n", hex.EncodeToString(reverseTxID(txid)))
	return nil
}

// reverseTxID renders this module's internal little-endian txid
// representation in the big-endian display order conventional for
// Bitcoin-like block explorers.
func reverseTxID(txid [32]byte) []byte {
	out := make([]byte, 32)
	for i := 0; i < 32; i++ {
		out[i] = txid[31-i]
	}
	return out
}
