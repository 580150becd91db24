// Command atinspect dumps a deployed AT's ledger record and decoded
// MachineState from a repository data directory, for debugging AT
// execution without standing up a full node.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/atswap-dev/node/atcodec"
	"github.com/atswap-dev/node/atvm"
	"github.com/atswap-dev/node/boltrepo"
	"github.com/atswap-dev/node/chaintypes"
)

func main() {
	dataDir := flag.String("datadir", "", "path to the node's bolt database file")
	addrFlag := flag.String("address", "", "AT address, either native Base58Check or raw hex")
	listATs := flag.Bool("list", false, "list every deployed AT address and exit")
	dumpData := flag.Bool("dump-data", false, "include the full data-segment word dump")
	flag.Parse()

	if *dataDir == "" {
		_, _ = fmt.Fprintln(os.Stderr, "atinspect: -datadir is required")
		os.Exit(1)
	}

	db, err := boltrepo.Open(*dataDir)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "atinspect: open failed: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()

	if *listATs {
		if err := listATAddresses(ctx, db); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "atinspect: %v\n", err)
			os.Exit(2)
		}
		return
	}

	if *addrFlag == "" {
		_, _ = fmt.Fprintln(os.Stderr, "atinspect: -address is required unless -list is given")
		os.Exit(1)
	}
	addr, err := parseAddress(*addrFlag)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "atinspect: invalid -address: %v\n", err)
		os.Exit(1)
	}

	if err := inspectOne(ctx, db, addr, *dumpData); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "atinspect: %v\n", err)
		os.Exit(2)
	}
}

// parseAddress accepts either the native Base58Check encoding or a bare
// 64-character hex string, so the tool is usable straight off a block
// explorer's raw address column as well as a human-typed one.
func parseAddress(s string) (chaintypes.Address32, error) {
	if addr, ok := atvm.ParseNativeAddress(s); ok {
		return addr, nil
	}
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		return chaintypes.Address32{}, fmt.Errorf("not a valid native address or 32-byte hex string")
	}
	var addr chaintypes.Address32
	copy(addr[:], raw)
	return addr, nil
}

func listATAddresses(ctx context.Context, db *boltrepo.DB) error {
	addrs, err := db.ATAddresses(ctx)
	if err != nil {
		return fmt.Errorf("listing AT addresses: %w", err)
	}
	for _, addr := range addrs {
		_, _ = fmt.Fprintln(os.Stdout, atvm.EncodeNativeAddress(addr))
	}
	return nil
}

func inspectOne(ctx context.Context, db *boltrepo.DB, addr chaintypes.Address32, dumpData bool) error {
	at, ok, err := db.ATState(ctx, addr)
	if err != nil {
		return fmt.Errorf("reading AT state: %w", err)
	}
	if !ok {
		return fmt.Errorf("no AT deployed at address %s", atvm.EncodeNativeAddress(addr))
	}

	_, _ = fmt.Fprintf(os.Stdout, "address:         %s\n", atvm.EncodeNativeAddress(addr))
	_, _ = fmt.Fprintf(os.Stdout, "creator:         %s\n", hex.EncodeToString(at.CreatorPublicKey[:]))
	_, _ = fmt.Fprintf(os.Stdout, "creation_ref:    %s\n", hex.EncodeToString(at.CreationRef[:]))
	_, _ = fmt.Fprintf(os.Stdout, "creation_height: %d\n", at.CreationHeight)
	_, _ = fmt.Fprintf(os.Stdout, "asset_id:        %d\n", at.AssetID)
	_, _ = fmt.Fprintf(os.Stdout, "frozen:          %v\n", at.Frozen)
	_, _ = fmt.Fprintf(os.Stdout, "finished:        %v\n", at.Finished)
	_, _ = fmt.Fprintf(os.Stdout, "sleeping:        %v\n", at.Sleeping)
	if at.Sleeping {
		_, _ = fmt.Fprintf(os.Stdout, "sleep_until:     %d\n", at.SleepUntilHeight)
	}

	m, err := atvm.DeserializeMachineState(at.StateBlob)
	if err != nil {
		return fmt.Errorf("decoding machine state: %w", err)
	}
	_, _ = fmt.Fprintf(os.Stdout, "pc:              %d\n", m.PC)
	_, _ = fmt.Fprintf(os.Stdout, "bytecode_len:    %d\n", len(m.Bytecode))
	_, _ = fmt.Fprintf(os.Stdout, "data_words:      %d\n", len(m.Data))
	_, _ = fmt.Fprintf(os.Stdout, "a_registers:     %016x %016x %016x %016x\n", m.A[0], m.A[1], m.A[2], m.A[3])
	_, _ = fmt.Fprintf(os.Stdout, "b_registers:     %016x %016x %016x %016x\n", m.B[0], m.B[1], m.B[2], m.B[3])
	_, _ = fmt.Fprintf(os.Stdout, "previous_bal:    %d\n", m.PreviousBalance)

	acct, ok, err := db.Account(ctx, addr)
	if err != nil {
		return fmt.Errorf("reading account record: %w", err)
	}
	if ok {
		_, _ = fmt.Fprintf(os.Stdout, "balance:         %d\n", acct.Balance)
	}

	if dumpData {
		_, _ = fmt.Fprintln(os.Stdout, "data_segment:")
		for i, w := range m.Data {
			_, _ = fmt.Fprintf(os.Stdout, "  [%4d] %016x (%s)\n", i, w, hex.EncodeToString(atcodec.ToLE64(w)))
		}
	}

	return nil
}
