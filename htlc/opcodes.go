// Package htlc builds and parses the canonical hash-time-locked-contract
// redeem script used by the cross-chain swap orchestrator, and derives its
// P2SH address. The byte layout is part of this module's external
// interface: a single byte of deviation changes the P2SH address and
// breaks interoperability with a counterparty running any other
// implementation of the same contract.
package htlc

// Opcode constants for the small subset of the Bitcoin script language the
// HTLC contract and its witness scripts use. Numeric values match the
// standard Bitcoin script opcode table.
const (
	opFalse   byte = 0x00
	opPushdata1 byte = 0x4c
	opPushdata2 byte = 0x4d
	op1negate byte = 0x4f
	opTrue    byte = 0x51

	opIf    byte = 0x63
	opElse  byte = 0x67
	opEndif byte = 0x68

	opVerify byte = 0x69

	opDrop byte = 0x75
	opDup  byte = 0x76

	opSize byte = 0x82

	opEqual       byte = 0x87
	opEqualVerify byte = 0x88

	opHash160 byte = 0xa9
	opCheckSig byte = 0xac

	opCheckLockTimeVerify byte = 0xb1
)
