package chaintypes

// TxType identifies the transaction kinds the AT engine cares about.
// Other on-chain transaction kinds exist but are opaque to this module.
type TxType uint16

const (
	TxTypeUnknown TxType = 0
	TxTypePayment TxType = 1
	TxTypeMessage TxType = 2
	TxTypeAT      TxType = 3
)

// Address32 is a 32-byte account address. ATs, creators and recipients are
// all addressed this way; human-readable Base58 addresses are derived from
// it (see addr package boundary in boltrepo/wallet) but the VM and
// repository work in raw 32-byte form throughout.
type Address32 [32]byte

// PublicKey is a raw Ed25519-style 32-byte public key.
type PublicKey [32]byte

// NoGroup is the group id used for AT-emitted transactions, which never
// belong to a permissioned group.
const NoGroup uint32 = 0

// Transaction is the subset of on-chain transaction fields the AT engine
// reads or emits. PAYMENT carries Amount+Recipient; MESSAGE carries
// Recipient+Payload; AT carries Recipient, AmountSet/Amount and Payload (an AT
// transaction with AmountSet=false behaves like MESSAGE, with AmountSet=true
// like PAYMENT, per the platform API's type-classification rule).
type Transaction struct {
	Type      TxType
	Timestamp Timestamp
	Creator   PublicKey
	Signature [64]byte
	Reference [64]byte
	GroupID   uint32
	Fee       uint64

	Recipient Address32
	AmountSet bool
	Amount    uint64
	Payload   []byte
}

// HasRecipient reports whether addr is among this transaction's
// recipients. The AT scan (putTransactionAfterTimestampIntoA) looks for
// the first transaction whose recipient-set contains the AT's address;
// for the transaction kinds modeled here that set has exactly zero or one
// member.
func (tx *Transaction) HasRecipient(addr Address32) bool {
	switch tx.Type {
	case TxTypePayment, TxTypeMessage, TxTypeAT:
		return tx.Recipient == addr
	default:
		return false
	}
}

// EffectiveType classifies an AT-kind transaction as PAYMENT or MESSAGE per
// the platform API's rule: AT-kind with a non-null amount counts as
// PAYMENT, AT-kind with a null amount counts as MESSAGE. Non-AT kinds
// return themselves unchanged.
func (tx *Transaction) EffectiveType() TxType {
	if tx.Type != TxTypeAT {
		return tx.Type
	}
	if tx.AmountSet {
		return TxTypePayment
	}
	return TxTypeMessage
}

// AccountRecord is the minimal persisted shape the repository needs for
// account lookups: last-reference (for chaining new transactions) and
// confirmed balance.
type AccountRecord struct {
	Address       Address32
	PublicKey     PublicKey
	HasPublicKey  bool
	LastReference [64]byte
	Balance       uint64
}

// BlockSummary is the minimal per-block data the AT platform API needs for
// putPreviousBlockHashIntoA and for the cross-chain orchestrator's
// median-time-past-style windowed lookups on the native chain side.
type BlockSummary struct {
	Height    uint32
	Signature [64]byte
	Timestamp uint64
	Minter    Address32
}
