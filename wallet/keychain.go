package wallet

// externalChainIndex is the BIP44 "change" component for the external
// receive chain: m/.../account/0/i. This wallet never derives the
// internal (change=1) chain.
const externalChainIndex uint32 = 0

// initialLookahead is the starting window size for unused-address and
// UTXO-collection scans; it widens by lookaheadStep each time a full
// batch completes without reaching its goal.
const initialLookahead = 3
const lookaheadStep = 3

// KeyChain walks the leaf keys "m/.../0/i" of a single BIP32 account key.
// spentKeys records leaf indices known to have on-chain history but no
// current UTXOs, treated as permanently used so repeat scans never
// re-query their history. It is private to one KeyChain instance — never
// shared across wallets, per SPEC_FULL.md §5.
type KeyChain struct {
	account *ExtendedKey

	spentKeys map[uint32]bool
	lookahead int
}

// NewKeyChain builds a walker over account's external receive chain.
func NewKeyChain(account *ExtendedKey) *KeyChain {
	return &KeyChain{
		account:   account,
		spentKeys: make(map[uint32]bool),
		lookahead: initialLookahead,
	}
}

// LeafKey derives the key at external-chain leaf index i.
func (kc *KeyChain) LeafKey(i uint32) (*ExtendedKey, error) {
	return kc.account.DerivePath(externalChainIndex, i)
}

// MarkSpent records leaf index i as permanently used (on-chain history,
// currently no UTXOs).
func (kc *KeyChain) MarkSpent(i uint32) { kc.spentKeys[i] = true }

// IsSpent reports whether leaf index i was previously marked spent.
func (kc *KeyChain) IsSpent(i uint32) bool { return kc.spentKeys[i] }

// SpentCount reports how many leaf indices are currently marked spent —
// exposed for tests asserting a fresh wallet mutates nothing.
func (kc *KeyChain) SpentCount() int { return len(kc.spentKeys) }

// Lookahead returns the current scan window size.
func (kc *KeyChain) Lookahead() int { return kc.lookahead }

// widen grows the lookahead window by lookaheadStep, the wallet's response
// to a batch that finished without reaching its goal (spec.md §4.7).
func (kc *KeyChain) widen() { kc.lookahead += lookaheadStep }
