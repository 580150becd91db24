package atvm

import (
	"context"

	"github.com/atswap-dev/node/atcodec"
	"github.com/atswap-dev/node/chaintypes"
	"github.com/atswap-dev/node/repo"
)

// sentinelUnknownType is the all-ones value §4.4 specifies for an unknown
// transaction kind.
const sentinelUnknownType uint64 = 0xFFFFFFFFFFFFFFFF

// minutesPerBlock converts addMinutesToTimestamp's minute argument into a
// block-height delta. This is a chain parameter; one minute per block is
// this implementation's pinned value.
const minutesPerBlock = 1

// PlatformAPI is the full set of deterministic callbacks the VM can invoke,
// per spec.md §4.4. Every method is infallible from the VM's own
// perspective in the sense required by §7: failures come back as
// *ATFatalError values the VM dispatch loop turns into round-ending flags,
// never as a panic or a host-visible exception.
type PlatformAPI interface {
	CurrentBlockHeight() uint64
	ATCreationBlockHeight() uint64

	PutPreviousBlockHashIntoA(m *MachineState) error
	PutTransactionAfterTimestampIntoA(m *MachineState, ts uint64) error

	GetTypeFromTransactionInA(m *MachineState) (uint64, error)
	GetAmountFromTransactionInA(m *MachineState) (uint64, error)
	GetTimestampFromTransactionInA(m *MachineState) (uint64, error)
	GetCreatorAddressFromA(m *MachineState) (uint64, error)
	GetMessageFromTransactionInA(m *MachineState) (uint64, error)
	GenerateRandomUsingTransactionInA(m *MachineState) (uint64, error)

	PutMessageFromTransactionInAIntoB(m *MachineState) error
	PutAddressFromTransactionInAIntoB(m *MachineState) error
	PutCreatorAddressIntoB(m *MachineState) error

	CurrentBalance() uint64
	PayAmountToB(m *MachineState, amount uint64) error
	MessageAToB(m *MachineState) error

	AddMinutesToTimestamp(ts uint64, minutes uint64) uint64
}

// Emission is one AT-synthesised transaction, still unsigned in the
// consensus sense: the AT engine is the signer-of-record (SystemCreator),
// so "signature" here is the deterministic fingerprint described on
// pseudoSignature, not an ECDSA/EdDSA signature over a private key nobody
// holds.
type Emission = chaintypes.Transaction

// SystemCreatorPublicKey is the designated creator key every AT-emitted
// transaction carries, per spec.md §4.4 ("creator = a designated system
// public key").
var SystemCreatorPublicKey chaintypes.PublicKey

// LedgerAPI is the concrete PlatformAPI wired to a repo.Repository for one
// AT's one round within one block. The AT runner (RunBlock) constructs a
// fresh instance per AT per block; nothing here is reused across rounds.
type LedgerAPI struct {
	ctx context.Context
	rp  repo.Repository

	blockHeight uint32
	blockSeq    *uint32 // shared per-block emission sequence counter (§9 pinned scheme)

	at             chaintypes.ATData
	balance        uint64
	accountLastRef [64]byte

	// resumedFromRandomSleep is true exactly when this round resumes a
	// machine that slept for GenerateRandomUsingTransactionInA's
	// first-phase call; the runner computes it from the persisted
	// retain-registers flag before clearing that flag (the flag is a
	// one-round signal, consumed regardless of whether bytecode actually
	// calls the function again).
	resumedFromRandomSleep bool

	lastEmittedSig [64]byte
	haveEmitted    bool

	emitted []Emission
}

// NewLedgerAPI builds the platform API instance for one AT's round.
// blockSeq must be a pointer shared across every AT running in the same
// block, so emission timestamps are strictly increasing block-wide (the
// pinned resolution of spec.md §9's "AT timestamp code not fixed!" note).
// balance is the AT's confirmed native-asset balance as of round start,
// read from the AT's own account record (the AT's balance is carried on
// its address account, per spec.md §3 — not inside ATData itself).
func NewLedgerAPI(ctx context.Context, rp repo.Repository, blockHeight uint32, blockSeq *uint32, at chaintypes.ATData, balance uint64, accountLastRef [64]byte, resumedFromRandomSleep bool) *LedgerAPI {
	return &LedgerAPI{
		ctx:                    ctx,
		rp:                     rp,
		blockHeight:            blockHeight,
		blockSeq:               blockSeq,
		at:                     at,
		balance:                balance,
		accountLastRef:         accountLastRef,
		resumedFromRandomSleep: resumedFromRandomSleep,
	}
}

// Emitted returns every transaction this round produced, in emission
// order.
func (l *LedgerAPI) Emitted() []Emission { return l.emitted }

func (l *LedgerAPI) CurrentBlockHeight() uint64 { return uint64(l.blockHeight) }

func (l *LedgerAPI) ATCreationBlockHeight() uint64 { return uint64(l.at.CreationHeight) }

func (l *LedgerAPI) CurrentBalance() uint64 { return l.balance }

// PutPreviousBlockHashIntoA sets A1 to (height-1) and A2..A4 to the
// SHA-192 of the previous block's signature. Height 0 has no predecessor;
// per SPEC_FULL.md §4.4 that behaves like scan exhaustion — A is zeroed.
func (l *LedgerAPI) PutPreviousBlockHashIntoA(m *MachineState) error {
	if l.blockHeight == 0 {
		m.A = [4]uint64{}
		return nil
	}
	prevHeight := l.blockHeight - 1
	summary, ok, err := l.rp.BlockByHeight(l.ctx, prevHeight)
	if err != nil {
		return repoErr(err)
	}
	if !ok {
		m.A = [4]uint64{}
		return nil
	}
	fp := atcodec.SHA192(summary.Signature[:])
	m.A[0] = uint64(prevHeight)
	setFingerprint(&m.A, fp)
	return nil
}

// PutTransactionAfterTimestampIntoA scans forward from ts.Next() for the
// first transaction addressed to this AT. On exhaustion A is zeroed.
func (l *LedgerAPI) PutTransactionAfterTimestampIntoA(m *MachineState, ts uint64) error {
	from := chaintypes.Timestamp(ts).Next()
	tx, found, ok, err := l.rp.FirstTransactionAfter(l.ctx, from, l.at.Address)
	if err != nil {
		return repoErr(err)
	}
	if !ok {
		m.A = [4]uint64{}
		return nil
	}
	fp := atcodec.SHA192(tx.Signature[:])
	m.A[0] = uint64(found)
	setFingerprint(&m.A, fp)
	return nil
}

// verifyAndFetchA re-verifies that the transaction fetched by A1 still
// fingerprints to A2..A4 before any getter trusts it, per spec.md §8's
// universal invariant. A zero A1 means "no transaction loaded"; callers
// decide what that means for them.
func (l *LedgerAPI) verifyAndFetchA(m *MachineState) (chaintypes.Transaction, bool, error) {
	ts := chaintypes.Timestamp(m.A[0])
	if ts.IsZero() {
		return chaintypes.Transaction{}, false, nil
	}
	tx, ok, err := l.rp.TransactionAt(l.ctx, ts.Height(), ts.Seq())
	if err != nil {
		return chaintypes.Transaction{}, false, repoErr(err)
	}
	if !ok {
		return chaintypes.Transaction{}, false, fatal(ErrSignatureMismatch, "transaction referenced by A no longer exists")
	}
	want := atcodec.SHA192(tx.Signature[:])
	if !fingerprintMatches(m.A, want) {
		return chaintypes.Transaction{}, false, fatal(ErrSignatureMismatch, "A1 transaction does not fingerprint to A2..A4")
	}
	return tx, true, nil
}

func (l *LedgerAPI) GetTypeFromTransactionInA(m *MachineState) (uint64, error) {
	tx, ok, err := l.verifyAndFetchA(m)
	if err != nil {
		return 0, err
	}
	if !ok {
		return sentinelUnknownType, nil
	}
	switch tx.EffectiveType() {
	case chaintypes.TxTypePayment, chaintypes.TxTypeMessage:
		return uint64(tx.EffectiveType()), nil
	default:
		return sentinelUnknownType, nil
	}
}

func (l *LedgerAPI) GetAmountFromTransactionInA(m *MachineState) (uint64, error) {
	tx, ok, err := l.verifyAndFetchA(m)
	if err != nil {
		return 0, err
	}
	if !ok || !tx.AmountSet {
		return 0, nil
	}
	return tx.Amount, nil
}

func (l *LedgerAPI) GetTimestampFromTransactionInA(m *MachineState) (uint64, error) {
	tx, ok, err := l.verifyAndFetchA(m)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return uint64(tx.Timestamp), nil
}

// GetCreatorAddressFromA returns the low 8 bytes of the transaction-in-A's
// creator public key as a quick scalar fingerprint for equality tests in
// bytecode; a caller needing the full 32-byte key uses
// PutAddressFromTransactionInAIntoB instead. This is this implementation's
// pinned resolution of the scalar-vs-register ambiguity.
func (l *LedgerAPI) GetCreatorAddressFromA(m *MachineState) (uint64, error) {
	tx, ok, err := l.verifyAndFetchA(m)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return atcodec.FromLE64(tx.Creator[:], 0), nil
}

// GetMessageFromTransactionInA returns the message payload's length; the
// payload bytes themselves are retrieved via
// PutMessageFromTransactionInAIntoB, mirroring the scalar/register split
// used for GetCreatorAddressFromA.
func (l *LedgerAPI) GetMessageFromTransactionInA(m *MachineState) (uint64, error) {
	tx, ok, err := l.verifyAndFetchA(m)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return uint64(len(tx.Payload)), nil
}

// GenerateRandomUsingTransactionInA is the two-phase protocol of spec.md
// §4.4: the first call flags the machine sleeping (with registers
// retained across the sleep boundary) and returns zero; the resumed call
// re-verifies A and returns the first 8 bytes of
// SHA256(txSignature || latestBlockSignature).
func (l *LedgerAPI) GenerateRandomUsingTransactionInA(m *MachineState) (uint64, error) {
	if l.resumedFromRandomSleep {
		l.resumedFromRandomSleep = false
		tx, ok, err := l.verifyAndFetchA(m)
		if err != nil {
			return 0, err
		}
		var latestSig [64]byte
		if l.blockHeight > 0 {
			summary, sok, err := l.rp.BlockByHeight(l.ctx, l.blockHeight-1)
			if err != nil {
				return 0, repoErr(err)
			}
			if sok {
				latestSig = summary.Signature
			}
		}
		var sig [64]byte
		if ok {
			sig = tx.Signature
		}
		seed := make([]byte, 0, 128)
		seed = append(seed, sig[:]...)
		seed = append(seed, latestSig[:]...)
		digest := atcodec.SHA256(seed)
		return atcodec.FromLE64(digest[:], 0), nil
	}

	m.Sleeping = true
	m.setRetainRegisters()
	m.SleepUntilHeight = l.blockHeight + 1
	return 0, nil
}

func (l *LedgerAPI) PutMessageFromTransactionInAIntoB(m *MachineState) error {
	m.B = [4]uint64{}
	tx, ok, err := l.verifyAndFetchA(m)
	if err != nil {
		return err
	}
	if !ok || len(tx.Payload) > 32 {
		return nil
	}
	var raw [32]byte
	copy(raw[:], tx.Payload)
	m.B = bytesToRegister(raw)
	return nil
}

func (l *LedgerAPI) PutAddressFromTransactionInAIntoB(m *MachineState) error {
	tx, ok, err := l.verifyAndFetchA(m)
	if err != nil {
		return err
	}
	if !ok {
		m.B = [4]uint64{}
		return nil
	}
	m.B = bytesToRegister([32]byte(tx.Creator))
	return nil
}

func (l *LedgerAPI) PutCreatorAddressIntoB(m *MachineState) error {
	m.B = bytesToRegister([32]byte(l.at.CreatorPublicKey))
	return nil
}

// nextTimestamp allocates the next strictly-increasing (height, seq) pair
// from the per-block shared counter. Sequence numbering is block-wide
// (every AT's emissions share one counter) so ordering is total across
// the whole block, not just within one AT — the pinned fix for spec.md
// §9's "AT timestamp code not fixed!" note.
func (l *LedgerAPI) nextTimestamp() chaintypes.Timestamp {
	seq := *l.blockSeq
	*l.blockSeq++
	return chaintypes.NewTimestamp(l.blockHeight, seq)
}

func (l *LedgerAPI) reference() [64]byte {
	if l.haveEmitted {
		return l.lastEmittedSig
	}
	return l.accountLastRef
}

func (l *LedgerAPI) emit(tx chaintypes.Transaction) {
	tx.Timestamp = l.nextTimestamp()
	tx.Reference = l.reference()
	tx.Creator = SystemCreatorPublicKey
	tx.GroupID = chaintypes.NoGroup
	tx.Fee = 0
	tx.Signature = pseudoSignature(tx)
	l.lastEmittedSig = tx.Signature
	l.haveEmitted = true
	l.emitted = append(l.emitted, tx)
}

// PayAmountToB emits a PAYMENT-shaped AT transaction for amount to the
// account B decodes to (spec.md §4.4's account-from-B rule).
func (l *LedgerAPI) PayAmountToB(m *MachineState, amount uint64) error {
	recipient := DecodeAccountFromB(m.B)
	l.emit(chaintypes.Transaction{
		Type:      chaintypes.TxTypeAT,
		Recipient: recipient,
		AmountSet: true,
		Amount:    amount,
	})
	return nil
}

// MessageAToB emits a MESSAGE-shaped AT transaction to the account B
// decodes to, carrying A's raw 32 bytes as the payload.
func (l *LedgerAPI) MessageAToB(m *MachineState) error {
	recipient := DecodeAccountFromB(m.B)
	payload := bRegisterBytes(m.A)
	l.emit(chaintypes.Transaction{
		Type:      chaintypes.TxTypeAT,
		Recipient: recipient,
		AmountSet: false,
		Payload:   append([]byte(nil), payload[:]...),
	})
	return nil
}

// OnFinished emits the terminal refund transaction to the AT's creator for
// its remaining balance, per spec.md §3's lifecycle rule.
func (l *LedgerAPI) OnFinished(balance uint64) {
	l.emit(chaintypes.Transaction{
		Type:      chaintypes.TxTypeAT,
		Recipient: addressFromPublicKey(l.at.CreatorPublicKey),
		AmountSet: true,
		Amount:    balance,
	})
}

// AddMinutesToTimestamp produces a new timestamp at
// height = ts.height + max(1, minutes/minutesPerBlock), sequence 0.
func (l *LedgerAPI) AddMinutesToTimestamp(ts uint64, minutes uint64) uint64 {
	blocks := minutes / minutesPerBlock
	if blocks < 1 {
		blocks = 1
	}
	height := chaintypes.Timestamp(ts).Height() + uint32(blocks)
	return uint64(chaintypes.NewTimestamp(height, 0))
}

// pseudoSignature is the deterministic fingerprint an AT-emitted
// transaction uses in place of a real signature: the AT engine signs on
// behalf of SystemCreatorPublicKey, for which no node holds a private
// key, so every honest node must derive the identical 64 bytes from the
// transaction's own content to agree on the reference chain.
func pseudoSignature(tx chaintypes.Transaction) [64]byte {
	tx.Signature = [64]byte{}
	buf := make([]byte, 0, 128)
	buf = append(buf, byte(tx.Type), byte(tx.Type>>8))
	buf = append(buf, atcodec.ToLE64(uint64(tx.Timestamp))...)
	buf = append(buf, tx.Creator[:]...)
	buf = append(buf, tx.Reference[:]...)
	buf = append(buf, atcodec.ToLE32(tx.GroupID)...)
	buf = append(buf, atcodec.ToLE64(tx.Fee)...)
	buf = append(buf, tx.Recipient[:]...)
	if tx.AmountSet {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, atcodec.ToLE64(tx.Amount)...)
	buf = append(buf, tx.Payload...)

	first := atcodec.SHA256(buf)
	second := atcodec.SHA256(first[:])
	var sig [64]byte
	copy(sig[0:32], first[:])
	copy(sig[32:64], second[:])
	return sig
}

// setFingerprint packs fp's 24 bytes into a[1..3] as three little-endian
// uint64 lanes.
func setFingerprint(a *[4]uint64, fp [24]byte) {
	a[1] = atcodec.FromLE64(fp[:], 0)
	a[2] = atcodec.FromLE64(fp[:], 8)
	a[3] = atcodec.FromLE64(fp[:], 16)
}

func fingerprintMatches(a [4]uint64, fp [24]byte) bool {
	want := atcodec.FromLE64(fp[:], 0)
	want2 := atcodec.FromLE64(fp[:], 8)
	want3 := atcodec.FromLE64(fp[:], 16)
	return a[1] == want && a[2] == want2 && a[3] == want3
}
