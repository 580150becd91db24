// Package atvm implements the AT execution engine: the gas-metered virtual
// machine (MachineState, opcode dispatch), the platform API callbacks the
// VM invokes into the ledger, and the per-block runner that drives every
// deployed AT to completion.
package atvm

import (
	"encoding/binary"
	"fmt"
)

// Flag bits packed into MachineState's single flags byte, in the exact
// order the wire layout (§6) requires.
const (
	flagStopped  byte = 1 << 0
	flagFinished byte = 1 << 1
	flagFrozen   byte = 1 << 2
	flagSleeping byte = 1 << 3
	flagError    byte = 1 << 4

	// flagRetainRegisters marks a sleep that expects A/B to survive the
	// sleep boundary (the generateRandomUsingTransactionInA two-phase
	// protocol is the only caller). It lives in the same flags byte as
	// the other status bits, so no new field is added to the pinned wire
	// layout in §6.
	flagRetainRegisters byte = 1 << 5
)

// MachineState is the AT's reconstructible VM snapshot: bytecode (immutable
// after deployment), a mutable data segment of 8-byte words, the A/B
// scratch registers each split into four little-endian uint64 lanes,
// program counter, status flags, a per-round step counter, the height at
// which a sleeping AT may resume, and the balance snapshot used to detect
// funds received between rounds.
type MachineState struct {
	Bytecode []byte
	Data     []uint64

	PC uint32

	Stopped  bool
	Finished bool
	Frozen   bool
	Sleeping bool
	Errored  bool

	retainRegistersFlag bool

	StepsUsed uint32

	A [4]uint64
	B [4]uint64

	SleepUntilHeight uint32
	PreviousBalance  uint64
}

// NewMachineState builds a freshly deployed AT's state: zeroed data
// segment of dataWords words, PC at zero, no flags set.
func NewMachineState(bytecode []byte, dataWords int) *MachineState {
	return &MachineState{
		Bytecode: append([]byte(nil), bytecode...),
		Data:     make([]uint64, dataWords),
	}
}

// Validate checks internal consistency before a round starts: PC must sit
// within the bytecode segment (or exactly at its end, meaning "halted at
// the boundary"), and flag combinations must be sane. A violation is an
// ATFatalError, never a panic, per SPEC_FULL.md §4.3.
func (m *MachineState) Validate() error {
	if int(m.PC) > len(m.Bytecode) {
		return fatal(ErrCorruptState, "program counter beyond bytecode segment")
	}
	if m.Finished && m.Sleeping {
		return fatal(ErrCorruptState, "AT cannot be both finished and sleeping")
	}
	return nil
}

// flags packs the boolean flags into the single wire byte, MSB-unused.
func (m *MachineState) flags() byte {
	var f byte
	if m.Stopped {
		f |= flagStopped
	}
	if m.Finished {
		f |= flagFinished
	}
	if m.Frozen {
		f |= flagFrozen
	}
	if m.Sleeping {
		f |= flagSleeping
	}
	if m.Errored {
		f |= flagError
	}
	if m.retainRegistersFlag {
		f |= flagRetainRegisters
	}
	return f
}

func (m *MachineState) setFlags(f byte) {
	m.Stopped = f&flagStopped != 0
	m.Finished = f&flagFinished != 0
	m.Frozen = f&flagFrozen != 0
	m.Sleeping = f&flagSleeping != 0
	m.Errored = f&flagError != 0
	m.retainRegistersFlag = f&flagRetainRegisters != 0
}

// retainRegisters reports whether this machine's A/B registers must
// survive the current sleep boundary (see flagRetainRegisters).
func (m *MachineState) retainRegisters() bool { return m.retainRegistersFlag }

func (m *MachineState) setRetainRegisters() { m.retainRegistersFlag = true }

func (m *MachineState) clearRetainRegisters() { m.retainRegistersFlag = false }

// Serialize produces the consensus-critical byte layout pinned in
// SPEC_FULL.md §6: bytecode length+bytes, data length (word count)+8-byte
// LE words, A[4]+B[4] as 8-byte LE words, pc (u32 LE), flags byte,
// stepsUsed (u32 LE), sleepUntilHeight (u32 LE), previousBalance (u64 LE).
func (m *MachineState) Serialize() []byte {
	size := 4 + len(m.Bytecode) + 4 + 8*len(m.Data) + 8*8 + 4 + 1 + 4 + 4 + 8
	out := make([]byte, 0, size)

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(m.Bytecode)))
	out = append(out, u32[:]...)
	out = append(out, m.Bytecode...)

	binary.LittleEndian.PutUint32(u32[:], uint32(len(m.Data)))
	out = append(out, u32[:]...)
	for _, w := range m.Data {
		var u64 [8]byte
		binary.LittleEndian.PutUint64(u64[:], w)
		out = append(out, u64[:]...)
	}

	for _, lane := range m.A {
		var u64 [8]byte
		binary.LittleEndian.PutUint64(u64[:], lane)
		out = append(out, u64[:]...)
	}
	for _, lane := range m.B {
		var u64 [8]byte
		binary.LittleEndian.PutUint64(u64[:], lane)
		out = append(out, u64[:]...)
	}

	binary.LittleEndian.PutUint32(u32[:], m.PC)
	out = append(out, u32[:]...)
	out = append(out, m.flags())
	binary.LittleEndian.PutUint32(u32[:], m.StepsUsed)
	out = append(out, u32[:]...)
	binary.LittleEndian.PutUint32(u32[:], m.SleepUntilHeight)
	out = append(out, u32[:]...)

	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], m.PreviousBalance)
	out = append(out, u64[:]...)

	return out
}

// DeserializeMachineState is the exact inverse of (*MachineState).Serialize.
func DeserializeMachineState(b []byte) (*MachineState, error) {
	r := byteReader{b: b}

	codeLen, err := r.u32()
	if err != nil {
		return nil, wireErr(err)
	}
	code, err := r.exact(int(codeLen))
	if err != nil {
		return nil, wireErr(err)
	}

	dataLen, err := r.u32()
	if err != nil {
		return nil, wireErr(err)
	}
	data := make([]uint64, dataLen)
	for i := range data {
		v, err := r.u64()
		if err != nil {
			return nil, wireErr(err)
		}
		data[i] = v
	}

	m := &MachineState{
		Bytecode: append([]byte(nil), code...),
		Data:     data,
	}
	for i := range m.A {
		v, err := r.u64()
		if err != nil {
			return nil, wireErr(err)
		}
		m.A[i] = v
	}
	for i := range m.B {
		v, err := r.u64()
		if err != nil {
			return nil, wireErr(err)
		}
		m.B[i] = v
	}

	pc, err := r.u32()
	if err != nil {
		return nil, wireErr(err)
	}
	m.PC = pc

	flagByte, err := r.u8()
	if err != nil {
		return nil, wireErr(err)
	}
	m.setFlags(flagByte)

	steps, err := r.u32()
	if err != nil {
		return nil, wireErr(err)
	}
	m.StepsUsed = steps

	sleepUntil, err := r.u32()
	if err != nil {
		return nil, wireErr(err)
	}
	m.SleepUntilHeight = sleepUntil

	prevBalance, err := r.u64()
	if err != nil {
		return nil, wireErr(err)
	}
	m.PreviousBalance = prevBalance

	if !r.atEnd() {
		return nil, fatal(ErrCorruptState, "trailing bytes after machine state")
	}
	return m, nil
}

func wireErr(err error) error {
	return fatal(ErrCorruptState, fmt.Sprintf("truncated machine state: %v", err))
}

// byteReader is a minimal forward-only little-endian reader, mirroring
// atcodec's cursor but kept private to atvm since the AT state blob's
// layout is this package's own consensus-critical concern.
type byteReader struct {
	b   []byte
	pos int
}

func (r *byteReader) remaining() int {
	if r.pos >= len(r.b) {
		return 0
	}
	return len(r.b) - r.pos
}

func (r *byteReader) atEnd() bool { return r.remaining() == 0 }

func (r *byteReader) exact(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("need %d bytes, have %d", n, r.remaining())
	}
	start := r.pos
	r.pos += n
	return r.b[start:r.pos], nil
}

func (r *byteReader) u8() (byte, error) {
	b, err := r.exact(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *byteReader) u32() (uint32, error) {
	b, err := r.exact(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *byteReader) u64() (uint64, error) {
	b, err := r.exact(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ClearRegisters zeroes the A/B scratch registers. Per spec.md §3, scratch
// registers do not survive a round and are cleared on each entry unless
// the machine is resuming from a sleep that expects post-sleep data (the
// random-generation two-phase protocol being the one case that relies on
// A surviving a sleep boundary — see PlatformAPI.GenerateRandomUsingTransactionInA).
func (m *MachineState) ClearRegisters() {
	m.A = [4]uint64{}
	m.B = [4]uint64{}
}
