package atvm

// Opcode is one CIYAM-AT-v2-style instruction. Pre-assembled bytecode
// arrives as a flat stream of these; this module never compiles source
// into bytecode (spec.md §1 non-goals).
type Opcode byte

const (
	OpNop Opcode = 0x00

	OpSetVal Opcode = 0x02 // data[addr] = imm (u64 LE)
	OpSetDat Opcode = 0x03 // data[dst] = data[src]
	OpClrDat Opcode = 0x04 // data[addr] = 0
	OpIncDat Opcode = 0x05 // data[addr]++
	OpDecDat Opcode = 0x06 // data[addr]--
	OpAddDat Opcode = 0x07 // data[dst] += data[src]
	OpSubDat Opcode = 0x08 // data[dst] -= data[src]
	OpMulDat Opcode = 0x09 // data[dst] *= data[src]
	OpDivDat Opcode = 0x0A // data[dst] /= data[src]; src==0 is ATFatalError

	OpBzrDat Opcode = 0x0B // branch to addr if data[cond]==0
	OpBnzDat Opcode = 0x0C // branch to addr if data[cond]!=0
	OpBgtDat Opcode = 0x0D // branch to addr if data[a] > data[b]
	OpBltDat Opcode = 0x0E // branch to addr if data[a] < data[b]
	OpBeqDat Opcode = 0x0F // branch to addr if data[a] == data[b]
	OpBneDat Opcode = 0x10 // branch to addr if data[a] != data[b]

	OpJmpAdr Opcode = 0x20 // unconditional jump to code address
	OpFinImd Opcode = 0x21 // finish: run onFinished refund, halt
	OpStpImd Opcode = 0x22 // stop: halt without refund
	OpSlpDat Opcode = 0x23 // sleep for data[addr] blocks, suspend the round

	// Extension-function family. Per SPEC_FULL.md §4.4's pinned resolution
	// of spec.md §9's open question, exactly these six opcodes (inclusive
	// range OpExtFun..OpExtFunRetDat2) are charged stepsPerFunctionCall;
	// every other opcode costs one step.
	OpExtFun        Opcode = 0x30 // call funcCode, no args, no return
	OpExtFunDat     Opcode = 0x31 // call funcCode(data[a1])
	OpExtFunDat2    Opcode = 0x32 // call funcCode(data[a1], data[a2])
	OpExtFunRet     Opcode = 0x33 // call funcCode() -> data[dst]
	OpExtFunRetDat  Opcode = 0x34 // call funcCode(data[a1]) -> data[dst]
	OpExtFunRetDat2 Opcode = 0x35 // call funcCode(data[a1], data[a2]) -> data[dst]
)

// stepsPerFunctionCall is the fixed cost of every extension-function
// opcode, versus one step for everything else.
const stepsPerFunctionCall = 10

// isExtensionOpcode reports whether op falls in the charged range
// [OpExtFun, OpExtFunRetDat2], per spec.md §9's pinned resolution.
func isExtensionOpcode(op Opcode) bool {
	return op >= OpExtFun && op <= OpExtFunRetDat2
}

// FuncCode is the 16-bit extension-function selector dispatched through
// the platform API. Numeric codes are consensus-stable (spec.md §6).
type FuncCode uint16

const (
	FnCurrentBlockHeight              FuncCode = 0x0001
	FnATCreationBlockHeight           FuncCode = 0x0002
	FnPutPreviousBlockHashIntoA       FuncCode = 0x0003
	FnPutTxAfterTimestampIntoA        FuncCode = 0x0004
	FnGetTypeFromTxInA                FuncCode = 0x0005
	FnGetAmountFromTxInA              FuncCode = 0x0006
	FnGetTimestampFromTxInA           FuncCode = 0x0007
	FnGetCreatorAddressFromA          FuncCode = 0x0008
	FnGetMessageFromTxInA             FuncCode = 0x0009
	FnGenerateRandomUsingTxInA        FuncCode = 0x000A
	FnPutMessageFromTxInAIntoB        FuncCode = 0x000B
	FnPutAddressFromTxInAIntoB        FuncCode = 0x000C
	FnPutCreatorAddressIntoB          FuncCode = 0x000D
	FnCurrentBalance                  FuncCode = 0x000E
	FnPayAmountToB                    FuncCode = 0x000F
	FnMessageAToB                     FuncCode = 0x0010
	FnAddMinutesToTimestamp           FuncCode = 0x0011
)
