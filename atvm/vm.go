package atvm

import "github.com/atswap-dev/node/atcodec"

// VM binds one MachineState to a PlatformAPI and a function dispatch
// table for the duration of a round. It has no internal concurrency and
// no suspension point other than a sleep request, per spec.md §5.
type VM struct {
	state *MachineState
	api   PlatformAPI
	funcs FuncTable
}

// NewVM constructs a VM for one round. funcs is almost always
// DefaultFuncTable(); tests pass a different table to exercise
// ErrUnknownFunction.
func NewVM(state *MachineState, api PlatformAPI, funcs FuncTable) *VM {
	return &VM{state: state, api: api, funcs: funcs}
}

// Run consumes steps until the machine stops, finishes, sleeps, errors, or
// the round's step budget (maxSteps) is exhausted — whichever comes
// first. It returns the fatal error that ended the round, or nil.
func (vm *VM) Run(maxSteps uint32) error {
	m := vm.state
	for {
		if m.Stopped || m.Finished || m.Sleeping || m.Errored {
			return nil
		}
		if int(m.PC) >= len(m.Bytecode) {
			// Bytecode fell through its own end without an explicit
			// STP_IMD/FIN_IMD: treat it as an implicit terminal halt
			// rather than a fatal error.
			m.Stopped = true
			m.Finished = true
			return nil
		}
		cost, err := vm.stepCost()
		if err != nil {
			m.Errored = true
			return err
		}
		if m.StepsUsed+cost > maxSteps {
			m.StepsUsed = maxSteps
			m.Errored = true
			return fatal(ErrStepOverrun, "AT round exceeded its step budget")
		}
		if err := vm.step(); err != nil {
			m.Errored = true
			return err
		}
		m.StepsUsed += cost
	}
}

// stepCost reports the cost of the instruction at the current PC without
// executing it: stepsPerFunctionCall for the extension-function family,
// one step for everything else, per spec.md §4.3's accounting rule.
func (vm *VM) stepCost() (uint32, error) {
	m := vm.state
	if int(m.PC) >= len(m.Bytecode) {
		return 0, fatal(ErrCodeOutOfRange, "program counter past end of bytecode")
	}
	op := Opcode(m.Bytecode[m.PC])
	if isExtensionOpcode(op) {
		return stepsPerFunctionCall, nil
	}
	return 1, nil
}

// step executes exactly one instruction and advances PC (or jumps).
func (vm *VM) step() error {
	m := vm.state
	code := m.Bytecode
	pc := int(m.PC)
	if pc >= len(code) {
		return fatal(ErrCodeOutOfRange, "program counter past end of bytecode")
	}
	op := Opcode(code[pc])

	switch op {
	case OpNop:
		m.PC++

	case OpSetVal:
		addr, imm, err := vm.readAddrImm(pc)
		if err != nil {
			return err
		}
		if err := vm.checkAddr(addr); err != nil {
			return err
		}
		m.Data[addr] = imm
		m.PC += 13

	case OpSetDat, OpAddDat, OpSubDat, OpMulDat, OpDivDat:
		dst, src, err := vm.readTwoAddrs(pc)
		if err != nil {
			return err
		}
		if err := vm.checkAddr(dst); err != nil {
			return err
		}
		if err := vm.checkAddr(src); err != nil {
			return err
		}
		switch op {
		case OpSetDat:
			m.Data[dst] = m.Data[src]
		case OpAddDat:
			m.Data[dst] += m.Data[src]
		case OpSubDat:
			m.Data[dst] -= m.Data[src]
		case OpMulDat:
			m.Data[dst] *= m.Data[src]
		case OpDivDat:
			if m.Data[src] == 0 {
				return fatal(ErrDivideByZero, "AT division by zero")
			}
			m.Data[dst] /= m.Data[src]
		}
		m.PC += 9

	case OpClrDat, OpIncDat, OpDecDat:
		addr, err := vm.readOneAddr(pc)
		if err != nil {
			return err
		}
		if err := vm.checkAddr(addr); err != nil {
			return err
		}
		switch op {
		case OpClrDat:
			m.Data[addr] = 0
		case OpIncDat:
			m.Data[addr]++
		case OpDecDat:
			m.Data[addr]--
		}
		m.PC += 5

	case OpBzrDat, OpBnzDat:
		cond, target, err := vm.readTwoAddrs(pc)
		if err != nil {
			return err
		}
		if err := vm.checkAddr(cond); err != nil {
			return err
		}
		take := m.Data[cond] == 0
		if op == OpBnzDat {
			take = !take
		}
		if take {
			if err := vm.jumpTo(target); err != nil {
				return err
			}
		} else {
			m.PC += 9
		}

	case OpBgtDat, OpBltDat, OpBeqDat, OpBneDat:
		a, b, target, err := vm.readBranchTriple(pc)
		if err != nil {
			return err
		}
		if err := vm.checkAddr(a); err != nil {
			return err
		}
		if err := vm.checkAddr(b); err != nil {
			return err
		}
		var take bool
		switch op {
		case OpBgtDat:
			take = m.Data[a] > m.Data[b]
		case OpBltDat:
			take = m.Data[a] < m.Data[b]
		case OpBeqDat:
			take = m.Data[a] == m.Data[b]
		case OpBneDat:
			take = m.Data[a] != m.Data[b]
		}
		if take {
			if err := vm.jumpTo(target); err != nil {
				return err
			}
		} else {
			m.PC += 13
		}

	case OpJmpAdr:
		target, err := vm.readOneAddr(pc)
		if err != nil {
			return err
		}
		if err := vm.jumpTo(target); err != nil {
			return err
		}

	case OpFinImd:
		m.Finished = true
		m.Stopped = true
		m.PC++

	case OpStpImd:
		// spec.md §3's lifecycle groups STOP with FIN as both terminal:
		// "terminates on STOP/FIN, refunding remaining balance to
		// creator". This implementation honors that literally rather
		// than the real CIYAM AT machine's STP-pauses/FIN-terminates
		// split.
		m.Stopped = true
		m.Finished = true
		m.PC++

	case OpSlpDat:
		addr, err := vm.readOneAddr(pc)
		if err != nil {
			return err
		}
		if err := vm.checkAddr(addr); err != nil {
			return err
		}
		blocks := m.Data[addr]
		if blocks == 0 {
			blocks = 1
		}
		m.Sleeping = true
		m.PC += 5
		m.SleepUntilHeight = uint32(vm.api.CurrentBlockHeight()) + uint32(blocks)

	case OpExtFun, OpExtFunDat, OpExtFunDat2, OpExtFunRet, OpExtFunRetDat, OpExtFunRetDat2:
		return vm.execExtFun(op, pc)

	default:
		return fatal(ErrIllegalOpcode, "unrecognised opcode")
	}
	return nil
}

func (vm *VM) execExtFun(op Opcode, pc int) error {
	m := vm.state
	code := m.Bytecode

	if pc+3 > len(code) {
		return fatal(ErrCodeOutOfRange, "truncated function-code operand")
	}
	fc := FuncCode(uint16(code[pc+1]) | uint16(code[pc+2])<<8)

	var args []uint64
	var dst uint32
	var size int

	readAddr := func(off int) (uint32, error) {
		if pc+off+4 > len(code) {
			return 0, fatal(ErrCodeOutOfRange, "truncated address operand")
		}
		return atcodec.FromLE32(code, pc+off), nil
	}

	switch op {
	case OpExtFun:
		size = 3
	case OpExtFunDat:
		a1, err := readAddr(3)
		if err != nil {
			return err
		}
		if err := vm.checkAddr(a1); err != nil {
			return err
		}
		args = []uint64{m.Data[a1]}
		size = 7
	case OpExtFunDat2:
		a1, err := readAddr(3)
		if err != nil {
			return err
		}
		a2, err := readAddr(7)
		if err != nil {
			return err
		}
		if err := vm.checkAddr(a1); err != nil {
			return err
		}
		if err := vm.checkAddr(a2); err != nil {
			return err
		}
		args = []uint64{m.Data[a1], m.Data[a2]}
		size = 11
	case OpExtFunRet:
		d, err := readAddr(3)
		if err != nil {
			return err
		}
		dst = d
		size = 7
	case OpExtFunRetDat:
		a1, err := readAddr(3)
		if err != nil {
			return err
		}
		d, err := readAddr(7)
		if err != nil {
			return err
		}
		if err := vm.checkAddr(a1); err != nil {
			return err
		}
		args = []uint64{m.Data[a1]}
		dst = d
		size = 11
	case OpExtFunRetDat2:
		a1, err := readAddr(3)
		if err != nil {
			return err
		}
		a2, err := readAddr(7)
		if err != nil {
			return err
		}
		d, err := readAddr(11)
		if err != nil {
			return err
		}
		if err := vm.checkAddr(a1); err != nil {
			return err
		}
		if err := vm.checkAddr(a2); err != nil {
			return err
		}
		args = []uint64{m.Data[a1], m.Data[a2]}
		dst = d
		size = 15
	}

	if op == OpExtFunRet || op == OpExtFunRetDat || op == OpExtFunRetDat2 {
		if err := vm.checkAddr(dst); err != nil {
			return err
		}
	}

	handler, ok := vm.funcs[fc]
	if !ok {
		return fatal(ErrUnknownFunction, "unknown extension function code")
	}
	if handler.argc != len(args) {
		return fatal(ErrUnknownFunction, "function/opcode argument-count mismatch")
	}
	wantsReturn := op == OpExtFunRet || op == OpExtFunRetDat || op == OpExtFunRetDat2
	if handler.hasReturn != wantsReturn {
		return fatal(ErrUnknownFunction, "function/opcode return-shape mismatch")
	}

	result, err := handler.call(vm.api, m, args)
	if err != nil {
		return err
	}
	if wantsReturn {
		m.Data[dst] = result
	}
	m.PC += uint32(size)
	return nil
}

func (vm *VM) checkAddr(addr uint32) error {
	if int(addr) >= len(vm.state.Data) {
		return fatal(ErrDataOutOfRange, "data address out of range")
	}
	return nil
}

func (vm *VM) jumpTo(target uint32) error {
	if int(target) > len(vm.state.Bytecode) {
		return fatal(ErrCodeOutOfRange, "jump target out of range")
	}
	vm.state.PC = target
	return nil
}

func (vm *VM) readOneAddr(pc int) (uint32, error) {
	code := vm.state.Bytecode
	if pc+5 > len(code) {
		return 0, fatal(ErrCodeOutOfRange, "truncated instruction")
	}
	return atcodec.FromLE32(code, pc+1), nil
}

func (vm *VM) readTwoAddrs(pc int) (uint32, uint32, error) {
	code := vm.state.Bytecode
	if pc+9 > len(code) {
		return 0, 0, fatal(ErrCodeOutOfRange, "truncated instruction")
	}
	return atcodec.FromLE32(code, pc+1), atcodec.FromLE32(code, pc+5), nil
}

func (vm *VM) readBranchTriple(pc int) (uint32, uint32, uint32, error) {
	code := vm.state.Bytecode
	if pc+13 > len(code) {
		return 0, 0, 0, fatal(ErrCodeOutOfRange, "truncated instruction")
	}
	return atcodec.FromLE32(code, pc+1), atcodec.FromLE32(code, pc+5), atcodec.FromLE32(code, pc+9), nil
}

func (vm *VM) readAddrImm(pc int) (uint32, uint64, error) {
	code := vm.state.Bytecode
	if pc+13 > len(code) {
		return 0, 0, fatal(ErrCodeOutOfRange, "truncated instruction")
	}
	return atcodec.FromLE32(code, pc+1), atcodec.FromLE64(code, pc+5), nil
}
