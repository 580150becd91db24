package atvm

import "encoding/binary"

// Minimal hand-assembler for test bytecode. Production bytecode arrives
// pre-assembled (spec.md §1 non-goals); tests build it by hand the same
// way a CIYAM AT toolchain would.
type asm struct {
	buf []byte
}

func newAsm() *asm { return &asm{} }

func (a *asm) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	a.buf = append(a.buf, b[:]...)
}

func (a *asm) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	a.buf = append(a.buf, b[:]...)
}

func (a *asm) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	a.buf = append(a.buf, b[:]...)
}

func (a *asm) setVal(addr uint32, imm uint64) *asm {
	a.buf = append(a.buf, byte(OpSetVal))
	a.u32(addr)
	a.u64(imm)
	return a
}

func (a *asm) setDat(dst, src uint32) *asm {
	a.buf = append(a.buf, byte(OpSetDat))
	a.u32(dst)
	a.u32(src)
	return a
}

func (a *asm) addDat(dst, src uint32) *asm {
	a.buf = append(a.buf, byte(OpAddDat))
	a.u32(dst)
	a.u32(src)
	return a
}

func (a *asm) jmp(target uint32) *asm {
	a.buf = append(a.buf, byte(OpJmpAdr))
	a.u32(target)
	return a
}

func (a *asm) bnz(cond, target uint32) *asm {
	a.buf = append(a.buf, byte(OpBnzDat))
	a.u32(cond)
	a.u32(target)
	return a
}

func (a *asm) fin() *asm {
	a.buf = append(a.buf, byte(OpFinImd))
	return a
}

func (a *asm) stp() *asm {
	a.buf = append(a.buf, byte(OpStpImd))
	return a
}

func (a *asm) extFun(fc FuncCode) *asm {
	a.buf = append(a.buf, byte(OpExtFun))
	a.u16(uint16(fc))
	return a
}

func (a *asm) extFunDat(fc FuncCode, arg uint32) *asm {
	a.buf = append(a.buf, byte(OpExtFunDat))
	a.u16(uint16(fc))
	a.u32(arg)
	return a
}

func (a *asm) extFunRet(fc FuncCode, dst uint32) *asm {
	a.buf = append(a.buf, byte(OpExtFunRet))
	a.u16(uint16(fc))
	a.u32(dst)
	return a
}

func (a *asm) extFunRetDat(fc FuncCode, arg, dst uint32) *asm {
	a.buf = append(a.buf, byte(OpExtFunRetDat))
	a.u16(uint16(fc))
	a.u32(arg)
	a.u32(dst)
	return a
}

func (a *asm) bytes() []byte { return a.buf }
