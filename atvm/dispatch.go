package atvm

// fnHandler adapts one PlatformAPI method to the generic extension-
// function calling convention: a fixed argument count and whether the
// call produces a scalar result to store in a data register.
type fnHandler struct {
	argc      int
	hasReturn bool
	call      func(api PlatformAPI, m *MachineState, args []uint64) (uint64, error)
}

// FuncTable is the consensus-stable map from 16-bit function code to
// handler, built once and shared by every VM instance. BuildFuncTable
// rejects duplicate entries while building it (a Go map cannot hold a
// duplicate key, so the check is against the entry list before the map
// is built); codes absent from the table are rejected only at call time,
// by the VM's dispatch.
type FuncTable map[FuncCode]fnHandler

func ret0(call func(api PlatformAPI, m *MachineState) (uint64, error)) fnHandler {
	return fnHandler{argc: 0, hasReturn: true, call: func(api PlatformAPI, m *MachineState, _ []uint64) (uint64, error) {
		return call(api, m)
	}}
}

func noRet0(call func(api PlatformAPI, m *MachineState) error) fnHandler {
	return fnHandler{argc: 0, hasReturn: false, call: func(api PlatformAPI, m *MachineState, _ []uint64) (uint64, error) {
		return 0, call(api, m)
	}}
}

// BuildFuncTable constructs the default dispatch table, pairing every
// FuncCode declared in opcodes.go with exactly one PlatformAPI method.
// It panics on a duplicate entry (a programming error in this file, never
// a runtime condition) so a malformed table fails at init time rather
// than silently misdispatching consensus-critical calls.
func BuildFuncTable() FuncTable {
	return buildFuncTableFrom(defaultEntries())
}

type funcTableEntry struct {
	code    FuncCode
	handler fnHandler
}

func defaultEntries() []funcTableEntry {
	return []funcTableEntry{
		{FnCurrentBlockHeight, ret0(func(api PlatformAPI, _ *MachineState) (uint64, error) {
			return api.CurrentBlockHeight(), nil
		})},
		{FnATCreationBlockHeight, ret0(func(api PlatformAPI, _ *MachineState) (uint64, error) {
			return api.ATCreationBlockHeight(), nil
		})},
		{FnPutPreviousBlockHashIntoA, noRet0(func(api PlatformAPI, m *MachineState) error {
			return api.PutPreviousBlockHashIntoA(m)
		})},
		{FnPutTxAfterTimestampIntoA, fnHandler{argc: 1, call: func(api PlatformAPI, m *MachineState, args []uint64) (uint64, error) {
			return 0, api.PutTransactionAfterTimestampIntoA(m, args[0])
		}}},
		{FnGetTypeFromTxInA, ret0(func(api PlatformAPI, m *MachineState) (uint64, error) {
			return api.GetTypeFromTransactionInA(m)
		})},
		{FnGetAmountFromTxInA, ret0(func(api PlatformAPI, m *MachineState) (uint64, error) {
			return api.GetAmountFromTransactionInA(m)
		})},
		{FnGetTimestampFromTxInA, ret0(func(api PlatformAPI, m *MachineState) (uint64, error) {
			return api.GetTimestampFromTransactionInA(m)
		})},
		{FnGetCreatorAddressFromA, ret0(func(api PlatformAPI, m *MachineState) (uint64, error) {
			return api.GetCreatorAddressFromA(m)
		})},
		{FnGetMessageFromTxInA, ret0(func(api PlatformAPI, m *MachineState) (uint64, error) {
			return api.GetMessageFromTransactionInA(m)
		})},
		{FnGenerateRandomUsingTxInA, ret0(func(api PlatformAPI, m *MachineState) (uint64, error) {
			return api.GenerateRandomUsingTransactionInA(m)
		})},
		{FnPutMessageFromTxInAIntoB, noRet0(func(api PlatformAPI, m *MachineState) error {
			return api.PutMessageFromTransactionInAIntoB(m)
		})},
		{FnPutAddressFromTxInAIntoB, noRet0(func(api PlatformAPI, m *MachineState) error {
			return api.PutAddressFromTransactionInAIntoB(m)
		})},
		{FnPutCreatorAddressIntoB, noRet0(func(api PlatformAPI, m *MachineState) error {
			return api.PutCreatorAddressIntoB(m)
		})},
		{FnCurrentBalance, ret0(func(api PlatformAPI, _ *MachineState) (uint64, error) {
			return api.CurrentBalance(), nil
		})},
		{FnPayAmountToB, fnHandler{argc: 1, call: func(api PlatformAPI, m *MachineState, args []uint64) (uint64, error) {
			return 0, api.PayAmountToB(m, args[0])
		}}},
		{FnMessageAToB, noRet0(func(api PlatformAPI, m *MachineState) error {
			return api.MessageAToB(m)
		})},
		{FnAddMinutesToTimestamp, fnHandler{argc: 2, hasReturn: true, call: func(api PlatformAPI, _ *MachineState, args []uint64) (uint64, error) {
			return api.AddMinutesToTimestamp(args[0], args[1]), nil
		}}},
	}
}

// buildFuncTableFrom assembles a FuncTable from an explicit entry list,
// panicking on a duplicate code. BuildFuncTable calls this with
// defaultEntries(); tests call it directly with a crafted list to exercise
// the duplicate-detection path without touching the package-level table.
func buildFuncTableFrom(entries []funcTableEntry) FuncTable {
	table := make(FuncTable, len(entries))
	for _, e := range entries {
		if _, dup := table[e.code]; dup {
			panic("atvm: duplicate function code in BuildFuncTable")
		}
		table[e.code] = e.handler
	}
	return table
}

var defaultFuncTable = BuildFuncTable()

// DefaultFuncTable returns the package-level dispatch table every VM uses
// unless a caller supplies its own (tests substitute a trimmed table to
// exercise the unknown-function path).
func DefaultFuncTable() FuncTable { return defaultFuncTable }
