package chaintypes

// ATData is the per-deployed-AT record the node keeps alongside the normal
// account ledger. Address is a pure function of (CreatorPublicKey,
// CreationReference); see atvm's address derivation helper.
type ATData struct {
	Address          Address32
	CreatorPublicKey PublicKey
	CreationRef      [64]byte // signature of the deployment transaction
	CreationHeight   uint32
	AssetID          uint32

	Frozen   bool
	Finished bool
	Sleeping bool

	// SleepUntilHeight is only meaningful while Sleeping is true.
	SleepUntilHeight uint32

	// StateBlob is the opaque serialized MachineState (see atvm.MachineState).
	StateBlob []byte
}

// IsRunnable reports whether this AT should be executed during the given
// block height, per the AT runner's skip rule (§4.5 step 1).
func (d *ATData) IsRunnable(height uint32) bool {
	if d.Frozen || d.Finished {
		return false
	}
	if d.Sleeping && height < d.SleepUntilHeight {
		return false
	}
	return true
}
