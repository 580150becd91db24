package swap

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atswap-dev/node/foreignchain"
)

// Fixture below is self-consistent (built with this package's own HTLC
// script layout) rather than a byte-for-byte echo of spec.md's narrative
// P2SH/refund-key example, because that example's secret length is never
// pinned by the CLI argument list (see DefaultSecretLength) and the
// worked P2SH address in spec.md §8 cannot be independently re-derived
// without it.
const (
	testRefundPrivHex38 = "ef027fb5828c5e201eaf6de4cd3b0b340d16a191ef848cd691f35ef8f727358c9c01b576fb7e"
	testRedeemerAddr    = "n2N5VKrzq39nmuefZwp3wBiF4icdXX2B6o"
	testSecretHashHex   = "d1b64100879ad93ceaa3c15929b6fe8550f54967"
	testLockTime        = int64(1585920000)
	testP2SHAddr        = "2N3VNisLzH4bgrYiHqFTFRamCAJAfZKAeLj"
)

var testnetParams = foreignchain.ForeignNetworkParams{
	P2SHVersionByte:  0xc4,
	P2PKHVersionByte: 0x6f,
	DefaultFeePerKB:  1000,
}

func testRefundArgs(t *testing.T) RefundArgs {
	t.Helper()
	privBytes, err := hex.DecodeString(testRefundPrivHex38)
	require.NoError(t, err)
	secretHashBytes, err := hex.DecodeString(testSecretHashHex)
	require.NoError(t, err)
	var secretHash [20]byte
	copy(secretHash[:], secretHashBytes)

	return RefundArgs{
		P2SHAddress:          testP2SHAddr,
		RefundPrivateKey:     privBytes,
		RedeemerP2PKHAddress: testRedeemerAddr,
		SecretHash:           secretHash,
		SecretLen:            32,
		LockTime:             testLockTime,
	}
}

// fakeProvider backs both the refund and redeem flow tests: a fixed MTP
// window and a single confirmed UTXO funding the P2SH contract.
type fakeProvider struct {
	p2shAddr   string
	utxoValue  uint64
	mtpHeaders [][]byte
}

func (f fakeProvider) GetUTXOs(_ context.Context, addr string) ([]foreignchain.UTXO, error) {
	if addr != f.p2shAddr {
		return nil, nil
	}
	return []foreignchain.UTXO{{TxID: [32]byte{1}, Vout: 0, Value: f.utxoValue, Height: 500}}, nil
}
func (f fakeProvider) GetAddressHistory(context.Context, string) ([]foreignchain.HistoryEntry, error) {
	return nil, nil
}
func (f fakeProvider) GetRawBlockHeaders(_ context.Context, count int) ([][]byte, error) {
	if count > len(f.mtpHeaders) {
		return f.mtpHeaders, nil
	}
	return f.mtpHeaders[:count], nil
}
func (f fakeProvider) GetRawTransaction(context.Context, [32]byte) ([]byte, error) { return nil, nil }
func (f fakeProvider) Broadcast(context.Context, []byte) ([32]byte, error)         { return [32]byte{}, nil }
func (f fakeProvider) NetworkParams() foreignchain.ForeignNetworkParams           { return testnetParams }

// headersWithTimestampsBefore builds 11 synthetic 80-byte legacy headers
// whose timestamp field (offset 68) is safely before lockTime, so MTP
// never itself blocks a refund that's otherwise on time.
func headersWithTimestampsBefore(lockTime int64) [][]byte {
	headers := make([][]byte, 11)
	for i := range headers {
		h := make([]byte, 80)
		binary.LittleEndian.PutUint32(h[68:72], uint32(lockTime-1000+int64(i)))
		headers[i] = h
	}
	return headers
}

func TestExecuteRefundHappyPath(t *testing.T) {
	p := fakeProvider{
		p2shAddr:   testP2SHAddr,
		utxoValue:  100000,
		mtpHeaders: headersWithTimestampsBefore(testLockTime),
	}
	tx, err := ExecuteRefund(context.Background(), testRefundArgs(t), testLockTime, p)
	require.NoError(t, err)
	require.NotNil(t, tx)
	require.Len(t, tx.Inputs, 1)
	require.NotEmpty(t, tx.Inputs[0].ScriptSig)
	require.Equal(t, uint32(testLockTime), tx.LockTime)
	require.Less(t, tx.Outputs[0].Value, uint64(100000))
}

func TestExecuteRefundTooEarly(t *testing.T) {
	p := fakeProvider{
		p2shAddr:   testP2SHAddr,
		utxoValue:  100000,
		mtpHeaders: headersWithTimestampsBefore(testLockTime),
	}
	tx, err := ExecuteRefund(context.Background(), testRefundArgs(t), testLockTime-60, p)
	require.Error(t, err)
	require.Nil(t, tx)
}

func TestExecuteRefundP2SHMismatchIsSafetyViolation(t *testing.T) {
	p := fakeProvider{
		p2shAddr:   testP2SHAddr,
		utxoValue:  100000,
		mtpHeaders: headersWithTimestampsBefore(testLockTime),
	}
	args := testRefundArgs(t)
	args.P2SHAddress = "2NEZboTLhBDPPQciR7sExBhy3TsDi7wV3Cv" // unrelated address
	tx, err := ExecuteRefund(context.Background(), args, testLockTime, p)
	require.Error(t, err)
	require.Nil(t, tx)
}

func TestTrimPrivateKeyLengths(t *testing.T) {
	full, err := hex.DecodeString(testRefundPrivHex38)
	require.NoError(t, err)
	trimmed, err := TrimPrivateKey(full)
	require.NoError(t, err)
	require.Equal(t, full[1:33], trimmed[:])

	_, err = TrimPrivateKey(make([]byte, 31))
	require.Error(t, err)
}
