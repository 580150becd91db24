// Package boltrepo implements repo.Repository on top of an embedded bbolt
// key-value store, following the bucket-per-concern layout and
// single-Update-transaction-per-write discipline used throughout this
// module's teacher repository's node/store package.
package boltrepo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/atswap-dev/node/chaintypes"
)

var (
	bucketBlocksByHeight = []byte("blocks_by_height")
	bucketTxByHeightSeq  = []byte("tx_by_height_seq")
	bucketTxBySig        = []byte("tx_by_sig")
	bucketATState        = []byte("at_state_by_address")
	bucketATCreation     = []byte("at_creation_height_by_address")
	bucketAccount        = []byte("account_by_address")
	bucketMeta           = []byte("meta")
)

var keyTipHeight = []byte("tip_height")

// DB is a bbolt-backed repo.Repository.
type DB struct {
	db *bolt.DB
}

// Open creates or opens the bbolt file at path, creating every bucket this
// package needs if absent.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("boltrepo: mkdir: %w", err)
	}
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltrepo: open bbolt: %w", err)
	}
	d := &DB{db: bdb}
	if err := d.db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{
			bucketBlocksByHeight, bucketTxByHeightSeq, bucketTxBySig,
			bucketATState, bucketATCreation, bucketAccount, bucketMeta,
		} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", string(b), err)
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, err
	}
	return d, nil
}

// Close releases the underlying bbolt file handle.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) BlockchainHeight(_ context.Context) (uint32, error) {
	var height uint32
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketMeta).Get(keyTipHeight)
		if v == nil {
			return nil
		}
		if len(v) != 4 {
			return fmt.Errorf("boltrepo: corrupt tip_height")
		}
		height = be32(v)
		return nil
	})
	return height, err
}

func (d *DB) BlockByHeight(_ context.Context, height uint32) (chaintypes.BlockSummary, bool, error) {
	var out chaintypes.BlockSummary
	var ok bool
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlocksByHeight).Get(be32Bytes(height))
		if v == nil {
			return nil
		}
		s, err := decodeBlockSummary(v)
		if err != nil {
			return err
		}
		out, ok = s, true
		return nil
	})
	return out, ok, err
}

func (d *DB) LastBlock(ctx context.Context) (chaintypes.BlockSummary, bool, error) {
	height, err := d.BlockchainHeight(ctx)
	if err != nil {
		return chaintypes.BlockSummary{}, false, err
	}
	return d.BlockByHeight(ctx, height)
}

func (d *DB) TransactionAt(_ context.Context, height, seq uint32) (chaintypes.Transaction, bool, error) {
	var out chaintypes.Transaction
	var ok bool
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketTxByHeightSeq).Get(heightSeqKey(height, seq))
		if v == nil {
			return nil
		}
		t, err := decodeTransaction(v)
		if err != nil {
			return err
		}
		out, ok = t, true
		return nil
	})
	return out, ok, err
}

func (d *DB) TransactionBySignature(_ context.Context, sig [64]byte) (chaintypes.Transaction, bool, error) {
	var out chaintypes.Transaction
	var ok bool
	err := d.db.View(func(tx *bolt.Tx) error {
		ptr := tx.Bucket(bucketTxBySig).Get(sig[:])
		if ptr == nil {
			return nil
		}
		if len(ptr) != 8 {
			return fmt.Errorf("boltrepo: corrupt sig index")
		}
		height, seq := be32(ptr[0:4]), be32(ptr[4:8])
		v := tx.Bucket(bucketTxByHeightSeq).Get(heightSeqKey(height, seq))
		if v == nil {
			return fmt.Errorf("boltrepo: dangling sig index entry")
		}
		t, err := decodeTransaction(v)
		if err != nil {
			return err
		}
		out, ok = t, true
		return nil
	})
	return out, ok, err
}

// FirstTransactionAfter scans forward height-by-height, seq-by-seq from
// `from` until it finds a transaction addressed to addr or exhausts the
// chain. Buckets are sorted lexicographically by key, so a linear cursor
// scan from the packed (height,seq) key visits transactions in exactly
// chain order.
func (d *DB) FirstTransactionAfter(_ context.Context, from chaintypes.Timestamp, addr chaintypes.Address32) (chaintypes.Transaction, chaintypes.Timestamp, bool, error) {
	var out chaintypes.Transaction
	var ts chaintypes.Timestamp
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketTxByHeightSeq).Cursor()
		startKey := heightSeqKey(from.Height(), from.Seq())
		for k, v := c.Seek(startKey); k != nil; k, v = c.Next() {
			t, err := decodeTransaction(v)
			if err != nil {
				return err
			}
			if t.HasRecipient(addr) {
				out = t
				ts = t.Timestamp
				found = true
				return nil
			}
		}
		return nil
	})
	return out, ts, found, err
}

func (d *DB) Account(_ context.Context, addr chaintypes.Address32) (chaintypes.AccountRecord, bool, error) {
	var out chaintypes.AccountRecord
	var ok bool
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketAccount).Get(addr[:])
		if v == nil {
			return nil
		}
		a, err := decodeAccountRecord(v)
		if err != nil {
			return err
		}
		out, ok = a, true
		return nil
	})
	return out, ok, err
}

func (d *DB) ATState(_ context.Context, addr chaintypes.Address32) (chaintypes.ATData, bool, error) {
	var out chaintypes.ATData
	var ok bool
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketATState).Get(addr[:])
		if v == nil {
			return nil
		}
		a, err := decodeATData(v)
		if err != nil {
			return err
		}
		out, ok = a, true
		return nil
	})
	return out, ok, err
}

// ATAddresses returns every deployed AT's address in ascending order.
// bbolt buckets are stored as a B+tree sorted by key, and this bucket's
// keys are the raw 32-byte addresses, so a plain cursor walk already
// yields the canonical execution order the AT runner needs — no extra
// index required.
func (d *DB) ATAddresses(_ context.Context) ([]chaintypes.Address32, error) {
	var out []chaintypes.Address32
	err := d.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketATState).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if len(k) != 32 {
				return fmt.Errorf("boltrepo: corrupt AT state key")
			}
			var addr chaintypes.Address32
			copy(addr[:], k)
			out = append(out, addr)
		}
		return nil
	})
	return out, err
}

func (d *DB) ATCreationHeight(_ context.Context, addr chaintypes.Address32) (uint32, bool, error) {
	var height uint32
	var ok bool
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketATCreation).Get(addr[:])
		if v == nil {
			return nil
		}
		if len(v) != 4 {
			return fmt.Errorf("boltrepo: corrupt creation height")
		}
		height, ok = be32(v), true
		return nil
	})
	return height, ok, err
}

// ApplyBlockResult is the batch of writes the AT runner produces for one
// block. ApplyBlock persists it all inside a single bbolt Update
// transaction, so a crash mid-write never leaves partially-applied AT
// state — the same discipline as the teacher's db.Update pattern.
type ApplyBlockResult struct {
	UpdatedATStates    []chaintypes.ATData
	EmittedTxs         []chaintypes.Transaction
	EmittedTxStartSeq  uint32
	BlockHeight        uint32
	Accounts           []chaintypes.AccountRecord
}

// ApplyBlock persists an AT-round result atomically: updated AT state
// blobs, newly emitted transactions (indexed by both (height,seq) and
// signature), and any account balance/last-reference changes.
func (d *DB) ApplyBlock(_ context.Context, r ApplyBlockResult) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		atBucket := tx.Bucket(bucketATState)
		for _, a := range r.UpdatedATStates {
			b, err := encodeATData(a)
			if err != nil {
				return err
			}
			if err := atBucket.Put(a.Address[:], b); err != nil {
				return err
			}
		}

		txByHS := tx.Bucket(bucketTxByHeightSeq)
		txBySig := tx.Bucket(bucketTxBySig)
		for i, t := range r.EmittedTxs {
			seq := r.EmittedTxStartSeq + uint32(i)
			key := heightSeqKey(r.BlockHeight, seq)
			b, err := encodeTransaction(t)
			if err != nil {
				return err
			}
			if err := txByHS.Put(key, b); err != nil {
				return err
			}
			if err := txBySig.Put(t.Signature[:], key); err != nil {
				return err
			}
		}

		accBucket := tx.Bucket(bucketAccount)
		for _, a := range r.Accounts {
			b, err := encodeAccountRecord(a)
			if err != nil {
				return err
			}
			if err := accBucket.Put(a.Address[:], b); err != nil {
				return err
			}
		}

		return nil
	})
}

// PutBlockSummary records a block's header-level summary and advances the
// tip height pointer. Out-of-scope block validation happens elsewhere;
// this package only persists what the AT engine needs to read back.
func (d *DB) PutBlockSummary(_ context.Context, s chaintypes.BlockSummary) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		b, err := encodeBlockSummary(s)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketBlocksByHeight).Put(be32Bytes(s.Height), b); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyTipHeight, be32Bytes(s.Height))
	})
}

// PutATCreationHeight records the deployment height for a newly created AT.
func (d *DB) PutATCreationHeight(_ context.Context, addr chaintypes.Address32, height uint32) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketATCreation).Put(addr[:], be32Bytes(height))
	})
}

func heightSeqKey(height, seq uint32) []byte {
	key := make([]byte, 8)
	copy(key[0:4], be32Bytes(height))
	copy(key[4:8], be32Bytes(seq))
	return key
}

func be32Bytes(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
