package raftstore

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/daoran/foros/internal/raft"
)

var (
	logBucket  = []byte("log")
	metaBucket = []byte("meta")

	commitIndexKey = []byte("commit_index")
)

// BoltStore is a go.etcd.io/bbolt-backed raft.DataStore: one bucket holds
// gob-encoded log entries keyed by big-endian index, a second holds the
// commit index. Every mutation runs inside its own bolt transaction, which
// is what gives the core's "all mutations are serialized" requirement for
// free; reads use bolt's MVCC read-only transactions, so building an
// AppendEntries request never blocks a concurrent commit-index advance.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if necessary) a bbolt database at path and
// ensures both buckets exist.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("raftstore: open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(logBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("raftstore: init buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close releases the underlying bbolt file handle.
func (b *BoltStore) Close() error { return b.db.Close() }

func indexKey(index uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, index)
	return key
}

func encodeEntry(e raft.LogEntry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeEntry(raw []byte) (raft.LogEntry, error) {
	var e raft.LogEntry
	err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&e)
	return e, err
}

// LastIndex implements raft.DataStore.
func (b *BoltStore) LastIndex() uint64 {
	var idx uint64
	_ = b.db.View(func(tx *bolt.Tx) error {
		cur := tx.Bucket(logBucket).Cursor()
		key, _ := cur.Last()
		if key != nil {
			idx = binary.BigEndian.Uint64(key)
		}
		return nil
	})
	return idx
}

// LastTerm implements raft.DataStore.
func (b *BoltStore) LastTerm() raft.Term {
	var term raft.Term
	_ = b.db.View(func(tx *bolt.Tx) error {
		cur := tx.Bucket(logBucket).Cursor()
		_, val := cur.Last()
		if val == nil {
			return nil
		}
		entry, err := decodeEntry(val)
		if err != nil {
			return err
		}
		term = entry.Term
		return nil
	})
	return term
}

// Entry implements raft.DataStore.
func (b *BoltStore) Entry(index uint64) (raft.LogEntry, bool) {
	var entry raft.LogEntry
	var found bool
	_ = b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(logBucket).Get(indexKey(index))
		if raw == nil {
			return nil
		}
		decoded, err := decodeEntry(raw)
		if err != nil {
			return err
		}
		entry, found = decoded, true
		return nil
	})
	return entry, found
}

// Append implements raft.DataStore.
func (b *BoltStore) Append(entries []raft.LogEntry) uint64 {
	var last uint64
	_ = b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(logBucket)
		for _, e := range entries {
			raw, err := encodeEntry(e)
			if err != nil {
				return err
			}
			if err := bucket.Put(indexKey(e.Index), raw); err != nil {
				return err
			}
			last = e.Index
		}
		if last == 0 {
			cur := bucket.Cursor()
			if key, _ := cur.Last(); key != nil {
				last = binary.BigEndian.Uint64(key)
			}
		}
		return nil
	})
	return last
}

// TruncateFrom implements raft.DataStore.
func (b *BoltStore) TruncateFrom(index uint64) {
	_ = b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(logBucket)
		cur := bucket.Cursor()
		for key, _ := cur.Seek(indexKey(index)); key != nil; key, _ = cur.Next() {
			if err := bucket.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// CommitIndex implements raft.DataStore.
func (b *BoltStore) CommitIndex() uint64 {
	var idx uint64
	_ = b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(metaBucket).Get(commitIndexKey)
		if raw != nil {
			idx = binary.BigEndian.Uint64(raw)
		}
		return nil
	})
	return idx
}

// SetCommitIndex implements raft.DataStore.
func (b *BoltStore) SetCommitIndex(index uint64) {
	_ = b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Put(commitIndexKey, indexKey(index))
	})
}
