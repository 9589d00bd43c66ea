// Package storage is the LevelDB layer every persistent table in the node
// shares: the block index, the UTXO set, block-file bookkeeping, and the
// chain-state markers all live in one database, separated by the key
// prefixes defined in keys.go.
package storage

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Database is a thin handle over one LevelDB instance.
type Database struct {
	ldb *leveldb.DB
}

// OpenDatabase opens (or creates) the database at path. Snappy compression
// keeps the Coins table small; the bloom filter keeps the point lookups the
// UTXO cache misses into from touching every table file.
func OpenDatabase(path string) (*Database, error) {
	opts := &opt.Options{
		Compression: opt.SnappyCompression,
		Filter:      filter.NewBloomFilter(10),
	}

	ldb, err := leveldb.OpenFile(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	return &Database{ldb: ldb}, nil
}

// Close releases the underlying database handle.
func (db *Database) Close() error {
	return db.ldb.Close()
}

// Get returns the value stored under key, or nil (with a nil error) if the
// key is absent. Callers that must distinguish "absent" from "empty value"
// use Has.
func (db *Database) Get(key []byte) ([]byte, error) {
	value, err := db.ldb.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	return value, err
}

// Put stores value under key.
func (db *Database) Put(key, value []byte) error {
	return db.ldb.Put(key, value, nil)
}

// Delete removes key. Deleting an absent key is not an error.
func (db *Database) Delete(key []byte) error {
	return db.ldb.Delete(key, nil)
}

// Has reports whether key is present.
func (db *Database) Has(key []byte) (bool, error) {
	return db.ldb.Has(key, nil)
}

// Batch accumulates puts and deletes to be committed in one atomic write.
type Batch struct {
	batch *leveldb.Batch
	db    *Database
}

// NewBatch returns an empty batch bound to db.
func (db *Database) NewBatch() *Batch {
	return &Batch{batch: new(leveldb.Batch), db: db}
}

// Put queues a put.
func (b *Batch) Put(key, value []byte) {
	b.batch.Put(key, value)
}

// Delete queues a delete.
func (b *Batch) Delete(key []byte) {
	b.batch.Delete(key)
}

// Write commits everything queued so far; either the whole batch lands or
// none of it does.
func (b *Batch) Write() error {
	return b.db.ldb.Write(b.batch, nil)
}

// Reset empties the batch for reuse.
func (b *Batch) Reset() {
	b.batch.Reset()
}

// Iterator walks the keys sharing one prefix in ascending order.
type Iterator struct {
	iter iterator.Iterator
}

// NewIterator returns an iterator over every key beginning with prefix.
// The caller must Release it.
func (db *Database) NewIterator(prefix []byte) *Iterator {
	return &Iterator{iter: db.ldb.NewIterator(util.BytesPrefix(prefix), nil)}
}

// Next advances the iterator, reporting whether a current entry exists.
func (it *Iterator) Next() bool {
	return it.iter.Next()
}

// Key returns the current key; valid only until the next call to Next.
func (it *Iterator) Key() []byte {
	return it.iter.Key()
}

// Value returns the current value; valid only until the next call to Next.
func (it *Iterator) Value() []byte {
	return it.iter.Value()
}

// Release frees the iterator's snapshot.
func (it *Iterator) Release() {
	it.iter.Release()
}

// Error returns the first error the iteration hit, if any.
func (it *Iterator) Error() error {
	return it.iter.Error()
}
