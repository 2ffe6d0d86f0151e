package kv

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore implements Store using BadgerDB, grounded directly on
// datalog/storage/badger_store.go's NewBadgerStore: same read-heavy
// tuning (bigger block/index cache, disabled conflict detection — the
// planner's live statistics path never writes, so conflict tracking is
// pure overhead here too).
type BadgerStore struct {
	db *badger.DB
}

// Open creates a new BadgerDB-backed store at path.
func Open(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.MemTableSize = 128 << 20
	opts.BlockCacheSize = 256 << 20
	opts.IndexCacheSize = 100 << 20
	opts.DetectConflicts = false
	opts.NumCompactors = 4

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("kv: failed to open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) PointGet(ctx context.Context, key []byte) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var out []byte
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			found = true
			return nil
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("kv: point get failed: %w", err)
	}
	return out, found, nil
}

func (s *BadgerStore) Range(ctx context.Context, begin, end []byte) (Iterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txn := s.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	it := txn.NewIterator(opts)
	it.Seek(begin)

	return &badgerIterator{ctx: ctx, txn: txn, it: it, end: end, started: false}, nil
}

// EstimatedRangeSizeBytes estimates a range's byte size by summing
// EstimatedSize over every key in [begin, end). This implementation
// walks the whole range with Badger's default iterator options (values
// prefetched); it does not consult storage-engine metadata.
func (s *BadgerStore) EstimatedRangeSizeBytes(ctx context.Context, begin, end []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var total int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(begin); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			if len(end) > 0 && compareBytesLE(end, item.Key()) {
				break
			}
			total += int64(item.EstimatedSize())
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("kv: range size estimate failed: %w", err)
	}
	return total, nil
}

// RangeSplitPoints walks the range once, emitting a split key every
// time accumulated estimated size crosses chunkSize, bounding the
// number of chunks implicitly by chunkSize (callers bound concurrency
// separately via stats.DivideRangeConfig.MaxConcurrency).
func (s *BadgerStore) RangeSplitPoints(ctx context.Context, begin, end []byte, chunkSize int64) ([][]byte, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("kv: chunkSize must be positive")
	}

	var points [][]byte
	var acc int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(begin); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			if len(end) > 0 && compareBytesLE(end, item.Key()) {
				break
			}
			acc += int64(item.EstimatedSize())
			if acc >= chunkSize {
				key := append([]byte(nil), item.Key()...)
				points = append(points, key)
				acc = 0
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kv: split points failed: %w", err)
	}
	return points, nil
}

func compareBytesLE(end, key []byte) bool {
	// true if end <= key, i.e. key has reached/passed the exclusive end
	for i := 0; i < len(end) && i < len(key); i++ {
		if end[i] < key[i] {
			return true
		}
		if end[i] > key[i] {
			return false
		}
	}
	return len(end) <= len(key)
}

type badgerIterator struct {
	ctx     context.Context
	txn     *badger.Txn
	it      *badger.Iterator
	end     []byte
	started bool
}

func (b *badgerIterator) Next() bool {
	if b.ctx.Err() != nil {
		return false
	}
	if !b.started {
		b.started = true
	} else {
		b.it.Next()
	}
	if !b.it.Valid() {
		return false
	}
	if len(b.end) > 0 && compareBytesLE(b.end, b.it.Item().Key()) {
		return false
	}
	return true
}

func (b *badgerIterator) Key() []byte {
	return append([]byte(nil), b.it.Item().KeyCopy(nil)...)
}

func (b *badgerIterator) Value() ([]byte, error) {
	return b.it.Item().ValueCopy(nil)
}

func (b *badgerIterator) Close() error {
	b.it.Close()
	b.txn.Discard()
	return nil
}
