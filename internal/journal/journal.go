package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/Olexandr88/indexreg/internal/registry"
	"github.com/Olexandr88/indexreg/internal/wire"
)

var (
	ErrClosed      = errors.New("journal: closed")
	ErrSequenceGap = errors.New("journal: sequence gap detected")
)

var recordKeyPrefix = []byte("rec/")

// Journal is an append-only, sequence-numbered record log on badger.
// Appends are serialized; sequence numbers start at 1 and have no gaps.
type Journal struct {
	mu      sync.Mutex
	db      *badger.DB
	nextSeq uint64
	closed  bool
}

// Open opens the substrate and positions the append cursor after the last
// stored record.
func Open(cfg Config) (*Journal, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	j := &Journal{db: db, nextSeq: 1}

	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration from just past the record range lands on the
		// highest sequence number.
		seekKey := append(append([]byte(nil), recordKeyPrefix...), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
		it.Seek(seekKey)
		if it.ValidForPrefix(recordKeyPrefix) {
			seq, err := seqFromKey(it.Item().Key())
			if err != nil {
				return err
			}
			j.nextSeq = seq + 1
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: locate last record: %w", err)
	}
	return j, nil
}

// AppendRegister journals one registration.
func (j *Journal) AppendRegister(op registry.OperatorID, quorums []registry.QuorumNumber, block registry.BlockNumber) (uint64, error) {
	return j.append(wire.Record{
		Type:     wire.RecordRegister,
		Block:    block,
		Operator: op,
		Quorums:  quorums,
	})
}

// AppendDeregister journals one deregistration.
func (j *Journal) AppendDeregister(op registry.OperatorID, complete bool, quorums []registry.QuorumNumber, swapOperators []registry.OperatorID, globalIndex uint32, block registry.BlockNumber) (uint64, error) {
	return j.append(wire.Record{
		Type:          wire.RecordDeregister,
		Block:         block,
		Operator:      op,
		Complete:      complete,
		Quorums:       quorums,
		SwapOperators: swapOperators,
		GlobalIndex:   globalIndex,
	})
}

func (j *Journal) append(rec wire.Record) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return 0, ErrClosed
	}

	rec.Seq = j.nextSeq
	buf, err := wire.EncodeRecord(rec)
	if err != nil {
		return 0, err
	}
	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyForSeq(rec.Seq), buf)
	})
	if err != nil {
		return 0, fmt.Errorf("journal: append record %d: %w", rec.Seq, err)
	}
	j.nextSeq++
	return rec.Seq, nil
}

// Replay streams every stored record, in sequence order, through apply.
// Replay fails on the first decode error, sequence gap, or apply error.
func (j *Journal) Replay(apply func(wire.Record) error) error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return ErrClosed
	}
	db := j.db
	j.mu.Unlock()

	expected := uint64(1)
	return db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(recordKeyPrefix); it.ValidForPrefix(recordKeyPrefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				rec, err := wire.DecodeRecord(val)
				if err != nil {
					return err
				}
				if rec.Seq != expected {
					return fmt.Errorf("%w: expected %d, found %d", ErrSequenceGap, expected, rec.Seq)
				}
				expected++
				return apply(rec)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Rebuild replays the journal through reg and returns the number of applied
// records. The registry must be empty; a record the registry rejects aborts
// the rebuild.
func Rebuild(j *Journal, reg *registry.Registry) (uint64, error) {
	var applied uint64
	err := j.Replay(func(rec wire.Record) error {
		var err error
		switch rec.Type {
		case wire.RecordRegister:
			err = reg.RegisterOperator(rec.Operator, rec.Quorums, rec.Block)
		case wire.RecordDeregister:
			err = reg.DeregisterOperator(rec.Operator, rec.Complete, rec.Quorums, rec.SwapOperators, rec.GlobalIndex, rec.Block)
		default:
			err = fmt.Errorf("%w: %d", wire.ErrUnknownRecordType, rec.Type)
		}
		if err != nil {
			return fmt.Errorf("journal: replay record %d: %w", rec.Seq, err)
		}
		applied++
		return nil
	})
	return applied, err
}

// Len returns the number of stored records.
func (j *Journal) Len() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.nextSeq - 1
}

// Close releases the substrate. Further calls fail with ErrClosed.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}

func keyForSeq(seq uint64) []byte {
	key := make([]byte, len(recordKeyPrefix)+8)
	copy(key, recordKeyPrefix)
	binary.BigEndian.PutUint64(key[len(recordKeyPrefix):], seq)
	return key
}

func seqFromKey(key []byte) (uint64, error) {
	if len(key) != len(recordKeyPrefix)+8 {
		return 0, fmt.Errorf("journal: malformed record key length %d", len(key))
	}
	return binary.BigEndian.Uint64(key[len(recordKeyPrefix):]), nil
}
