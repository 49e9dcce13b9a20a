package journal

import (
	"errors"
	"testing"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"github.com/Olexandr88/indexreg/internal/registry"
	"github.com/Olexandr88/indexreg/internal/testutil/testlog"
	"github.com/Olexandr88/indexreg/internal/wire"
)

func testOperator(b byte) registry.OperatorID {
	var id registry.OperatorID
	id[registry.OperatorIDLen-1] = b
	return id
}

func TestAppendAssignsContiguousSequence(t *testing.T) {
	testlog.Start(t)
	j, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer j.Close()

	seq, err := j.AppendRegister(testOperator(1), []registry.QuorumNumber{0}, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq)

	seq, err = j.AppendDeregister(testOperator(1), true, []registry.QuorumNumber{0}, []registry.OperatorID{testOperator(1)}, 0, 12)
	require.NoError(t, err)
	require.Equal(t, uint64(2), seq)
	require.Equal(t, uint64(2), j.Len())
}

func TestReplayYieldsRecordsInOrder(t *testing.T) {
	j, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer j.Close()

	_, err = j.AppendRegister(testOperator(1), []registry.QuorumNumber{0}, 10)
	require.NoError(t, err)
	_, err = j.AppendRegister(testOperator(2), []registry.QuorumNumber{0, 1}, 11)
	require.NoError(t, err)

	var seen []wire.Record
	require.NoError(t, j.Replay(func(rec wire.Record) error {
		seen = append(seen, rec)
		return nil
	}))
	require.Len(t, seen, 2)
	require.Equal(t, uint64(1), seen[0].Seq)
	require.Equal(t, uint64(2), seen[1].Seq)
	require.Equal(t, testOperator(2), seen[1].Operator)
	require.Equal(t, []registry.QuorumNumber{0, 1}, seen[1].Quorums)
}

func TestRebuildReconstructsRegistry(t *testing.T) {
	testlog.Start(t)
	j, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer j.Close()

	a, b := testOperator(1), testOperator(2)
	_, err = j.AppendRegister(a, []registry.QuorumNumber{0}, 10)
	require.NoError(t, err)
	_, err = j.AppendRegister(b, []registry.QuorumNumber{0}, 12)
	require.NoError(t, err)
	_, err = j.AppendDeregister(a, true, []registry.QuorumNumber{0}, []registry.OperatorID{b}, 0, 20)
	require.NoError(t, err)

	reg := registry.New()
	applied, err := Rebuild(j, reg)
	require.NoError(t, err)
	require.Equal(t, uint64(3), applied)

	require.Equal(t, uint32(1), reg.TotalOperators())
	require.Equal(t, uint32(1), reg.TotalOperatorsForQuorum(0))
	idx, err := reg.IndexAt(b, 0, 21, 1)
	require.NoError(t, err)
	require.Equal(t, uint32(0), idx)
	require.Equal(t, registry.BlockNumber(20), reg.LastBlock())
}

func TestOpenResumesSequenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Path: dir, SyncWrites: false}

	j, err := Open(cfg)
	require.NoError(t, err)
	_, err = j.AppendRegister(testOperator(1), []registry.QuorumNumber{0}, 10)
	require.NoError(t, err)
	_, err = j.AppendRegister(testOperator(2), []registry.QuorumNumber{0}, 11)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j, err = Open(cfg)
	require.NoError(t, err)
	defer j.Close()
	require.Equal(t, uint64(2), j.Len())

	seq, err := j.AppendRegister(testOperator(3), []registry.QuorumNumber{0}, 12)
	require.NoError(t, err)
	require.Equal(t, uint64(3), seq)
}

func TestReplayDetectsSequenceGap(t *testing.T) {
	j, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer j.Close()

	_, err = j.AppendRegister(testOperator(1), []registry.QuorumNumber{0}, 10)
	require.NoError(t, err)

	// Forge a record that skips sequence 2.
	forged, err := wire.EncodeRecord(wire.Record{
		Seq:      3,
		Type:     wire.RecordRegister,
		Block:    11,
		Operator: testOperator(2),
		Quorums:  []registry.QuorumNumber{0},
	})
	require.NoError(t, err)
	require.NoError(t, j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyForSeq(3), forged)
	}))

	err = j.Replay(func(wire.Record) error { return nil })
	require.ErrorIs(t, err, ErrSequenceGap)
}

func TestReplayDetectsCorruption(t *testing.T) {
	j, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer j.Close()

	_, err = j.AppendRegister(testOperator(1), []registry.QuorumNumber{0}, 10)
	require.NoError(t, err)

	require.NoError(t, j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyForSeq(1), []byte("not a record"))
	}))

	err = j.Replay(func(wire.Record) error { return nil })
	require.Error(t, err)
	require.True(t, errors.Is(err, wire.ErrBadMagic) || errors.Is(err, wire.ErrShortRecord))
}

func TestClosedJournalRejectsAppends(t *testing.T) {
	j, err := Open(InMemoryConfig())
	require.NoError(t, err)
	require.NoError(t, j.Close())

	_, err = j.AppendRegister(testOperator(1), []registry.QuorumNumber{0}, 10)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, j.Replay(func(wire.Record) error { return nil }), ErrClosed)
}
