package registry

import (
	"fmt"
	"sort"
	"sync"
)

// UpdateListener receives notifications emitted by successful mutations.
// Callbacks run synchronously inside the mutation's critical section and
// must not call back into the registry.
type UpdateListener interface {
	OperatorIndexUpdated(op OperatorID, quorum QuorumNumber, index uint32, block BlockNumber)
	QuorumSizeUpdated(quorum QuorumNumber, size uint32, block BlockNumber)
	GlobalSlotRelocated(op OperatorID, slot uint32)
}

// Registry assigns each operator a dense zero-based index per quorum and
// retains the full assignment history over block numbers. All mutations are
// serialized behind one lock; a failing call mutates nothing.
type Registry struct {
	mu        sync.RWMutex
	global    globalOperatorSet
	indexLogs map[QuorumNumber]map[OperatorID]*checkpointLog
	sizeLogs  map[QuorumNumber]*checkpointLog
	lastBlock BlockNumber
	listener  UpdateListener
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{
		indexLogs: make(map[QuorumNumber]map[OperatorID]*checkpointLog),
		sizeLogs:  make(map[QuorumNumber]*checkpointLog),
	}
}

// SetUpdateListener binds the notification sink for subsequent mutations.
func (r *Registry) SetUpdateListener(l UpdateListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener = l
}

// RegisterOperator adds op to the global set and assigns it the next dense
// index in each listed quorum. Quorums must be strictly ascending. The
// assigned index in each quorum equals the quorum's prior size.
func (r *Registry) RegisterOperator(op OperatorID, quorums []QuorumNumber, now BlockNumber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := validateQuorumList(quorums); err != nil {
		return err
	}
	if now == 0 {
		return ErrInvalidBlock
	}
	if now < r.lastBlock {
		return fmt.Errorf("%w: block %d, last applied %d", ErrStaleBlock, now, r.lastBlock)
	}
	if err := r.global.add(op); err != nil {
		return err
	}

	for _, q := range quorums {
		size := r.currentSize(q)
		r.operatorLog(op, q).assign(size, now)
		r.sizeLog(q).assign(size+1, now)
		r.notifyIndex(op, q, size, now)
		r.notifySize(q, size+1, now)
	}
	r.lastBlock = now
	return nil
}

// DeregisterOperator removes op from each listed quorum using the supplied
// swap candidates, which must each hold their quorum's current last index.
// When complete is set, op is also removed from the global set at
// globalIndex, which must actually hold op. All hints are validated before
// any log is touched.
func (r *Registry) DeregisterOperator(op OperatorID, complete bool, quorums []QuorumNumber, swapOperators []OperatorID, globalIndex uint32, now BlockNumber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(quorums) != len(swapOperators) {
		return fmt.Errorf("%w: %d quorums, %d swap operators", ErrLengthMismatch, len(quorums), len(swapOperators))
	}
	if err := validateQuorumList(quorums); err != nil {
		return err
	}
	if now == 0 {
		return ErrInvalidBlock
	}
	if now < r.lastBlock {
		return fmt.Errorf("%w: block %d, last applied %d", ErrStaleBlock, now, r.lastBlock)
	}

	type removal struct {
		quorum QuorumNumber
		index  uint32
		size   uint32
		swap   OperatorID
	}
	plan := make([]removal, 0, len(quorums))

	// Validate every hint first; quorums are independent, so checking them
	// up front is equivalent to checking them in application order.
	for i, q := range quorums {
		log, ok := r.indexLogs[q][op]
		if !ok {
			return fmt.Errorf("%w: operator %s has no history in quorum %d", ErrNotFound, op, q)
		}
		open, ok := log.latest()
		if !ok {
			return fmt.Errorf("%w: operator %s not currently in quorum %d", ErrNotFound, op, q)
		}
		size := r.currentSize(q)
		swap := swapOperators[i]
		swapLog, ok := r.indexLogs[q][swap]
		if !ok {
			return fmt.Errorf("%w: operator %s has no history in quorum %d", ErrInvalidSwapCandidate, swap, q)
		}
		swapOpen, ok := swapLog.latest()
		if !ok || swapOpen.Index != size-1 {
			return fmt.Errorf("%w: operator %s does not hold index %d in quorum %d", ErrInvalidSwapCandidate, swap, size-1, q)
		}
		plan = append(plan, removal{quorum: q, index: open.Index, size: size, swap: swap})
	}

	if complete {
		slot, err := r.global.at(globalIndex)
		if err != nil {
			return err
		}
		if slot != op {
			return fmt.Errorf("%w: slot %d holds %s", ErrGlobalIndexMismatch, globalIndex, slot)
		}
	}

	for _, rem := range plan {
		r.indexLogs[rem.quorum][op].closeTail(now)
		if rem.swap != op {
			r.indexLogs[rem.quorum][rem.swap].assign(rem.index, now)
			r.notifyIndex(rem.swap, rem.quorum, rem.index, now)
		}
		r.sizeLog(rem.quorum).assign(rem.size-1, now)
		r.notifySize(rem.quorum, rem.size-1, now)
	}

	if complete {
		moved, swapped, err := r.global.removeAt(globalIndex)
		if err != nil {
			return err
		}
		if swapped && r.listener != nil {
			r.listener.GlobalSlotRelocated(moved, globalIndex)
		}
	}
	r.lastBlock = now
	return nil
}

// IndexAt returns op's index in quorum at the given block, validated against
// the caller-supplied history position.
func (r *Registry) IndexAt(op OperatorID, quorum QuorumNumber, at BlockNumber, hint uint32) (uint32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	log, ok := r.indexLogs[quorum][op]
	if !ok {
		return 0, fmt.Errorf("%w: operator %s has no history in quorum %d", ErrNotFound, op, quorum)
	}
	return log.lookup(at, hint)
}

// SizeAt returns the quorum's operator count at the given block, validated
// against the caller-supplied history position.
func (r *Registry) SizeAt(quorum QuorumNumber, at BlockNumber, hint uint32) (uint32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	log, ok := r.sizeLogs[quorum]
	if !ok {
		return 0, fmt.Errorf("%w: quorum %d has no history", ErrNotFound, quorum)
	}
	return log.lookup(at, hint)
}

// CurrentMembers reconstructs the quorum's current membership as a dense
// array: slot i holds the operator whose open checkpoint records index i.
func (r *Registry) CurrentMembers(quorum QuorumNumber) []OperatorID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]OperatorID, r.currentSize(quorum))
	for op, log := range r.indexLogs[quorum] {
		if open, ok := log.latest(); ok {
			out[open.Index] = op
		}
	}
	return out
}

// GlobalIndexOf returns op's slot in the global operator set.
func (r *Registry) GlobalIndexOf(op OperatorID) (uint32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.global.indexOf(op)
}

// TotalOperators returns the global operator count.
func (r *Registry) TotalOperators() uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.global.length()
}

// TotalOperatorsForQuorum returns the quorum's current operator count.
func (r *Registry) TotalOperatorsForQuorum(quorum QuorumNumber) uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentSize(quorum)
}

// HistoryLength returns the checkpoint count of op's log in quorum. Callers
// use it to derive lookup hints for freshly appended entries.
func (r *Registry) HistoryLength(op OperatorID, quorum QuorumNumber) uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if log, ok := r.indexLogs[quorum][op]; ok {
		return log.length()
	}
	return 0
}

// SizeHistoryLength returns the checkpoint count of the quorum's size log.
func (r *Registry) SizeHistoryLength(quorum QuorumNumber) uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if log, ok := r.sizeLogs[quorum]; ok {
		return log.length()
	}
	return 0
}

// LastBlock returns the block number of the most recent applied mutation.
func (r *Registry) LastBlock() BlockNumber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastBlock
}

// Quorums returns every quorum number that has size history, ascending.
func (r *Registry) Quorums() []QuorumNumber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]QuorumNumber, 0, len(r.sizeLogs))
	for q := range r.sizeLogs {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// currentSize reads the quorum's open size checkpoint; 0 for unseen quorums.
func (r *Registry) currentSize(quorum QuorumNumber) uint32 {
	if log, ok := r.sizeLogs[quorum]; ok {
		if open, ok := log.latest(); ok {
			return open.Index
		}
	}
	return 0
}

func (r *Registry) operatorLog(op OperatorID, quorum QuorumNumber) *checkpointLog {
	logs, ok := r.indexLogs[quorum]
	if !ok {
		logs = make(map[OperatorID]*checkpointLog)
		r.indexLogs[quorum] = logs
	}
	log, ok := logs[op]
	if !ok {
		log = &checkpointLog{}
		logs[op] = log
	}
	return log
}

func (r *Registry) sizeLog(quorum QuorumNumber) *checkpointLog {
	log, ok := r.sizeLogs[quorum]
	if !ok {
		log = &checkpointLog{}
		r.sizeLogs[quorum] = log
	}
	return log
}

func (r *Registry) notifyIndex(op OperatorID, quorum QuorumNumber, index uint32, block BlockNumber) {
	if r.listener != nil {
		r.listener.OperatorIndexUpdated(op, quorum, index, block)
	}
}

func (r *Registry) notifySize(quorum QuorumNumber, size uint32, block BlockNumber) {
	if r.listener != nil {
		r.listener.QuorumSizeUpdated(quorum, size, block)
	}
}

func validateQuorumList(quorums []QuorumNumber) error {
	if len(quorums) == 0 {
		return fmt.Errorf("%w: empty list", ErrInvalidQuorums)
	}
	for i := 1; i < len(quorums); i++ {
		if quorums[i] <= quorums[i-1] {
			return fmt.Errorf("%w: %d follows %d", ErrInvalidQuorums, quorums[i], quorums[i-1])
		}
	}
	return nil
}
