package registry

import (
	"math/rand"
	"testing"
)

// TestRandomizedChurnPreservesInvariants drives a random register/deregister
// sequence against a naive model and checks the structural invariants after
// every mutation:
//   - indices in each quorum are exactly {0..size-1} with no repeats
//   - the global set holds exactly the operators with open membership
//   - per-log history is monotone: closed entries strictly ordered, at most
//     one open entry, positioned last
func TestRandomizedChurnPreservesInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := New()

	const quorumCount = 4
	// model: quorum -> ordered member list (index == position)
	model := make([][]OperatorID, quorumCount)
	registered := make(map[OperatorID][]QuorumNumber)

	now := BlockNumber(100)
	nextOp := uint16(1)
	freshOp := func() OperatorID {
		var id OperatorID
		id[OperatorIDLen-2] = byte(nextOp >> 8)
		id[OperatorIDLen-1] = byte(nextOp)
		nextOp++
		return id
	}

	for step := 0; step < 500; step++ {
		if rng.Intn(3) > 0 || len(registered) == 0 {
			// register a fresh operator into a random ascending quorum set
			op := freshOp()
			var quorums []QuorumNumber
			for q := 0; q < quorumCount; q++ {
				if rng.Intn(2) == 0 {
					quorums = append(quorums, QuorumNumber(q))
				}
			}
			if len(quorums) == 0 {
				quorums = []QuorumNumber{QuorumNumber(rng.Intn(quorumCount))}
			}
			if err := r.RegisterOperator(op, quorums, now); err != nil {
				t.Fatalf("step %d: register: %v", step, err)
			}
			for _, q := range quorums {
				model[q] = append(model[q], op)
			}
			registered[op] = quorums
		} else {
			// deregister a random operator from all its quorums
			var op OperatorID
			for candidate := range registered {
				op = candidate
				break
			}
			quorums := registered[op]
			swaps := make([]OperatorID, len(quorums))
			for i, q := range quorums {
				swaps[i] = model[q][len(model[q])-1]
			}
			globalIndex, err := r.GlobalIndexOf(op)
			if err != nil {
				t.Fatalf("step %d: global index: %v", step, err)
			}
			if err := r.DeregisterOperator(op, true, quorums, swaps, globalIndex, now); err != nil {
				t.Fatalf("step %d: deregister: %v", step, err)
			}
			for _, q := range quorums {
				members := model[q]
				// mirror swap-with-last
				pos := 0
				for members[pos] != op {
					pos++
				}
				members[pos] = members[len(members)-1]
				model[q] = members[:len(members)-1]
			}
			delete(registered, op)
		}

		if rng.Intn(4) == 0 {
			now += BlockNumber(rng.Intn(3))
		}

		checkDensity(t, r, model)
		checkGlobalSet(t, r, registered)
	}
	checkHistoryShape(t, r)
}

func checkDensity(t *testing.T, r *Registry, model [][]OperatorID) {
	t.Helper()
	for q := range model {
		quorum := QuorumNumber(q)
		size := r.TotalOperatorsForQuorum(quorum)
		if int(size) != len(model[q]) {
			t.Fatalf("quorum %d: size %d, model %d", q, size, len(model[q]))
		}
		members := r.CurrentMembers(quorum)
		if len(members) != int(size) {
			t.Fatalf("quorum %d: %d members for size %d", q, len(members), size)
		}
		seen := make(map[OperatorID]bool, len(members))
		for i, op := range members {
			if op == (OperatorID{}) {
				t.Fatalf("quorum %d: gap at index %d", q, i)
			}
			if seen[op] {
				t.Fatalf("quorum %d: operator %s holds two indices", q, op)
			}
			seen[op] = true
		}
		// same membership as the model, order aside
		for _, op := range model[q] {
			if !seen[op] {
				t.Fatalf("quorum %d: model member %s missing", q, op)
			}
		}
	}
}

func checkGlobalSet(t *testing.T, r *Registry, registered map[OperatorID][]QuorumNumber) {
	t.Helper()
	if int(r.TotalOperators()) != len(registered) {
		t.Fatalf("global set size %d, model %d", r.TotalOperators(), len(registered))
	}
	for op := range registered {
		if _, err := r.GlobalIndexOf(op); err != nil {
			t.Fatalf("registered operator %s absent from global set: %v", op, err)
		}
	}
}

func checkHistoryShape(t *testing.T, r *Registry) {
	t.Helper()
	r.mu.RLock()
	defer r.mu.RUnlock()
	check := func(l *checkpointLog) {
		var prev BlockNumber
		for i, e := range l.entries {
			if e.Open() {
				if i != len(l.entries)-1 {
					t.Fatalf("open entry at position %d of %d", i, len(l.entries))
				}
				continue
			}
			if i > 0 && e.ValidUntil < prev {
				t.Fatalf("valid_until regressed: %d after %d", e.ValidUntil, prev)
			}
			prev = e.ValidUntil
		}
	}
	for _, logs := range r.indexLogs {
		for _, l := range logs {
			check(l)
		}
	}
	for _, l := range r.sizeLogs {
		check(l)
	}
}
