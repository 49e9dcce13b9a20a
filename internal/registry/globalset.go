package registry

import "fmt"

// globalOperatorSet is the ordered set of every operator currently registered
// into at least one quorum. Order is insertion order except where swap
// removal has relocated the tail; membership, not order, is the contract.
type globalOperatorSet struct {
	ops []OperatorID
}

// add appends op. Fails when op is already present.
func (s *globalOperatorSet) add(op OperatorID) error {
	if _, err := s.indexOf(op); err == nil {
		return fmt.Errorf("%w: %s", ErrDuplicateOperator, op)
	}
	s.ops = append(s.ops, op)
	return nil
}

// removeAt vacates slot index by moving the tail element into it and
// shrinking the set by one. Returns the relocated operator when the vacated
// slot was not the tail.
func (s *globalOperatorSet) removeAt(index uint32) (OperatorID, bool, error) {
	n := uint32(len(s.ops))
	if index >= n {
		return OperatorID{}, false, fmt.Errorf("%w: global index %d, length %d", ErrIndexOutOfBounds, index, n)
	}
	last := n - 1
	var moved OperatorID
	swapped := false
	if index != last {
		moved = s.ops[last]
		s.ops[index] = moved
		swapped = true
	}
	s.ops = s.ops[:last]
	return moved, swapped, nil
}

// indexOf scans for op. Linear scan; the set holds live operators only, and
// hinted historical lookups never come through here.
func (s *globalOperatorSet) indexOf(op OperatorID) (uint32, error) {
	for i, cur := range s.ops {
		if cur == op {
			return uint32(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrNotFound, op)
}

// at returns the operator occupying slot index.
func (s *globalOperatorSet) at(index uint32) (OperatorID, error) {
	if index >= uint32(len(s.ops)) {
		return OperatorID{}, fmt.Errorf("%w: global index %d, length %d", ErrIndexOutOfBounds, index, len(s.ops))
	}
	return s.ops[index], nil
}

func (s *globalOperatorSet) length() uint32 {
	return uint32(len(s.ops))
}
