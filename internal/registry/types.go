package registry

import (
	"encoding/hex"
	"fmt"
)

// OperatorIDLen is the fixed byte length of an operator identifier.
const OperatorIDLen = 32

// OperatorID is an opaque fixed-size operator identifier.
type OperatorID [OperatorIDLen]byte

// String renders the identifier as lowercase hex.
func (id OperatorID) String() string {
	return hex.EncodeToString(id[:])
}

// OperatorIDFromHex parses a lowercase or uppercase hex identifier, with or
// without a 0x prefix.
func OperatorIDFromHex(s string) (OperatorID, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	var id OperatorID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return OperatorID{}, fmt.Errorf("registry: invalid operator id: %w", err)
	}
	if len(raw) != OperatorIDLen {
		return OperatorID{}, fmt.Errorf("registry: invalid operator id length: %d", len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// OperatorIDFromBytes copies a raw 32-byte identifier.
func OperatorIDFromBytes(b []byte) (OperatorID, error) {
	var id OperatorID
	if len(b) != OperatorIDLen {
		return OperatorID{}, fmt.Errorf("registry: invalid operator id length: %d", len(b))
	}
	copy(id[:], b)
	return id, nil
}

// QuorumNumber identifies one quorum. Quorums are independent namespaces.
type QuorumNumber uint8

// BlockNumber is the logical clock axis for checkpoint history. Logical
// time starts at 1: zero is reserved as the open-checkpoint sentinel, so
// mutations at block 0 are rejected. It never decreases between successive
// registry mutations, but may repeat within one height.
type BlockNumber uint64

// IndexCheckpoint is one entry in a checkpoint log. For operator logs the
// Index field holds the quorum index; for size logs it holds the quorum
// operator count after the change.
type IndexCheckpoint struct {
	Index      uint32
	ValidUntil BlockNumber
}

// Open reports whether the checkpoint is the current (unclosed) entry.
func (c IndexCheckpoint) Open() bool {
	return c.ValidUntil == 0
}
