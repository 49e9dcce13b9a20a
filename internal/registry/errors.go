package registry

import "errors"

var (
	ErrDuplicateOperator    = errors.New("registry: operator already registered")
	ErrInvalidSwapCandidate = errors.New("registry: swap candidate does not hold the quorum's last index")
	ErrLengthMismatch       = errors.New("registry: quorum and swap operator lists differ in length")
	ErrOutOfRangeLookup     = errors.New("registry: hint does not bracket the requested block")
	ErrIndexOutOfBounds     = errors.New("registry: index exceeds length")
	ErrNotFound             = errors.New("registry: operator not found")
	ErrGlobalIndexMismatch  = errors.New("registry: global slot does not hold the departing operator")
	ErrStaleBlock           = errors.New("registry: block number below last applied block")
	ErrInvalidBlock         = errors.New("registry: block number zero is reserved")
	ErrInvalidQuorums       = errors.New("registry: quorum list empty or not strictly ascending")
)
