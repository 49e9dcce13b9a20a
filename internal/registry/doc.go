// Package registry owns quorum index assignment and its history.
//
// Ownership boundary:
// - per-(operator, quorum) index checkpoint logs
// - per-quorum size checkpoint logs
// - global operator set with swap-with-last removal
//
// The registry validates caller-supplied hints (swap candidates, global
// slots, lookup positions); it never searches on the caller's behalf.
//
// Checkpoint intervals are closed-inclusive: an entry closed at block B
// still answers lookups at B, and its successor answers from B+1 onward.
// Logical time starts at block 1.
//
// Registry does not own authorization or durability.
package registry
