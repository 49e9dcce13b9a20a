package registry

import "fmt"

// checkpointLog is an append-only sequence of checkpoints over block numbers.
// A closed entry at position i covers blocks in
// (entries[i-1].ValidUntil, entries[i].ValidUntil]; an open entry covers
// everything after its predecessor. Two changes at the same height produce a
// zero-width closed entry that no block can address.
type checkpointLog struct {
	entries []IndexCheckpoint
}

// assign closes the open tail entry, if any, and appends a new open entry
// recording value.
func (l *checkpointLog) assign(value uint32, now BlockNumber) {
	l.closeTail(now)
	l.entries = append(l.entries, IndexCheckpoint{Index: value})
}

// closeTail stamps the open tail entry with now. No-op when the log is empty
// or already closed.
func (l *checkpointLog) closeTail(now BlockNumber) {
	if n := len(l.entries); n > 0 && l.entries[n-1].Open() {
		l.entries[n-1].ValidUntil = now
	}
}

// latest returns the open tail entry, if any.
func (l *checkpointLog) latest() (IndexCheckpoint, bool) {
	if n := len(l.entries); n > 0 && l.entries[n-1].Open() {
		return l.entries[n-1], true
	}
	return IndexCheckpoint{}, false
}

// lookup returns the value recorded at log position hint iff that entry's
// interval contains block. The caller supplies the exact position; the log
// validates it and does not search.
func (l *checkpointLog) lookup(block BlockNumber, hint uint32) (uint32, error) {
	if uint64(hint) >= uint64(len(l.entries)) {
		return 0, fmt.Errorf("%w: hint %d, log length %d", ErrIndexOutOfBounds, hint, len(l.entries))
	}
	entry := l.entries[hint]
	if !entry.Open() && block > entry.ValidUntil {
		return 0, fmt.Errorf("%w: block %d after valid_until %d", ErrOutOfRangeLookup, block, entry.ValidUntil)
	}
	if hint > 0 && block <= l.entries[hint-1].ValidUntil {
		return 0, fmt.Errorf("%w: block %d within or before preceding entry", ErrOutOfRangeLookup, block)
	}
	return entry.Index, nil
}

func (l *checkpointLog) length() uint32 {
	return uint32(len(l.entries))
}
