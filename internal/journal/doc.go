// Package journal owns durable persistence of registry mutations.
//
// Ownership boundary:
// - append-only, sequence-numbered record storage on badger
// - replay into a registry at startup
//
// The journal stores records exactly as the wire package encodes them;
// sequence gaps and checksum failures abort replay.
package journal
