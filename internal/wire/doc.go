// Package wire owns the binary journal record contract.
//
// Ownership boundary:
// - record header and checksum primitives
// - tlv payload primitives
//
// Records are self-delimiting and CRC-trailed so journal replay can reject
// torn or corrupted entries.
package wire
