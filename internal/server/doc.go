// Package server owns the HTTP surface of the index registry.
//
// Ownership boundary:
// - request parsing and error-to-status mapping
// - coordinator auth on mutating routes
// - journaling applied mutations
//
// Server does not own index assignment semantics; those live in registry.
package server
