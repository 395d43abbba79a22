// Package serialization saves and loads Functions in the binary graphcore
// model format (.bgcf).
//
//	Format structure:
//	  [0x00: Magic "BGCF"]
//	  [0x04: Version (uint32 LE)]
//	  [0x08: Flags (uint32 LE)]
//	  [0x0C: Reserved]
//	  [0x10: Header size (uint64 LE)]
//	  [0x18: Data size (uint64 LE)]
//	  [0x20: SHA-256 of the data section (32 bytes)]
//	  [0x40: Header: JSON graph description]
//	  [Data: parameter and constant bytes, each tensor 64-byte aligned]
//
// The JSON header lists every leaf Variable, every primitive Function in
// evaluation order and, for composite roots, the root Function itself.
// Loading rebuilds the graph with the saved uids and re-infers output
// types, so a loaded Function is structurally identical to the saved one.
//
// Every failure to decode is reported as ErrPersistenceFormat, wrapping
// a more specific cause such as ErrInvalidMagic or ErrChecksumMismatch.
package serialization
