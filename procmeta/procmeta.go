// Package procmeta models the process metadata and memory-map entries
// supplied by the platform's cheat service. The core treats process
// metadata as opaque except for the four heap/main extent numbers it
// needs for the PTR/NPTR predicates.
package procmeta

import (
	"encoding/binary"
	"fmt"
)

// Extent is a base+size memory region.
type Extent struct {
	Base uint64
	Size uint64
}

// End returns the exclusive end address of the extent.
func (e Extent) End() uint64 {
	return e.Base + e.Size
}

// Contains reports whether addr lies within [Base, End).
func (e Extent) Contains(addr uint64) bool {
	return addr >= e.Base && addr < e.End()
}

// Metadata is the process metadata supplied by the external process
// service. The core only interprets HeapExtent/MainExtent; TitleID,
// BuildID and the rest are carried opaquely in and out of the candidate
// file header.
type Metadata struct {
	TitleID    uint64
	BuildID    [32]byte
	HeapExtent Extent
	MainExtent Extent
}

// MemoryInfo describes one mapped region returned by a memory-map query,
// mirroring the platform's MemoryInfo{addr, size, perm}.
type MemoryInfo struct {
	Addr uint64
	Size uint64
	Perm Permission
}

// Permission is a bitmask of memory protection flags.
type Permission uint32

const (
	PermRead Permission = 1 << iota
	PermWrite
	PermExecute
)

// Readable reports whether the read bit is set.
func (p Permission) Readable() bool {
	return p&PermRead != 0
}

// End returns the exclusive end address of the region.
func (m MemoryInfo) End() uint64 {
	return m.Addr + m.Size
}

// buildIDSize is the fixed size of Metadata.BuildID.
const buildIDSize = 32

// EncodedSize is the fixed on-disk byte size of a marshaled Metadata:
// titleID(8) + buildID(32) + heapBase(8) + heapSize(8) + mainBase(8) + mainSize(8).
const EncodedSize = 8 + buildIDSize + 8 + 8 + 8 + 8

// MarshalBinary encodes m in the fixed layout embedded in a candidate
// file header. The core treats this blob as opaque except for the
// extent fields it needs for PTR/NPTR.
func (m Metadata) MarshalBinary() ([]byte, error) {
	buf := make([]byte, EncodedSize)
	off := 0
	binary.LittleEndian.PutUint64(buf[off:], m.TitleID)
	off += 8
	copy(buf[off:], m.BuildID[:])
	off += buildIDSize
	binary.LittleEndian.PutUint64(buf[off:], m.HeapExtent.Base)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], m.HeapExtent.Size)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], m.MainExtent.Base)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], m.MainExtent.Size)
	return buf, nil
}

// UnmarshalBinary decodes m from EncodedSize bytes produced by MarshalBinary.
func (m *Metadata) UnmarshalBinary(data []byte) error {
	if len(data) < EncodedSize {
		return fmt.Errorf("procmeta: short buffer: have %d want %d", len(data), EncodedSize)
	}
	off := 0
	m.TitleID = binary.LittleEndian.Uint64(data[off:])
	off += 8
	copy(m.BuildID[:], data[off:off+buildIDSize])
	off += buildIDSize
	m.HeapExtent.Base = binary.LittleEndian.Uint64(data[off:])
	off += 8
	m.HeapExtent.Size = binary.LittleEndian.Uint64(data[off:])
	off += 8
	m.MainExtent.Base = binary.LittleEndian.Uint64(data[off:])
	off += 8
	m.MainExtent.Size = binary.LittleEndian.Uint64(data[off:])
	return nil
}
