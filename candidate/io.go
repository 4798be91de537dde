package candidate

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/glog"

	"github.com/tomvita/Breezehand-Overlay-sub000/breezeerr"
	"github.com/tomvita/Breezehand-Overlay-sub000/condition"
)

// MarshalBinary encodes h into the fixed HeaderSize-byte on-disk layout
// described in spec §6, field by field, independent of Go struct
// alignment rules.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	off := 0

	copy(buf[off:], h.Magic[:])
	off += magicFieldSize

	binary.LittleEndian.PutUint32(buf[off:], uint32(h.FileType))
	off += 4

	copy(buf[off:], h.PreFilename[:])
	off += preFilenameSize

	copy(buf[off:], h.Filename[:])
	off += filenameSize

	binary.LittleEndian.PutUint16(buf[off:], h.PtrSearchRange)
	off += 2

	buf[off] = h.TimeTakenSec
	off++
	buf[off] = h.BitMask
	off++
	buf[off] = h.CurrentLevel
	off++

	binary.LittleEndian.PutUint32(buf[off:], h.NewTargets)
	off += 4

	binary.LittleEndian.PutUint64(buf[off:], h.FromToSize)
	off += 8

	condBytes, err := h.Condition.MarshalBinary()
	if err != nil {
		return nil, err
	}
	copy(buf[off:], condBytes)
	off += condition.EncodedSize

	metaBytes, err := h.Metadata.MarshalBinary()
	if err != nil {
		return nil, err
	}
	copy(buf[off:], metaBytes)
	off += len(metaBytes)

	buf[off] = boolByte(h.Compressed)
	off++
	buf[off] = boolByte(h.HasScreenshot)
	off++

	binary.LittleEndian.PutUint64(buf[off:], h.DataSize)
	off += 8

	copy(buf[off:], h.Terminator[:])

	return buf, nil
}

// UnmarshalBinary decodes h from HeaderSize bytes produced by MarshalBinary.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("candidate: short header buffer: have %d want %d", len(data), HeaderSize)
	}
	off := 0

	copy(h.Magic[:], data[off:off+magicFieldSize])
	off += magicFieldSize

	h.FileType = FileType(int32(binary.LittleEndian.Uint32(data[off:])))
	off += 4

	copy(h.PreFilename[:], data[off:off+preFilenameSize])
	off += preFilenameSize

	copy(h.Filename[:], data[off:off+filenameSize])
	off += filenameSize

	h.PtrSearchRange = binary.LittleEndian.Uint16(data[off:])
	off += 2

	h.TimeTakenSec = data[off]
	off++
	h.BitMask = data[off]
	off++
	h.CurrentLevel = data[off]
	off++

	h.NewTargets = binary.LittleEndian.Uint32(data[off:])
	off += 4

	h.FromToSize = binary.LittleEndian.Uint64(data[off:])
	off += 8

	if err := h.Condition.UnmarshalBinary(data[off : off+condition.EncodedSize]); err != nil {
		return err
	}
	off += condition.EncodedSize

	if err := h.Metadata.UnmarshalBinary(data[off:]); err != nil {
		return err
	}
	off += metadataEncodedSize()

	h.Compressed = data[off] != 0
	off++
	h.HasScreenshot = data[off] != 0
	off++

	h.DataSize = binary.LittleEndian.Uint64(data[off:])
	off += 8

	copy(h.Terminator[:], data[off:off+terminatorFieldSize])

	return nil
}

func metadataEncodedSize() int {
	return HeaderSize - fixedFieldsSize - condition.EncodedSize
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// Record is a single candidate (address, value) pair. value holds the
// bytes read at address at record time, little-endian, zero-padded for
// widths under 8. For EQ+/EQ++ the full 8 bytes at address are stored
// (so a u32 and a float/double reinterpretation remain available),
// meaning for scan types narrower than 8 bytes the extra bytes are
// memory beyond the candidate; display code must mask appropriately
// (see spec §9's open question — intentionally left unresolved here).
type Record struct {
	Address uint64
	Value   uint64
}

// MarshalBinary encodes r as 16 bytes: LE address, LE value.
func (r Record) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RecordSize)
	binary.LittleEndian.PutUint64(buf[0:], r.Address)
	binary.LittleEndian.PutUint64(buf[8:], r.Value)
	return buf, nil
}

// UnmarshalBinary decodes r from 16 bytes produced by MarshalBinary.
func (r *Record) UnmarshalBinary(data []byte) error {
	if len(data) < RecordSize {
		return fmt.Errorf("candidate: short record buffer: have %d want %d", len(data), RecordSize)
	}
	r.Address = binary.LittleEndian.Uint64(data[0:])
	r.Value = binary.LittleEndian.Uint64(data[8:])
	return nil
}

// ReadHeader opens path read-only, reads exactly one header, and
// validates it against the file's actual size. Failure reasons are
// surfaced via breezeerr with Kind Io or Format.
func ReadHeader(path string) (Header, error) {
	var h Header

	f, err := os.Open(path)
	if err != nil {
		return h, breezeerr.Wrap(breezeerr.Io, "failed to open file", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return h, breezeerr.Wrap(breezeerr.Io, "failed to stat file", err)
	}
	fileSize := info.Size()

	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return h, breezeerr.Wrap(breezeerr.Io, "failed to read header", err)
	}

	if err := h.UnmarshalBinary(buf); err != nil {
		return h, breezeerr.Wrap(breezeerr.Format, "failed to decode header", err)
	}

	if err := validateHeader(&h, fileSize); err != nil {
		return h, err
	}
	return h, nil
}

func validateHeader(h *Header, fileSize int64) error {
	if !bytes.Equal(h.Magic[:], []byte(Magic)) {
		return breezeerr.New(breezeerr.Format, "header magic mismatch")
	}
	if !bytes.Equal(h.Terminator[:], []byte(Terminator)) {
		return breezeerr.New(breezeerr.Format, "header terminator mismatch")
	}
	if !h.Condition.Mode.Valid() {
		return breezeerr.New(breezeerr.Format, "unsupported search mode in file")
	}
	if !h.Condition.Type.Valid() {
		return breezeerr.New(breezeerr.Format, "unsupported search type in file")
	}
	if int(h.Condition.TextLen) >= len(h.Condition.SearchText) {
		return breezeerr.New(breezeerr.Format, "search string length out of range")
	}

	screenshotSize := int64(0)
	if h.HasScreenshot {
		screenshotSize = ScreenshotBytes
	}
	expectedSize := int64(HeaderSize) + int64(h.DataSize) + screenshotSize
	if fileSize != expectedSize {
		return breezeerr.New(breezeerr.Format, "file size does not match header")
	}
	return nil
}

// OpenForWrite creates the target directory (idempotent), opens path
// truncating, and writes header as the current (zero-data-size) blob.
// The returned handle is positioned for streaming record payload; the
// caller must call FinalizeHeader (or otherwise rewrite the header)
// before closing so data_size/time_taken_seconds persist.
func OpenForWrite(path string, header Header) (*os.File, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, breezeerr.Wrap(breezeerr.Io, "failed to create candidate directory", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, breezeerr.Wrap(breezeerr.Io, "failed to open output candidate file", err)
	}

	buf, err := header.MarshalBinary()
	if err != nil {
		f.Close()
		return nil, breezeerr.Wrap(breezeerr.Internal, "failed to encode candidate header", err)
	}
	if _, err := f.Write(buf); err != nil {
		f.Close()
		return nil, breezeerr.Wrap(breezeerr.Io, "failed to write candidate header", err)
	}
	return f, nil
}

// FinalizeHeader seeks f back to the start and rewrites header, then
// flushes. Call this on every exit path (success or failure) so a
// killed run leaves either the initial zero-data-size header or a
// correctly finalized one, never a torn header.
func FinalizeHeader(f *os.File, header Header) error {
	buf, err := header.MarshalBinary()
	if err != nil {
		return breezeerr.Wrap(breezeerr.Internal, "failed to encode candidate header", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return breezeerr.Wrap(breezeerr.Io, "failed to seek output header", err)
	}
	if _, err := f.Write(buf); err != nil {
		return breezeerr.Wrap(breezeerr.Io, "failed to rewrite output header", err)
	}
	return f.Sync()
}

// FlushRecords writes records to f in order, advancing the file
// position; entriesWritten/bytesWritten let the caller accumulate
// SearchRunStats across multiple flushes.
func FlushRecords(f *os.File, records []Record) (entriesWritten, bytesWritten uint64, err error) {
	if len(records) == 0 {
		return 0, 0, nil
	}
	buf := make([]byte, len(records)*RecordSize)
	for i, r := range records {
		enc, _ := r.MarshalBinary()
		copy(buf[i*RecordSize:], enc)
	}
	n, err := f.Write(buf)
	if err != nil {
		return 0, 0, breezeerr.Wrap(breezeerr.Io, "failed to write candidate records", err)
	}
	if n != len(buf) {
		return 0, 0, breezeerr.New(breezeerr.Io, "short write of candidate records")
	}
	glog.V(2).Infof("flushed %d candidate records (%d bytes)", len(records), n)
	return uint64(len(records)), uint64(n), nil
}
