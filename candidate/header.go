// Package candidate implements the Breeze candidate file format: a
// fixed header describing the search that produced it, followed by a
// packed (address, value) record payload and an optional screenshot
// blob. See spec §3 and §6 for the exact on-disk layout.
package candidate

import (
	"github.com/tomvita/Breezehand-Overlay-sub000/condition"
	"github.com/tomvita/Breezehand-Overlay-sub000/procmeta"
)

// Magic and terminator are fixed literals every header carries.
const (
	Magic      = "BREEZE00E"
	Terminator = "HEADER@"

	magicFieldSize      = 10
	terminatorFieldSize = 8
	preFilenameSize     = 100
	filenameSize        = 83

	// ScreenshotBytes is the fixed size of the optional screenshot blob.
	ScreenshotBytes = 0x384000

	// RecordSize is sizeof(Record): u64 address + u64 value.
	RecordSize = 16
)

// FileType is the enumerated header file-type tag.
type FileType int32

const (
	FullDump FileType = iota
	Address
	AddressData
	FromTo32MainToHeap
	FromTo32MainToMain
	FromTo32HeapToHeap
	FromTo64
	Bookmark
	SearchMission
	Undefined
	AdvSearchList
)

// maxFileType is the highest declared FileType value.
const maxFileType = AdvSearchList

// Valid reports whether ft is within the declared enum range.
func (ft FileType) Valid() bool {
	return ft >= FullDump && ft <= maxFileType
}

// SearchStep marks whether a header was produced by a primary or
// secondary (continue) pass.
type SearchStep uint8

const (
	StepPrimary SearchStep = iota
	StepSecondary
)

// Header is the fixed-size candidate file header, byte-exact with the
// original BreezeFileHeader_t layout.
type Header struct {
	Magic          [magicFieldSize]byte
	FileType       FileType
	PreFilename    [preFilenameSize]byte
	Filename       [filenameSize]byte
	PtrSearchRange uint16
	TimeTakenSec   uint8
	BitMask        uint8
	CurrentLevel   uint8
	NewTargets     uint32
	FromToSize     uint64
	Condition      condition.Condition
	Metadata       procmeta.Metadata
	Compressed     bool
	HasScreenshot  bool
	DataSize       uint64
	Terminator     [terminatorFieldSize]byte
}

// NewHeader builds a header with the magic/terminator fields populated
// and FileType defaulted to Undefined, matching the original struct's
// default member initializers.
func NewHeader() Header {
	var h Header
	copy(h.Magic[:], Magic)
	copy(h.Terminator[:], Terminator)
	h.FileType = Undefined
	return h
}

// SetPreFilename stores s into PreFilename, NUL-padded/truncated to fit.
func (h *Header) SetPreFilename(s string) {
	setFixedString(h.PreFilename[:], s)
}

// SetFilename stores s into Filename, NUL-padded/truncated to fit.
func (h *Header) SetFilename(s string) {
	setFixedString(h.Filename[:], s)
}

func setFixedString(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	n := copy(dst, s)
	_ = n
}

func fixedString(src []byte) string {
	n := 0
	for n < len(src) && src[n] != 0 {
		n++
	}
	return string(src[:n])
}

// PreFilenameString returns the NUL-terminated PreFilename as a string.
func (h *Header) PreFilenameString() string {
	return fixedString(h.PreFilename[:])
}

// FilenameString returns the NUL-terminated Filename as a string.
func (h *Header) FilenameString() string {
	return fixedString(h.Filename[:])
}

// fixedFieldsSize is the byte size of every fixed-width header field
// other than the embedded Condition/Metadata blobs:
// magic + filetype(4) + prefilename + filename + ptr_search_range(2) +
// time_taken(1) + bit_mask(1) + current_level(1) + new_targets(4) +
// from_to_size(8) + compressed(1) + has_screenshot(1) + data_size(8) + terminator.
const fixedFieldsSize = magicFieldSize + 4 + preFilenameSize + filenameSize + 2 + 1 + 1 + 1 + 4 + 8 + 1 + 1 + 8 + terminatorFieldSize

// HeaderSize is the fixed total on-disk byte size of a Header.
const HeaderSize = fixedFieldsSize + condition.EncodedSize + procmeta.EncodedSize
