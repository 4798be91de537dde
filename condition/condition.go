// Package condition models the user search condition: mode, type, step,
// two operand values and a small text buffer, plus the diagnostic
// summary string used by external callers.
package condition

import (
	"encoding/binary"
	"fmt"

	"github.com/tomvita/Breezehand-Overlay-sub000/scantype"
)

// Mode is the closed enumeration of search predicate tokens, ordered to
// match the legacy on-disk mode numbering (recovered from the original
// kModeNames index-by-value table) so header bytes produced by either
// implementation stay interchangeable. Only a subset of these are ever
// executed by the scan engine; the rest are recognized for header
// validation and display only (see scan.IsModeSupported).
type Mode int32

const (
	EQ      Mode = 0  // "==A"
	NE      Mode = 1  // "!=A"
	GT      Mode = 2  // ">A"
	LT      Mode = 3  // "<A"
	GE      Mode = 4  // ">=A"
	LE      Mode = 5  // "<=A"
	RangeEQ Mode = 6  // "[A..B]"
	BMEQ    Mode = 7  // "&B=A"
	RangeLT Mode = 8  // "<A..B>"
	MORE    Mode = 9  // "++"
	LESS    Mode = 10 // "--"
	DIFF    Mode = 11 // "DIFF"
	SAME    Mode = 12 // "SAME"

	// The following are recognized display-only tokens: the header
	// validator accepts them as in-range, but scan.IsModeSupported
	// rejects them at dispatch for both passes.
	rangeABBracket  Mode = 13 // "[A,B]"
	rangeABBracket2 Mode = 14 // "[A,,B]"
	stringMode      Mode = 15 // "STRING"

	IncBy      Mode = 16 // "++Val"
	DecBy      Mode = 17 // "--Val"
	EQPlus     Mode = 18 // "==*A"
	EQPlusPlus Mode = 19 // "==**A"

	noneMode             Mode = 20 // "NONE"
	diffB                Mode = 21 // "DIFFB"
	sameB                Mode = 22 // "SAMEB"
	moreB                Mode = 23 // "B++"
	lessB                Mode = 24 // "B--"
	notAB                Mode = 25 // "NotAB"
	rangeABC             Mode = 26 // "[A.B.C]"
	bitflipAB            Mode = 27 // "[A bflip B]"
	advance              Mode = 28 // "Advance"
	gap                  Mode = 29 // "GAP"
	gapBraces            Mode = 30 // "{GAP}"

	PTR       Mode = 31 // "PTR"
	NPTR      Mode = 32 // "~PTR"
	NoDecimal Mode = 33 // "[A..B]f.0"

	gen2Data            Mode = 34 // "Gen2 data"
	gen2Code            Mode = 35 // "Gen2 code"
	getB                Mode = 36 // "GETB"
	rebase              Mode = 37 // "REBASE"
	target              Mode = 38 // "Target"
	ptrAndOffset        Mode = 39 // "ptr and offset"
	skip                Mode = 40 // "skip"
	abortedTargetSearch Mode = 41 // "Aborted Target Search"
	branchCode          Mode = 42 // "Branch code"
	ldrxCode            Mode = 43 // "LDRx code"
	adrpCode            Mode = 44 // "ADRP code"
	eorCode             Mode = 45 // "EOR code"
	getBEqA             Mode = 46 // "GETB==A"
)

// ModeNames is the fixed name table indexed by Mode, matching the
// original's kModeNames table verbatim (including names for modes the
// engine never executes). Index access past the table yields "unknown".
var ModeNames = []string{
	"==A", "!=A", ">A", "<A", ">=A", "<=A", "[A..B]", "&B=A", "<A..B>",
	"++", "--", "DIFF", "SAME", "[A,B]", "[A,,B]", "STRING", "++Val",
	"--Val", "==*A", "==**A", "NONE", "DIFFB", "SAMEB", "B++", "B--",
	"NotAB", "[A.B.C]", "[A bflip B]", "Advance", "GAP", "{GAP}", "PTR",
	"~PTR", "[A..B]f.0", "Gen2 data", "Gen2 code", "GETB", "REBASE",
	"Target", "ptr and offset", "skip", "Aborted Target Search",
	"Branch code", "LDRx code", "ADRP code", "EOR code", "GETB==A",
}

// maxKnownMode is the highest Mode value a file header may declare
// without failing validation (the original's kMaxKnownMode).
var maxKnownMode = Mode(len(ModeNames) - 1)

// Valid reports whether m falls within the declared enum range accepted
// by header validation. This is a larger range than the set of modes
// the scan engine actually executes (see scan.IsModeSupported).
func (m Mode) Valid() bool {
	return m >= EQ && m <= maxKnownMode
}

// Name returns the diagnostic name for m, or "unknown" if out of range.
func (m Mode) Name() string {
	if m < 0 || int(m) >= len(ModeNames) {
		return "unknown"
	}
	return ModeNames[m]
}

// valueBufSize is large enough to hold an f64 operand.
const valueBufSize = 8

// Condition is the user search condition: mode, type, step, two operand
// values, and a small text buffer. Operand bytes are stored in a
// fixed-size buffer and interpreted through scantype.LoadUnaligned at
// the condition's declared Type.
type Condition struct {
	Mode       Mode
	Type       scantype.Type
	Step       int32
	ValueA     [valueBufSize]byte
	ValueB     [valueBufSize]byte
	SearchText [searchTextSize]byte
	TextLen    int32
}

// SetValueA stores an operand of type T into ValueA at T's own byte
// width; c.Type is not consulted.
func SetValueA[T scantype.Scalar](c *Condition, v T) {
	scantype.PutUnaligned(c.ValueA[:], 0, v)
}

// SetValueB stores an operand of type T into ValueB.
func SetValueB[T scantype.Scalar](c *Condition, v T) {
	scantype.PutUnaligned(c.ValueB[:], 0, v)
}

// ValueAAs interprets ValueA as T.
func ValueAAs[T scantype.Scalar](c *Condition) T {
	return scantype.LoadUnaligned[T](c.ValueA[:], 0)
}

// ValueBAs interprets ValueB as T.
func ValueBAs[T scantype.Scalar](c *Condition) T {
	return scantype.LoadUnaligned[T](c.ValueB[:], 0)
}

// OperandAAsU32 extracts ValueA as a u32 the way EQ+/EQ++ modes require.
func (c *Condition) OperandAAsU32() uint32 {
	return scantype.OperandAsU32(c.Type, c.ValueA[:])
}

// Summary produces a diagnostic line of the form
// "type=<n> mode=<name> step=<n>".
func Summary(c Condition) string {
	return fmt.Sprintf("type=%d mode=%s step=%d", int32(c.Type), c.Mode.Name(), c.Step)
}

// searchTextSize is the fixed size of Condition.SearchText.
const searchTextSize = 64

// EncodedSize is the fixed on-disk byte size of a marshaled Condition:
// mode(4) + type(4) + step(4) + valueA(8) + valueB(8) + searchText(64) + textLen(4).
const EncodedSize = 4 + 4 + 4 + valueBufSize + valueBufSize + searchTextSize + 4

// MarshalBinary encodes c in the fixed layout embedded in a candidate
// file header.
func (c Condition) MarshalBinary() ([]byte, error) {
	buf := make([]byte, EncodedSize)
	off := 0
	binary.LittleEndian.PutUint32(buf[off:], uint32(c.Mode))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(c.Type))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(c.Step))
	off += 4
	copy(buf[off:], c.ValueA[:])
	off += valueBufSize
	copy(buf[off:], c.ValueB[:])
	off += valueBufSize
	copy(buf[off:], c.SearchText[:])
	off += len(c.SearchText)
	binary.LittleEndian.PutUint32(buf[off:], uint32(c.TextLen))
	return buf, nil
}

// UnmarshalBinary decodes c from EncodedSize bytes produced by MarshalBinary.
func (c *Condition) UnmarshalBinary(data []byte) error {
	if len(data) < EncodedSize {
		return fmt.Errorf("condition: short buffer: have %d want %d", len(data), EncodedSize)
	}
	off := 0
	c.Mode = Mode(int32(binary.LittleEndian.Uint32(data[off:])))
	off += 4
	c.Type = scantype.Type(int32(binary.LittleEndian.Uint32(data[off:])))
	off += 4
	c.Step = int32(binary.LittleEndian.Uint32(data[off:]))
	off += 4
	copy(c.ValueA[:], data[off:off+valueBufSize])
	off += valueBufSize
	copy(c.ValueB[:], data[off:off+valueBufSize])
	off += valueBufSize
	copy(c.SearchText[:], data[off:off+len(c.SearchText)])
	off += len(c.SearchText)
	c.TextLen = int32(binary.LittleEndian.Uint32(data[off:]))
	return nil
}
