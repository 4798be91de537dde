package scan

import (
	"math"

	"github.com/tomvita/Breezehand-Overlay-sub000/condition"
	"github.com/tomvita/Breezehand-Overlay-sub000/procmeta"
	"github.com/tomvita/Breezehand-Overlay-sub000/scantype"
)

// primaryWindowScanner evaluates every candidate offset in one filled
// scan window and emits matches via emit. It is built once per run by
// resolvePrimaryScanner so the hot loop inside it carries no branch on
// mode or type: the returned closure's loop body is strictly the
// unaligned load, the predicate, and the emit-on-match.
type primaryWindowScanner func(window []byte, readAddr uint64, cond condition.Condition, meta procmeta.Metadata, emit func(addr uint64, value []byte))

// secondaryWindowScanner evaluates every candidate in a batched window
// of source records against freshly-read memory bytes indexed at
// addr-base, emitting survivors via emit.
type secondaryWindowScanner func(window []byte, base uint64, records []sourceRecord, cond condition.Condition, meta procmeta.Metadata, emit func(addr uint64, value []byte))

// sourceRecord is a candidate read back from the source file during a
// secondary pass: its address and its previously recorded value.
type sourceRecord struct {
	Address  uint64
	Previous uint64
}

// candidateStep distinguishes primary vs secondary pass mode support,
// mirroring candidate.SearchStep without importing the candidate
// package here.
type candidateStep = uint8

const (
	stepPrimary   candidateStep = 0
	stepSecondary candidateStep = 1
)

// IsModeSupported reports whether mode is executable for the given
// pass. Several mode tokens the header format accepts (see condition's
// unexported display-only constants, e.g. rangeABBracket, gen2Data)
// are recognized syntactically but never dispatched for execution.
func IsModeSupported(m condition.Mode, step candidateStep) bool {
	switch m {
	case condition.EQ, condition.NE, condition.GT, condition.LT, condition.GE, condition.LE,
		condition.RangeEQ, condition.RangeLT, condition.BMEQ, condition.EQPlus, condition.EQPlusPlus,
		condition.PTR, condition.NPTR, condition.NoDecimal:
		return true
	case condition.MORE, condition.LESS, condition.DIFF, condition.SAME, condition.IncBy, condition.DecBy:
		return step == stepSecondary
	default:
		return false
	}
}

func resolvePrimaryScanner(t scantype.Type, m condition.Mode) (primaryWindowScanner, bool) {
	switch m {
	case condition.EQ:
		return buildOrderedScanner(t, func(c int) bool { return c == 0 })
	case condition.NE:
		return buildOrderedScanner(t, func(c int) bool { return c != 0 })
	case condition.GT:
		return buildOrderedScanner(t, func(c int) bool { return c > 0 })
	case condition.LT:
		return buildOrderedScanner(t, func(c int) bool { return c < 0 })
	case condition.GE:
		return buildOrderedScanner(t, func(c int) bool { return c >= 0 })
	case condition.LE:
		return buildOrderedScanner(t, func(c int) bool { return c <= 0 })
	case condition.RangeEQ:
		return buildRangeScanner(t, true)
	case condition.RangeLT:
		return buildRangeScanner(t, false)
	case condition.BMEQ:
		return buildBMEQScanner(t)
	case condition.EQPlus:
		return buildEQPlusScanner(false), true
	case condition.EQPlusPlus:
		return buildEQPlusScanner(true), true
	case condition.PTR:
		return buildPointerClassScanner(t, true)
	case condition.NPTR:
		return buildPointerClassScanner(t, false)
	case condition.NoDecimal:
		return buildNoDecimalScanner(t)
	default:
		return nil, false
	}
}

func resolveSecondaryScanner(t scantype.Type, m condition.Mode) (secondaryWindowScanner, bool) {
	switch m {
	case condition.EQ:
		return buildOrderedSecondary(t, func(c int) bool { return c == 0 })
	case condition.NE:
		return buildOrderedSecondary(t, func(c int) bool { return c != 0 })
	case condition.GT:
		return buildOrderedSecondary(t, func(c int) bool { return c > 0 })
	case condition.LT:
		return buildOrderedSecondary(t, func(c int) bool { return c < 0 })
	case condition.GE:
		return buildOrderedSecondary(t, func(c int) bool { return c >= 0 })
	case condition.LE:
		return buildOrderedSecondary(t, func(c int) bool { return c <= 0 })
	case condition.RangeEQ:
		return buildRangeSecondary(t, true)
	case condition.RangeLT:
		return buildRangeSecondary(t, false)
	case condition.BMEQ:
		return buildBMEQSecondary(t)
	case condition.EQPlus:
		return buildEQPlusSecondary(false), true
	case condition.EQPlusPlus:
		return buildEQPlusSecondary(true), true
	case condition.PTR:
		return buildPointerClassSecondary(t, true)
	case condition.NPTR:
		return buildPointerClassSecondary(t, false)
	case condition.NoDecimal:
		return buildNoDecimalSecondary(t)
	case condition.MORE:
		return buildPrevCompareSecondary(t, func(c int) bool { return c > 0 })
	case condition.LESS:
		return buildPrevCompareSecondary(t, func(c int) bool { return c < 0 })
	case condition.DIFF:
		return buildPrevCompareSecondary(t, func(c int) bool { return c != 0 })
	case condition.SAME:
		return buildPrevCompareSecondary(t, func(c int) bool { return c == 0 })
	case condition.IncBy:
		return buildIncDecSecondary(t, true), true
	case condition.DecBy:
		return buildIncDecSecondary(t, false), true
	default:
		return nil, false
	}
}

// --- ordered comparisons (EQ/NE/GT/LT/GE/LE): generic per scalar type ---

// cmpResult classifies v against a for every ordered mode at once,
// including the NaN case (every ordered comparison, EQ through NE,
// is false when either operand is NaN).
type cmpResult struct {
	eq, ne, gt, lt, ge, le bool
}

func compare[T scantype.Scalar](v, a T) cmpResult {
	switch {
	case v < a:
		return cmpResult{lt: true, ne: true, le: true}
	case v > a:
		return cmpResult{gt: true, ne: true, ge: true}
	case v == a:
		return cmpResult{eq: true, ge: true, le: true}
	default:
		return cmpResult{}
	}
}

func runOrderedGeneric[T scantype.Scalar](sel func(cmpResult) bool) primaryWindowScanner {
	return func(window []byte, readAddr uint64, cond condition.Condition, meta procmeta.Metadata, emit func(uint64, []byte)) {
		a := condition.ValueAAs[T](&cond)
		w := scantype.ByteWidth(cond.Type)
		step := scantype.ScanStep(cond.Type)
		readSize := len(window)
		for off := 0; off+w <= readSize; off += step {
			v := scantype.LoadUnaligned[T](window, off)
			if sel(compare(v, a)) {
				raw := make([]byte, 8)
				scantype.PutUnaligned(raw, 0, v)
				emit(readAddr+uint64(off), raw)
			}
		}
	}
}

func selectorForSign(sign func(int) bool) func(cmpResult) bool {
	return func(c cmpResult) bool {
		switch {
		case c.eq:
			return sign(0)
		case c.lt:
			return sign(-1)
		case c.gt:
			return sign(1)
		default: // NaN: every ordered comparator is false except NE, which is also false per spec.
			return false
		}
	}
}

func buildOrderedScanner(t scantype.Type, sign func(int) bool) (primaryWindowScanner, bool) {
	sel := selectorForSign(sign)
	switch t {
	case scantype.U8:
		return runOrderedGeneric[uint8](sel), true
	case scantype.S8:
		return runOrderedGeneric[int8](sel), true
	case scantype.U16:
		return runOrderedGeneric[uint16](sel), true
	case scantype.S16:
		return runOrderedGeneric[int16](sel), true
	case scantype.U32:
		return runOrderedGeneric[uint32](sel), true
	case scantype.S32:
		return runOrderedGeneric[int32](sel), true
	case scantype.U64, scantype.Pointer, scantype.U40:
		return runOrderedGeneric[uint64](sel), true
	case scantype.S64:
		return runOrderedGeneric[int64](sel), true
	case scantype.F32:
		return runOrderedGeneric[float32](sel), true
	case scantype.F64:
		return runOrderedGeneric[float64](sel), true
	default:
		return nil, false
	}
}

// --- range comparisons (RANGE_EQ: a<=v<=b, RANGE_LT: a<v<b) ---

func runRangeGeneric[T scantype.Scalar](closed bool) primaryWindowScanner {
	return func(window []byte, readAddr uint64, cond condition.Condition, meta procmeta.Metadata, emit func(uint64, []byte)) {
		a := condition.ValueAAs[T](&cond)
		b := condition.ValueBAs[T](&cond)
		w := scantype.ByteWidth(cond.Type)
		step := scantype.ScanStep(cond.Type)
		readSize := len(window)
		for off := 0; off+w <= readSize; off += step {
			v := scantype.LoadUnaligned[T](window, off)
			var match bool
			if closed {
				match = a <= v && v <= b
			} else {
				match = a < v && v < b
			}
			if match {
				raw := make([]byte, 8)
				scantype.PutUnaligned(raw, 0, v)
				emit(readAddr+uint64(off), raw)
			}
		}
	}
}

func buildRangeScanner(t scantype.Type, closed bool) (primaryWindowScanner, bool) {
	switch t {
	case scantype.U8:
		return runRangeGeneric[uint8](closed), true
	case scantype.S8:
		return runRangeGeneric[int8](closed), true
	case scantype.U16:
		return runRangeGeneric[uint16](closed), true
	case scantype.S16:
		return runRangeGeneric[int16](closed), true
	case scantype.U32:
		return runRangeGeneric[uint32](closed), true
	case scantype.S32:
		return runRangeGeneric[int32](closed), true
	case scantype.U64, scantype.Pointer, scantype.U40:
		return runRangeGeneric[uint64](closed), true
	case scantype.S64:
		return runRangeGeneric[int64](closed), true
	case scantype.F32:
		return runRangeGeneric[float32](closed), true
	case scantype.F64:
		return runRangeGeneric[float64](closed), true
	default:
		return nil, false
	}
}

// --- BMEQ: integer v & b == a; floats are rejected at dispatch ---

func runBMEQGeneric[T scantype.Integer](window []byte, readAddr uint64, cond condition.Condition, meta procmeta.Metadata, emit func(uint64, []byte)) {
	a := condition.ValueAAs[T](&cond)
	b := condition.ValueBAs[T](&cond)
	w := scantype.ByteWidth(cond.Type)
	step := scantype.ScanStep(cond.Type)
	readSize := len(window)
	for off := 0; off+w <= readSize; off += step {
		v := scantype.LoadUnaligned[T](window, off)
		if v&b == a {
			raw := make([]byte, 8)
			scantype.PutUnaligned(raw, 0, v)
			emit(readAddr+uint64(off), raw)
		}
	}
}

func buildBMEQScanner(t scantype.Type) (primaryWindowScanner, bool) {
	switch t {
	case scantype.U8:
		return runBMEQGeneric[uint8], true
	case scantype.S8:
		return runBMEQGeneric[int8], true
	case scantype.U16:
		return runBMEQGeneric[uint16], true
	case scantype.S16:
		return runBMEQGeneric[int16], true
	case scantype.U32:
		return runBMEQGeneric[uint32], true
	case scantype.S32:
		return runBMEQGeneric[int32], true
	case scantype.U64, scantype.Pointer, scantype.U40:
		return runBMEQGeneric[uint64], true
	case scantype.S64:
		return runBMEQGeneric[int64], true
	default:
		return nil, false // F32/F64: BMEQ is integer-only per spec §3.
	}
}

// --- EQ+/EQ++: reinterpret 8 raw bytes as u32, f32, or f64; any match wins ---

func buildEQPlusScanner(tolerant bool) primaryWindowScanner {
	return func(window []byte, readAddr uint64, cond condition.Condition, meta procmeta.Metadata, emit func(uint64, []byte)) {
		au32 := cond.OperandAAsU32()
		af64 := float64(au32)
		readSize := len(window)
		for off := 0; off+8 <= readSize; off += 1 {
			raw := window[off : off+8]
			v32 := scantype.LoadUnaligned[uint32](raw, 0)
			vf32 := scantype.LoadUnaligned[float32](raw, 0)
			vf64 := scantype.LoadUnaligned[float64](raw, 0)
			match := v32 == au32
			if !match {
				if tolerant {
					match = math.Abs(float64(vf32)-af64) <= 1.0
				} else {
					match = float64(vf32) == af64
				}
			}
			if !match {
				if tolerant {
					match = math.Abs(vf64-af64) <= 1.0
				} else {
					match = vf64 == af64
				}
			}
			if match {
				out := make([]byte, 8)
				copy(out, raw)
				emit(readAddr+uint64(off), out)
			}
		}
	}
}

// --- PTR/NPTR: loaded value must (not) lie in heap or main extent ---
//
// Every scalar type is scanned at its own width, not just u64/Pointer:
// the loaded value is widened to u64 before the extent test, mirroring
// the original's ResolvePrimaryChunkScannerForType<T> being
// instantiated uniformly across every search type.

// toU64Extended widens v to u64 the way a C++ static_cast<u64> would:
// unsigned types zero-extend, signed types sign-extend through i64,
// floats truncate toward zero through i64.
func toU64Extended[T scantype.Scalar](v T) uint64 {
	switch x := any(v).(type) {
	case uint8:
		return uint64(x)
	case int8:
		return uint64(int64(x))
	case uint16:
		return uint64(x)
	case int16:
		return uint64(int64(x))
	case uint32:
		return uint64(x)
	case int32:
		return uint64(int64(x))
	case uint64:
		return x
	case int64:
		return uint64(x)
	case float32:
		return uint64(int64(x))
	case float64:
		return uint64(int64(x))
	default:
		return 0
	}
}

func runPointerClassGeneric[T scantype.Scalar](inside bool) primaryWindowScanner {
	return func(window []byte, readAddr uint64, cond condition.Condition, meta procmeta.Metadata, emit func(uint64, []byte)) {
		w := scantype.ByteWidth(cond.Type)
		step := scantype.ScanStep(cond.Type)
		readSize := len(window)
		for off := 0; off+w <= readSize; off += step {
			v := scantype.LoadUnaligned[T](window, off)
			addr := toU64Extended(v)
			isPtr := meta.HeapExtent.Contains(addr) || meta.MainExtent.Contains(addr)
			if isPtr == inside {
				raw := make([]byte, 8)
				scantype.PutUnaligned(raw, 0, v)
				emit(readAddr+uint64(off), raw)
			}
		}
	}
}

func buildPointerClassScanner(t scantype.Type, inside bool) (primaryWindowScanner, bool) {
	switch t {
	case scantype.U8:
		return runPointerClassGeneric[uint8](inside), true
	case scantype.S8:
		return runPointerClassGeneric[int8](inside), true
	case scantype.U16:
		return runPointerClassGeneric[uint16](inside), true
	case scantype.S16:
		return runPointerClassGeneric[int16](inside), true
	case scantype.U32:
		return runPointerClassGeneric[uint32](inside), true
	case scantype.S32:
		return runPointerClassGeneric[int32](inside), true
	case scantype.U64, scantype.Pointer, scantype.U40:
		return runPointerClassGeneric[uint64](inside), true
	case scantype.S64:
		return runPointerClassGeneric[int64](inside), true
	case scantype.F32:
		return runPointerClassGeneric[float32](inside), true
	case scantype.F64:
		return runPointerClassGeneric[float64](inside), true
	default:
		return nil, false
	}
}

// --- NoDecimal: float v in [a,b] and trunc(v)==v; float types only ---

func runNoDecimalGeneric[T ~float32 | ~float64](window []byte, readAddr uint64, cond condition.Condition, meta procmeta.Metadata, emit func(uint64, []byte)) {
	a := condition.ValueAAs[T](&cond)
	b := condition.ValueBAs[T](&cond)
	w := scantype.ByteWidth(cond.Type)
	step := scantype.ScanStep(cond.Type)
	readSize := len(window)
	for off := 0; off+w <= readSize; off += step {
		v := scantype.LoadUnaligned[T](window, off)
		if a <= v && v <= b && T(math.Trunc(float64(v))) == v {
			raw := make([]byte, 8)
			scantype.PutUnaligned(raw, 0, v)
			emit(readAddr+uint64(off), raw)
		}
	}
}

func buildNoDecimalScanner(t scantype.Type) (primaryWindowScanner, bool) {
	switch t {
	case scantype.F32:
		return runNoDecimalGeneric[float32], true
	case scantype.F64:
		return runNoDecimalGeneric[float64], true
	default:
		return nil, false
	}
}
