package scan

import (
	"math"

	"github.com/tomvita/Breezehand-Overlay-sub000/condition"
	"github.com/tomvita/Breezehand-Overlay-sub000/procmeta"
	"github.com/tomvita/Breezehand-Overlay-sub000/scantype"
)

// --- ordered comparisons ---

func runOrderedSecondaryGeneric[T scantype.Scalar](sel func(cmpResult) bool) secondaryWindowScanner {
	return func(window []byte, base uint64, records []sourceRecord, cond condition.Condition, meta procmeta.Metadata, emit func(uint64, []byte)) {
		a := condition.ValueAAs[T](&cond)
		for _, r := range records {
			idx := int(r.Address - base)
			if idx < 0 || idx+8 > len(window) {
				continue
			}
			v := scantype.LoadUnaligned[T](window, idx)
			if sel(compare(v, a)) {
				raw := make([]byte, 8)
				scantype.PutUnaligned(raw, 0, v)
				emit(r.Address, raw)
			}
		}
	}
}

func buildOrderedSecondary(t scantype.Type, sign func(int) bool) (secondaryWindowScanner, bool) {
	sel := selectorForSign(sign)
	switch t {
	case scantype.U8:
		return runOrderedSecondaryGeneric[uint8](sel), true
	case scantype.S8:
		return runOrderedSecondaryGeneric[int8](sel), true
	case scantype.U16:
		return runOrderedSecondaryGeneric[uint16](sel), true
	case scantype.S16:
		return runOrderedSecondaryGeneric[int16](sel), true
	case scantype.U32:
		return runOrderedSecondaryGeneric[uint32](sel), true
	case scantype.S32:
		return runOrderedSecondaryGeneric[int32](sel), true
	case scantype.U64, scantype.Pointer, scantype.U40:
		return runOrderedSecondaryGeneric[uint64](sel), true
	case scantype.S64:
		return runOrderedSecondaryGeneric[int64](sel), true
	case scantype.F32:
		return runOrderedSecondaryGeneric[float32](sel), true
	case scantype.F64:
		return runOrderedSecondaryGeneric[float64](sel), true
	default:
		return nil, false
	}
}

// --- range comparisons ---

func runRangeSecondaryGeneric[T scantype.Scalar](closed bool) secondaryWindowScanner {
	return func(window []byte, base uint64, records []sourceRecord, cond condition.Condition, meta procmeta.Metadata, emit func(uint64, []byte)) {
		a := condition.ValueAAs[T](&cond)
		b := condition.ValueBAs[T](&cond)
		for _, r := range records {
			idx := int(r.Address - base)
			if idx < 0 || idx+8 > len(window) {
				continue
			}
			v := scantype.LoadUnaligned[T](window, idx)
			var match bool
			if closed {
				match = a <= v && v <= b
			} else {
				match = a < v && v < b
			}
			if match {
				raw := make([]byte, 8)
				scantype.PutUnaligned(raw, 0, v)
				emit(r.Address, raw)
			}
		}
	}
}

func buildRangeSecondary(t scantype.Type, closed bool) (secondaryWindowScanner, bool) {
	switch t {
	case scantype.U8:
		return runRangeSecondaryGeneric[uint8](closed), true
	case scantype.S8:
		return runRangeSecondaryGeneric[int8](closed), true
	case scantype.U16:
		return runRangeSecondaryGeneric[uint16](closed), true
	case scantype.S16:
		return runRangeSecondaryGeneric[int16](closed), true
	case scantype.U32:
		return runRangeSecondaryGeneric[uint32](closed), true
	case scantype.S32:
		return runRangeSecondaryGeneric[int32](closed), true
	case scantype.U64, scantype.Pointer, scantype.U40:
		return runRangeSecondaryGeneric[uint64](closed), true
	case scantype.S64:
		return runRangeSecondaryGeneric[int64](closed), true
	case scantype.F32:
		return runRangeSecondaryGeneric[float32](closed), true
	case scantype.F64:
		return runRangeSecondaryGeneric[float64](closed), true
	default:
		return nil, false
	}
}

// --- BMEQ ---

func runBMEQSecondaryGeneric[T scantype.Integer](window []byte, base uint64, records []sourceRecord, cond condition.Condition, meta procmeta.Metadata, emit func(uint64, []byte)) {
	a := condition.ValueAAs[T](&cond)
	b := condition.ValueBAs[T](&cond)
	for _, r := range records {
		idx := int(r.Address - base)
		if idx < 0 || idx+8 > len(window) {
			continue
		}
		v := scantype.LoadUnaligned[T](window, idx)
		if v&b == a {
			raw := make([]byte, 8)
			scantype.PutUnaligned(raw, 0, v)
			emit(r.Address, raw)
		}
	}
}

func buildBMEQSecondary(t scantype.Type) (secondaryWindowScanner, bool) {
	switch t {
	case scantype.U8:
		return runBMEQSecondaryGeneric[uint8], true
	case scantype.S8:
		return runBMEQSecondaryGeneric[int8], true
	case scantype.U16:
		return runBMEQSecondaryGeneric[uint16], true
	case scantype.S16:
		return runBMEQSecondaryGeneric[int16], true
	case scantype.U32:
		return runBMEQSecondaryGeneric[uint32], true
	case scantype.S32:
		return runBMEQSecondaryGeneric[int32], true
	case scantype.U64, scantype.Pointer, scantype.U40:
		return runBMEQSecondaryGeneric[uint64], true
	case scantype.S64:
		return runBMEQSecondaryGeneric[int64], true
	default:
		return nil, false
	}
}

// --- EQ+/EQ++ ---

func buildEQPlusSecondary(tolerant bool) secondaryWindowScanner {
	return func(window []byte, base uint64, records []sourceRecord, cond condition.Condition, meta procmeta.Metadata, emit func(uint64, []byte)) {
		au32 := cond.OperandAAsU32()
		af64 := float64(au32)
		for _, r := range records {
			idx := int(r.Address - base)
			if idx < 0 || idx+8 > len(window) {
				continue
			}
			raw := window[idx : idx+8]
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
				emit(r.Address, out)
			}
		}
	}
}

// --- PTR/NPTR ---
//
// Every scalar type is scanned at its own width; see toU64Extended in
// dispatch.go for the widening rule applied before the extent test.

func runPointerClassSecondaryGeneric[T scantype.Scalar](inside bool) secondaryWindowScanner {
	return func(window []byte, base uint64, records []sourceRecord, cond condition.Condition, meta procmeta.Metadata, emit func(uint64, []byte)) {
		w := scantype.ByteWidth(cond.Type)
		for _, r := range records {
			idx := int(r.Address - base)
			if idx < 0 || idx+w > len(window) {
				continue
			}
			v := scantype.LoadUnaligned[T](window, idx)
			addr := toU64Extended(v)
			isPtr := meta.HeapExtent.Contains(addr) || meta.MainExtent.Contains(addr)
			if isPtr == inside {
				raw := make([]byte, 8)
				scantype.PutUnaligned(raw, 0, v)
				emit(r.Address, raw)
			}
		}
	}
}

func buildPointerClassSecondary(t scantype.Type, inside bool) (secondaryWindowScanner, bool) {
	switch t {
	case scantype.U8:
		return runPointerClassSecondaryGeneric[uint8](inside), true
	case scantype.S8:
		return runPointerClassSecondaryGeneric[int8](inside), true
	case scantype.U16:
		return runPointerClassSecondaryGeneric[uint16](inside), true
	case scantype.S16:
		return runPointerClassSecondaryGeneric[int16](inside), true
	case scantype.U32:
		return runPointerClassSecondaryGeneric[uint32](inside), true
	case scantype.S32:
		return runPointerClassSecondaryGeneric[int32](inside), true
	case scantype.U64, scantype.Pointer, scantype.U40:
		return runPointerClassSecondaryGeneric[uint64](inside), true
	case scantype.S64:
		return runPointerClassSecondaryGeneric[int64](inside), true
	case scantype.F32:
		return runPointerClassSecondaryGeneric[float32](inside), true
	case scantype.F64:
		return runPointerClassSecondaryGeneric[float64](inside), true
	default:
		return nil, false
	}
}

// --- NoDecimal ---

func runNoDecimalSecondaryGeneric[T ~float32 | ~float64](window []byte, base uint64, records []sourceRecord, cond condition.Condition, meta procmeta.Metadata, emit func(uint64, []byte)) {
	a := condition.ValueAAs[T](&cond)
	b := condition.ValueBAs[T](&cond)
	for _, r := range records {
		idx := int(r.Address - base)
		if idx < 0 || idx+8 > len(window) {
			continue
		}
		v := scantype.LoadUnaligned[T](window, idx)
		if a <= v && v <= b && T(math.Trunc(float64(v))) == v {
			raw := make([]byte, 8)
			scantype.PutUnaligned(raw, 0, v)
			emit(r.Address, raw)
		}
	}
}

func buildNoDecimalSecondary(t scantype.Type) (secondaryWindowScanner, bool) {
	switch t {
	case scantype.F32:
		return runNoDecimalSecondaryGeneric[float32], true
	case scantype.F64:
		return runNoDecimalSecondaryGeneric[float64], true
	default:
		return nil, false
	}
}

// --- MORE/LESS/DIFF/SAME: compare freshly read v against the record's previous value p ---

func runPrevCompareGeneric[T scantype.Scalar](sel func(cmpResult) bool) secondaryWindowScanner {
	return func(window []byte, base uint64, records []sourceRecord, cond condition.Condition, meta procmeta.Metadata, emit func(uint64, []byte)) {
		for _, r := range records {
			idx := int(r.Address - base)
			if idx < 0 || idx+8 > len(window) {
				continue
			}
			v := scantype.LoadUnaligned[T](window, idx)
			p := scantype.LoadUnaligned[T](r.prevBytes(), 0)
			if sel(compare(v, p)) {
				raw := make([]byte, 8)
				scantype.PutUnaligned(raw, 0, v)
				emit(r.Address, raw)
			}
		}
	}
}

func buildPrevCompareSecondary(t scantype.Type, sign func(int) bool) (secondaryWindowScanner, bool) {
	sel := selectorForSign(sign)
	switch t {
	case scantype.U8:
		return runPrevCompareGeneric[uint8](sel), true
	case scantype.S8:
		return runPrevCompareGeneric[int8](sel), true
	case scantype.U16:
		return runPrevCompareGeneric[uint16](sel), true
	case scantype.S16:
		return runPrevCompareGeneric[int16](sel), true
	case scantype.U32:
		return runPrevCompareGeneric[uint32](sel), true
	case scantype.S32:
		return runPrevCompareGeneric[int32](sel), true
	case scantype.U64, scantype.Pointer, scantype.U40:
		return runPrevCompareGeneric[uint64](sel), true
	case scantype.S64:
		return runPrevCompareGeneric[int64](sel), true
	case scantype.F32:
		return runPrevCompareGeneric[float32](sel), true
	case scantype.F64:
		return runPrevCompareGeneric[float64](sel), true
	default:
		return nil, false
	}
}

// --- INC_BY/DEC_BY: current > previous+a-1 && current < previous+a+1 ---
//
// Computed in T's own arithmetic, not widened to float64: on unsigned
// types this reproduces the original's wraparound for small
// previous+a bit-for-bit, which candidate files on disk depend on
// (see spec §9's open question — this is a deliberate non-fix).
func runIncDecGeneric[T scantype.Scalar](inc bool) secondaryWindowScanner {
	return func(window []byte, base uint64, records []sourceRecord, cond condition.Condition, meta procmeta.Metadata, emit func(uint64, []byte)) {
		a := condition.ValueAAs[T](&cond)
		for _, r := range records {
			idx := int(r.Address - base)
			if idx < 0 || idx+8 > len(window) {
				continue
			}
			v := scantype.LoadUnaligned[T](window, idx)
			p := scantype.LoadUnaligned[T](r.prevBytes(), 0)
			var target T
			if inc {
				target = p + a
			} else {
				target = p - a
			}
			if v > target-1 && v < target+1 {
				raw := make([]byte, 8)
				scantype.PutUnaligned(raw, 0, v)
				emit(r.Address, raw)
			}
		}
	}
}

func buildIncDecSecondary(t scantype.Type, inc bool) secondaryWindowScanner {
	switch t {
	case scantype.U8:
		return runIncDecGeneric[uint8](inc)
	case scantype.S8:
		return runIncDecGeneric[int8](inc)
	case scantype.U16:
		return runIncDecGeneric[uint16](inc)
	case scantype.S16:
		return runIncDecGeneric[int16](inc)
	case scantype.U32:
		return runIncDecGeneric[uint32](inc)
	case scantype.S32:
		return runIncDecGeneric[int32](inc)
	case scantype.U64, scantype.Pointer, scantype.U40:
		return runIncDecGeneric[uint64](inc)
	case scantype.S64:
		return runIncDecGeneric[int64](inc)
	case scantype.F32:
		return runIncDecGeneric[float32](inc)
	default:
		return runIncDecGeneric[float64](inc)
	}
}

func (r sourceRecord) prevBytes() []byte {
	buf := make([]byte, 8)
	scantype.PutUnaligned(buf, 0, r.Previous)
	return buf
}
