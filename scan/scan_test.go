package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomvita/Breezehand-Overlay-sub000/candidate"
	"github.com/tomvita/Breezehand-Overlay-sub000/condition"
	"github.com/tomvita/Breezehand-Overlay-sub000/procmeta"
	"github.com/tomvita/Breezehand-Overlay-sub000/scantype"
)

// fakeProcess is a single flat readable segment backing a synthetic
// memory image, enough to exercise the scanner without real hardware.
type fakeProcess struct {
	base  uint64
	image []byte
	meta  procmeta.Metadata
}

func (f *fakeProcess) GetProcessMetadata(ctx context.Context) (procmeta.Metadata, error) {
	return f.meta, nil
}

func (f *fakeProcess) QueryMemoryInfo(ctx context.Context, addr uint64) (procmeta.MemoryInfo, error) {
	if addr <= f.base {
		return procmeta.MemoryInfo{Addr: f.base, Size: uint64(len(f.image)), Perm: procmeta.PermRead | procmeta.PermWrite}, nil
	}
	return procmeta.MemoryInfo{}, nil
}

func (f *fakeProcess) ReadMemory(ctx context.Context, addr uint64, buf []byte) error {
	off := addr - f.base
	copy(buf, f.image[off:off+uint64(len(buf))])
	return nil
}

func TestPrimaryScanEQU32(t *testing.T) {
	image := make([]byte, 64)
	scantype.PutUnaligned(image, 0, uint32(0x11111111))
	scantype.PutUnaligned(image, 4, uint32(0xDEADBEEF))
	scantype.PutUnaligned(image, 8, uint32(0x22222222))
	scantype.PutUnaligned(image, 12, uint32(0xDEADBEEF))

	proc := &fakeProcess{base: 0x1000, image: image}

	cond := condition.Condition{Mode: condition.EQ, Type: scantype.U32}
	condition.SetValueA[uint32](&cond, 0xDEADBEEF)

	dir := t.TempDir()
	outPath := filepath.Join(dir, "eq_u32")

	stats, err := RunStartSearch(context.Background(), proc, cond, outPath, nil)
	if err != nil {
		t.Fatalf("RunStartSearch: %v", err)
	}
	if stats.EntriesWritten != 2 {
		t.Fatalf("EntriesWritten = %d, want 2", stats.EntriesWritten)
	}

	h, err := candidate.ReadHeader(outPath)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.DataSize != 2*candidate.RecordSize {
		t.Fatalf("DataSize = %d, want %d", h.DataSize, 2*candidate.RecordSize)
	}
}

func TestPrimaryScanRangeEQF32(t *testing.T) {
	image := make([]byte, 32)
	scantype.PutUnaligned(image, 0, float32(1.0))
	scantype.PutUnaligned(image, 4, float32(5.5))
	scantype.PutUnaligned(image, 8, float32(10.0))
	scantype.PutUnaligned(image, 12, float32(99.0))

	proc := &fakeProcess{base: 0x2000, image: image}

	cond := condition.Condition{Mode: condition.RangeEQ, Type: scantype.F32}
	condition.SetValueA[float32](&cond, 1.0)
	condition.SetValueB[float32](&cond, 10.0)

	dir := t.TempDir()
	outPath := filepath.Join(dir, "range_f32")

	stats, err := RunStartSearch(context.Background(), proc, cond, outPath, nil)
	if err != nil {
		t.Fatalf("RunStartSearch: %v", err)
	}
	if stats.EntriesWritten != 3 {
		t.Fatalf("EntriesWritten = %d, want 3", stats.EntriesWritten)
	}
}

func TestPrimaryScanRejectsUnsupportedSecondaryOnlyMode(t *testing.T) {
	proc := &fakeProcess{base: 0x1000, image: make([]byte, 16)}
	cond := condition.Condition{Mode: condition.SAME, Type: scantype.U32}

	dir := t.TempDir()
	outPath := filepath.Join(dir, "bad")
	if _, err := RunStartSearch(context.Background(), proc, cond, outPath, nil); err == nil {
		t.Fatalf("expected error for SAME on primary pass")
	}
}

func TestSecondaryScanSameU16(t *testing.T) {
	proc := &fakeProcess{base: 0x3000, image: make([]byte, 64)}
	scantype.PutUnaligned(proc.image, 0, uint16(42))
	scantype.PutUnaligned(proc.image, 16, uint16(43))
	scantype.PutUnaligned(proc.image, 32, uint16(42))

	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source")

	srcCond := condition.Condition{Mode: condition.EQ, Type: scantype.U16}
	condition.SetValueA[uint16](&srcCond, 42)

	h := candidate.NewHeader()
	h.Condition = srcCond
	f, err := candidate.OpenForWrite(srcPath, h)
	if err != nil {
		t.Fatalf("OpenForWrite: %v", err)
	}
	records := []candidate.Record{
		{Address: proc.base + 0, Value: 42},
		{Address: proc.base + 16, Value: 42},
		{Address: proc.base + 32, Value: 42},
	}
	entries, bytes, err := candidate.FlushRecords(f, records)
	if err != nil {
		t.Fatalf("FlushRecords: %v", err)
	}
	h.DataSize = bytes
	h.NewTargets = uint32(entries)
	if err := candidate.FinalizeHeader(f, h); err != nil {
		t.Fatalf("FinalizeHeader: %v", err)
	}
	f.Close()

	cond := condition.Condition{Mode: condition.SAME, Type: scantype.U16}
	outPath := filepath.Join(dir, "refined")

	stats, err := RunContinueSearch(context.Background(), proc, cond, srcPath, outPath, nil)
	if err != nil {
		t.Fatalf("RunContinueSearch: %v", err)
	}
	if stats.EntriesWritten != 2 {
		t.Fatalf("EntriesWritten = %d, want 2 (addr 0x%x and 0x%x should survive, 0x%x should not)",
			stats.EntriesWritten, proc.base, proc.base+32, proc.base+16)
	}
}

// TestPrimaryScanEQPlusFloatLegDerivesFromTruncatedOperand pins down
// §4.1: the float/double leg of EQ+/EQ++ must compare against the
// operand after it has been truncated through u32, not against the
// condition's original untruncated typed operand. Memory holding the
// truncated value (3.0) must match; memory holding the exact original
// operand (3.9) must not.
func TestPrimaryScanEQPlusFloatLegDerivesFromTruncatedOperand(t *testing.T) {
	image := make([]byte, 16)
	scantype.PutUnaligned(image, 0, float64(3.0))
	scantype.PutUnaligned(image, 8, float64(3.9))

	proc := &fakeProcess{base: 0x4000, image: image}

	cond := condition.Condition{Mode: condition.EQPlus, Type: scantype.F64}
	condition.SetValueA[float64](&cond, 3.9)

	dir := t.TempDir()
	outPath := filepath.Join(dir, "eqplus")

	stats, err := RunStartSearch(context.Background(), proc, cond, outPath, nil)
	if err != nil {
		t.Fatalf("RunStartSearch: %v", err)
	}
	if stats.EntriesWritten != 1 {
		t.Fatalf("EntriesWritten = %d, want 1", stats.EntriesWritten)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	if _, err := f.Seek(int64(candidate.HeaderSize), 0); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, candidate.RecordSize)
	if _, err := f.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	var rec candidate.Record
	if err := rec.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if rec.Address != proc.base {
		t.Fatalf("matched address = 0x%x, want 0x%x (memory holding the truncated operand 3.0, not 0x%x holding the untruncated 3.9)",
			rec.Address, proc.base, proc.base+8)
	}
}

// TestPrimaryScanPointerClassRunsForNarrowType pins down that PTR/NPTR
// must execute for scan types narrower than 8 bytes, zero/sign
// extending the loaded value before the extent test, rather than being
// rejected as unsupported.
func TestPrimaryScanPointerClassRunsForNarrowType(t *testing.T) {
	image := make([]byte, 16)
	scantype.PutUnaligned(image, 0, uint32(0x00500000)) // inside MainExtent
	scantype.PutUnaligned(image, 4, uint32(0xCAFEBABE)) // outside

	proc := &fakeProcess{
		base:  0x1000,
		image: image,
		meta: procmeta.Metadata{
			MainExtent: procmeta.Extent{Base: 0x00400000, Size: 0x00200000},
		},
	}

	cond := condition.Condition{Mode: condition.PTR, Type: scantype.U32}

	dir := t.TempDir()
	outPath := filepath.Join(dir, "ptr_u32")

	stats, err := RunStartSearch(context.Background(), proc, cond, outPath, nil)
	if err != nil {
		t.Fatalf("RunStartSearch: %v (PTR on U32 must run, not be rejected as unsupported)", err)
	}
	if stats.EntriesWritten != 1 {
		t.Fatalf("EntriesWritten = %d, want 1", stats.EntriesWritten)
	}
}

// TestPrimarySweepPropagatesFlushError pins down spec §7: any I/O error
// on the output candidate file is fatal for the run, so a failed
// record flush must be returned, not merely logged.
func TestPrimarySweepPropagatesFlushError(t *testing.T) {
	image := make([]byte, 16)
	scantype.PutUnaligned(image, 0, uint32(0xDEADBEEF))
	proc := &fakeProcess{base: 0x1000, image: image}

	cond := condition.Condition{Mode: condition.EQ, Type: scantype.U32}
	condition.SetValueA[uint32](&cond, 0xDEADBEEF)
	scanFn, ok := resolvePrimaryScanner(cond.Type, cond.Mode)
	if !ok {
		t.Fatalf("resolvePrimaryScanner: not ok")
	}

	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.Close() // closed: subsequent writes must fail

	if _, err := runPrimarySweep(context.Background(), proc, scanFn, cond, procmeta.Metadata{}, f, nil); err == nil {
		t.Fatalf("expected flush error to propagate from runPrimarySweep, got nil")
	}
}

// TestSecondarySweepPropagatesFlushError is the secondary-pass analog
// of TestPrimarySweepPropagatesFlushError.
func TestSecondarySweepPropagatesFlushError(t *testing.T) {
	proc := &fakeProcess{base: 0x3000, image: make([]byte, 64)}
	scantype.PutUnaligned(proc.image, 0, uint16(42))

	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source")

	srcCond := condition.Condition{Mode: condition.EQ, Type: scantype.U16}
	condition.SetValueA[uint16](&srcCond, 42)

	h := candidate.NewHeader()
	h.Condition = srcCond
	sf, err := candidate.OpenForWrite(srcPath, h)
	if err != nil {
		t.Fatalf("OpenForWrite: %v", err)
	}
	records := []candidate.Record{{Address: proc.base, Value: 42}}
	entries, bytesWritten, err := candidate.FlushRecords(sf, records)
	if err != nil {
		t.Fatalf("FlushRecords: %v", err)
	}
	h.DataSize = bytesWritten
	h.NewTargets = uint32(entries)
	if err := candidate.FinalizeHeader(sf, h); err != nil {
		t.Fatalf("FinalizeHeader: %v", err)
	}
	sf.Close()

	srcFile, err := os.Open(srcPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer srcFile.Close()
	if _, err := srcFile.Seek(int64(candidate.HeaderSize), 0); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	cond := condition.Condition{Mode: condition.SAME, Type: scantype.U16}
	scanFn, ok := resolveSecondaryScanner(cond.Type, cond.Mode)
	if !ok {
		t.Fatalf("resolveSecondaryScanner: not ok")
	}

	outF, err := os.Create(filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	outF.Close() // closed: subsequent writes must fail

	if _, err := runSecondarySweep(context.Background(), proc, scanFn, cond, procmeta.Metadata{}, srcFile, outF, nil); err == nil {
		t.Fatalf("expected flush error to propagate from runSecondarySweep, got nil")
	}
}

func TestIsModeSupported(t *testing.T) {
	if !IsModeSupported(condition.EQ, stepPrimary) {
		t.Errorf("EQ should be supported on primary pass")
	}
	if IsModeSupported(condition.SAME, stepPrimary) {
		t.Errorf("SAME should not be supported on primary pass")
	}
	if !IsModeSupported(condition.SAME, stepSecondary) {
		t.Errorf("SAME should be supported on secondary pass")
	}
	if IsModeSupported(condition.Mode(99), stepSecondary) {
		t.Errorf("out-of-range mode should never be supported")
	}
}
