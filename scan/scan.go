// Package scan implements the primary (full-sweep) and secondary
// (candidate-refinement) memory scanners: §4.4 of the scan core. Both
// passes resolve a (type, mode) pair to a specialized scanner once at
// entry, then run a hot loop that is strictly load/predicate/store —
// no per-iteration branch on type or mode.
package scan

import (
	"context"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/tomvita/Breezehand-Overlay-sub000/breezeerr"
	"github.com/tomvita/Breezehand-Overlay-sub000/candidate"
	"github.com/tomvita/Breezehand-Overlay-sub000/condition"
	"github.com/tomvita/Breezehand-Overlay-sub000/procmeta"
)

// Buffer sizing constants, per spec §4.4.2.
const (
	ScanBufferBytes    = 2 << 20 // 2 MiB
	OutputBufferRecords = 32768  // 512 KiB / sizeof(record)
	OutputBufferBytes   = OutputBufferRecords * candidate.RecordSize

	ContinueInputBufferBytes  = ScanBufferBytes / 2 // 1 MiB
	ContinueWindowBufferBytes = ScanBufferBytes / 2 // 1 MiB
)

// ProcessMemoryService is the capability the scan engine consumes to
// read and enumerate a target process's virtual memory, and to fetch
// its metadata. Implementations correspond to the platform's cheat
// service on real hardware.
type ProcessMemoryService interface {
	// GetProcessMetadata returns the target's opaque metadata blob.
	GetProcessMetadata(ctx context.Context) (procmeta.Metadata, error)

	// QueryMemoryInfo returns the memory region containing or
	// following addr, per the platform's svcQueryMemory semantics: the
	// map is ordered, and a non-advancing or zero-size entry signals
	// the end of the address space.
	QueryMemoryInfo(ctx context.Context, addr uint64) (procmeta.MemoryInfo, error)

	// ReadMemory reads len(buf) bytes starting at addr into buf. A
	// transient failure (unmapped page, permission fault) must return
	// an error the caller treats as "segment unreadable"; it must not
	// panic.
	ReadMemory(ctx context.Context, addr uint64, buf []byte) error
}

// ProgressObserver receives best-effort progress callbacks from a scan
// run. Implementations must not block; a nil observer is valid.
type ProgressObserver interface {
	OnProgress(bytesScanned, entriesWritten uint64)
}

// SearchRunStats summarizes a completed (or partially completed) scan run.
type SearchRunStats struct {
	EntriesWritten  uint64
	BytesWritten    uint64
	BytesScanned    uint64
	SecondsTaken    uint8
	ScanBufferBytes uint32
}

func clampSeconds(d time.Duration) uint8 {
	s := d / time.Second
	if s > 255 {
		return 255
	}
	return uint8(s)
}

func stemOf(path string) string {
	base := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			base = path[i+1:]
			break
		}
	}
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return base[:i]
		}
	}
	return base
}

// RunStartSearch runs the primary full-sweep scan described in §4.4.3,
// writing matching candidates to outPath. The mode must be supported
// for the primary pass (see IsModeSupported); metadata is fetched from
// svc and embedded in the header.
func RunStartSearch(ctx context.Context, svc ProcessMemoryService, cond condition.Condition, outPath string, observer ProgressObserver) (SearchRunStats, error) {
	var stats SearchRunStats

	if !IsModeSupported(cond.Mode, stepPrimary) {
		return stats, breezeerr.New(breezeerr.Unsupported, "mode not supported for primary pass: "+cond.Mode.Name())
	}
	scanFn, ok := resolvePrimaryScanner(cond.Type, cond.Mode)
	if !ok {
		return stats, breezeerr.New(breezeerr.Unsupported, "type/mode combination not supported: "+condition.Summary(cond))
	}

	meta, err := svc.GetProcessMetadata(ctx)
	if err != nil {
		return stats, breezeerr.Wrap(breezeerr.Process, "failed to fetch process metadata", err)
	}

	h := candidate.NewHeader()
	h.FileType = candidate.SearchMission
	h.Condition = cond
	h.Metadata = meta
	h.SetFilename(stemOf(outPath))

	f, err := candidate.OpenForWrite(outPath, h)
	if err != nil {
		return stats, err
	}
	defer f.Close()

	start := nowFunc()
	runStats, scanErr := runPrimarySweep(ctx, svc, scanFn, cond, meta, f, observer)
	elapsed := sinceFunc(start)

	h.DataSize = runStats.BytesWritten
	h.NewTargets = uint32(runStats.EntriesWritten)
	h.TimeTakenSec = clampSeconds(elapsed)
	if finalizeErr := candidate.FinalizeHeader(f, h); finalizeErr != nil {
		if scanErr == nil {
			scanErr = finalizeErr
		}
	}

	runStats.SecondsTaken = h.TimeTakenSec
	runStats.ScanBufferBytes = ScanBufferBytes
	return runStats, scanErr
}

// RunContinueSearch runs the secondary candidate-refinement scan
// described in §4.4.4, reading candidates from sourcePath and writing
// the surviving subset (with freshly read values) to outPath.
func RunContinueSearch(ctx context.Context, svc ProcessMemoryService, cond condition.Condition, sourcePath, outPath string, observer ProgressObserver) (SearchRunStats, error) {
	var stats SearchRunStats

	if !IsModeSupported(cond.Mode, stepSecondary) {
		return stats, breezeerr.New(breezeerr.Unsupported, "mode not supported for secondary pass: "+cond.Mode.Name())
	}
	scanFn, ok := resolveSecondaryScanner(cond.Type, cond.Mode)
	if !ok {
		return stats, breezeerr.New(breezeerr.Unsupported, "type/mode combination not supported: "+condition.Summary(cond))
	}

	srcHeader, err := candidate.ReadHeader(sourcePath)
	if err != nil {
		return stats, err
	}

	srcFile, err := os.Open(sourcePath)
	if err != nil {
		return stats, breezeerr.Wrap(breezeerr.Io, "failed to open source candidate file", err)
	}
	defer srcFile.Close()
	if _, err := srcFile.Seek(int64(candidate.HeaderSize), 0); err != nil {
		return stats, breezeerr.Wrap(breezeerr.Io, "failed to seek past source header", err)
	}

	meta, err := svc.GetProcessMetadata(ctx)
	if err != nil {
		return stats, breezeerr.Wrap(breezeerr.Process, "failed to fetch process metadata", err)
	}

	h := candidate.NewHeader()
	h.FileType = candidate.SearchMission
	h.Condition = cond
	h.Metadata = meta
	h.FromToSize = srcHeader.DataSize
	h.SetPreFilename(stemOf(sourcePath))
	h.SetFilename(stemOf(outPath))

	f, err := candidate.OpenForWrite(outPath, h)
	if err != nil {
		return stats, err
	}
	defer f.Close()

	start := nowFunc()
	runStats, scanErr := runSecondarySweep(ctx, svc, scanFn, cond, meta, srcFile, f, observer)
	elapsed := sinceFunc(start)

	h.DataSize = runStats.BytesWritten
	h.NewTargets = uint32(runStats.EntriesWritten)
	h.TimeTakenSec = clampSeconds(elapsed)
	if finalizeErr := candidate.FinalizeHeader(f, h); finalizeErr != nil {
		if scanErr == nil {
			scanErr = finalizeErr
		}
	}

	runStats.SecondsTaken = h.TimeTakenSec
	runStats.ScanBufferBytes = ScanBufferBytes
	return runStats, scanErr
}

func reportProgress(observer ProgressObserver, bytesScanned, entriesWritten uint64) {
	if observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			glog.Warningf("progress observer panicked, ignoring: %v", r)
		}
	}()
	observer.OnProgress(bytesScanned, entriesWritten)
}
