package scan

import (
	"context"
	"os"

	"github.com/golang/glog"

	"github.com/tomvita/Breezehand-Overlay-sub000/breezeerr"
	"github.com/tomvita/Breezehand-Overlay-sub000/candidate"
	"github.com/tomvita/Breezehand-Overlay-sub000/condition"
	"github.com/tomvita/Breezehand-Overlay-sub000/procmeta"
)

// runPrimarySweep implements §4.4.3: walk the process memory map from
// address 0, fill the scan buffer per readable segment, and hand each
// filled window to scanFn. Matches are buffered and flushed to f in
// OutputBufferRecords-sized batches.
func runPrimarySweep(ctx context.Context, svc ProcessMemoryService, scanFn primaryWindowScanner, cond condition.Condition, meta procmeta.Metadata, f *os.File, observer ProgressObserver) (SearchRunStats, error) {
	var stats SearchRunStats
	scanBuf := make([]byte, ScanBufferBytes)
	outBuf := make([]candidate.Record, 0, OutputBufferRecords)

	var flushErr error
	emit := func(addr uint64, value []byte) {
		outBuf = append(outBuf, candidate.Record{Address: addr, Value: loadU64LE(value)})
		if len(outBuf) == cap(outBuf) && flushErr == nil {
			flushErr = flushOut(f, &outBuf, &stats)
			reportProgress(observer, stats.BytesScanned, stats.EntriesWritten)
		}
	}

	cursor := uint64(0)
	for {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if flushErr != nil {
			return stats, flushErr
		}
		info, err := svc.QueryMemoryInfo(ctx, cursor)
		if err != nil {
			return stats, breezeerr.Wrap(breezeerr.Process, "failed to query memory map", err)
		}
		if info.Addr < cursor || info.Size == 0 {
			break
		}

		if !info.Perm.Readable() {
			cursor = info.End()
			continue
		}

		segStart, segEnd := info.Addr, info.End()
		readAddr := segStart
		for readAddr < segEnd {
			readSize := segEnd - readAddr
			if readSize > uint64(len(scanBuf)) {
				readSize = uint64(len(scanBuf))
			}
			window := scanBuf[:readSize]
			if err := svc.ReadMemory(ctx, readAddr, window); err != nil {
				glog.V(1).Infof("primary scan: segment at 0x%x unreadable, skipping: %v", readAddr, err)
				break
			}
			stats.BytesScanned += readSize
			scanFn(window, readAddr, cond, meta, emit)
			if flushErr != nil {
				return stats, flushErr
			}
			readAddr += readSize
		}
		cursor = segEnd
	}

	if flushErr != nil {
		return stats, flushErr
	}
	if err := flushOut(f, &outBuf, &stats); err != nil {
		return stats, err
	}
	reportProgress(observer, stats.BytesScanned, stats.EntriesWritten)
	return stats, nil
}

// flushOut writes the buffered records to f. Spec §7 treats any I/O
// error on the output candidate file as fatal for the run, so a failed
// flush is returned to the caller rather than only logged.
func flushOut(f *os.File, outBuf *[]candidate.Record, stats *SearchRunStats) error {
	if len(*outBuf) == 0 {
		return nil
	}
	entries, bytes, err := candidate.FlushRecords(f, *outBuf)
	stats.EntriesWritten += entries
	stats.BytesWritten += bytes
	*outBuf = (*outBuf)[:0]
	if err != nil {
		return err
	}
	return nil
}

func loadU64LE(value []byte) uint64 {
	var v uint64
	for i := 0; i < 8 && i < len(value); i++ {
		v |= uint64(value[i]) << (8 * uint(i))
	}
	return v
}
