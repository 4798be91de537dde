package scan

import (
	"context"
	"io"
	"os"

	"github.com/golang/glog"

	"github.com/tomvita/Breezehand-Overlay-sub000/breezeerr"
	"github.com/tomvita/Breezehand-Overlay-sub000/candidate"
	"github.com/tomvita/Breezehand-Overlay-sub000/condition"
	"github.com/tomvita/Breezehand-Overlay-sub000/procmeta"
)

const recordsPerInputBatch = ContinueInputBufferBytes / candidate.RecordSize

// runSecondarySweep implements §4.4.4: read source records in
// batches, partition each batch into contiguous windows bounded by
// ContinueWindowBufferBytes, bulk-read live memory for the window,
// and evaluate scanFn against every candidate it contains.
func runSecondarySweep(ctx context.Context, svc ProcessMemoryService, scanFn secondaryWindowScanner, cond condition.Condition, meta procmeta.Metadata, srcFile *os.File, f *os.File, observer ProgressObserver) (SearchRunStats, error) {
	var stats SearchRunStats
	outBuf := make([]candidate.Record, 0, OutputBufferRecords)
	windowBuf := make([]byte, ContinueWindowBufferBytes)
	recordBuf := make([]byte, recordsPerInputBatch*candidate.RecordSize)

	var flushErr error
	emit := func(addr uint64, value []byte) {
		outBuf = append(outBuf, candidate.Record{Address: addr, Value: loadU64LE(value)})
		if len(outBuf) == cap(outBuf) && flushErr == nil {
			flushErr = flushOut(f, &outBuf, &stats)
			reportProgress(observer, stats.BytesScanned, stats.EntriesWritten)
		}
	}

	for {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if flushErr != nil {
			return stats, flushErr
		}
		n, err := io.ReadFull(srcFile, recordBuf)
		if n == 0 {
			if err != nil && err != io.EOF {
				return stats, breezeerr.Wrap(breezeerr.Io, "failed to read source candidates", err)
			}
			break
		}

		batchCount := n / candidate.RecordSize
		batch := make([]sourceRecord, 0, batchCount)
		for i := 0; i < batchCount; i++ {
			var rec candidate.Record
			if decodeErr := rec.UnmarshalBinary(recordBuf[i*candidate.RecordSize:]); decodeErr != nil {
				return stats, breezeerr.Wrap(breezeerr.Format, "corrupt source record", decodeErr)
			}
			batch = append(batch, sourceRecord{Address: rec.Address, Previous: rec.Value})
		}

		evaluateBatch(ctx, svc, scanFn, cond, meta, batch, windowBuf, emit, &stats)
		if flushErr != nil {
			return stats, flushErr
		}

		if err == io.ErrUnexpectedEOF || err == io.EOF {
			break
		}
		if err != nil {
			return stats, breezeerr.Wrap(breezeerr.Io, "failed to read source candidates", err)
		}
	}

	if err := flushOut(f, &outBuf, &stats); err != nil {
		return stats, err
	}
	reportProgress(observer, stats.BytesScanned, stats.EntriesWritten)
	return stats, nil
}

// evaluateBatch partitions batch into windows per §4.4.4 step 2-3 and
// invokes scanFn over each.
func evaluateBatch(ctx context.Context, svc ProcessMemoryService, scanFn secondaryWindowScanner, cond condition.Condition, meta procmeta.Metadata, batch []sourceRecord, windowBuf []byte, emit func(uint64, []byte), stats *SearchRunStats) {
	i := 0
	for i < len(batch) {
		base := batch[i].Address
		j := i + 1
		for j < len(batch) {
			addr := batch[j].Address
			if addr < base || addr-base+8 > uint64(len(windowBuf)) {
				break
			}
			j++
		}
		window := batch[i:j]
		last := window[len(window)-1]
		span := last.Address - base + 8

		buf := windowBuf[:span]
		if err := svc.ReadMemory(ctx, base, buf); err != nil {
			// Bulk read failed; retry a single-record read at base only.
			single := windowBuf[:8]
			if err := svc.ReadMemory(ctx, base, single); err != nil {
				glog.V(1).Infof("secondary scan: candidate at 0x%x unreadable, skipping: %v", base, err)
				i++
				continue
			}
			stats.BytesScanned += 8
			scanFn(single, base, window[:1], cond, meta, emit)
			i++
			continue
		}

		stats.BytesScanned += span
		scanFn(buf, base, window, cond, meta, emit)
		i = j
	}
}
