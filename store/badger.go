package store

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	Ot "github.com/GMPavanLab/timeseries-analysis/types"
)

// Archive keeps the summaries of finished clustering runs in BadgerDB,
// so a long parameter sweep can be inspected and resumed later.
type Archive struct {
	MU        sync.Mutex
	DB        *badger.DB
	BatchSize int
	Buffer    []Ot.RunSummary
}

func NewArchive(path string, batchSize int) (*Archive, error) {
	opts := badger.DefaultOptions(path).
		WithCompression(options.ZSTD).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		slog.Error("Archive failed to open database", slog.Any("error", err))
		return nil, fmt.Errorf("database error: %w", err)
	}

	slog.Info("Archive opened",
		slog.String("path", path),
		slog.Int("batchSize", batchSize))

	return &Archive{
		DB:        db,
		BatchSize: batchSize,
		Buffer:    make([]Ot.RunSummary, 0, batchSize),
	}, nil
}

// WriteRun queues up a batch of run summaries,
// when batchsize is reached, it calls the locked flush
// which calls WriteBatch() with the new batch
func (a *Archive) WriteRun(rs Ot.RunSummary) error {
	a.MU.Lock()
	defer a.MU.Unlock()

	a.Buffer = append(a.Buffer, rs)
	if len(a.Buffer) >= a.BatchSize {
		return a.flushLocked()
	}
	return nil
}

// RecordRun satisfies the sweep's RunRecorder. Storage errors are
// logged, never allowed to stop a sweep.
func (a *Archive) RecordRun(rs Ot.RunSummary) {
	if err := a.WriteRun(rs); err != nil {
		slog.Error("Archive failed to record run",
			slog.String("RunID", rs.RunID),
			slog.Any("error", err))
	}
}

// WriteBatch performs the key/value creation to be stored
// and actually calls BadgerDB to write the data
func (a *Archive) WriteBatch(runs []Ot.RunSummary) error {
	wb := a.DB.NewWriteBatch()
	defer wb.Cancel()

	for _, rs := range runs {
		k := RunKey(rs)
		v, err := RunEncode(rs)
		if err != nil {
			slog.Error("Archive failed to encode run",
				slog.Any("error", err),
				slog.String("RunID", rs.RunID))
			return fmt.Errorf("run encode error: %w", err)
		}
		if err := wb.Set(k, v); err != nil {
			slog.Error("Archive failed to set key in batch",
				slog.Any("error", err),
				slog.String("RunID", rs.RunID))
			return fmt.Errorf("write batch error: %w", err)
		}
	}

	if err := wb.Flush(); err != nil {
		slog.Error("Archive failed to flush batch", slog.Any("error", err))
		return fmt.Errorf("batch flush error: %w", err)
	}

	return nil
}

// Flush is the public method that blocks,
// it sends data to WriteBatch and then clears the buffer
func (a *Archive) Flush() error {
	a.MU.Lock()
	defer a.MU.Unlock()
	return a.flushLocked()
}

// flushLocked mimics Flush without locking, called by WriteRun
func (a *Archive) flushLocked() error {
	if len(a.Buffer) == 0 {
		return nil
	}
	err := a.WriteBatch(a.Buffer)
	a.Buffer = a.Buffer[:0] // Clear but keep capacity
	return err
}

// Close returns a Flush error but still attempts to close
func (a *Archive) Close() error {
	slog.Info("Archive closing, flushing buffer",
		slog.Int("bufferSize", len(a.Buffer)))
	flushErr := a.Flush()
	closeErr := a.DB.Close()

	if flushErr != nil {
		slog.Error("Archive failed to flush on close", slog.Any("error", flushErr))
		return fmt.Errorf("flush failed, close may have failed: %v", flushErr)
	}

	if closeErr != nil {
		slog.Error("Archive failed to close database", slog.Any("error", closeErr))
		return fmt.Errorf("close failed: %v", closeErr)
	}

	slog.Info("Archive closed successfully")
	return nil
}

func (a *Archive) Type() string { return "BadgerDB" }

// RunKey creates a composite key:
// window length + smoothing width + run start time.
// Times are positive BigEndian integers so keys for one grid cell
// sort chronologically in BadgerDB.
func RunKey(rs Ot.RunSummary) []byte {
	key := make([]byte, 4+4+8)
	binary.BigEndian.PutUint32(key[0:4], uint32(rs.TauWindow))
	binary.BigEndian.PutUint32(key[4:8], uint32(rs.TSmooth))
	binary.BigEndian.PutUint64(key[8:16], uint64(rs.StartTime.UnixNano()))
	return key
}

// RunEncode serializes the run summary for data storage
func RunEncode(rs Ot.RunSummary) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(rs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunDecode deserializes the run summary data
func RunDecode(data []byte) (Ot.RunSummary, error) {
	var rs Ot.RunSummary
	buf := bytes.NewBuffer(data)
	dec := gob.NewDecoder(buf)
	err := dec.Decode(&rs)
	return rs, err
}

// ListRuns retrieves every archived run summary.
func (a *Archive) ListRuns() ([]Ot.RunSummary, error) {
	var runs []Ot.RunSummary

	err := a.DB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				rs, err := RunDecode(val)
				if err != nil {
					slog.Error("Archive failed to decode run", slog.Any("error", err))
					return fmt.Errorf("run decode error: %w", err)
				}
				runs = append(runs, rs)
				return nil
			})
			if err != nil {
				slog.Error("Archive callback failure", slog.Any("error", err))
				return fmt.Errorf("item data error: %w", err)
			}
		}
		return nil
	})

	return runs, err
}
