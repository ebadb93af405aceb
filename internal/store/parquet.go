package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"tradecore/internal/domain"
)

// Compile-time interface check.
var _ TickStore = (*ParquetTickStore)(nil)

// ParquetTickStore archives ticks to Parquet files on disk, one file per
// symbol per day at <DataDir>/ticks/<SYMBOL>/<YYYY-MM-DD>.parquet.
type ParquetTickStore struct {
	DataDir string
}

// NewParquetTickStore creates a tick archive rooted at dataDir.
func NewParquetTickStore(dataDir string) *ParquetTickStore {
	return &ParquetTickStore{DataDir: dataDir}
}

// TickRecord is the Parquet schema for archived tick data.
type TickRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Price     float64 `parquet:"price"`
	Volume    float64 `parquet:"volume"`
}

// WriteTicks appends ticks grouped by symbol and UTC date. Appending to an
// existing file reads it back and rewrites it whole; archival runs are
// expected to flush a day at most a few times.
func (s *ParquetTickStore) WriteTicks(_ context.Context, ticks []domain.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	grouped := make(map[string][]TickRecord)
	for _, t := range ticks {
		key := t.Symbol + "/" + t.Timestamp.UTC().Format("2006-01-02")
		grouped[key] = append(grouped[key], TickRecord{
			Symbol:    t.Symbol,
			Timestamp: t.Timestamp.UnixMilli(),
			Price:     t.Price,
			Volume:    t.Volume,
		})
	}

	for key, records := range grouped {
		path := filepath.Join(s.DataDir, "ticks", key+".parquet")
		if err := s.writeFile(path, records); err != nil {
			return fmt.Errorf("writing tick file %s: %w", path, err)
		}
	}
	return nil
}

func (s *ParquetTickStore) writeFile(path string, records []TickRecord) error {
	if existing, err := parquet.ReadFile[TickRecord](path); err == nil {
		records = append(existing, records...)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	// Write to a temp file and rename so readers never see a partial file.
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := parquet.NewGenericWriter[TickRecord](f)
	if _, err := w.Write(records); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := w.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// ReadTicks loads the archived ticks for one symbol and date (YYYY-MM-DD).
// A missing file returns an empty slice.
func (s *ParquetTickStore) ReadTicks(_ context.Context, symbol, date string) ([]domain.Tick, error) {
	path := filepath.Join(s.DataDir, "ticks", symbol, date+".parquet")
	records, err := parquet.ReadFile[TickRecord](path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading tick file %s: %w", path, err)
	}

	ticks := make([]domain.Tick, len(records))
	for i, r := range records {
		ticks[i] = domain.Tick{
			Symbol:    r.Symbol,
			Timestamp: time.UnixMilli(r.Timestamp).UTC(),
			Price:     r.Price,
			Volume:    r.Volume,
		}
	}
	return ticks, nil
}
