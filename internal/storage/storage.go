package storage

import (
	"context"
	"time"
)

// Storage defines the interface for tracking pipeline runs: which sources
// were processed, their content hashes, and the chunk records emitted for
// them. Chunk text itself lives in the JSONL dataset file, not here.
type Storage interface {
	// Dataset operations
	CreateDataset(ctx context.Context, ds *Dataset) error
	GetDataset(ctx context.Context, rootPath string) (*Dataset, error)
	UpdateDataset(ctx context.Context, ds *Dataset) error

	// Source operations
	UpsertSource(ctx context.Context, src *Source) error
	GetSource(ctx context.Context, datasetID int64, sourcePath string) (*Source, error)
	ListSources(ctx context.Context, datasetID int64) ([]*Source, error)
	DeleteSource(ctx context.Context, sourceID int64) error

	// Record metadata operations
	UpsertRecord(ctx context.Context, rec *RecordMeta) error
	ListRecordsBySource(ctx context.Context, sourceID int64) ([]*RecordMeta, error)
	DeleteRecordsBySource(ctx context.Context, sourceID int64) error

	// Status operations
	GetStatus(ctx context.Context, datasetID int64) (*DatasetStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Dataset represents one prepared dataset: a root input directory, the
// JSONL file it feeds, and the windowing parameters used.
type Dataset struct {
	ID            int64
	RootPath      string
	OutputPath    string
	WindowSize    int
	Overlap       int
	MinChunkChars int
	TotalSources  int
	TotalRecords  int
	LastRunAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Source represents a tracked input file
type Source struct {
	ID          int64
	DatasetID   int64
	SourcePath  string // Relative to dataset root
	ContentHash [32]byte
	SizeBytes   int64
	ModTime     time.Time
	RecordCount int
	ProcessedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RecordMeta is the tracked metadata of one emitted chunk record.
// The chunk text is not stored; the hash links the row to its JSONL line.
type RecordMeta struct {
	ID          int64
	SourceID    int64
	Seq         int
	ContentHash [32]byte
	CharCount   int
	StartToken  int
	CreatedAt   time.Time
}

// DatasetStatus contains statistics about a prepared dataset
type DatasetStatus struct {
	Dataset      *Dataset
	SourcesCount int
	RecordsCount int
	TotalChars   int64
	LastRunAt    time.Time
	DBSizeMB     float64
}
