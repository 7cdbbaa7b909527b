package pipeline

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/dataprep-mcp/internal/chunker"
	"github.com/dshills/dataprep-mcp/internal/dataset"
	"github.com/dshills/dataprep-mcp/internal/sanitizer"
	"github.com/dshills/dataprep-mcp/internal/storage"
)

// DefaultExtensions lists the file types the pipeline ingests.
var DefaultExtensions = []string{".txt", ".log", ".md", ".json"}

// ErrRunInProgress is returned when a preparation run is already active
// on this pipeline.
var ErrRunInProgress = errors.New("preparation run already in progress")

// Pipeline coordinates the preparation run: discover -> sanitize -> chunk -> write
type Pipeline struct {
	sanitizer *sanitizer.Sanitizer
	chunker   *chunker.Chunker
	storage   storage.Storage

	// Worker pool configuration
	workers int

	// Guards against overlapping runs clobbering the dataset file
	runLock RunLock
}

// Config contains configuration for a preparation run
type Config struct {
	Workers       int      // Number of concurrent workers (default: runtime.NumCPU())
	BatchSize     int      // Number of sources to commit per transaction (default: 20)
	Extensions    []string // File extensions to ingest (default: DefaultExtensions)
	IncludeHidden bool     // Whether to descend into hidden directories (default: false)
	Force         bool     // Rebuild the dataset file and reprocess every source
}

// Statistics contains statistics about one preparation run
type Statistics struct {
	SourcesProcessed int
	SourcesSkipped   int
	SourcesFailed    int
	RecordsWritten   int
	Duration         time.Duration
	ErrorMessages    []string
}

// New creates a Pipeline around the given storage and chunker. The
// sanitizer always runs with the default pattern registry so no raw
// identifier can bypass it through configuration.
func New(store storage.Storage, ch *chunker.Chunker) *Pipeline {
	return &Pipeline{
		sanitizer: sanitizer.New(),
		chunker:   ch,
		storage:   store,
		workers:   runtime.NumCPU(),
	}
}

// Run prepares a dataset from every eligible file under rootPath, writing
// sanitized chunk records to the JSONL file at outputPath.
//
// Runs are incremental: a source whose content hash is unchanged since the
// last run is skipped, and its records are not re-emitted. The JSONL file
// is an append log; pass Force to truncate it and reprocess everything.
func (p *Pipeline) Run(ctx context.Context, rootPath, outputPath string, config *Config) (*Statistics, error) {
	if !p.runLock.TryAcquire() {
		return nil, ErrRunInProgress
	}
	defer p.runLock.Release()

	if config == nil {
		config = &Config{}
	}
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if len(config.Extensions) == 0 {
		config.Extensions = DefaultExtensions
	}
	p.workers = config.Workers

	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}

	startTime := time.Now()
	stats := &Statistics{
		ErrorMessages: make([]string, 0),
	}

	// Get or create the dataset row tracking this root
	ds, err := p.getOrCreateDataset(ctx, absRoot, outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create dataset: %w", err)
	}

	// Discover eligible source files
	files, err := p.discoverFiles(absRoot, config)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	// Open the dataset file. A fresh dataset or a forced run starts from
	// an empty file; otherwise new records append to the existing log.
	var writer *dataset.Writer
	if config.Force || ds.TotalRecords == 0 {
		writer, err = dataset.Create(outputPath)
	} else {
		writer, err = dataset.Open(outputPath)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = writer.Close() }()

	// Process sources concurrently
	if err := p.processFiles(ctx, ds, files, writer, config, stats); err != nil {
		return nil, fmt.Errorf("failed to process sources: %w", err)
	}

	if err := writer.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush dataset: %w", err)
	}

	// Update dataset statistics
	if err := p.updateDatasetStats(ctx, ds); err != nil {
		return nil, fmt.Errorf("failed to update dataset stats: %w", err)
	}

	stats.Duration = time.Since(startTime)
	return stats, nil
}

// getOrCreateDataset retrieves the dataset tracked for rootPath or creates
// a new one carrying the current windowing parameters.
func (p *Pipeline) getOrCreateDataset(ctx context.Context, rootPath, outputPath string) (*storage.Dataset, error) {
	ds, err := p.storage.GetDataset(ctx, rootPath)
	if err == nil {
		if ds.OutputPath != outputPath {
			ds.OutputPath = outputPath
			if err := p.storage.UpdateDataset(ctx, ds); err != nil {
				return nil, err
			}
		}
		return ds, nil
	}

	if err != storage.ErrNotFound {
		return nil, err
	}

	cfg := p.chunker.Config()
	ds = &storage.Dataset{
		RootPath:      rootPath,
		OutputPath:    outputPath,
		WindowSize:    cfg.WindowSize,
		Overlap:       cfg.Overlap,
		MinChunkChars: cfg.MinChunkChars,
	}

	if err := p.storage.CreateDataset(ctx, ds); err != nil {
		return nil, err
	}

	return ds, nil
}

// discoverFiles finds all eligible source files under the dataset root
func (p *Pipeline) discoverFiles(rootPath string, config *Config) ([]string, error) {
	var files []string

	err := filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			// Skip hidden directories unless explicitly included
			if !config.IncludeHidden && path != rootPath && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !hasExtension(path, config.Extensions) {
			return nil
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// hasExtension reports whether path carries one of the given extensions.
func hasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// processFiles processes source files concurrently in transactional batches
func (p *Pipeline) processFiles(ctx context.Context, ds *storage.Dataset, files []string,
	writer *dataset.Writer, config *Config, stats *Statistics) error {

	// Create worker pool with semaphore
	semaphore := make(chan struct{}, p.workers)

	// Track progress with atomic counters
	var (
		processed int32
		skipped   int32
		failed    int32
		records   int32
	)

	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}

	// Use errgroup for concurrent processing with error propagation
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex // Protect stats.ErrorMessages

	for i := 0; i < len(files); i += batchSize {
		end := i + batchSize
		if end > len(files) {
			end = len(files)
		}
		batch := files[i:end]

		g.Go(func() error {
			return p.processBatch(gctx, ds, batch, writer, config, semaphore,
				&processed, &skipped, &failed, &records, &mu, stats)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	stats.SourcesProcessed = int(processed)
	stats.SourcesSkipped = int(skipped)
	stats.SourcesFailed = int(failed)
	stats.RecordsWritten = int(records)

	return nil
}

// processBatch processes a batch of source files within one transaction
func (p *Pipeline) processBatch(ctx context.Context, ds *storage.Dataset, files []string,
	writer *dataset.Writer, config *Config, semaphore chan struct{},
	processed, skipped, failed, records *int32, mu *sync.Mutex, stats *Statistics) error {

	tx, err := p.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, filePath := range files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case semaphore <- struct{}{}:
			// Acquire semaphore
		}

		err := p.processFile(ctx, tx, ds, filePath, writer, config, processed, skipped, records)
		<-semaphore // Release semaphore

		if err != nil {
			atomic.AddInt32(failed, 1)
			mu.Lock()
			stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", filePath, err))
			mu.Unlock()
			// Continue with other sources
			continue
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// processFile sanitizes and chunks a single source file
func (p *Pipeline) processFile(ctx context.Context, store storage.Storage, ds *storage.Dataset,
	filePath string, writer *dataset.Writer, config *Config,
	processed, skipped, records *int32) error {

	relPath, err := filepath.Rel(ds.RootPath, filePath)
	if err != nil {
		return err
	}

	hash, modTime, sizeBytes, err := computeFileHash(filePath)
	if err != nil {
		return err
	}

	// Skip sources whose content is unchanged since the last run
	shouldSkip, err := p.checkSourceChanged(ctx, store, ds.ID, relPath, hash, config.Force, skipped)
	if err != nil {
		return err
	}
	if shouldSkip {
		return nil
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	// Empty and whitespace-only sources produce nothing worth tracking
	if strings.TrimSpace(string(content)) == "" {
		atomic.AddInt32(skipped, 1)
		return nil
	}

	cleaned := p.sanitizer.Clean(string(content))
	chunks := p.chunker.SplitChunks(relPath, cleaned)

	src := &storage.Source{
		DatasetID:   ds.ID,
		SourcePath:  relPath,
		ContentHash: hash,
		ModTime:     modTime,
		SizeBytes:   sizeBytes,
		RecordCount: len(chunks),
		ProcessedAt: time.Now(),
	}
	if err := store.UpsertSource(ctx, src); err != nil {
		return err
	}

	for _, chunk := range chunks {
		if err := writer.Append(chunk.Record()); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}

		meta := &storage.RecordMeta{
			SourceID:    src.ID,
			Seq:         chunk.Seq,
			ContentHash: chunk.ContentHash,
			CharCount:   chunk.CharCount,
			StartToken:  chunk.StartToken,
		}
		if err := store.UpsertRecord(ctx, meta); err != nil {
			return fmt.Errorf("failed to store record metadata: %w", err)
		}
	}

	atomic.AddInt32(processed, 1)
	atomic.AddInt32(records, int32(len(chunks)))

	return nil
}

// checkSourceChanged reports whether a source can be skipped this run.
// A changed source has its stale record metadata deleted before
// reprocessing.
func (p *Pipeline) checkSourceChanged(ctx context.Context, store storage.Storage, datasetID int64,
	relPath string, hash [32]byte, force bool, skipped *int32) (bool, error) {

	existing, err := store.GetSource(ctx, datasetID, relPath)
	if err == storage.ErrNotFound {
		// New source, needs processing
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if existing.ContentHash == hash && !force {
		atomic.AddInt32(skipped, 1)
		return true, nil
	}

	// Source changed (or forced) - drop stale record metadata first
	if err := store.DeleteRecordsBySource(ctx, existing.ID); err != nil {
		return false, fmt.Errorf("failed to delete stale records: %w", err)
	}

	return false, nil
}

// updateDatasetStats refreshes the dataset's source and record totals
func (p *Pipeline) updateDatasetStats(ctx context.Context, ds *storage.Dataset) error {
	sources, err := p.storage.ListSources(ctx, ds.ID)
	if err != nil {
		return err
	}

	totalRecords := 0
	for _, src := range sources {
		totalRecords += src.RecordCount
	}

	ds.TotalSources = len(sources)
	ds.TotalRecords = totalRecords
	ds.LastRunAt = time.Now()

	return p.storage.UpdateDataset(ctx, ds)
}

// computeFileHash computes SHA-256 hash of a file
func computeFileHash(filePath string) ([32]byte, time.Time, int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return [32]byte{}, time.Time{}, 0, err
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return [32]byte{}, time.Time{}, 0, err
	}

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return [32]byte{}, time.Time{}, 0, err
	}

	var result [32]byte
	copy(result[:], hash.Sum(nil))

	return result, info.ModTime(), info.Size(), nil
}
