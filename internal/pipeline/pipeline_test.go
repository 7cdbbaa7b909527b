package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/dataprep-mcp/internal/chunker"
	"github.com/dshills/dataprep-mcp/internal/dataset"
	"github.com/dshills/dataprep-mcp/internal/storage"
)

// setupTestStorage creates an in-memory SQLite database for testing
func setupTestStorage(t testing.TB) storage.Storage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err, "Failed to create test storage")

	return store
}

// newTestPipeline builds a pipeline with a small window so short fixtures
// still produce several chunks
func newTestPipeline(t testing.TB, store storage.Storage) *Pipeline {
	t.Helper()

	ch, err := chunker.New(chunker.Config{WindowSize: 10, Overlap: 2, MinChunkChars: 0})
	require.NoError(t, err)

	return New(store, ch)
}

// createTestFile creates a source file under dir for testing
func createTestFile(t testing.TB, dir, name, content string) string {
	t.Helper()

	filePath := filepath.Join(dir, name)
	err := os.MkdirAll(filepath.Dir(filePath), 0755)
	require.NoError(t, err)

	err = os.WriteFile(filePath, []byte(content), 0644)
	require.NoError(t, err)

	return filePath
}

// sentence produces n words of filler text
func sentence(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%03d", i)
	}
	return strings.Join(words, " ")
}

// TestNew verifies pipeline initialization
func TestNew(t *testing.T) {
	store := setupTestStorage(t)
	defer store.Close()

	p := newTestPipeline(t, store)

	assert.NotNil(t, p)
	assert.NotNil(t, p.sanitizer)
	assert.NotNil(t, p.chunker)
	assert.NotNil(t, p.storage)
	assert.Equal(t, runtime.NumCPU(), p.workers)
}

// TestDiscoverFiles_Success tests discovery of eligible source files
func TestDiscoverFiles_Success(t *testing.T) {
	tmpDir := t.TempDir()

	createTestFile(t, tmpDir, "server.log", "log line\n")
	createTestFile(t, tmpDir, "notes/readme.md", "# notes\n")
	createTestFile(t, tmpDir, "dump.txt", "text\n")
	createTestFile(t, tmpDir, "report.json", "{}\n")

	p := newTestPipeline(t, setupTestStorage(t))
	config := &Config{Extensions: DefaultExtensions}

	files, err := p.discoverFiles(tmpDir, config)

	require.NoError(t, err)
	assert.Len(t, files, 4)
}

// TestDiscoverFiles_EmptyDirectory tests empty directory
func TestDiscoverFiles_EmptyDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	p := newTestPipeline(t, setupTestStorage(t))
	config := &Config{Extensions: DefaultExtensions}

	files, err := p.discoverFiles(tmpDir, config)

	require.NoError(t, err)
	assert.Empty(t, files)
}

// TestDiscoverFiles_SkipOtherExtensions tests that ineligible files are skipped
func TestDiscoverFiles_SkipOtherExtensions(t *testing.T) {
	tmpDir := t.TempDir()

	createTestFile(t, tmpDir, "server.log", "log line\n")
	createTestFile(t, tmpDir, "binary.bin", "\x00\x01\n")
	createTestFile(t, tmpDir, "main.go", "package main\n")

	p := newTestPipeline(t, setupTestStorage(t))
	config := &Config{Extensions: DefaultExtensions}

	files, err := p.discoverFiles(tmpDir, config)

	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.True(t, strings.HasSuffix(files[0], "server.log"))
}

// TestDiscoverFiles_SkipHiddenDirs tests that hidden directories are skipped
func TestDiscoverFiles_SkipHiddenDirs(t *testing.T) {
	tmpDir := t.TempDir()

	createTestFile(t, tmpDir, "visible.log", "ok\n")
	createTestFile(t, tmpDir, ".git/objects.log", "internal\n")
	createTestFile(t, tmpDir, ".cache/state.txt", "internal\n")

	p := newTestPipeline(t, setupTestStorage(t))
	config := &Config{Extensions: DefaultExtensions}

	files, err := p.discoverFiles(tmpDir, config)

	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.False(t, strings.Contains(files[0], ".git"))
}

// TestDiscoverFiles_IncludeHidden tests opting in to hidden directories
func TestDiscoverFiles_IncludeHidden(t *testing.T) {
	tmpDir := t.TempDir()

	createTestFile(t, tmpDir, "visible.log", "ok\n")
	createTestFile(t, tmpDir, ".archive/old.log", "old\n")

	p := newTestPipeline(t, setupTestStorage(t))
	config := &Config{Extensions: DefaultExtensions, IncludeHidden: true}

	files, err := p.discoverFiles(tmpDir, config)

	require.NoError(t, err)
	assert.Len(t, files, 2)
}

// TestDiscoverFiles_CustomExtensions tests extension filtering
func TestDiscoverFiles_CustomExtensions(t *testing.T) {
	tmpDir := t.TempDir()

	createTestFile(t, tmpDir, "a.log", "log\n")
	createTestFile(t, tmpDir, "b.yaml", "yaml\n")

	p := newTestPipeline(t, setupTestStorage(t))
	config := &Config{Extensions: []string{".yaml"}}

	files, err := p.discoverFiles(tmpDir, config)

	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.True(t, strings.HasSuffix(files[0], "b.yaml"))
}

// TestComputeFileHash tests hash computation
func TestComputeFileHash(t *testing.T) {
	tmpDir := t.TempDir()
	content := "error at startup\nretrying\n"
	filePath := createTestFile(t, tmpDir, "boot.log", content)

	hash1, modTime1, size1, err := computeFileHash(filePath)
	require.NoError(t, err)
	assert.NotEqual(t, [32]byte{}, hash1)
	assert.False(t, modTime1.IsZero())
	assert.Equal(t, int64(len(content)), size1)

	// Hash should be consistent
	hash2, _, _, err := computeFileHash(filePath)
	require.NoError(t, err)
	assert.Equal(t, hash1, hash2)
}

// TestComputeFileHash_DifferentContent tests that different content produces different hashes
func TestComputeFileHash_DifferentContent(t *testing.T) {
	tmpDir := t.TempDir()

	filePath1 := createTestFile(t, tmpDir, "a.log", "first\n")
	filePath2 := createTestFile(t, tmpDir, "b.log", "second\n")

	hash1, _, _, err := computeFileHash(filePath1)
	require.NoError(t, err)

	hash2, _, _, err := computeFileHash(filePath2)
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2)
}

// TestComputeFileHash_NonexistentFile tests error handling for nonexistent files
func TestComputeFileHash_NonexistentFile(t *testing.T) {
	_, _, _, err := computeFileHash("/nonexistent/file.log")
	assert.Error(t, err)
}

// TestCheckSourceChanged_NewSource tests that new sources are not skipped
func TestCheckSourceChanged_NewSource(t *testing.T) {
	store := setupTestStorage(t)
	defer store.Close()

	p := newTestPipeline(t, store)
	ctx := context.Background()

	ds := &storage.Dataset{RootPath: "/data", OutputPath: "/out.jsonl", WindowSize: 10, Overlap: 2}
	require.NoError(t, store.CreateDataset(ctx, ds))

	var skipped int32
	shouldSkip, err := p.checkSourceChanged(ctx, store, ds.ID, "new.log", [32]byte{1, 2, 3}, false, &skipped)

	require.NoError(t, err)
	assert.False(t, shouldSkip)
	assert.Equal(t, int32(0), skipped)
}

// TestCheckSourceChanged_UnchangedSource tests that unchanged sources are skipped
func TestCheckSourceChanged_UnchangedSource(t *testing.T) {
	store := setupTestStorage(t)
	defer store.Close()

	p := newTestPipeline(t, store)
	ctx := context.Background()

	ds := &storage.Dataset{RootPath: "/data", OutputPath: "/out.jsonl", WindowSize: 10, Overlap: 2}
	require.NoError(t, store.CreateDataset(ctx, ds))

	hash := [32]byte{1, 2, 3}
	src := &storage.Source{DatasetID: ds.ID, SourcePath: "existing.log", ContentHash: hash}
	require.NoError(t, store.UpsertSource(ctx, src))

	var skipped int32
	shouldSkip, err := p.checkSourceChanged(ctx, store, ds.ID, "existing.log", hash, false, &skipped)

	require.NoError(t, err)
	assert.True(t, shouldSkip)
	assert.Equal(t, int32(1), skipped)
}

// TestCheckSourceChanged_ModifiedSource tests that modified sources drop stale records
func TestCheckSourceChanged_ModifiedSource(t *testing.T) {
	store := setupTestStorage(t)
	defer store.Close()

	p := newTestPipeline(t, store)
	ctx := context.Background()

	ds := &storage.Dataset{RootPath: "/data", OutputPath: "/out.jsonl", WindowSize: 10, Overlap: 2}
	require.NoError(t, store.CreateDataset(ctx, ds))

	oldHash := [32]byte{1, 2, 3}
	src := &storage.Source{DatasetID: ds.ID, SourcePath: "modified.log", ContentHash: oldHash}
	require.NoError(t, store.UpsertSource(ctx, src))

	rec := &storage.RecordMeta{SourceID: src.ID, Seq: 0, ContentHash: [32]byte{9}, CharCount: 11}
	require.NoError(t, store.UpsertRecord(ctx, rec))

	newHash := [32]byte{4, 5, 6}
	var skipped int32
	shouldSkip, err := p.checkSourceChanged(ctx, store, ds.ID, "modified.log", newHash, false, &skipped)

	require.NoError(t, err)
	assert.False(t, shouldSkip)
	assert.Equal(t, int32(0), skipped)

	// Verify stale records were deleted
	records, err := store.ListRecordsBySource(ctx, src.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

// TestRun_Success tests a full preparation run end to end
func TestRun_Success(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(t.TempDir(), "dataset.jsonl")

	createTestFile(t, tmpDir, "app.log", sentence(30))

	store := setupTestStorage(t)
	defer store.Close()

	p := newTestPipeline(t, store)

	stats, err := p.Run(context.Background(), tmpDir, outputPath, &Config{Workers: 2, BatchSize: 10})

	require.NoError(t, err)
	assert.NotNil(t, stats)
	assert.Equal(t, 1, stats.SourcesProcessed)
	assert.Equal(t, 0, stats.SourcesSkipped)
	assert.Equal(t, 0, stats.SourcesFailed)
	assert.Greater(t, stats.RecordsWritten, 0)
	assert.Greater(t, stats.Duration, time.Duration(0))

	// Every record must name its source and carry sanitized text
	records, err := dataset.ReadAll(outputPath)
	require.NoError(t, err)
	require.Len(t, records, stats.RecordsWritten)
	for _, rec := range records {
		assert.Equal(t, "app.log", rec.Source)
		assert.NotEmpty(t, rec.Text)
	}
}

// TestRun_Sanitizes tests that raw identifiers never reach the dataset file
func TestRun_Sanitizes(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(t.TempDir(), "dataset.jsonl")

	content := "Login failed for admin@corp.local from 10.0.0.5 using api_key=AAAAAAAAAAAAAAAAAAAA " + sentence(20)
	createTestFile(t, tmpDir, "auth.log", content)

	store := setupTestStorage(t)
	defer store.Close()

	p := newTestPipeline(t, store)

	_, err := p.Run(context.Background(), tmpDir, outputPath, nil)
	require.NoError(t, err)

	raw, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	text := string(raw)
	assert.NotContains(t, text, "admin@corp.local")
	assert.NotContains(t, text, "10.0.0.5")
	assert.NotContains(t, text, "AAAAAAAAAAAAAAAAAAAA")
	assert.Contains(t, text, "[REDACTED_EMAIL]")
	assert.Contains(t, text, "[REDACTED_IP]")
	assert.Contains(t, text, "[REDACTED_SECRET]")
}

// TestRun_EmptyDirectory tests running against an empty root
func TestRun_EmptyDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(t.TempDir(), "dataset.jsonl")

	store := setupTestStorage(t)
	defer store.Close()

	p := newTestPipeline(t, store)

	stats, err := p.Run(context.Background(), tmpDir, outputPath, nil)

	require.NoError(t, err)
	assert.Equal(t, 0, stats.SourcesProcessed)
	assert.Equal(t, 0, stats.RecordsWritten)
}

// TestRun_IncrementalUpdate tests that unchanged sources are skipped
func TestRun_IncrementalUpdate(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(t.TempDir(), "dataset.jsonl")

	file1 := createTestFile(t, tmpDir, "one.log", sentence(30))
	createTestFile(t, tmpDir, "two.log", sentence(30))

	store := setupTestStorage(t)
	defer store.Close()

	p := newTestPipeline(t, store)
	ctx := context.Background()

	// First run processes everything
	stats1, err := p.Run(ctx, tmpDir, outputPath, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats1.SourcesProcessed)
	assert.Equal(t, 0, stats1.SourcesSkipped)

	// Modify one source
	time.Sleep(10 * time.Millisecond) // Ensure different modtime
	require.NoError(t, os.WriteFile(file1, []byte(sentence(25)+" changed"), 0644))

	// Second run skips the unchanged source
	stats2, err := p.Run(ctx, tmpDir, outputPath, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats2.SourcesProcessed, "Only modified source should be reprocessed")
	assert.Equal(t, 1, stats2.SourcesSkipped, "Unchanged source should be skipped")
}

// TestRun_Force tests that Force rebuilds the dataset file from scratch
func TestRun_Force(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(t.TempDir(), "dataset.jsonl")

	createTestFile(t, tmpDir, "one.log", sentence(30))

	store := setupTestStorage(t)
	defer store.Close()

	p := newTestPipeline(t, store)
	ctx := context.Background()

	stats1, err := p.Run(ctx, tmpDir, outputPath, nil)
	require.NoError(t, err)

	stats2, err := p.Run(ctx, tmpDir, outputPath, &Config{Force: true})
	require.NoError(t, err)
	assert.Equal(t, stats1.RecordsWritten, stats2.RecordsWritten)
	assert.Equal(t, 0, stats2.SourcesSkipped)

	// Forced rebuild must not duplicate records in the file
	records, err := dataset.ReadAll(outputPath)
	require.NoError(t, err)
	assert.Len(t, records, stats2.RecordsWritten)
}

// TestRun_UpdatesDatasetStats tests dataset totals after a run
func TestRun_UpdatesDatasetStats(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(t.TempDir(), "dataset.jsonl")

	createTestFile(t, tmpDir, "one.log", sentence(30))
	createTestFile(t, tmpDir, "sub/two.log", sentence(30))

	store := setupTestStorage(t)
	defer store.Close()

	p := newTestPipeline(t, store)
	ctx := context.Background()

	stats, err := p.Run(ctx, tmpDir, outputPath, nil)
	require.NoError(t, err)

	absRoot, err := filepath.Abs(tmpDir)
	require.NoError(t, err)

	ds, err := store.GetDataset(ctx, absRoot)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.TotalSources)
	assert.Equal(t, stats.RecordsWritten, ds.TotalRecords)
	assert.False(t, ds.LastRunAt.IsZero())
}

// TestRun_TinyFileProducesNoRecords tests the minimum chunk size floor
func TestRun_TinyFileProducesNoRecords(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(t.TempDir(), "dataset.jsonl")

	createTestFile(t, tmpDir, "tiny.log", "ok\n")

	store := setupTestStorage(t)
	defer store.Close()

	ch, err := chunker.New(chunker.DefaultConfig())
	require.NoError(t, err)
	p := New(store, ch)

	stats, err := p.Run(context.Background(), tmpDir, outputPath, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.SourcesProcessed)
	assert.Equal(t, 0, stats.RecordsWritten, "Content at or below the character floor is dropped")
}

// TestRun_WhitespaceOnlyFileSkipped tests that blank sources are never tracked
func TestRun_WhitespaceOnlyFileSkipped(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(t.TempDir(), "dataset.jsonl")

	createTestFile(t, tmpDir, "blank.log", "   \n\t\n")

	store := setupTestStorage(t)
	defer store.Close()

	p := newTestPipeline(t, store)
	ctx := context.Background()

	stats, err := p.Run(ctx, tmpDir, outputPath, nil)

	require.NoError(t, err)
	assert.Equal(t, 0, stats.SourcesProcessed)
	assert.Equal(t, 1, stats.SourcesSkipped)
	assert.Equal(t, 0, stats.RecordsWritten)

	// No source row should have been upserted for the blank file
	absRoot, err := filepath.Abs(tmpDir)
	require.NoError(t, err)
	ds, err := store.GetDataset(ctx, absRoot)
	require.NoError(t, err)
	assert.Equal(t, 0, ds.TotalSources)

	_, err = store.GetSource(ctx, ds.ID, "blank.log")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// TestRun_ConcurrentCalls tests that overlapping runs are rejected
func TestRun_ConcurrentCalls(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(t.TempDir(), "dataset.jsonl")

	createTestFile(t, tmpDir, "one.log", sentence(30))

	store := setupTestStorage(t)
	defer store.Close()

	p := newTestPipeline(t, store)

	// Hold the lock as an in-flight run would
	require.True(t, p.runLock.TryAcquire())
	defer p.runLock.Release()

	_, err := p.Run(context.Background(), tmpDir, outputPath, nil)
	assert.ErrorIs(t, err, ErrRunInProgress)
}

// TestRun_BatchProcessing tests that sources are processed across batches
func TestRun_BatchProcessing(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(t.TempDir(), "dataset.jsonl")

	for i := 0; i < 25; i++ {
		createTestFile(t, tmpDir, fmt.Sprintf("file%d.log", i), sentence(15))
	}

	store := setupTestStorage(t)
	defer store.Close()

	p := newTestPipeline(t, store)

	stats, err := p.Run(context.Background(), tmpDir, outputPath, &Config{
		Workers:   2,
		BatchSize: 10, // Should process in 3 batches
	})

	require.NoError(t, err)
	assert.Equal(t, 25, stats.SourcesProcessed)
	assert.Equal(t, 0, stats.SourcesFailed)
}

// TestRunLock_ConcurrentAcquisition tests RunLock behavior under concurrent access
func TestRunLock_ConcurrentAcquisition(t *testing.T) {
	t.Run("TryAcquire succeeds when lock is available", func(t *testing.T) {
		var lock RunLock
		assert.True(t, lock.TryAcquire())
		lock.Release()
	})

	t.Run("TryAcquire fails while lock is held", func(t *testing.T) {
		var lock RunLock
		require.True(t, lock.TryAcquire())
		assert.False(t, lock.TryAcquire())
		lock.Release()
	})

	t.Run("Release makes lock available again", func(t *testing.T) {
		var lock RunLock
		require.True(t, lock.TryAcquire())
		lock.Release()
		assert.True(t, lock.TryAcquire())
		lock.Release()
	})

	t.Run("exactly one of many goroutines acquires", func(t *testing.T) {
		var lock RunLock
		const numGoroutines = 100

		acquired := make([]bool, numGoroutines)
		var wg sync.WaitGroup
		wg.Add(numGoroutines)

		for i := 0; i < numGoroutines; i++ {
			go func(idx int) {
				defer wg.Done()
				acquired[idx] = lock.TryAcquire()
			}(i)
		}

		wg.Wait()

		successCount := 0
		for _, ok := range acquired {
			if ok {
				successCount++
			}
		}
		assert.Equal(t, 1, successCount, "Exactly one goroutine should acquire the lock")
		lock.Release()
	})
}
