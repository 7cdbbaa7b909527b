// Package storage provides SQLite-based run tracking for the dataset
// preparation pipeline.
//
// The store does not hold chunk text - that belongs to the JSONL dataset
// file. It records what was processed so repeat runs can skip unchanged
// input:
//   - datasets: one row per (input root, output file, window parameters)
//   - sources: input files with SHA-256 content hashes and record counts
//   - records: per-chunk metadata (ordinal, hash, size, start token)
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage("~/.dataprep/runs.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	src, err := store.GetSource(ctx, datasetID, "logs/router.log")
//	if err == storage.ErrNotFound {
//	    // never processed, run the pipeline for it
//	}
//
// # Transactions
//
// Per-file writes happen inside a transaction so a crashed run never
// leaves a half-tracked source:
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	_ = tx.UpsertSource(ctx, src)
//	for _, rec := range recs {
//	    _ = tx.UpsertRecord(ctx, rec)
//	}
//	return tx.Commit()
//
// # Drivers
//
// Two SQLite drivers are supported via build tags: the default pure Go
// modernc.org/sqlite, and github.com/mattn/go-sqlite3 behind the
// cgosqlite tag. See build_purego.go and build_cgo.go.
package storage
