package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) querier() querier {
	return t.tx
}

func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Dataset operations

func (s *SQLiteStorage) createDatasetWithQuerier(ctx context.Context, q querier, ds *Dataset) error {
	query := `
		INSERT INTO datasets (root_path, output_path, window_size, overlap, min_chunk_chars, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		ds.RootPath, ds.OutputPath, ds.WindowSize, ds.Overlap, ds.MinChunkChars, now, now)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	ds.ID = id
	ds.CreatedAt = now
	ds.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateDataset(ctx context.Context, ds *Dataset) error {
	return s.createDatasetWithQuerier(ctx, s.querier(), ds)
}

func (s *SQLiteStorage) getDatasetWithQuerier(ctx context.Context, q querier, rootPath string) (*Dataset, error) {
	query := `
		SELECT id, root_path, output_path, window_size, overlap, min_chunk_chars,
		       total_sources, total_records, last_run_at, created_at, updated_at
		FROM datasets
		WHERE root_path = ?
	`
	var ds Dataset
	var lastRunAt sql.NullTime
	err := q.QueryRowContext(ctx, query, rootPath).Scan(
		&ds.ID, &ds.RootPath, &ds.OutputPath, &ds.WindowSize, &ds.Overlap,
		&ds.MinChunkChars, &ds.TotalSources, &ds.TotalRecords,
		&lastRunAt, &ds.CreatedAt, &ds.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastRunAt.Valid {
		ds.LastRunAt = lastRunAt.Time
	}
	return &ds, nil
}

func (s *SQLiteStorage) GetDataset(ctx context.Context, rootPath string) (*Dataset, error) {
	return s.getDatasetWithQuerier(ctx, s.querier(), rootPath)
}

func (s *SQLiteStorage) getDatasetByIDWithQuerier(ctx context.Context, q querier, datasetID int64) (*Dataset, error) {
	query := `
		SELECT id, root_path, output_path, window_size, overlap, min_chunk_chars,
		       total_sources, total_records, last_run_at, created_at, updated_at
		FROM datasets
		WHERE id = ?
	`
	var ds Dataset
	var lastRunAt sql.NullTime
	err := q.QueryRowContext(ctx, query, datasetID).Scan(
		&ds.ID, &ds.RootPath, &ds.OutputPath, &ds.WindowSize, &ds.Overlap,
		&ds.MinChunkChars, &ds.TotalSources, &ds.TotalRecords,
		&lastRunAt, &ds.CreatedAt, &ds.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastRunAt.Valid {
		ds.LastRunAt = lastRunAt.Time
	}
	return &ds, nil
}

func (s *SQLiteStorage) updateDatasetWithQuerier(ctx context.Context, q querier, ds *Dataset) error {
	query := `
		UPDATE datasets
		SET output_path = ?, window_size = ?, overlap = ?, min_chunk_chars = ?,
		    total_sources = ?, total_records = ?, last_run_at = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now()
	_, err := q.ExecContext(ctx, query,
		ds.OutputPath, ds.WindowSize, ds.Overlap, ds.MinChunkChars,
		ds.TotalSources, ds.TotalRecords, ds.LastRunAt, now, ds.ID)
	if err != nil {
		return fmt.Errorf("failed to update dataset: %w", err)
	}
	ds.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateDataset(ctx context.Context, ds *Dataset) error {
	return s.updateDatasetWithQuerier(ctx, s.querier(), ds)
}

// Source operations

func (s *SQLiteStorage) upsertSourceWithQuerier(ctx context.Context, q querier, src *Source) error {
	query := `
		INSERT INTO sources (dataset_id, source_path, content_hash, size_bytes, mod_time, record_count, processed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dataset_id, source_path) DO UPDATE SET
			content_hash = excluded.content_hash,
			size_bytes = excluded.size_bytes,
			mod_time = excluded.mod_time,
			record_count = excluded.record_count,
			processed_at = excluded.processed_at,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		src.DatasetID, src.SourcePath, src.ContentHash[:], src.SizeBytes,
		src.ModTime, src.RecordCount, now, now, now).Scan(&src.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}

	src.ProcessedAt = now
	src.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertSource(ctx context.Context, src *Source) error {
	return s.upsertSourceWithQuerier(ctx, s.querier(), src)
}

func (s *SQLiteStorage) getSourceWithQuerier(ctx context.Context, q querier, datasetID int64, sourcePath string) (*Source, error) {
	query := `
		SELECT id, dataset_id, source_path, content_hash, size_bytes, mod_time,
		       record_count, processed_at, created_at, updated_at
		FROM sources
		WHERE dataset_id = ? AND source_path = ?
	`
	var src Source
	var hash []byte
	err := q.QueryRowContext(ctx, query, datasetID, sourcePath).Scan(
		&src.ID, &src.DatasetID, &src.SourcePath, &hash, &src.SizeBytes,
		&src.ModTime, &src.RecordCount, &src.ProcessedAt, &src.CreatedAt, &src.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	copy(src.ContentHash[:], hash)
	return &src, nil
}

func (s *SQLiteStorage) GetSource(ctx context.Context, datasetID int64, sourcePath string) (*Source, error) {
	return s.getSourceWithQuerier(ctx, s.querier(), datasetID, sourcePath)
}

func (s *SQLiteStorage) listSourcesWithQuerier(ctx context.Context, q querier, datasetID int64) ([]*Source, error) {
	query := `
		SELECT id, dataset_id, source_path, content_hash, size_bytes, mod_time,
		       record_count, processed_at, created_at, updated_at
		FROM sources
		WHERE dataset_id = ?
		ORDER BY source_path
	`
	rows, err := q.QueryContext(ctx, query, datasetID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*Source, 0)
	for rows.Next() {
		var src Source
		var hash []byte

		err := rows.Scan(
			&src.ID, &src.DatasetID, &src.SourcePath, &hash, &src.SizeBytes,
			&src.ModTime, &src.RecordCount, &src.ProcessedAt, &src.CreatedAt, &src.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		copy(src.ContentHash[:], hash)
		sources = append(sources, &src)
	}
	return sources, rows.Err()
}

func (s *SQLiteStorage) ListSources(ctx context.Context, datasetID int64) ([]*Source, error) {
	return s.listSourcesWithQuerier(ctx, s.querier(), datasetID)
}

func (s *SQLiteStorage) deleteSourceWithQuerier(ctx context.Context, q querier, sourceID int64) error {
	query := `DELETE FROM sources WHERE id = ?`
	_, err := q.ExecContext(ctx, query, sourceID)
	return err
}

func (s *SQLiteStorage) DeleteSource(ctx context.Context, sourceID int64) error {
	return s.deleteSourceWithQuerier(ctx, s.querier(), sourceID)
}

// Record metadata operations

func (s *SQLiteStorage) upsertRecordWithQuerier(ctx context.Context, q querier, rec *RecordMeta) error {
	query := `
		INSERT INTO records (source_id, seq, content_hash, char_count, start_token, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, seq) DO UPDATE SET
			content_hash = excluded.content_hash,
			char_count = excluded.char_count,
			start_token = excluded.start_token
		RETURNING id, created_at
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		rec.SourceID, rec.Seq, rec.ContentHash[:], rec.CharCount, rec.StartToken, now,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) UpsertRecord(ctx context.Context, rec *RecordMeta) error {
	return s.upsertRecordWithQuerier(ctx, s.querier(), rec)
}

func (s *SQLiteStorage) listRecordsBySourceWithQuerier(ctx context.Context, q querier, sourceID int64) ([]*RecordMeta, error) {
	query := `
		SELECT id, source_id, seq, content_hash, char_count, start_token, created_at
		FROM records
		WHERE source_id = ?
		ORDER BY seq
	`
	rows, err := q.QueryContext(ctx, query, sourceID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := make([]*RecordMeta, 0)
	for rows.Next() {
		var rec RecordMeta
		var hash []byte

		err := rows.Scan(&rec.ID, &rec.SourceID, &rec.Seq, &hash, &rec.CharCount, &rec.StartToken, &rec.CreatedAt)
		if err != nil {
			return nil, err
		}

		copy(rec.ContentHash[:], hash)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStorage) ListRecordsBySource(ctx context.Context, sourceID int64) ([]*RecordMeta, error) {
	return s.listRecordsBySourceWithQuerier(ctx, s.querier(), sourceID)
}

func (s *SQLiteStorage) deleteRecordsBySourceWithQuerier(ctx context.Context, q querier, sourceID int64) error {
	query := `DELETE FROM records WHERE source_id = ?`
	_, err := q.ExecContext(ctx, query, sourceID)
	return err
}

func (s *SQLiteStorage) DeleteRecordsBySource(ctx context.Context, sourceID int64) error {
	return s.deleteRecordsBySourceWithQuerier(ctx, s.querier(), sourceID)
}

// Status operations

func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier, datasetID int64) (*DatasetStatus, error) {
	ds, err := s.getDatasetByIDWithQuerier(ctx, q, datasetID)
	if err != nil {
		return nil, err
	}

	status := &DatasetStatus{
		Dataset:   ds,
		LastRunAt: ds.LastRunAt,
	}

	var sourceCount int
	err = q.QueryRowContext(ctx, "SELECT COUNT(*) FROM sources WHERE dataset_id = ?", datasetID).Scan(&sourceCount)
	if err != nil {
		return nil, err
	}
	status.SourcesCount = sourceCount

	var recordCount int
	var totalChars sql.NullInt64
	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*), SUM(r.char_count) FROM records r
		JOIN sources s ON r.source_id = s.id
		WHERE s.dataset_id = ?
	`, datasetID).Scan(&recordCount, &totalChars)
	if err != nil {
		return nil, err
	}
	status.RecordsCount = recordCount
	if totalChars.Valid {
		status.TotalChars = totalChars.Int64
	}

	// Calculate database size
	var pageCount, pageSize int
	err = q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		if err := q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			status.DBSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
		}
	}

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context, datasetID int64) (*DatasetStatus, error) {
	return s.getStatusWithQuerier(ctx, s.querier(), datasetID)
}

// Transaction method implementations - delegate to storage with tx querier

func (t *sqliteTx) CreateDataset(ctx context.Context, ds *Dataset) error {
	return t.storage.createDatasetWithQuerier(ctx, t.querier(), ds)
}

func (t *sqliteTx) GetDataset(ctx context.Context, rootPath string) (*Dataset, error) {
	return t.storage.getDatasetWithQuerier(ctx, t.querier(), rootPath)
}

func (t *sqliteTx) UpdateDataset(ctx context.Context, ds *Dataset) error {
	return t.storage.updateDatasetWithQuerier(ctx, t.querier(), ds)
}

func (t *sqliteTx) UpsertSource(ctx context.Context, src *Source) error {
	return t.storage.upsertSourceWithQuerier(ctx, t.querier(), src)
}

func (t *sqliteTx) GetSource(ctx context.Context, datasetID int64, sourcePath string) (*Source, error) {
	return t.storage.getSourceWithQuerier(ctx, t.querier(), datasetID, sourcePath)
}

func (t *sqliteTx) ListSources(ctx context.Context, datasetID int64) ([]*Source, error) {
	return t.storage.listSourcesWithQuerier(ctx, t.querier(), datasetID)
}

func (t *sqliteTx) DeleteSource(ctx context.Context, sourceID int64) error {
	return t.storage.deleteSourceWithQuerier(ctx, t.querier(), sourceID)
}

func (t *sqliteTx) UpsertRecord(ctx context.Context, rec *RecordMeta) error {
	return t.storage.upsertRecordWithQuerier(ctx, t.querier(), rec)
}

func (t *sqliteTx) ListRecordsBySource(ctx context.Context, sourceID int64) ([]*RecordMeta, error) {
	return t.storage.listRecordsBySourceWithQuerier(ctx, t.querier(), sourceID)
}

func (t *sqliteTx) DeleteRecordsBySource(ctx context.Context, sourceID int64) error {
	return t.storage.deleteRecordsBySourceWithQuerier(ctx, t.querier(), sourceID)
}

func (t *sqliteTx) GetStatus(ctx context.Context, datasetID int64) (*DatasetStatus, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier(), datasetID)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
