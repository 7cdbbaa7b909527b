// Package pipeline orchestrates dataset preparation: it walks a root
// directory for eligible text files, sanitizes their content, splits it
// into overlapping word windows, and appends one JSONL record per window
// to the dataset file while tracking every source and record in storage.
//
// Runs are incremental by content hash. A source file whose bytes have
// not changed since the last run is skipped entirely. Files are
// processed concurrently by a bounded worker pool and committed in
// per-batch transactions; one bad file fails alone without aborting the
// run.
package pipeline
