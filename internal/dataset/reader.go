package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dshills/dataprep-mcp/pkg/types"
)

// maxLineBytes bounds a single JSONL line. A 500-word chunk is a few KB;
// 4MB leaves generous headroom for pathological whitespace-free inputs.
const maxLineBytes = 4 * 1024 * 1024

// Scan streams records from a JSONL dataset file, invoking fn for each.
// Blank lines are skipped; a malformed line stops the scan with an error
// that names the offending line number. If fn returns an error the scan
// stops and that error is returned.
func Scan(path string, fn func(rec types.Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var rec types.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("malformed record at line %d: %w", lineNo, err)
		}

		if err := fn(rec); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read dataset: %w", err)
	}
	return nil
}

// ReadAll loads every record from a JSONL dataset file into memory.
// Intended for tests and small datasets; prefer Scan for streaming.
func ReadAll(path string) ([]types.Record, error) {
	var records []types.Record
	err := Scan(path, func(rec types.Record) error {
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
