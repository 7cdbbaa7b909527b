package types

import "encoding/json"

// Record is the unit persisted to the sanitized dataset: one chunk of
// cleaned text attributed to the file it came from. Records are written
// as line-delimited JSON, one compact object per line.
type Record struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Validate checks that the record is complete enough to persist.
func (r *Record) Validate() error {
	if r.Source == "" {
		return ErrEmptySource
	}
	if r.Text == "" {
		return ErrEmptyContent
	}
	return nil
}

// MarshalLine renders the record as a single JSONL line without the
// trailing newline. The encoding is compact and stable so re-running the
// pipeline over unchanged input produces byte-identical output.
func (r *Record) MarshalLine() ([]byte, error) {
	return json.Marshal(r)
}

// QAPair is an instruction/response training example produced by the
// generation stage from a sanitized chunk.
type QAPair struct {
	Instruction string `json:"instruction"`
	Response    string `json:"response"`
}

// Validate checks that both halves of the pair are present.
func (p *QAPair) Validate() error {
	if p.Instruction == "" || p.Response == "" {
		return ErrIncompletePair
	}
	return nil
}
