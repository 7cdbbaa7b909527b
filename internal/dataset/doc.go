// Package dataset reads and writes the line-delimited JSON files the
// pipeline produces and consumes.
//
// The file format is the pipeline's external contract: one compact JSON
// object per line, UTF-8, newline after every record, no trailing commas.
// Downstream tooling depends on this byte-for-byte, so the writer never
// reformats or indents.
//
//	w, err := dataset.Create("dataset/02_sanitized/chunks_sanitized.jsonl")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	_ = w.Append(types.Record{Source: "router.log", Text: chunk})
//
// The same format carries the generation stage's instruction/response
// pairs via Writer.AppendPair.
package dataset
