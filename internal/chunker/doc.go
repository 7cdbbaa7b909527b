// Package chunker splits sanitized text into bounded, overlapping word
// windows for batch consumption downstream.
//
// # Basic Usage
//
//	c, err := chunker.New(chunker.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, chunk := range c.Split(text) {
//	    fmt.Println(len(chunk))
//	}
//
// # Windowing
//
// Text is tokenized on whitespace. Windows of WindowSize words are taken
// at offsets 0, stride, 2*stride, ... where stride = WindowSize - Overlap.
// The overlap repeats the tail of each window at the head of the next so a
// sentence cut at a boundary is still seen whole in one window. The final
// window may be shorter than WindowSize; windows at or below MinChunkChars
// characters are discarded as end-of-file artifacts.
//
// # Determinism
//
// Split is a pure function of (configuration, text): same input, same
// ordered output, always. Invalid configurations (overlap >= window size,
// non-positive window) are rejected at construction time with
// types.ErrInvalidChunkConfig, never mid-stream.
package chunker
