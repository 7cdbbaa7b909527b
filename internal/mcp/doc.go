// Package mcp implements the Model Context Protocol (MCP) server for
// dataset preparation.
//
// The server exposes five tools to MCP clients:
//   - prepare_dataset: sanitize and chunk a directory of raw text into JSONL
//   - sanitize_text: redact sensitive identifiers from a text snippet
//   - chunk_text: split text into overlapping word windows
//   - generate_qa: turn a prepared dataset into instruction/response pairs
//   - get_status: report preparation statistics for a dataset root
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server listens on stdin and writes responses to stdout, so all
// logging goes to stderr.
//
// # Tool: prepare_dataset
//
//	Request:
//	{
//	  "name": "prepare_dataset",
//	  "arguments": {
//	    "path": "/data/raw",
//	    "output_path": "/data/cleaned/dataset.jsonl",
//	    "window_size": 500,
//	    "overlap": 50,
//	    "force": false
//	  }
//	}
//
//	Response:
//	{
//	  "prepared": true,
//	  "sources_processed": 42,
//	  "sources_skipped": 8,
//	  "records_written": 913,
//	  "duration_ms": 1204
//	}
//
// # Tool: generate_qa
//
//	Request:
//	{
//	  "name": "generate_qa",
//	  "arguments": {
//	    "dataset_path": "/data/cleaned/dataset.jsonl",
//	    "output_path": "/data/training/pairs.jsonl",
//	    "limit": 100
//	  }
//	}
//
// The generation provider is chosen from the environment at server
// startup (DATAPREP_GENERATOR_PROVIDER, then OPENAI_API_KEY, then the
// offline template provider).
//
// # Error Handling
//
// Tools return standard JSON-RPC error responses:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "invalid path",
//	    "data": {"param": "path", "reason": "path does not exist"}
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, filesystem, provider)
//   - -32001: Dataset not found
//   - -32002: Preparation run already in progress
package mcp
