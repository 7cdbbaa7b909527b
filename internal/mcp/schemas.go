package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// prepareDatasetTool returns the tool definition for prepare_dataset
func prepareDatasetTool() mcp.Tool {
	return mcp.Tool{
		Name:        "prepare_dataset",
		Description: "Sanitize and chunk every text file under a directory into a JSONL training dataset",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the directory of raw source files",
				},
				"output_path": map[string]interface{}{
					"type":        "string",
					"description": "Path of the JSONL dataset file to write (default: <path>/dataset.jsonl)",
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, rebuild the dataset file and reprocess every source ignoring content hashes",
					"default":     false,
				},
				"window_size": map[string]interface{}{
					"type":        "integer",
					"description": "Words per chunk window",
					"default":     500,
				},
				"overlap": map[string]interface{}{
					"type":        "integer",
					"description": "Words shared between consecutive windows (must be smaller than window_size)",
					"default":     50,
				},
				"min_chunk_chars": map[string]interface{}{
					"type":        "integer",
					"description": "Windows at or below this many characters are dropped",
					"default":     50,
				},
				"extensions": map[string]interface{}{
					"type":        "array",
					"description": "File extensions to ingest (default: .txt, .log, .md, .json)",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"include_hidden": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, descend into hidden directories",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// sanitizeTextTool returns the tool definition for sanitize_text
func sanitizeTextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "sanitize_text",
		Description: "Replace IP addresses, emails, secret keys, and MAC addresses in text with redaction placeholders",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Raw text to sanitize",
				},
			},
			Required: []string{"text"},
		},
	}
}

// chunkTextTool returns the tool definition for chunk_text
func chunkTextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "chunk_text",
		Description: "Split text into overlapping word windows",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Text to split into chunks",
				},
				"window_size": map[string]interface{}{
					"type":        "integer",
					"description": "Words per chunk window",
					"default":     500,
				},
				"overlap": map[string]interface{}{
					"type":        "integer",
					"description": "Words shared between consecutive windows (must be smaller than window_size)",
					"default":     50,
				},
				"min_chunk_chars": map[string]interface{}{
					"type":        "integer",
					"description": "Windows at or below this many characters are dropped",
					"default":     50,
				},
			},
			Required: []string{"text"},
		},
	}
}

// generateQATool returns the tool definition for generate_qa
func generateQATool() mcp.Tool {
	return mcp.Tool{
		Name:        "generate_qa",
		Description: "Generate instruction/response training pairs from a prepared JSONL dataset using a teacher model",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"dataset_path": map[string]interface{}{
					"type":        "string",
					"description": "Path to the prepared JSONL dataset (one {source, text} record per line)",
				},
				"output_path": map[string]interface{}{
					"type":        "string",
					"description": "Path of the JSONL pair file to write",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of pairs to generate (0 = no limit)",
					"default":     0,
				},
				"model": map[string]interface{}{
					"type":        "string",
					"description": "Override the provider's default model",
				},
			},
			Required: []string{"dataset_path", "output_path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query preparation status and statistics for a dataset root directory",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the dataset root directory",
				},
			},
			Required: []string{"path"},
		},
	}
}
