package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/dataprep-mcp/internal/chunker"
	"github.com/dshills/dataprep-mcp/internal/dataset"
	"github.com/dshills/dataprep-mcp/internal/generator"
	"github.com/dshills/dataprep-mcp/internal/pipeline"
	"github.com/dshills/dataprep-mcp/internal/storage"
	"github.com/dshills/dataprep-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeDatasetNotFound = -32001 // No dataset tracked for the given path
	ErrorCodeRunInProgress   = -32002 // Another preparation run is already active
)

// handlePrepareDataset handles the prepare_dataset tool invocation
func (s *Server) handlePrepareDataset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	outputPath := getStringDefault(args, "output_path", filepath.Join(path, "dataset.jsonl"))

	// Windowing overrides build a dedicated chunker; an invalid combination
	// is a parameter error, not an internal one
	chunkCfg := chunker.Config{
		WindowSize:    getIntDefault(args, "window_size", chunker.DefaultWindowSize),
		Overlap:       getIntDefault(args, "overlap", chunker.DefaultOverlap),
		MinChunkChars: getIntDefault(args, "min_chunk_chars", chunker.DefaultMinChunkChars),
	}
	ch, err := chunker.New(chunkCfg)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid chunking parameters", map[string]interface{}{
			"reason": err.Error(),
		})
	}

	config := &pipeline.Config{
		Force:         getBoolDefault(args, "force", false),
		IncludeHidden: getBoolDefault(args, "include_hidden", false),
		Extensions:    getStringSlice(args, "extensions"),
	}

	if !s.runLock.TryAcquire() {
		return nil, newMCPError(ErrorCodeRunInProgress, "a preparation run is already in progress", nil)
	}
	defer s.runLock.Release()

	pipe := s.pipeline
	if chunkCfg != s.chunker.Config() {
		pipe = pipeline.New(s.storage, ch)
	}

	stats, err := pipe.Run(ctx, path, outputPath, config)
	if err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			return nil, newMCPError(ErrorCodeRunInProgress, "a preparation run is already in progress", nil)
		}
		return nil, newMCPError(ErrorCodeInternalError, "preparation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"prepared":          true,
		"output_path":       outputPath,
		"sources_processed": stats.SourcesProcessed,
		"sources_skipped":   stats.SourcesSkipped,
		"sources_failed":    stats.SourcesFailed,
		"records_written":   stats.RecordsWritten,
		"duration_ms":       stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		// Include first few errors
		errorCount := len(stats.ErrorMessages)
		if errorCount > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSanitizeText handles the sanitize_text tool invocation
func (s *Server) handleSanitizeText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	text, ok := args["text"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "text parameter is required", map[string]interface{}{
			"param":  "text",
			"reason": "missing",
		})
	}

	response := map[string]interface{}{
		"text":     s.sanitizer.Clean(text),
		"patterns": s.sanitizer.Registry().Len(),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleChunkText handles the chunk_text tool invocation
func (s *Server) handleChunkText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	text, ok := args["text"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "text parameter is required", map[string]interface{}{
			"param":  "text",
			"reason": "missing",
		})
	}

	chunkCfg := chunker.Config{
		WindowSize:    getIntDefault(args, "window_size", chunker.DefaultWindowSize),
		Overlap:       getIntDefault(args, "overlap", chunker.DefaultOverlap),
		MinChunkChars: getIntDefault(args, "min_chunk_chars", chunker.DefaultMinChunkChars),
	}
	ch, err := chunker.New(chunkCfg)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid chunking parameters", map[string]interface{}{
			"reason": err.Error(),
		})
	}

	chunks := ch.Split(text)

	response := map[string]interface{}{
		"chunks": chunks,
		"count":  len(chunks),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// errGenerationLimit stops the dataset scan once the requested number of
// pairs has been produced. Filtered out before reporting.
var errGenerationLimit = errors.New("generation limit reached")

// handleGenerateQA handles the generate_qa tool invocation
func (s *Server) handleGenerateQA(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	datasetPath, ok := args["dataset_path"].(string)
	if !ok || datasetPath == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "dataset_path parameter is required", map[string]interface{}{
			"param":  "dataset_path",
			"reason": "missing or empty",
		})
	}

	outputPath, ok := args["output_path"].(string)
	if !ok || outputPath == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "output_path parameter is required", map[string]interface{}{
			"param":  "output_path",
			"reason": "missing or empty",
		})
	}

	if _, err := os.Stat(datasetPath); err != nil {
		return nil, newMCPError(ErrorCodeDatasetNotFound, "dataset file not found", map[string]interface{}{
			"param":  "dataset_path",
			"reason": err.Error(),
		})
	}

	limit := getIntDefault(args, "limit", 0)
	model := getStringDefault(args, "model", "")

	writer, err := dataset.Create(outputPath)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to create output file", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer func() { _ = writer.Close() }()

	var generated, skipped, failed int
	var failures []string

	err = dataset.Scan(datasetPath, func(rec types.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if limit > 0 && generated >= limit {
			return errGenerationLimit
		}

		// Short chunks are noise to a teacher model
		if len(rec.Text) < generator.MinChunkLength {
			skipped++
			return nil
		}

		pair, err := s.generator.Generate(ctx, generator.GenerateRequest{
			ChunkText: rec.Text,
			Model:     model,
		})
		if err != nil {
			failed++
			if len(failures) < 5 {
				failures = append(failures, fmt.Sprintf("%s: %v", rec.Source, err))
			}
			return nil
		}

		if err := writer.AppendPair(*pair); err != nil {
			return err
		}
		generated++
		return nil
	})
	if errors.Is(err, errGenerationLimit) {
		err = nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "generation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"output_path":     outputPath,
		"pairs_generated": generated,
		"chunks_skipped":  skipped,
		"chunks_failed":   failed,
		"provider":        s.generator.Provider(),
		"model":           s.generator.Model(),
	}
	if len(failures) > 0 {
		response["errors"] = failures
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	ds, err := s.storage.GetDataset(ctx, path)
	if err == storage.ErrNotFound {
		response := map[string]interface{}{
			"prepared": false,
			"path":     path,
			"message":  "Directory not prepared. Use the prepare_dataset tool first.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get dataset", map[string]interface{}{
			"error": err.Error(),
		})
	}

	status, err := s.storage.GetStatus(ctx, ds.ID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"prepared": true,
		"dataset": map[string]interface{}{
			"path":            ds.RootPath,
			"output_path":     ds.OutputPath,
			"window_size":     ds.WindowSize,
			"overlap":         ds.Overlap,
			"min_chunk_chars": ds.MinChunkChars,
			"last_run_at":     ds.LastRunAt.Format("2006-01-02T15:04:05Z07:00"),
		},
		"statistics": map[string]interface{}{
			"sources_count": status.SourcesCount,
			"records_count": status.RecordsCount,
			"total_chars":   status.TotalChars,
			"db_size_mb":    fmt.Sprintf("%.2f", status.DBSizeMB),
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks if a path is an absolute, readable directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
