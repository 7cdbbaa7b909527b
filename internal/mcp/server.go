package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/dataprep-mcp/internal/chunker"
	"github.com/dshills/dataprep-mcp/internal/generator"
	"github.com/dshills/dataprep-mcp/internal/pipeline"
	"github.com/dshills/dataprep-mcp/internal/sanitizer"
	"github.com/dshills/dataprep-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "dataprep-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location for the tracking database
	DefaultDBPath = "~/.dataprep/state"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	storage   storage.Storage
	pipeline  *pipeline.Pipeline
	generator generator.Generator
	sanitizer *sanitizer.Sanitizer
	chunker   *chunker.Chunker

	// Guards prepare_dataset against overlapping invocations
	runLock pipeline.RunLock
}

// NewServer creates a new MCP server instance
func NewServer(dbPath string) (*Server, error) {
	// Expand home directory if needed
	if dbPath == "" || dbPath == DefaultDBPath {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".dataprep", "state")
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// One database file tracks every dataset
	dbFile := filepath.Join(dbPath, "dataprep.db")

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Default windowing; prepare_dataset can override per call
	ch, err := chunker.New(chunker.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chunker: %w", err)
	}

	// Create generator (provider chosen from environment)
	gen, err := generator.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:       mcpServer,
		storage:   store,
		pipeline:  pipeline.New(store, ch),
		generator: gen,
		sanitizer: sanitizer.New(),
		chunker:   ch,
	}

	// Register tools
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() {
		_ = s.generator.Close()
		_ = s.storage.Close()
	}()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	// Register prepare_dataset tool
	s.mcp.AddTool(prepareDatasetTool(), s.handlePrepareDataset)

	// Register sanitize_text tool
	s.mcp.AddTool(sanitizeTextTool(), s.handleSanitizeText)

	// Register chunk_text tool
	s.mcp.AddTool(chunkTextTool(), s.handleChunkText)

	// Register generate_qa tool
	s.mcp.AddTool(generateQATool(), s.handleGenerateQA)

	// Register get_status tool
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)

	return nil
}
