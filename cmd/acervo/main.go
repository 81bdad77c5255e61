// Package main is the Acervo CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/farol/acervo/internal/answer"
	"github.com/farol/acervo/internal/chunker"
	"github.com/farol/acervo/internal/config"
	"github.com/farol/acervo/internal/extract"
	"github.com/farol/acervo/internal/facts"
	"github.com/farol/acervo/internal/graph"
	"github.com/farol/acervo/internal/ingest"
	"github.com/farol/acervo/internal/llm"
	"github.com/farol/acervo/internal/models"
	"github.com/farol/acervo/internal/retrieval"
	"github.com/farol/acervo/internal/server"
	"github.com/farol/acervo/internal/storage"
	"github.com/farol/acervo/internal/vector"
	"github.com/farol/acervo/internal/watcher"
	"github.com/farol/acervo/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/acervo/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used instead. Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "serve":
		runServe()
	case "ingest":
		runIngest()
	case "extract":
		runExtract()
	case "ask":
		runAsk()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("acervo version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	exts := cfg.Watch.Extensions
	watchOpts := []watcher.Option{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.New(
		cfg.Watch.Directories,
		exts,
		cfg.Watch.RecursiveOrDefault(),
		func(path string) {
			if _, err := components.Ingestor.IngestFile(context.Background(), path, exts); err != nil {
				logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
			}
		},
		watchOpts...,
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Watch.Directories) > 0 {
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
	}

	srv := server.NewServer(
		components.Retriever,
		components.Composer,
		components.Ingestor,
		components.Storage,
		components.VectorStore,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	watchSvc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: acervo ingest [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		n, err := components.Ingestor.IngestDirectory(ctx, path, cfg.Watch.Extensions)
		if err != nil {
			fmt.Printf("Ingesting directory failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Ingested %d file(s) from %s\n", n, path)
		return
	}
	id, err := components.Ingestor.IngestFile(ctx, path, nil)
	if err != nil {
		fmt.Printf("Ingestion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document ingested: %s\n", id)
}

// runExtract rebuilds the knowledge graph from scratch: it splits every
// stored document into extraction windows, runs LLM relation extraction over
// each, and overwrites the graph file with this run's relations. Rerunning
// over an unchanged corpus therefore yields the same graph, not a larger one.
func runExtract() {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer store.Close()

	gen, err := llm.NewClient(llm.ClientConfig{
		BaseURL:     cfg.Generation.BaseURL,
		APIKey:      cfg.Generation.APIKey(),
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
	})
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	splitter, err := chunker.NewSplitter(cfg.Extraction.ChunkSize, cfg.Extraction.ChunkOverlap)
	if err != nil {
		logger.Fatal("Invalid extraction chunking config", zap.Error(err))
	}

	extractor := facts.NewExtractor(facts.NewRelationFunc(gen), facts.WithLogger(logger))

	ctx := context.Background()
	var relations []models.Relation

	const pageSize = 100
	totalDocs := 0
	for offset := 0; ; offset += pageSize {
		docs, err := store.ListDocuments(ctx, offset, pageSize)
		if err != nil {
			logger.Fatal("Failed to list documents", zap.Error(err))
		}
		if len(docs) == 0 {
			break
		}
		for _, doc := range docs {
			windows := splitter.Split(doc.ID, doc.Content)
			report := extractor.Extract(ctx, windows)
			relations = append(relations, report.Relations...)
			totalDocs++
			logger.Info("document extracted",
				zap.String("doc_id", doc.ID),
				zap.Int("relations", len(report.Relations)),
				zap.Int("dropped", report.Dropped),
				zap.Int("failed", len(report.Failed)),
			)
		}
	}

	if err := graph.Save(cfg.Storage.GraphPath, relations); err != nil {
		logger.Fatal("Failed to save graph", zap.Error(err))
	}
	fmt.Printf("Extracted %d relation(s) from %d document(s)\n", len(relations), totalDocs)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = answer directly without a running server)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: acervo ask [flags] <question>")
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Println("Usage: acervo ask [flags] <question>")
		os.Exit(1)
	}

	if *serverURL != "" {
		ans, err := askViaHTTP(*serverURL, question)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(ans)
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	payload, err := components.Retriever.Retrieve(ctx, question)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrieval failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(components.Composer.Compose(ctx, question, payload))
}

func askViaHTTP(serverURL, question string) (string, error) {
	body, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return "", err
	}
	resp, err := http.Post(serverURL+"/api/v1/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Answer, nil
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Documents       int64                  `json:"documents"`
	Chunks          int64                  `json:"chunks"`
	VectorIndexSize int                    `json:"vector_index_size"`
	Facts           int                    `json:"facts"`
	GraphAvailable  bool                   `json:"graph_available"`
	Config          map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		ctx := context.Background()
		docCount, err := components.Storage.CountDocuments(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
			os.Exit(1)
		}
		chunkCount, err := components.Storage.CountChunks(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count chunks failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Documents:       docCount,
			Chunks:          chunkCount,
			VectorIndexSize: components.VectorStore.Size(),
			Facts:           components.Retriever.FactCount(),
			GraphAvailable:  components.Retriever.GraphAvailable(),
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:          %d\n", status.Documents)
		fmt.Printf("chunks:             %d\n", status.Chunks)
		fmt.Printf("vector_index_size:  %d\n", status.VectorIndexSize)
		fmt.Printf("facts:              %d\n", status.Facts)
		fmt.Printf("graph_available:    %t\n", status.GraphAvailable)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Components holds initialized services.
type Components struct {
	Storage     storage.Storage
	VectorStore *vector.Store
	Retriever   *retrieval.Retriever
	Composer    *answer.Composer
	Ingestor    *ingest.Ingestor
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedder, err := llm.NewEmbedder(llm.EmbedderConfig{
		BaseURL:     cfg.Embedding.BaseURL,
		APIKey:      cfg.Embedding.APIKey(),
		Model:       cfg.Embedding.Model,
		Dimensions:  cfg.Embedding.Dimensions,
		QueryPrefix: cfg.Embedding.QueryPrefix,
		BatchSize:   cfg.Embedding.BatchSize,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	storeOpts := []vector.StoreOption{}
	if debug {
		storeOpts = append(storeOpts, vector.WithLogger(logger))
	}
	vectorStore := vector.NewStore(cfg.Storage.VectorIndexPath, embedder, store, storeOpts...)

	g, err := graph.Load(cfg.Storage.GraphPath)
	if err != nil {
		logger.Warn("knowledge graph not loaded; answering from vector evidence only",
			zap.String("path", cfg.Storage.GraphPath), zap.Error(err))
		g = nil
	}
	factIndex := graph.NewFactIndex(g)

	retrOpts := []retrieval.Option{}
	if debug {
		retrOpts = append(retrOpts, retrieval.WithLogger(logger))
	}
	retriever := retrieval.NewRetriever(factIndex, vectorStore, cfg.Retrieval.TopK, retrOpts...)

	gen, err := llm.NewClient(llm.ClientConfig{
		BaseURL:     cfg.Generation.BaseURL,
		APIKey:      cfg.Generation.APIKey(),
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	composer := answer.NewComposer(gen, time.Duration(cfg.Generation.TimeoutSecs)*time.Second, answer.WithLogger(logger))

	splitter, err := chunker.NewSplitter(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("invalid chunking config: %w", err)
	}
	ingestor := ingest.NewIngestor(extract.NewExtractor(), splitter, vectorStore, ingest.WithLogger(logger))

	return &Components{
		Storage:     store,
		VectorStore: vectorStore,
		Retriever:   retriever,
		Composer:    composer,
		Ingestor:    ingestor,
	}, nil
}

func printUsage() {
	fmt.Println(`acervo - Hybrid evidence retrieval engine

Usage:
  acervo serve [flags]             Start the HTTP server
  acervo ingest [flags] <path>     Ingest a file or directory
  acervo extract [flags]           Extract relations from stored documents into the knowledge graph
  acervo ask [flags] <question>    Answer a question from ingested evidence
  acervo status [flags]            Show engine/storage/index status
  acervo version                   Show version
  acervo help                      Show this help

Serve Flags:
  --config string    Config file path (default: /usr/local/etc/acervo/config.yaml)
  --debug            Enable debug logging

Ingest Flags:
  --config string    Config file path

Extract Flags:
  --config string    Config file path

Ask Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (empty = answer directly without a running server)

Status Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --output string    Output format: text or json (default: text)

Examples:
  acervo serve
  acervo ingest ./docs
  acervo extract
  acervo ask "quem é a gerente de produção?"
  acervo status --output json`)
}
