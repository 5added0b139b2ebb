package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/midos-mcp/midos-mcp/internal/config"
	"github.com/midos-mcp/midos-mcp/internal/embed"
	"github.com/midos-mcp/midos-mcp/internal/gate"
	"github.com/midos-mcp/midos-mcp/internal/handshake"
	"github.com/midos-mcp/midos-mcp/internal/logging"
	"github.com/midos-mcp/midos-mcp/internal/mcpserver"
	"github.com/midos-mcp/midos-mcp/internal/metrics"
	"github.com/midos-mcp/midos-mcp/internal/search"
	"github.com/midos-mcp/midos-mcp/internal/store"
	"github.com/midos-mcp/midos-mcp/pkg/version"
)

func newServeCmd() *cobra.Command {
	defaults := config.NewConfig()

	var (
		root           string
		transport      string
		addr           string
		embeddingURL   string
		embeddingModel string
		embeddingKey   string
		logLevel       string
		semanticCache  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio or HTTP transport)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logCfg := logging.DefaultConfig()
			logCfg.Level = logLevel
			if logger, logCleanup, err := logging.Setup(logCfg); err == nil {
				slog.SetDefault(logger)
				defer logCleanup()
			}

			deps, cleanup, err := buildDeps(root, embeddingURL, embeddingModel, embeddingKey, defaults.Embeddings.Dimensions, semanticCache)
			if err != nil {
				return err
			}
			defer cleanup()

			keys := gate.NewKeyStore(filepath.Join(root, "config", "api_keys.json"))
			usage := gate.NewQuotaLedger(filepath.Join(root, "config", "api_usage.json"))
			defer usage.Flush()

			g := gate.NewGate(keys, usage)
			g.SetMetrics(deps.Metrics)

			srv := mcpserver.NewServer(version.Version, g, deps)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			switch transport {
			case "stdio":
				slog.Info("starting midos-mcp", slog.String("transport", "stdio"))
				return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
			case "http":
				return serveHTTP(ctx, srv, addr)
			default:
				return errors.New("unknown transport: " + transport + " (supported: stdio, http)")
			}
		},
	}

	cmd.Flags().StringVar(&root, "root", defaults.Paths.Root, "persisted state root directory")
	cmd.Flags().StringVar(&transport, "transport", defaults.Server.Transport, "transport: stdio or http")
	cmd.Flags().StringVar(&addr, "addr", defaults.Server.Addr, "listen address for the http transport")
	cmd.Flags().StringVar(&embeddingURL, "embedding-endpoint", defaults.Embeddings.Endpoint, "embedding provider endpoint")
	cmd.Flags().StringVar(&embeddingModel, "embedding-model", defaults.Embeddings.Model, "embedding model name")
	cmd.Flags().StringVar(&embeddingKey, "embedding-key", defaults.Embeddings.APIKey, "embedding provider API key, if required")
	cmd.Flags().StringVar(&logLevel, "log-level", defaults.Server.LogLevel, "log level: debug, info, warn, error")
	cmd.Flags().BoolVar(&semanticCache, "semantic-cache", defaults.Cache.Enabled, "cache semantic_search/search_knowledge responses by query similarity")

	return cmd
}

func serveHTTP(ctx context.Context, srv *mcpserver.Server, addr string) error {
	httpSrv := &http.Server{Addr: addr, Handler: srv.Router()}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting midos-mcp", slog.String("transport", "http"), slog.String("addr", addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// buildDeps wires the knowledge store, hybrid search table, skill inventory,
// and handshake engine from the persisted state layout under root. Embedding
// failures degrade rather than abort: the table's search drops its vector
// leg when the query embedding fails, and semantic_search falls back to a
// filesystem keyword scan when the table's search returns an error. enableCache opts into the semantic response cache; it stays
// nil (a clean no-op) otherwise. The metrics registry it builds is always
// wired into Deps; the caller additionally hands it to the Request Gate so
// both sides of the admission path share one set of counters.
func buildDeps(root, embeddingURL, embeddingModel, embeddingKey string, embeddingDimensions int, enableCache bool) (*mcpserver.Deps, func(), error) {
	knowledgeDir := filepath.Join(root, "knowledge")
	skillsDir := filepath.Join(root, "skills")
	protocolsDir := filepath.Join(root, "protocols")
	eurekasDir := filepath.Join(root, "eureka")
	truthsDir := filepath.Join(root, "truth")
	inboxDir := filepath.Join(root, "synapse", "inbox")
	memoryDir := filepath.Join(knowledgeDir, "memory")
	systemDir := filepath.Join(knowledgeDir, "SYSTEM")

	for _, dir := range []string{knowledgeDir, skillsDir, protocolsDir, eurekasDir, truthsDir, inboxDir, memoryDir, systemDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}

	chunkStore, err := store.NewSQLiteChunkStore(filepath.Join(memoryDir, "chunks.db"))
	if err != nil {
		return nil, nil, err
	}

	bm25, err := store.NewBM25IndexWithBackend(filepath.Join(memoryDir, "bm25"), store.BM25Config{K1: 1.2, B: 0.75, MinTokenLength: 2}, "sqlite")
	if err != nil {
		chunkStore.Close()
		return nil, nil, err
	}

	vectorCfg := store.DefaultVectorStoreConfig(embeddingDimensions)
	vector, err := store.NewHNSWStore(vectorCfg)
	if err != nil {
		chunkStore.Close()
		return nil, nil, err
	}
	vectorPath := filepath.Join(memoryDir, "midos_knowledge.lance")
	if _, statErr := os.Stat(vectorPath); statErr == nil {
		_ = vector.Load(vectorPath)
	}

	httpEmbedder := embed.NewHTTPEmbedder(embeddingURL, embeddingKey, embeddingModel, embeddingDimensions, nil)
	queryEmbedder := embed.NewQueryCache(embed.NewCachedEmbedder(httpEmbedder))

	table := search.NewTable(chunkStore, bm25, vector, queryEmbedder, filepath.Join(memoryDir, "archived_chunks.jsonl"))

	skills := loadSkillDescriptors(skillsDir)
	engine := handshake.NewEngine(skills, table, knowledgeDir, filepath.Join(systemDir, "compatibility_log.jsonl"))

	var responseCache *store.ResponseCache
	if enableCache {
		cacheDir := filepath.Join(knowledgeDir, "cache")
		responseCache, err = store.NewResponseCache(cacheDir, embeddingDimensions)
		if err != nil {
			slog.Warn("semantic response cache disabled", slog.String("error", err.Error()))
			responseCache = nil
		}
	}

	deps := &mcpserver.Deps{
		KnowledgeDir:    knowledgeDir,
		SkillsDir:       skillsDir,
		ProtocolsDir:    protocolsDir,
		EurekasDir:      eurekasDir,
		TruthsDir:       truthsDir,
		InboxDir:        inboxDir,
		SearchTable:     table,
		HandshakeEngine: engine,
		ResponseCache:   responseCache,
		Metrics:         metrics.New(),
		StartedAt:       time.Now(),
	}

	cleanup := func() {
		if saveErr := vector.Save(vectorPath); saveErr != nil {
			slog.Error("failed to persist vector store", slog.String("error", saveErr.Error()))
		}
		chunkStore.Close()
		bm25.Close()
		vector.Close()
		httpEmbedder.Close()
		if responseCache != nil {
			responseCache.Close()
		}
	}

	return deps, cleanup, nil
}

func loadSkillDescriptors(skillsDir string) []handshake.SkillDescriptor {
	entries, err := os.ReadDir(skillsDir)
	if err != nil {
		return nil
	}
	descriptors := make([]handshake.SkillDescriptor, 0, len(entries))
	for _, e := range entries {
		id := e.Name()
		if !e.IsDir() {
			id = trimExt(id)
		}
		descriptors = append(descriptors, handshake.SkillDescriptor{ID: id, Path: filepath.Join(skillsDir, e.Name())})
	}
	return descriptors
}

func trimExt(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}
