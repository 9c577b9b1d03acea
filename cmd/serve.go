package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/adapter/llm"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/agentloop"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/agents"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/autonomy"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/config"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/knowledge"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/logging"
	store "github.com/YassineZAIBI/virtual-ppo-ppm/internal/repository"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/router"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/service"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/tools"
	transport "github.com/YassineZAIBI/virtual-ppo-ppm/internal/transport/http"
	"github.com/YassineZAIBI/virtual-ppo-ppm/policy"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the agent HTTP service",
	Long: `Start the agent service.

Configuration is read from the environment and an optional .env file.
Set AUTONOMY_ENGINE=rego to evaluate tool autonomy with the OPA policy
instead of the built-in gate, and AGENT_LLM_MODE=MOCK to run without a
language-model provider.

Press Ctrl+C to gracefully shutdown.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting agent service",
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.DatabaseURL),
		zap.String("integrations", cfg.NextJSBaseURL),
		zap.String("autonomy_engine", cfg.AutonomyEngine))

	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	gate, err := newGate(cmd.Context(), cfg.AutonomyEngine, logger)
	if err != nil {
		return err
	}

	registry, err := agents.Load()
	if err != nil {
		return fmt.Errorf("failed to load agents: %w", err)
	}

	llmClient := llm.NewClient(cfg.LLMTimeout, logger)
	invoker := tools.NewHTTPInvoker(cfg.NextJSBaseURL, cfg.ToolTimeout, logger)
	ingester := knowledge.NewIngester(knowledge.Limits{
		MaxFileSize:     cfg.KBMaxFileSize,
		MaxContentChars: cfg.KBMaxContentChars,
		ChunkSize:       cfg.KBChunkSize,
		ChunkOverlap:    cfg.KBChunkOverlap,
	}, cfg.ScrapeTimeout, logger)

	svc := service.New(db, registry,
		router.New(llmClient, logger),
		knowledge.NewRetriever(llmClient, invoker, cfg.RAGMaxTokens, cfg.RAGMaxDocs, logger),
		agentloop.New(llmClient, gate, invoker, logger),
		invoker, ingester, cfg, logger)

	server := transport.NewServer(svc, cfg, logger)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()
	logger.Info("agent service started", zap.Int("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down agent service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown server gracefully", zap.Error(err))
	}
	logger.Info("agent service stopped")
	return nil
}

func newGate(ctx context.Context, engine string, logger *zap.Logger) (autonomy.Gatekeeper, error) {
	switch strings.ToLower(engine) {
	case "", "builtin":
		return autonomy.Builtin{}, nil
	case "rego", "opa":
		e, err := policy.NewEngine(ctx, policy.DefaultPolicy, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
		}
		return e, nil
	}
	return nil, fmt.Errorf("unknown autonomy engine %q", engine)
}
