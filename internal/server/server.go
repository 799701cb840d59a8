package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corvid-labs/quill/internal/config"
	"github.com/corvid-labs/quill/pkg/ai"
	"github.com/corvid-labs/quill/pkg/ai/ollama"
	"github.com/corvid-labs/quill/pkg/ai/openai"
	"github.com/corvid-labs/quill/pkg/graph"
	"github.com/corvid-labs/quill/pkg/logger"
	"github.com/corvid-labs/quill/pkg/query"
	storepgx "github.com/corvid-labs/quill/pkg/store/pgx"

	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// Init wires the configuration, database, model clients and query pipeline,
// then serves the HTTP API until interrupted.
func Init() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", "err", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Invalid database URL", "err", err)
	}
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	conn, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()

	graphStore, err := storepgx.NewGraphDBStore(ctx, conn)
	if err != nil {
		logger.Fatal("Failed to open graph store", "err", err)
	}

	client, scorer, err := buildModelClients(cfg)
	if err != nil {
		logger.Fatal("Failed to create model client", "err", err)
	}

	exemplars, err := loadExemplars(cfg.ExemplarsPath)
	if err != nil {
		logger.Fatal("Failed to load exemplars", "err", err)
	}

	trace := query.NewQueryTrace()
	pipeline, err := query.New(ctx, query.Params{
		Store:               graphStore,
		Client:              client,
		Scorer:              scorer,
		ExpandQueries:       cfg.ExpandQueries,
		UseAuthority:        cfg.UseAuthority,
		UseMultiDocument:    cfg.UseMultiDocument,
		Exemplars:           exemplars,
		SynthesisModel:      cfg.SynthesisModel,
		ExpansionModel:      cfg.ExpansionModel,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		MaxResults:          cfg.MaxResults,
		AuthorityCacheTTL:   cfg.AuthorityCacheTTL,
		Tracer:              trace,
	})
	if err != nil {
		logger.Fatal("Failed to build query pipeline", "err", err)
	}

	e.Use(middleware.CORS())
	e.Use(middleware.Recover())

	RegisterRoutes(e, pipeline, trace)

	go func() {
		logger.Info("Starting server", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}

func buildModelClients(cfg *config.Config) (ai.ModelClient, ai.RelevanceScorer, error) {
	var (
		client ai.ModelClient
		scorer ai.RelevanceScorer
	)

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaClient, err := ollama.NewClient(ollama.NewClientParams{
			EmbeddingModel: cfg.EmbeddingModel,
			ChatModel:      cfg.ChatModel,
			EmbeddingDim:   cfg.EmbeddingDim,
			BaseURL:        cfg.OllamaURL,
			ApiKey:         cfg.OllamaAPIKey,
		})
		if err != nil {
			return nil, nil, err
		}
		client = ollamaClient
		if cfg.RerankModel != "" {
			scorer = ollama.NewScorer(ollamaClient, cfg.RerankModel)
		}
	default:
		client = openai.NewClient(openai.NewClientParams{
			EmbeddingModel: cfg.EmbeddingModel,
			ChatModel:      cfg.ChatModel,
			EmbeddingDim:   cfg.EmbeddingDim,
			EmbeddingURL:   cfg.OpenAIEmbeddingURL,
			EmbeddingKey:   cfg.OpenAIEmbeddingKey,
			ChatURL:        cfg.OpenAIURL,
			ChatKey:        cfg.OpenAIKey,
		})
		if cfg.RerankModel != "" {
			// The cross-encoder always runs against a local model.
			ollamaClient, err := ollama.NewClient(ollama.NewClientParams{
				BaseURL: cfg.OllamaURL,
				ApiKey:  cfg.OllamaAPIKey,
			})
			if err != nil {
				return nil, nil, err
			}
			scorer = ollama.NewScorer(ollamaClient, cfg.RerankModel)
		}
	}

	return client, scorer, nil
}

// loadExemplars reads the few-shot exemplar set from a JSON file. An empty
// path disables few-shot prompting.
func loadExemplars(path string) ([]graph.Exemplar, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var exemplars []graph.Exemplar
	if err := json.Unmarshal(data, &exemplars); err != nil {
		return nil, err
	}
	return exemplars, nil
}
