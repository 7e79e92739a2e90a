package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/shopdesk/backend/internal/config"
	"github.com/zhouzirui/shopdesk/backend/internal/handler"
	"github.com/zhouzirui/shopdesk/backend/internal/handler/chat"
	"github.com/zhouzirui/shopdesk/backend/internal/service/agent"
	"github.com/zhouzirui/shopdesk/backend/internal/service/ai"
	"github.com/zhouzirui/shopdesk/backend/internal/service/cache"
	chatservice "github.com/zhouzirui/shopdesk/backend/internal/service/chat"
	"github.com/zhouzirui/shopdesk/backend/internal/service/docs"
	"github.com/zhouzirui/shopdesk/backend/internal/service/guard"
	"github.com/zhouzirui/shopdesk/backend/internal/service/identity"
	"github.com/zhouzirui/shopdesk/backend/internal/service/summary"
	"github.com/zhouzirui/shopdesk/backend/internal/service/tools"
	"github.com/zhouzirui/shopdesk/backend/internal/store/commerce"
	"github.com/zhouzirui/shopdesk/backend/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.New("info", false).Fatal().Err(err).Msg("failed to load configuration")
	}

	base := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	log := logger.Component(base, "main")
	if envErr != nil {
		log.Warn().Err(envErr).Msg("no .env file, using process environment only")
	}

	verifier, err := identity.NewVerifier(cfg.Auth.Secret, cfg.Auth.Algorithm)
	if err != nil {
		log.Fatal().Err(err).Msg("JWT_SECRET_KEY and JWT_ALGORITHM must be configured")
	}

	answerCache := cache.Open(cfg.Cache.Path, cfg.Cache.TTL, cfg.Cache.MaxSize, base)
	defer func() {
		if err := answerCache.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to flush answer cache")
		}
	}()

	store, err := commerce.Open(ctx, cfg.Database, base)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to the commerce database")
	}
	defer store.Close()

	docIndex := openDocuments(ctx, cfg, base)

	registry, err := tools.NewRegistry(tools.Builtin(store, docIndex, cfg.Docs.TopK)...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build operation registry")
	}
	dispatcher := tools.NewDispatcher(registry, tools.DispatcherOptions{
		Concurrency: cfg.Agent.ToolConcurrency,
	}, base)

	transcript := chatservice.NewService(0)

	var runner chat.Runner
	if cfg.AI.Enabled() {
		chatModel, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create chat model")
		}
		llm, err := ai.NewService(ctx, chatModel, registry.Infos(), base)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize AI service")
		}

		runner = agent.New(agent.Deps{
			Cache:      answerCache,
			Validator:  guard.New(guard.Options{}),
			LLM:        llm,
			Dispatcher: dispatcher,
			Summarizer: summary.New(registry),
			Policy:     agent.NewCachePolicy(registry),
			Logger:     base,
		}, agent.Options{
			MaxIterations: cfg.Agent.MaxIterations,
			OnTurnEnd:     transcript.Record,
		})
		log.Info().Str("model", cfg.AI.Model).Msg("assistant initialized")
	} else {
		log.Warn().Msg("Ark credentials not configured, /api/chat will answer 503")
	}

	router := handler.NewRouter(handler.Deps{
		Runner:     runner,
		Transcript: transcript,
		Catalogue:  registry,
		Verifier:   verifier,
		Logger:     base,
	})

	startServer(ctx, cfg.Server, router, log)
}

// openDocuments loads the document index and keeps it fresh. A nil result
// disables document search.
func openDocuments(ctx context.Context, cfg *config.Config, base zerolog.Logger) retriever.Retriever {
	log := logger.Component(base, "main")

	var opts []docs.Option
	if cfg.AI.EmbeddingEnabled() {
		embedder, err := cfg.AI.NewEmbedder(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("embedding model unavailable, documents ranked by keywords")
		} else {
			opts = append(opts, docs.WithEmbedder(embedder))
		}
	}

	idx := docs.NewIndex(cfg.Docs.Dir, base, opts...)
	if err := idx.Load(ctx); err != nil {
		log.Warn().Err(err).Str("dir", cfg.Docs.Dir).Msg("document search disabled")
		return nil
	}

	if cfg.Docs.Watch {
		go func() {
			if err := idx.Watch(ctx); err != nil {
				log.Warn().Err(err).Msg("document watcher stopped")
			}
		}()
	}
	return idx
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, log zerolog.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("shopdesk backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
