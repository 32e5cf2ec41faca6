package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/botero-soto/sotobot/agent/contract"
	"github.com/botero-soto/sotobot/agent/export"
	"github.com/botero-soto/sotobot/agent/llm"
	"github.com/botero-soto/sotobot/agent/orchestrator"
	"github.com/botero-soto/sotobot/agent/prompt"
	statex "github.com/botero-soto/sotobot/agent/state"
	"github.com/botero-soto/sotobot/agent/tool"
	configx "github.com/botero-soto/sotobot/pkg/config"
	evolutionx "github.com/botero-soto/sotobot/pkg/evolution"
	_ "github.com/botero-soto/sotobot/pkg/logger/autoload"
	openrouterx "github.com/botero-soto/sotobot/pkg/openrouter"
	serverx "github.com/botero-soto/sotobot/server"
)

func main() {
	openRouterCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")
	openRouterClient := openrouterx.NewClient(*openRouterCfg)
	if openRouterClient == nil {
		panic("failed to initialize openrouter client")
	}

	llmCfg := configx.MustNew[llm.Config]("LLM")
	var completer contractx.Completer = llm.NewClient(openRouterClient, llmCfg.Model)
	completer = llm.NewRetrier(completer)

	ctx := context.Background()
	store, exporter := buildStorage(ctx)

	registry, err := tool.Catalog(tool.NewStaticNITDirectory(), exporter)
	if err != nil {
		panic(err)
	}

	agentCfg := configx.MustNew[orchestrator.Config]("AGENT")
	orch, err := orchestrator.New(store, completer, registry, prompt.Load(), *agentCfg)
	if err != nil {
		panic(err)
	}

	serverCfg := configx.MustNew[serverx.Config]("SERVER")
	srv := serverx.New(*serverCfg, orch, buildWhatsApp())

	go func() {
		if err := srv.Run(); err != nil {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown did not complete cleanly")
	}
}

// buildStorage picks Postgres when a DSN is configured and falls back to
// the in-memory store otherwise. The vendor export shares the Postgres
// pool when available.
func buildStorage(ctx context.Context) (statex.Store, contractx.VendorExporter) {
	pgCfg := configx.MustNew[statex.PostgresConfig]("POSTGRES")
	if strings.TrimSpace(pgCfg.DSN) == "" {
		log.Warn().Msg("no postgres dsn configured, sessions are in-memory only")
		return statex.NewMemoryStore(), export.NewMemoryExporter()
	}

	store, err := statex.NewPostgresStore(*pgCfg)
	if err != nil {
		panic(err)
	}
	if err := store.Init(ctx); err != nil {
		panic(err)
	}

	exporter := export.NewPostgresExporter(store.DB())
	if err := exporter.Init(ctx); err != nil {
		panic(err)
	}
	return store, exporter
}

func buildWhatsApp() *evolutionx.Client {
	evoCfg, err := configx.New[evolutionx.Config]("EVOLUTION")
	if err != nil {
		log.Warn().Err(err).Msg("no evolution api configured, webhook replies are disabled")
		return nil
	}
	return evolutionx.MustNew(*evoCfg)
}
