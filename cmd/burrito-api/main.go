package main

import (
	"context"
	"time"

	"burrito/internal/adapters/chat/slack"
	modkit "burrito/internal/modkit"
	"burrito/internal/modkit/module"
	"burrito/internal/platform/config"
	"burrito/internal/platform/logger"
	phttp "burrito/internal/platform/net/http"
	"burrito/internal/platform/net/middleware"
	"burrito/internal/platform/store"

	ddom "burrito/internal/services/directory/domain"
	dirmodule "burrito/internal/services/directory/module"
	ledgermodule "burrito/internal/services/ledger/module"
)

func main() {
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	slackCfg := root.Prefix("SLACK_")

	// bring up logging early
	l := logger.Get()

	st, err := store.Open(
		context.Background(),
		store.Config{
			AppName: "burrito",
			PG: store.PGConfig{
				Enabled:     true,
				URL:         pgCfg.MustString("DBURL"),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", true),
			},
		},
		store.WithLogger(*logger.Get()),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	chat := slack.NewClient(slack.Options{
		BaseURL:    slackCfg.MayString("BASE_URL", ""),
		BotToken:   slackCfg.MustString("BOT_TOKEN"),
		Timeout:    slackCfg.MayDuration("TIMEOUT", 10*time.Second),
		MaxRetries: slackCfg.MayInt("MAX_RETRIES", 3),
		RetryBase:  slackCfg.MayDuration("RETRY_BASE", 300*time.Millisecond),
	})

	deps := modkit.Deps{Log: *l, Cfg: root, PG: st.PG}

	dir := dirmodule.New(deps, chat)
	module.Register(dir.Name(), dir.Ports())

	resolver, ok := module.PortsAs[ddom.ResolverPort](dir.Name())
	if !ok {
		l.Panic().Msg("directory module exposed no resolver port")
	}

	ledger := ledgermodule.New(deps, resolver, chat, ledgermodule.FromConfig(root))
	module.Register(ledger.Name(), ledger.Ports())

	// http server (reads CORE_API_PORT)
	srv := phttp.NewServer(apiCfg)

	r := srv.Router()
	r.Use(middleware.Defaults()...)
	r.Use(middleware.RecoverJSON)
	r.Use(middleware.AccessLogZerolog(middleware.AccessLogOptions{Slow: 2 * time.Second}))
	r.Use(middleware.Heartbeat("/healthz"))
	r.Use(middleware.CORS(middleware.CORSOptions{
		AllowedOrigins: []string{apiCfg.MayString("CORS_ORIGIN", "*")},
	}))

	dir.MountRoutes(r)
	ledger.MountRoutes(r)

	if err := srv.Run(context.Background()); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
