package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"autofilter/internal/bot"
	"autofilter/internal/chat"
	"autofilter/internal/config"
	"autofilter/internal/index"
	"autofilter/internal/link"
	"autofilter/internal/logger"
	"autofilter/internal/search"
	"autofilter/internal/store"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.L()
	cfg := config.Load(log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := store.New(ctx, cfg.DatabaseURI, cfg.DatabaseName, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			log.Warn("failed to close store", zap.Error(err))
		}
	}()
	if err := st.EnsureIndexes(ctx); err != nil {
		log.Fatal("failed to ensure database indexes", zap.Error(err))
	}

	// The MTProto client runs alongside the Bot API loop; channel scans and
	// membership checks wait on its Ready gate internally.
	client := chat.NewClient(cfg.APIID, cfg.APIHash, cfg.BotToken, log)
	go func() {
		if err := client.Run(ctx); err != nil {
			log.Error("mtproto client stopped", zap.Error(err))
			cancel()
		}
	}()

	scanner := index.NewScanner(client, client, st, log)
	resolver := search.NewResolver(st)
	links := link.NewBuilder(client, log)

	b, err := bot.New(cfg, log, st, scanner, resolver, links, client, client)
	if err != nil {
		log.Fatal("failed to create bot", zap.Error(err))
	}
	b.Run(ctx)
}
