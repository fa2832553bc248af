package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tradechat/internal/config"
	"tradechat/internal/dto"
	"tradechat/internal/obs"
	"tradechat/internal/relay"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger := obs.NewLogger("dev")
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	store := relay.NewStore()
	store.Seed(
		dto.Conversation{
			ID:      "42",
			Partner: dto.Partner{ID: 9, Name: "ann"},
			Item:    dto.Item{Title: "vintage bike"},
			TradeID: "t-7",
		},
		dto.Conversation{
			ID:      "43",
			Partner: dto.Partner{ID: 4, Name: "bob"},
			Item:    dto.Item{Title: "film camera"},
		},
	)
	hub := relay.NewHub(logger)

	var publisher relay.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		bridge, err := relay.NewBridge(cfg.KafkaBrokers, cfg.KafkaTopicPrefix, cfg.KafkaGroupID, hub, logger)
		if err != nil {
			logger.Error("kafka bridge init failed", "error", err, "brokers", cfg.KafkaBrokers)
			os.Exit(1)
		}
		defer bridge.Close()
		go func() {
			if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("kafka bridge stopped", "error", err)
			}
		}()
		publisher = bridge
		logger.Info("kafka bridge enabled", "brokers", cfg.KafkaBrokers)
	}

	srv := relay.NewServer(cfg, store, hub, publisher, logger)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Router(cfg),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("relay starting", "addr", cfg.HTTPAddr, "env", cfg.Env)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("relay stopped")
}
