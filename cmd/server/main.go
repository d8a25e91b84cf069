package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"golang.org/x/text/language"

	"github.com/gravitas-games/sekaiscout/internal/apicrypt"
	"github.com/gravitas-games/sekaiscout/internal/catalog"
	"github.com/gravitas-games/sekaiscout/internal/config"
	"github.com/gravitas-games/sekaiscout/internal/ingest"
	"github.com/gravitas-games/sekaiscout/internal/interceptor"
	"github.com/gravitas-games/sekaiscout/internal/journal"
	"github.com/gravitas-games/sekaiscout/internal/logbuf"
	"github.com/gravitas-games/sekaiscout/internal/notify"
	"github.com/gravitas-games/sekaiscout/internal/relay"
	"github.com/gravitas-games/sekaiscout/internal/server"
	"github.com/gravitas-games/sekaiscout/internal/store"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/sekaiscout.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal("failed to load configuration", "path", configPath, "err", err)
	}

	logs := logbuf.New(logbuf.DefaultLines)
	logger := log.NewWithOptions(io.MultiWriter(os.Stderr, logs), log.Options{ReportTimestamp: true})
	if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warn("unknown log level, using info", "level", cfg.Log.Level)
	}
	logger.Info("configuration loaded", "path", configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Name catalog
	source, err := catalog.NewHTTPSource(&http.Client{Timeout: cfg.Catalog.Timeout}, cfg.Catalog.URLTemplate, map[language.Tag]string{
		catalog.PrimaryLocale:   cfg.Catalog.PrimaryRepo,
		catalog.SecondaryLocale: cfg.Catalog.SecondaryRepo,
	})
	if err != nil {
		logger.Fatal("failed to build catalog source", "err", err)
	}
	names := catalog.New(source, logger.WithPrefix("catalog"))
	refresher := &catalog.Refresher{
		Catalog:  names,
		Interval: cfg.Catalog.RefreshInterval,
		Retry:    cfg.Catalog.RetryInterval,
		Logger:   logger.WithPrefix("catalog"),
	}
	go refresher.Run(ctx)

	// Account state
	hub := notify.NewHub()
	accounts := store.New(hub)

	var history *journal.Journal
	if cfg.Journal.Enabled {
		history, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			logger.Fatal("failed to open journal", "path", cfg.Journal.Path, "err", err)
		}
		defer history.Close()

		latest, err := history.LatestPerAccount(ctx)
		if err != nil {
			logger.Error("failed to restore accounts from journal", "err", err)
		}
		for _, c := range latest {
			accounts.Restore(c.AccountID, c.CapturedAt, c.Matches, c.HarvestMap)
		}
		logger.Info("journal opened", "path", cfg.Journal.Path, "restored_accounts", len(latest))
	}

	// Payload handling
	decoder, err := apicrypt.NewDecoder([]byte(cfg.Crypto.Key), []byte(cfg.Crypto.IV))
	if err != nil {
		logger.Fatal("invalid crypto configuration", "err", err)
	}
	handler := &ingest.Handler{
		Decoder:  decoder,
		Store:    accounts,
		TargetID: cfg.Harvest.TargetID,
		Catalog:  names,
		Logger:   logger.WithPrefix("ingest"),
	}
	if history != nil {
		handler.Journal = history
	}
	if cfg.Dump.Enabled {
		handler.Dumper = ingest.NewDumper(cfg.Dump.Dir)
		logger.Info("payload dumps enabled", "dir", cfg.Dump.Dir)
	}

	// Relay
	var dial relay.Dialer
	switch cfg.Relay.Backend {
	case "memory":
		dial = relay.MemoryDialer(relay.NewMemoryQueue(cfg.Relay.Capacity))
	default:
		dial = relay.RedisDialer(relay.RedisOptions{
			Address:  cfg.Relay.Address,
			Password: cfg.Relay.Password,
			DB:       cfg.Relay.DB,
			Key:      cfg.Relay.Key,
			Capacity: cfg.Relay.Capacity,
		})
	}
	client := relay.NewClient(dial, logger.WithPrefix("relay"))
	defer client.Close()

	if cfg.Proxy.Embedded {
		producer := relay.NewProducer(client, relay.ProducerOptions{RetryDelay: cfg.Relay.RetryDelay}, logger.WithPrefix("relay"))
		go producer.Run(ctx)

		proxy, err := interceptor.New(producer, logger.WithPrefix("proxy")).Proxy(interceptor.Options{
			CACert: cfg.Proxy.CACert,
			CAKey:  cfg.Proxy.CAKey,
		})
		if err != nil {
			logger.Fatal("failed to build proxy", "err", err)
		}
		go func() {
			logger.Info("proxy listening", "addr", cfg.Proxy.Listen)
			if err := http.ListenAndServe(cfg.Proxy.Listen, proxy); err != nil {
				logger.Error("proxy stopped", "err", err)
			}
		}()
	}

	consumer := &relay.Consumer{
		Client:         client,
		Handler:        handler,
		PollInterval:   cfg.Relay.PollInterval,
		ReconnectDelay: cfg.Relay.ReconnectDelay,
		Logger:         logger.WithPrefix("relay"),
	}
	go consumer.Run(ctx)

	// Dashboard
	deps := server.Deps{
		Store:   accounts,
		Hub:     hub,
		Catalog: names,
		Logs:    logs,
		Relay:   client,
		Logger:  logger.WithPrefix("dashboard"),
	}
	if history != nil {
		deps.History = history
	}
	srv, err := server.New(cfg, deps)
	if err != nil {
		logger.Fatal("failed to create server", "err", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(cfg.Address()); err != nil {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.Error("server error", "err", err)
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig)
	}

	cancel()
	if err := srv.Shutdown(); err != nil {
		logger.Error("error during shutdown", "err", err)
	}
	logger.Info("server stopped")
}
