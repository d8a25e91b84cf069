// Command proxy runs the interception proxy on its own and relays captured
// payloads to the server through Redis.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/gravitas-games/sekaiscout/internal/config"
	"github.com/gravitas-games/sekaiscout/internal/interceptor"
	"github.com/gravitas-games/sekaiscout/internal/relay"
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
	if cfg.Relay.Backend != "redis" {
		log.Fatal("standalone proxy needs the redis relay backend", "backend", cfg.Relay.Backend)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "proxy"})
	if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := relay.NewClient(relay.RedisDialer(relay.RedisOptions{
		Address:  cfg.Relay.Address,
		Password: cfg.Relay.Password,
		DB:       cfg.Relay.DB,
		Key:      cfg.Relay.Key,
		Capacity: cfg.Relay.Capacity,
	}), logger)
	defer client.Close()

	producer := relay.NewProducer(client, relay.ProducerOptions{RetryDelay: cfg.Relay.RetryDelay}, logger)
	go producer.Run(ctx)

	proxy, err := interceptor.New(producer, logger).Proxy(interceptor.Options{
		CACert: cfg.Proxy.CACert,
		CAKey:  cfg.Proxy.CAKey,
	})
	if err != nil {
		logger.Fatal("failed to build proxy", "err", err)
	}

	httpSrv := &http.Server{Addr: cfg.Proxy.Listen, Handler: proxy}
	errChan := make(chan error, 1)
	go func() {
		logger.Info("proxy listening", "addr", cfg.Proxy.Listen, "relay", cfg.Relay.Address)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.Error("proxy error", "err", err)
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig)
	}

	cancel()
	_ = httpSrv.Close()
	if n := producer.Dropped(); n > 0 {
		logger.Warn("packets dropped while relay was unavailable", "count", n)
	}
}
