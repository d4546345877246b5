// obsidiand — Minecraft-alpha compatible world daemon with a redstone
// circuit engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/obsidiand/obsidiand/internal/api"
	"github.com/obsidiand/obsidiand/internal/block"
	"github.com/obsidiand/obsidiand/internal/config"
	"github.com/obsidiand/obsidiand/internal/events"
	"github.com/obsidiand/obsidiand/internal/logging"
	"github.com/obsidiand/obsidiand/internal/metrics"
	"github.com/obsidiand/obsidiand/internal/world"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "/etc/obsidiand/config.toml", "path to configuration file")
	debugPort := flag.String("debug-port", "", "enable pprof debug server on this port (e.g. 6060)")
	flag.Parse()

	if *debugPort != "" {
		runtime.SetMutexProfileFraction(5)
		runtime.SetBlockProfileRate(1)
		go func() {
			addr := "127.0.0.1:" + *debugPort
			fmt.Fprintf(os.Stderr, "pprof debug server on http://%s/debug/pprof/\n", addr)
			if err := http.ListenAndServe(addr, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server failed: %v\n", err)
			}
		}()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Server.LogLevel, cfg.Server.LogFormat, os.Stdout)
	logger.Info("obsidiand starting",
		"version", version,
		"config", *configPath,
		"world", cfg.World.Name)

	if cfg.Server.PIDFile != "" {
		if err := os.WriteFile(cfg.Server.PIDFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
			logger.Warn("failed to write pid file", "path", cfg.Server.PIDFile, "error", err)
		}
		defer os.Remove(cfg.Server.PIDFile)
	}

	metrics.ServerStartTime.SetToCurrentTime()
	metrics.ServerInfo.WithLabelValues(version).Set(1)

	// World store (BoltDB)
	store, err := world.OpenStore(cfg.World.Database)
	if err != nil {
		logger.Error("failed to open world database", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	chunkCount, _ := store.StoredChunkCount()
	logger.Info("world database opened", "path", cfg.World.Database, "chunk_count", chunkCount)

	// Event bus and hook dispatcher
	bus := events.NewBus(cfg.Hooks.EventBufferSize, logger)
	go bus.Start()
	defer bus.Stop()

	dispatcher := events.NewDispatcher(bus, logger, cfg.Hooks.ScriptConcurrency, cfg.Hooks.WebhookTimeoutDuration())
	for _, s := range cfg.Hooks.Scripts {
		timeout, _ := time.ParseDuration(s.Timeout)
		dispatcher.AddScript(events.ScriptConfig{
			Name:    s.Name,
			Events:  s.Events,
			Command: s.Command,
			Timeout: timeout,
		})
	}
	for _, wh := range cfg.Hooks.Webhooks {
		timeout, _ := time.ParseDuration(wh.Timeout)
		backoff, _ := time.ParseDuration(wh.RetryBackoff)
		dispatcher.AddWebhook(events.WebhookConfig{
			Name:         wh.Name,
			Events:       wh.Events,
			URL:          wh.URL,
			Method:       wh.Method,
			Headers:      wh.Headers,
			Timeout:      timeout,
			Retries:      wh.Retries,
			RetryBackoff: backoff,
			Secret:       wh.Secret,
		})
	}
	go dispatcher.Start()
	defer dispatcher.Stop()

	// World and circuit graph
	w := world.New(cfg.World.Name, store, block.NewCatalog(), bus, logger)
	if err := w.Rebuild(); err != nil {
		logger.Error("failed to rebuild circuit graph", "error", err)
		os.Exit(1)
	}

	// HTTP API
	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer = api.NewServer(cfg, w, bus, logger, api.WithVersion(version))
		ln, err := apiServer.Listen()
		if err != nil {
			logger.Error("failed to start API server", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := apiServer.Serve(ln); err != nil {
				logger.Error("API server failed", "error", err)
			}
		}()
	}

	// Periodic world flush
	flushDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.World.FlushIntervalDuration())
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := w.Flush(); err != nil {
					logger.Error("world flush failed", "error", err)
				}
			case <-flushDone:
				return
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	close(flushDone)

	if apiServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := apiServer.Stop(ctx); err != nil {
			logger.Warn("API server shutdown", "error", err)
		}
		cancel()
	}

	if err := w.Flush(); err != nil {
		logger.Error("final world flush failed", "error", err)
	}
	logger.Info("obsidiand stopped")
}
