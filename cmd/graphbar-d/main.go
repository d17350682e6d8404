package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rmax-ai/graphbar/pkg/api"
	"github.com/rmax-ai/graphbar/pkg/engine"
	"github.com/rmax-ai/graphbar/pkg/presenter"
	"github.com/rmax-ai/graphbar/pkg/provider"
	"github.com/rmax-ai/graphbar/pkg/tui"
)

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("invalid configuration: %v", err)
	}

	logClose, err := setupLogging(cfg)
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}
	defer logClose()

	slog.Info("System started", "component", "graphbar-d", "backend", cfg.Backend, "ui", cfg.UI)

	engineCfg, err := engineConfig(cfg)
	if err != nil {
		log.Fatalf("failed to load engine config: %v", err)
	}

	be, err := openBackend(cfg)
	if err != nil {
		log.Fatalf("failed to open backend: %v", err)
	}

	var (
		pres   engine.Presenter
		bar    *tui.Presenter
		writer *presenter.Writer
	)
	switch cfg.UI {
	case "tui":
		bar = tui.NewPresenter(tea.WithAltScreen())
		pres = bar
	case "log":
		writer = presenter.NewWriter(os.Stdout, presenter.WithTimestamp())
		pres = writer
	default:
		pres = presenter.NewRecorder()
	}

	registry := provider.NewRegistry()
	coord, err := engine.NewCoordinator(registry, pres, engineCfg, slog.Default())
	if err != nil {
		log.Fatalf("failed to create coordinator: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := coord.Start(ctx); err != nil {
		log.Fatalf("failed to start coordinator: %v", err)
	}
	if err := registry.Register(be.provider); err != nil {
		log.Fatalf("failed to register provider: %v", err)
	}

	srv := api.NewServer(coord, registry, be.writer, cfg.Addr, slog.Default())
	srv.SetToken(cfg.Token)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("Server failed", "error", err)
			cancel()
		}
	}()

	var uiDone <-chan struct{}
	if bar != nil {
		go func() {
			if err := bar.Run(); err != nil {
				slog.Error("Status bar failed", "error", err)
			}
		}()
		uiDone = bar.Done()
	}

	// SIGHUP forces a recount; SIGINT/SIGTERM shut down.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

wait:
	for {
		select {
		case sig := <-sigs:
			if sig == syscall.SIGHUP {
				slog.Info("Refresh requested", "signal", sig.String())
				coord.Refresh()
				continue
			}
			slog.Info("Shutdown initiated", "signal", sig.String())
			break wait
		case <-uiDone:
			slog.Info("Shutdown initiated", "reason", "status bar closed")
			break wait
		case <-ctx.Done():
			break wait
		}
	}

	registry.Unregister(be.provider.ID())
	if err := coord.Stop(); err != nil {
		slog.Error("Failed to stop coordinator", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		slog.Error("Failed to stop server", "error", err)
	}

	if bar != nil {
		bar.Quit()
		<-bar.Done()
	}
	if writer != nil {
		writer.Close()
	}

	if err := be.close(); err != nil {
		slog.Error("Failed to close backend", "error", err)
	} else {
		slog.Info("Backend closed")
	}
	slog.Info("Shutdown complete")
}

// setupLogging routes logs to a file when requested. The status bar owns
// the terminal, so tui mode always logs to a file.
func setupLogging(cfg Config) (func(), error) {
	if cfg.UI == "tui" {
		f, err := tea.LogToFile(cfg.LogFile, "graphbar-d")
		if err != nil {
			return nil, err
		}
		return func() { f.Close() }, nil
	}
	if cfg.LogFile == "" {
		return func() {}, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, nil)))
	return func() { f.Close() }, nil
}

// engineConfig layers the optional config file under the flags. Flags win
// when they differ from their defaults.
func engineConfig(cfg Config) (engine.Config, error) {
	ec := engine.DefaultConfig()
	if cfg.ConfigPath != "" {
		loaded, err := engine.LoadConfigFile(cfg.ConfigPath)
		if err != nil {
			return ec, err
		}
		ec = loaded
	}
	if cfg.PollInterval != defaultPollInterval {
		ec.Interval = cfg.PollInterval
	}
	if cfg.InitialDelay != 0 {
		ec.InitialDelay = cfg.InitialDelay
	}
	if cfg.Query != "" {
		ec.Query = cfg.Query
	}
	return ec, ec.Validate()
}
