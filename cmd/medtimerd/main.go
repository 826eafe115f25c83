// Package main provides the medtimer daemon entry point.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/medtimer/internal/api/connect"
	"github.com/osa030/medtimer/internal/api/medtimerv1/medtimerv1connect"
	"github.com/osa030/medtimer/internal/app/audio"
	"github.com/osa030/medtimer/internal/app/history"
	"github.com/osa030/medtimer/internal/app/meditation"
	"github.com/osa030/medtimer/internal/app/timer"
	"github.com/osa030/medtimer/internal/infra/config"
	"github.com/osa030/medtimer/internal/infra/logger"
	"github.com/osa030/medtimer/internal/infra/power"
	"github.com/osa030/medtimer/internal/infra/preferences"
	"github.com/osa030/medtimer/internal/infra/store"
)

var (
	app        = kingpin.New("medtimerd", "Meditation timer daemon")
	configPath = app.Flag("config", "Path to config file").Default(defaultConfigPath()).String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// check-config command
	checkConfigCmd = app.Command("check-config", "Validate the config file and exit")
)

func init() {
	// start command (default)
	app.Command("start", "Start the daemon (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if command == checkConfigCmd.FullCommand() {
		printConfig(cfg)
		return
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Daemon error: %+v", err)
		os.Exit(1)
	}
}

// run executes the daemon. Using a separate function ensures deferred
// cleanup runs even when returning with an error.
func run(cfg *config.Config) error {
	// Session store
	repo, err := store.NewSQLiteRepository(cfg.Store.Path)
	if err != nil {
		return errors.Wrap(err, "failed to open session store")
	}
	defer func() {
		if err := repo.Close(); err != nil {
			zlog.Error().Msgf("Failed to close session store: %v", err)
		}
	}()
	sessionLog := history.NewLog(repo)

	// Audio
	backend, err := audio.NewBackendFromConfig(cfg.Audio)
	if err != nil {
		return errors.Wrap(err, "failed to create audio backend")
	}
	player := audio.NewPlayer(backend, cfg.LoopOverlap())
	defer player.ReleaseAll()

	// Power
	inhibitor, err := power.NewFromConfig(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to create sleep inhibitor")
	}

	// Engine and control surface
	engine := timer.NewEngine(timer.Config{
		PollInterval: cfg.PollInterval(),
		EventBuffer:  cfg.Timer.EventBuffer,
	}, player, sessionLog, inhibitor)
	svc := meditation.NewService(engine, sessionLog, preferences.NewYAMLStore(cfg.Preferences.Path), cfg.Timer.Defaults)
	defer svc.Close()

	// RPC
	var handlerOpts []connect.HandlerOption
	if cfg.Server.Token != "" {
		handlerOpts = append(handlerOpts, connect.WithInterceptors(apiconnect.NewTokenInterceptor(cfg.Server.Token)))
	}

	mux := http.NewServeMux()
	path, handler := medtimerv1connect.NewTimerServiceHandler(apiconnect.NewTimerService(svc), handlerOpts...)
	mux.Handle(path, handler)

	server := &http.Server{
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := listen(cfg)
	if err != nil {
		return err
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", listener.Addr())
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zlog.Info().Msgf("Received %s, shutting down...", sig)
	case err := <-serverErrCh:
		return errors.Wrap(err, "server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close the service first so event streams end and the run is torn down
	svc.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Daemon stopped")

	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// listen opens the TCP address when configured, otherwise the unix socket.
// A stale socket left by a crashed daemon is removed; a live one is an error.
func listen(cfg *config.Config) (net.Listener, error) {
	if cfg.Server.Addr != "" {
		l, err := net.Listen("tcp", cfg.Server.Addr)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to listen on %s", cfg.Server.Addr)
		}
		return l, nil
	}

	socket := cfg.Server.Socket
	if err := os.MkdirAll(filepath.Dir(socket), 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create socket directory")
	}
	if _, err := os.Stat(socket); err == nil {
		if conn, err := net.DialTimeout("unix", socket, time.Second); err == nil {
			_ = conn.Close()
			return nil, errors.Newf("another daemon is listening on %s", socket)
		}
		zlog.Warn().Msgf("Removing stale socket %s", socket)
		if err := os.Remove(socket); err != nil {
			return nil, errors.Wrap(err, "failed to remove stale socket")
		}
	}

	l, err := net.Listen("unix", socket)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on %s", socket)
	}
	if err := os.Chmod(socket, 0o600); err != nil {
		_ = l.Close()
		return nil, errors.Wrap(err, "failed to restrict socket permissions")
	}
	return l, nil
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}

// printConfig prints the effective configuration.
func printConfig(cfg *config.Config) {
	d := cfg.Timer.Defaults
	fmt.Println("Configuration OK")
	if cfg.Server.Addr != "" {
		fmt.Printf("  %-14s %s\n", "listen:", cfg.Server.Addr)
	} else {
		fmt.Printf("  %-14s %s\n", "socket:", cfg.Server.Socket)
	}
	fmt.Printf("  %-14s %s\n", "database:", cfg.Store.Path)
	fmt.Printf("  %-14s %s\n", "preferences:", cfg.Preferences.Path)
	fmt.Printf("  %-14s %s\n", "audio:", cfg.Audio.Backend)
	fmt.Printf("  %-14s %s\n", "inhibitor:", cfg.Power.Inhibitor)
	fmt.Printf("  %-14s countdown=%ds interval=%ds intervals=%d volume=%.2f debug=%t\n",
		"defaults:", d.CountdownSeconds, d.IntervalSeconds(), d.NumIntervals, d.WhiteNoiseVolume, d.Debug)
}

func defaultConfigPath() string {
	dir, err := config.UserDataDir()
	if err != nil {
		return "medtimerd.yaml"
	}
	return filepath.Join(dir, "medtimerd.yaml")
}
