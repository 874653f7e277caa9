package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/qaix/qaixbot/internal/bot"
	"github.com/qaix/qaixbot/internal/config"
	"github.com/qaix/qaixbot/internal/irc"
	"github.com/qaix/qaixbot/internal/metrics"
	"github.com/qaix/qaixbot/internal/points"
	"github.com/qaix/qaixbot/internal/storage"
)

// Version information - set at build time via ldflags
var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

func main() {
	foreground := flag.Bool("x", false, "Run in foreground (don't daemonize)")
	configPath := flag.String("c", "./config.yaml", "Path to configuration file (.yaml, .yml or .toml)")
	showVersion := flag.Bool("v", false, "Show version information and exit")
	showVersionLong := flag.Bool("version", false, "Show version information and exit")
	flag.Parse()

	if *showVersion || *showVersionLong {
		fmt.Printf("qaixbot version %s\n", version)
		fmt.Printf("Built: %s\n", buildDate)
		fmt.Printf("Commit: %s\n", gitCommit)
		os.Exit(0)
	}

	bot.Version = version
	bot.BuildDate = buildDate
	bot.GitCommit = gitCommit

	if !*foreground {
		daemonize()
		return
	}

	if err := writePIDFile(); err != nil {
		log.Printf("Warning: could not write PID file: %v", err)
	}

	if err := run(*configPath); err != nil {
		log.Fatal(err)
	}
}

// daemonize performs double-fork to become a daemon
func daemonize() {
	if os.Getenv("QAIX_DAEMON") == "1" {
		if err := writePIDFile(); err != nil {
			log.Printf("Warning: could not write PID file: %v", err)
		}

		fmt.Printf("Now becoming a daemon\nMy pid is %d, this has been written to pid.txt\n", os.Getpid())

		// Re-exec in the foreground, we're already detached
		args := append(os.Args, "-x")
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Env = os.Environ()
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

		if err := cmd.Start(); err != nil {
			log.Fatalf("Failed to start daemon: %v", err)
		}
		os.Exit(0)
	}

	cmd := exec.Command(os.Args[0], os.Args[1:]...)
	cmd.Env = append(os.Environ(), "QAIX_DAEMON=1")

	if err := cmd.Start(); err != nil {
		log.Fatalf("Failed to fork: %v", err)
	}
	os.Exit(0)
}

func writePIDFile() error {
	return os.WriteFile("pid.txt", []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}

func run(configPath string) error {
	configPath, err := filepath.Abs(configPath)
	if err != nil {
		return fmt.Errorf("failed to resolve configuration path: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := points.Open(cfg.PointsDB)
	if err != nil {
		return err
	}
	defer store.Close()

	saved, err := storage.LoadChannels(cfg.DataDir)
	if err != nil {
		log.Printf("Warning: could not load channels: %v", err)
	}

	collector := metrics.New()
	opts := cfg.EngineOptions(log.Default())
	opts.Channels = mergeChannels(opts.Channels, saved)
	opts.Observer = collector

	client, err := irc.NewClient(opts)
	if err != nil {
		return fmt.Errorf("failed to create IRC client: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	b, err := bot.New(ctx, client, cfg, store, collector)
	if err != nil {
		return fmt.Errorf("failed to start bot: %w", err)
	}
	defer b.Close()

	if cfg.MetricsAddr != "" {
		go func() {
			log.Printf("Serving metrics on %s", cfg.MetricsAddr)
			if err := collector.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Printf("Metrics endpoint stopped: %v", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		log.Printf("Received shutdown signal, shutting down...")
		client.Disconnect("Received shutdown signal")
	}()

	log.Printf("Connecting to %s...", describeServer(cfg))
	err = client.Run(context.Background())
	if errors.Is(err, irc.ErrAborted) {
		return fmt.Errorf("giving up on %s: %w", describeServer(cfg), err)
	}
	return err
}

// mergeChannels appends the saved channels not already configured.
func mergeChannels(configured, saved []string) []string {
	seen := make(map[string]bool, len(configured))
	for _, entry := range configured {
		if fields := strings.Fields(entry); len(fields) > 0 {
			seen[strings.ToLower(fields[0])] = true
		}
	}
	for _, entry := range saved {
		fields := strings.Fields(entry)
		if len(fields) == 0 || seen[strings.ToLower(fields[0])] {
			continue
		}
		seen[strings.ToLower(fields[0])] = true
		configured = append(configured, entry)
	}
	return configured
}

func describeServer(cfg *config.Config) string {
	if cfg.Transport == string(irc.TransportUnix) {
		return cfg.SocketPath
	}
	return fmt.Sprintf("%s:%d", cfg.Server, cfg.Port)
}
