package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tjfontaine/polyglot-connector/internal/pkg/config"
	"github.com/tjfontaine/polyglot-connector/internal/telemetry"
	"github.com/tjfontaine/polyglot-connector/pkg/connector"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage:
  connector [flags] <connector> <group> <request> [key=value ...]
  connector [flags] -serve

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", config.DefaultPath, "path to config file")
	serve := flag.Bool("serve", false, "run the inspector API until interrupted")
	list := flag.Bool("list", false, "list configured connectors, groups and requests")
	timeout := flag.Duration("timeout", time.Minute, "overall timeout for a single dispatch")
	flag.Usage = usage
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	logger := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(cfg.Telemetry.ServiceName, logger, telemetry.WithWriter(os.Stderr))
		if err != nil {
			logger.Error("failed to initialize tracer", slog.String("error", err.Error()))
			return 1
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
			}
		}()
	}

	rt, err := connector.NewRuntime(
		connector.WithConfig(cfg),
		connector.WithLogger(logger),
	)
	if err != nil {
		logger.Error("failed to create runtime", slog.String("error", err.Error()))
		return 1
	}

	exitCode := 0
	switch {
	case *list:
		printConfig(cfg)
	case *serve:
		exitCode = runServe(rt, logger)
	case flag.NArg() >= 3:
		exitCode = runDispatch(rt, *timeout, flag.Args())
	default:
		flag.Usage()
		exitCode = 2
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := rt.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		exitCode = 1
	}

	return exitCode
}

func runServe(rt *connector.Runtime, logger *slog.Logger) int {
	if !rt.Config().Inspector.Enabled {
		logger.Error("inspector is disabled; set inspector.enabled or POLY_INSPECTOR__ENABLED=true")
		return 1
	}

	if err := rt.Start(context.Background()); err != nil {
		logger.Error("failed to start", slog.String("error", err.Error()))
		return 1
	}
	logger.Info("inspector started", slog.String("addr", rt.InspectorAddr()))

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")
	return 0
}

func runDispatch(rt *connector.Runtime, timeout time.Duration, args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	params := make([]any, 0, len(args)-3)
	for _, a := range args[3:] {
		params = append(params, a)
	}

	resp, err := rt.Dispatch(ctx, args[0], args[1], args[2], params...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Fprintf(os.Stderr, "%s (%s)\n", resp.Status, resp.Duration)
	os.Stdout.Write(resp.Body)
	if len(resp.Body) > 0 && resp.Body[len(resp.Body)-1] != '\n' {
		fmt.Println()
	}

	if resp.Failed() {
		return 1
	}
	return 0
}

func printConfig(cfg *config.Config) {
	for _, conn := range cfg.Connectors {
		fmt.Printf("%s\t%s\n", conn.Name, conn.BaseURL)
		for _, g := range conn.Groups {
			for _, r := range g.Requests {
				fmt.Printf("  %s.%s\t%s %s\n", g.Name, r.Name, r.Method, r.Endpoint)
			}
		}
	}
}
