// Command merge reconciles a primary-language and a localized 5etools-style
// corpus into merged, cross-referenced records for a wiki publisher.
//
// Flags:
//
//	--phase    comma-separated list of phases to run (default: all)
//	--dry-run  merge without writing output
//	--config   path to YAML config file (default: CONFIG_PATH or ./config.yaml)
//	--timeout  abort the run after this long (default 30m)
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pttsw/wiki-dnd-parser/internal/app"
)

func main() {
	phaseFlag := flag.String("phase", "", "comma-separated phases to run (default: all)")
	dryRunFlag := flag.Bool("dry-run", false, "merge without writing output")
	configFlag := flag.String("config", "", "path to YAML config file")
	timeoutFlag := flag.Duration("timeout", 30*time.Minute, "overall run timeout")
	flag.Parse()

	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	var phases []string
	if *phaseFlag != "" {
		phases = strings.Split(*phaseFlag, ",")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeoutFlag)
	defer cancel()

	err := app.Run(ctx, app.Options{
		ConfigPath: *configFlag,
		Phases:     phases,
		DryRun:     *dryRunFlag,
	})
	if err != nil {
		slog.Error("merge failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
