// Command bookcore-seed loads the demo data set into the configured store.
// Storage selection and credentials come from the environment; a .env file
// in the working directory is honored when present.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"bookcore/internal/core"
)

func main() {
	timeout := flag.Duration("timeout", 30*time.Second, "seed operation timeout")
	pretty := flag.Bool("pretty", false, "human readable log output")
	flag.Parse()

	out := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if *pretty {
		out = out.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	logger := core.NewZerologLogger(out)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("dotenv load failed", "error", err)
	}

	store, err := core.OpenPersistentStore(core.NewDefaultRulesEngine())
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}

	svc := core.NewService(store, core.WithLogger(logger))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := svc.SeedDemoData(ctx); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
}
