// Command worker drains the scan queue. It shares configuration flags with
// the server binary; -queue is required.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/app"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/cli"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
)

func main() {
	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("parsing arguments: %v", err)
	}
	if args.QueuePath == "" {
		log.Fatal("worker requires -queue")
	}

	logger := logging.NewStdoutLogger("Worker")

	cfg := app.DefaultConfig()
	cfg.StoreCfg.Backend = args.StoreBackend
	cfg.StoreCfg.Path = args.StorePath
	cfg.DurableStorePath = args.DurablePath
	cfg.QueueCfg.Path = args.QueuePath
	cfg.WebClientCfg.Backend = args.WebBackend
	cfg.PipelineCfg.AI.BaseURL = args.AIBaseURL
	cfg.PipelineCfg.AI.PrimaryModel = args.AIPrimaryModel
	cfg.PipelineCfg.AI.APIKey = os.Getenv("AI_API_KEY")
	cfg.CredentialSecret = os.Getenv("CREDENTIAL_SECRET")

	application, err := app.New(cfg, logger)
	if err != nil {
		log.Fatalf("building application: %v", err)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("worker started", logging.Field{Key: "queue", Value: args.QueuePath})
	if err := application.RunWorker(ctx); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
