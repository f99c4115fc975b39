package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/schedflow/schedflow/internal/logging"
	"github.com/schedflow/schedflow/pkg/archive"
	"github.com/schedflow/schedflow/pkg/classification"
	"github.com/schedflow/schedflow/pkg/config"
	"github.com/schedflow/schedflow/pkg/embed"
	"github.com/schedflow/schedflow/pkg/interfaces"
	"github.com/schedflow/schedflow/pkg/pipeline"
	"github.com/schedflow/schedflow/pkg/planner"
	"github.com/schedflow/schedflow/pkg/queue"
	"github.com/schedflow/schedflow/pkg/search"
	"github.com/schedflow/schedflow/pkg/store/postgres"
	"github.com/schedflow/schedflow/pkg/telemetry"
	"github.com/schedflow/schedflow/pkg/worker"
)

var (
	queueURL string
	runOnce  bool
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the queue consumption loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	cmd.Flags().StringVar(&queueURL, "queue-url", "", "override the configured queue URL")
	cmd.Flags().BoolVar(&runOnce, "once", false, "process a single batch and exit")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Println("configuration OK")
			return nil
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logJSON {
		cfg.Logging.JSON = true
	}
	return cfg, nil
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if queueURL != "" {
		cfg.Queue.URL = queueURL
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logging.Init(cfg.Logging.JSON, logging.ParseLevel(cfg.Logging.Level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			Endpoint:       cfg.Telemetry.Endpoint,
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: version,
			Environment:    cfg.Telemetry.Environment,
			InsecureTLS:    cfg.Telemetry.InsecureTLS,
			SamplingRatio:  cfg.Telemetry.SamplingRatio,
			ExportTimeout:  30 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				log.Warn("telemetry shutdown failed", "error", err)
			}
		}()
	}

	store, err := postgres.New(ctx, postgres.Config{
		URL:      cfg.Database.URL,
		MaxConns: cfg.Database.MaxConns,
		Timeout:  cfg.Database.Timeout,
	})
	if err != nil {
		return fmt.Errorf("init calendar store: %w", err)
	}
	defer store.Close()

	index, err := search.New(search.Config{
		Address:   cfg.Search.Address,
		Password:  cfg.Search.Password,
		Database:  cfg.Search.Database,
		IndexName: cfg.Search.IndexName,
		Prefix:    cfg.Search.KeyPrefix,
		Timeout:   cfg.Search.Timeout,
		PoolSize:  cfg.Search.PoolSize,
	})
	if err != nil {
		return fmt.Errorf("init vector index: %w", err)
	}
	defer index.Close()

	q, err := queue.New(ctx, queue.Config{
		URL:               cfg.Queue.URL,
		Region:            cfg.Queue.Region,
		Endpoint:          cfg.Queue.Endpoint,
		WaitTime:          cfg.Queue.WaitTime,
		VisibilityTimeout: cfg.Queue.VisibilityTimeout,
	})
	if err != nil {
		return fmt.Errorf("init queue: %w", err)
	}

	var failures interfaces.FailureArchive
	if cfg.Archive.Enabled {
		failures, err = archive.New(ctx, archive.Config{
			Bucket: cfg.Archive.Bucket,
			Region: cfg.Archive.Region,
			Prefix: cfg.Archive.Prefix,
		})
		if err != nil {
			return fmt.Errorf("init failure archive: %w", err)
		}
	}

	pipe := pipeline.New(pipeline.Deps{
		Store: store,
		Index: index,
		Embedder: embed.New(embed.Config{
			URL:     cfg.Embedding.URL,
			Timeout: cfg.Embedding.Timeout,
			Retries: cfg.Embedding.Retries,
		}),
		Outcomes: classification.NewProcessor(store, log),
		Planner: planner.New(planner.Config{
			URL:      cfg.Planner.URL,
			Username: cfg.Planner.Username,
			Password: cfg.Planner.Password,
			Timeout:  cfg.Planner.Timeout,
		}),
	}, pipeline.Config{
		MaxExpansionDepth: cfg.Pipeline.MaxExpansionDepth,
		FetchConcurrency:  cfg.Pipeline.FetchConcurrency,
		IOTimeout:         cfg.Pipeline.IOTimeout,
	}, log)

	w := worker.New(q, pipe, failures, worker.Config{
		BatchSize:      cfg.Queue.MaxMessages,
		MessageTimeout: cfg.Pipeline.MessageTimeout,
		Once:           runOnce,
	}, log)

	log.Info("schedflow starting",
		"version", version,
		"queue", cfg.Queue.URL,
		"archive", cfg.Archive.Enabled)
	return w.Run(ctx)
}
