package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/autoprofit/core/internal/app"
	"github.com/autoprofit/core/internal/config"
	"github.com/autoprofit/core/internal/database"
	"github.com/autoprofit/core/internal/modules/pipeline"
	pkgcron "github.com/autoprofit/core/internal/pkg/cron"
	"github.com/autoprofit/core/internal/store"
	"go.uber.org/zap"
)

const usage = `autoprofit automation CLI

Usage:
  autoprofit <command> [flags]

Commands:
  init      initialize database schema and output folders
  db-check  validate DB connectivity and print metrics
  run       execute one full automation cycle
  serve     serve API endpoints including cron trigger and redirect tracking
  loop      run automation continuously without human intervention
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	logger := newLogger()
	defer logger.Sync()

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "init":
		err = cmdInit(args)
	case "db-check":
		err = cmdDBCheck(args)
	case "run":
		err = cmdRun(args, logger)
	case "serve":
		err = cmdServe(args, logger)
	case "loop":
		err = cmdLoop(args, logger)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal("command failed", zap.String("command", command), zap.Error(err))
	}
}

func newLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return logger
}

func loadConfig(fs *flag.FlagSet, args []string) (*config.AppConfig, error) {
	configPath := fs.String("config", config.DefaultConfigPath, "Path to YAML config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return config.Load(*configPath)
}

func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	if err := database.EnsureSchema(cfg); err != nil {
		return err
	}
	fmt.Printf("Initialized %s database\n", cfg.DatabaseProvider())
	return nil
}

func cmdDBCheck(args []string) error {
	fs := flag.NewFlagSet("db-check", flag.ExitOnError)
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return err
	}
	metrics, err := store.New(db).Metrics()
	if err != nil {
		return err
	}

	return printJSON(map[string]interface{}{
		"provider":  cfg.DatabaseProvider(),
		"connected": true,
		"metrics":   metrics,
	})
}

func cmdRun(args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	limit := fs.Int("limit", 0, "override max posts for this run")
	dryRun := fs.Bool("dry-run", false, "skip rendering and persistence")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	pipe, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	summary, err := pipe.Run(context.Background(), pipeline.Options{Limit: *limit, DryRun: *dryRun})
	if err != nil {
		return err
	}
	return printJSON(summary)
}

func cmdServe(args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	application, err := app.New(logger, cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}

	srv := &http.Server{
		Addr:    application.Addr(),
		Handler: application.Router(),
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	application.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}

func cmdLoop(args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("loop", flag.ExitOnError)
	intervalMinutes := fs.Int("interval-minutes", 60, "minutes between automation cycles")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if *intervalMinutes < 1 {
		*intervalMinutes = 1
	}

	pipe, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := pkgcron.New()
	sched.Register(pkgcron.Job{
		Name:        "pipeline_run",
		Description: "run one content automation cycle",
		Interval:    time.Duration(*intervalMinutes) * time.Minute,
		Fn: func(ctx context.Context) error {
			summary, err := pipe.Run(ctx, pipeline.Options{})
			if err != nil {
				return err
			}
			return printJSON(summary)
		},
	})

	logger.Info("starting autonomous loop", zap.Int("interval_minutes", *intervalMinutes))
	// first cycle runs immediately, then the scheduler takes over
	if err := sched.Run(ctx, "pipeline_run"); err != nil {
		return err
	}
	sched.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("loop stopped")
	return nil
}

func buildPipeline(cfg *config.AppConfig, logger *zap.Logger) (*pipeline.Pipeline, error) {
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, err
	}
	return pipeline.New(cfg, store.New(db), logger.Named("pipeline"),
		pipeline.WithSchemaEnsurer(func() error { return database.Migrate(db) }),
	), nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
