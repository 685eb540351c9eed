// Command email-agent processes unread email: it classifies each
// message with Gemini, matches the classification against configured
// rules, and executes the resulting actions under a safety gate.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/akanksha05Singh/gemini-email-agent/internal/agent"
	"github.com/akanksha05Singh/gemini-email-agent/internal/ai"
	"github.com/akanksha05Singh/gemini-email-agent/internal/audit"
	"github.com/akanksha05Singh/gemini-email-agent/internal/credential"
	"github.com/akanksha05Singh/gemini-email-agent/internal/mail"
	"github.com/akanksha05Singh/gemini-email-agent/internal/model"
	"github.com/akanksha05Singh/gemini-email-agent/internal/report"
	"github.com/akanksha05Singh/gemini-email-agent/internal/rules"
	"github.com/akanksha05Singh/gemini-email-agent/internal/safety"
	"github.com/akanksha05Singh/gemini-email-agent/internal/store"
)

func main() {
	configPath := pflag.String("config", model.DefaultConfigPath(), "path to the YAML configuration file")
	dryRun := pflag.Bool("dry-run", false, "simulate all actions without touching the mailbox")
	limit := pflag.Int("limit", 0, "max unread emails to process (overrides config)")
	verbose := pflag.BoolP("verbose", "v", false, "enable debug logging")
	pflag.Parse()

	// A .env file is optional; real environments set variables directly.
	_ = godotenv.Load()

	logger, err := buildLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "building logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if args := pflag.Args(); len(args) > 0 {
		if err := runSubcommand(*configPath, *limit, args, logger); err != nil {
			logger.Fatal("command failed", zap.Error(err))
		}
		return
	}

	if err := run(*configPath, *dryRun, *limit, logger); err != nil {
		logger.Fatal("run failed", zap.Error(err))
	}
}

func run(configPath string, dryRun bool, limitOverride int, logger *zap.Logger) error {
	logger.Info("starting agent", zap.Bool("dry_run", dryRun))

	cfg, err := model.LoadConfig(configPath, logger)
	if err != nil {
		return err
	}

	secrets, err := cfg.ResolveSecrets()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.StatePath), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.NewSQLiteStore(cfg.StatePath)
	if err != nil {
		return err
	}
	defer db.Close()

	limiter := safety.NewRateLimiter(ctx, cfg.Safety.RateLimit, db, logger)
	gate := safety.NewGate(safety.ThresholdsFromConfig(cfg.Safety), limiter, logger)
	engine := rules.New(cfg.Rules, logger)
	oracle := ai.NewGeminiClient(secrets.GeminiAPIKey, cfg.AgentSettings, logger)
	sink := audit.NewStoreSink(db, logger)

	transport := mail.NewClient(mail.ClientConfig{
		Username: secrets.Email,
		Password: secrets.AppPassword,
	}, logger)

	var executor agent.ActionExecutor
	if dryRun {
		executor = agent.NewSimulatedExecutor(logger)
	} else {
		executor = agent.NewLiveExecutor(transport, limiter, logger)
	}

	resolver := agent.NewResolver(engine, gate, executor, cfg.Safety, logger)

	fetchLimit := cfg.AgentSettings.FetchLimit
	if limitOverride > 0 {
		fetchLimit = limitOverride
	}

	a := agent.New(transport, oracle, resolver, sink, fetchLimit, dryRun, logger)

	summary, runErr := a.Run(ctx)
	fmt.Print(report.Render(summary))

	if runErr != nil {
		return runErr
	}

	logger.Info("agent finished", zap.Int("emails_processed", len(summary.Results)))
	return nil
}

// runSubcommand handles the maintenance helpers:
//
//	email-agent set-credential <key>      store a secret from stdin
//	email-agent delete-credential <key>   remove a stored secret
//	email-agent history                   show recent audit records
func runSubcommand(configPath string, limit int, args []string, logger *zap.Logger) error {
	switch args[0] {
	case "set-credential":
		if len(args) != 2 {
			return fmt.Errorf("usage: email-agent set-credential <key>")
		}
		fmt.Fprintf(os.Stderr, "value for %q: ", args[1])
		reader := bufio.NewReader(os.Stdin)
		value, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading value: %w", err)
		}
		return credential.Set(args[1], strings.TrimSpace(value))
	case "delete-credential":
		if len(args) != 2 {
			return fmt.Errorf("usage: email-agent delete-credential <key>")
		}
		return credential.Delete(args[1])
	case "history":
		return showHistory(configPath, limit, logger)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// showHistory prints the most recent audit records from the state
// database.
func showHistory(configPath string, limit int, logger *zap.Logger) error {
	cfg, err := model.LoadConfig(configPath, logger)
	if err != nil {
		return err
	}

	db, err := store.NewSQLiteStore(cfg.StatePath)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.GetAuditRecords(context.Background(), limit)
	if err != nil {
		return err
	}

	fmt.Print(report.RenderHistory(records))
	return nil
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}

	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stderr"}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return config.Build()
}
