package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"snarkcollective/internal/chain"
	"snarkcollective/internal/config"
	"snarkcollective/internal/funding"
	"snarkcollective/internal/keys"
	"snarkcollective/internal/wallet"
)

func main() {
	root := &cobra.Command{
		Use:          "collective",
		Short:        "SnarkCollective crowdfunding client",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file path")
	pf.String("explorer-url", config.DefaultExplorerURL, "explorer REST base URL")
	pf.String("network", "testnet", "explorer network path segment")
	pf.String("program-id", config.DefaultProgramID, "crowdfunding program id")
	pf.Uint("round-slot", 1, "rounds mapping slot holding the current round")
	pf.Float64("requests-per-second", 5, "explorer read rate limit")
	pf.Int("max-retries", 3, "maximum retry attempts for explorer reads")
	pf.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	pf.Duration("round-read-timeout", 30*time.Second, "upper bound for a shared round read")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newRoundCmd(),
		newProjectsCmd(),
		newKeyCmd(),
		newDecodeCmd(),
		newWalletCmd(),
		newSubmitCmd(),
		newDonateCmd(),
		newApproveCmd(),
		newRoundAdminCmd("start-round", "Start a funding round", (*funding.Service).StartRound),
		newRoundAdminCmd("finish-round", "Finish the current funding round", (*funding.Service).FinishRound),
		newWatchCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the wiring shared by every command.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	chain   *chain.Client
	backend *keys.Backend
	deriver *keys.Deriver
	bridge  *wallet.Bridge
	service *funding.Service
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	return buildApp(cfg)
}

func buildApp(cfg config.Config) (*app, error) {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	chainClient, err := chain.NewClient(chain.Config{
		BaseURL:           cfg.ExplorerURL,
		Network:           cfg.Network,
		ProgramID:         cfg.ProgramID,
		RequestsPerSecond: cfg.RequestsPerSecond,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		Timeout:           cfg.RequestTimeout,
	}, logger.Named("chain"))
	if err != nil {
		return nil, err
	}

	backend := keys.NewBackend(nil, logger.Named("keys"))
	backend.Start()
	deriver := keys.NewDeriver(backend)

	bridge := wallet.NewBridge(wallet.Config{
		Factory: wallet.NewRPCFactory(wallet.Endpoints{
			Puzzle:       cfg.PuzzleURL,
			Leo:          cfg.LeoURL,
			LeoExtension: cfg.LeoExtensionURL,
			Fox:          cfg.FoxURL,
			Soter:        cfg.SoterURL,
		}, nil),
		AppName:    cfg.AppName,
		ProgramIDs: cfg.WalletPrograms,
		Retry: wallet.RetryConfig{
			Interval:   cfg.ProbeInterval,
			Attempts:   cfg.ProbeAttempts,
			FinalDelay: cfg.ProbeFinalDelay,
		},
	}, logger.Named("wallet"))

	service := funding.NewService(funding.Config{
		ProgramID:   cfg.ProgramID,
		RoundSlot:   cfg.RoundSlot,
		ReadTimeout: cfg.RoundReadTimeout,
	}, chainClient, deriver, bridge, logger.Named("funding"))

	return &app{
		cfg:     cfg,
		logger:  logger,
		chain:   chainClient,
		backend: backend,
		deriver: deriver,
		bridge:  bridge,
		service: service,
	}, nil
}

// keysReady blocks until the key backend finished loading.
func (a *app) keysReady(ctx context.Context) error {
	if _, err := a.backend.Load(ctx); err != nil {
		return fmt.Errorf("load key backend: %w", err)
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
