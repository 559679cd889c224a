package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/evelens/internal/config"
	"github.com/Norgate-AV/evelens/internal/logger"
	"github.com/Norgate-AV/evelens/internal/native"
	"github.com/Norgate-AV/evelens/internal/service"
	"github.com/Norgate-AV/evelens/internal/store"
	"github.com/Norgate-AV/evelens/internal/version"
	"github.com/Norgate-AV/evelens/internal/windows"
)

var (
	verbose    bool
	showLogs   bool
	configPath string
)

// Replaced in tests.
var (
	osExit    = os.Exit
	newNative = windows.New
)

var RootCmd = &cobra.Command{
	Use:   "evelens",
	Short: "evelens - Live previews of EVE client windows",
	Long: `Live previews of EVE client windows.

evelens mirrors every running EVE client into a small always-on-top preview
and switches between clients with global hotkeys.`,
	Version:       version.GetVersion(),
	Args:          cobra.NoArgs,
	RunE:          Execute,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	RootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&showLogs, "logs", "l", false, "print the log file and exit")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default %APPDATA%\\evelens\\config.yaml)")
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}

	return config.DefaultPath()
}

func loadConfig() (*config.Config, error) {
	return config.Load(resolveConfigPath())
}

// openStore opens the configured database. Subcommands use it without file logging.
func openStore(ctx context.Context) (*store.SQLite, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	return store.Open(ctx, cfg.Database, logger.NewNoOpLogger())
}

// Execute runs the preview service until interrupted.
func Execute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if showLogs {
		if err := logger.PrintLogFile(cmd.OutOrStdout(), cfg.LoggerOptions(verbose)); err != nil {
			return err
		}

		osExit(0)
		return nil
	}

	log, err := logger.NewLogger(cfg.LoggerOptions(verbose))
	if err != nil {
		return fmt.Errorf("error initializing logger: %w", err)
	}
	defer log.Close()

	slog.SetDefault(log.Slog())

	log.Info("Starting "+version.UserAgent(), slog.String("build", version.GetFullVersion()))
	log.Debug("Configuration", slog.String("path", resolveConfigPath()), slog.String("database", cfg.Database))

	api, err := newNative(log)
	if err != nil {
		if errors.Is(err, native.ErrUnsupported) {
			return fmt.Errorf("evelens needs the Windows desktop compositor: %w", err)
		}

		return err
	}

	if !api.IsElevated() {
		log.Debug("Not elevated; clients started as administrator cannot be mirrored")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := service.New(service.Options{
		Logger:     log,
		Native:     api,
		Store:      st,
		Config:     cfg,
		ConfigPath: resolveConfigPath(),
	})

	if err := svc.Run(ctx); err != nil {
		log.Error("Service stopped with error", slog.Any("error", err))
		return err
	}

	log.Info("Stopped")
	return nil
}
