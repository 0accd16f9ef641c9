package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/DeliverySync/internal/config"
	"github.com/JonMunkholm/DeliverySync/internal/core"
	"github.com/JonMunkholm/DeliverySync/internal/logging"
	"github.com/JonMunkholm/DeliverySync/internal/metrics"
	"github.com/JonMunkholm/DeliverySync/internal/notify"
	"github.com/JonMunkholm/DeliverySync/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "deliverysync",
	Short:         "Reconcile ERP delivery exports against the order store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newServeCmd(), newReconcileCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads .env (overwriting existing env vars), loads and validates
// the configuration and configures logging.
func loadConfig() (*config.Config, error) {
	envLoaded := godotenv.Overload() == nil

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "dotenv", envLoaded, "config", cfg.String())
	return cfg, nil
}

// app bundles what both commands need.
type app struct {
	cfg      *config.Config
	store    store.Closer
	service  *core.Service
	recorder *metrics.Recorder
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}
	slog.Info("store ready", "driver", cfg.Database.Driver)

	a := &app{cfg: cfg, store: st}

	ch, err := notify.New(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("notification channel: %w", err)
	}

	var opts []core.Option
	if cfg.Metrics.Enabled {
		a.recorder, err = metrics.NewRecorder(nil)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("metrics: %w", err)
		}
		opts = append(opts, core.WithRecorder(a.recorder))
	}

	a.service, err = core.NewService(st, ch, cfg, opts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create service: %w", err)
	}
	return a, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Error("store close", "error", err)
	}
}
