package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"warehouse/pkg/httpapi"
	"warehouse/pkg/inventory"
	"warehouse/pkg/script"
	"warehouse/pkg/version"
)

// Run parses args and executes the selected command. Command output goes to out.
func Run(ctx context.Context, args []string, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	root := newRootCommand()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	return root.ExecuteContext(ctx)
}

func newRootCommand() *cobra.Command {
	flags := &configFlags{}
	root := &cobra.Command{
		Use:           "warehouse",
		Short:         "Fixed-capacity inventory store with popularity-based eviction",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags)
		},
	}
	flags.register(root.PersistentFlags())

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the warehouse over HTTP (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "replay <script>",
		Short: "Apply an operation script to an empty warehouse and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, flags, args[0])
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "warehouse version %s\n", version.Version())
			return nil
		},
	})
	return root
}

// setup resolves configuration and the logger shared by every command.
func setup(cmd *cobra.Command, flags *configFlags) (Config, *zap.Logger, error) {
	cfg, err := flags.resolve(cmd.Flags())
	if err != nil {
		return Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, logger, nil
}

func warehouseOptions(cfg Config, logger *zap.Logger, metrics *inventory.Metrics) []inventory.Option {
	opts := []inventory.Option{inventory.WithLogger(logger), inventory.WithMetrics(metrics)}
	if cfg.SpillRebalance {
		opts = append(opts, inventory.WithSpillRebalance())
	}
	return opts
}

// applyScriptFile loads and replays the script at path onto w, returning the operation count.
func applyScriptFile(w *inventory.Warehouse, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open script")
	}
	defer f.Close()

	ops, err := script.Parse(f)
	if err != nil {
		return 0, errors.Wrapf(err, "parse script %s", path)
	}
	script.Apply(w, ops)
	return len(ops), nil
}

func runReplay(cmd *cobra.Command, flags *configFlags, path string) error {
	cfg, logger, err := setup(cmd, flags)
	if err != nil {
		return err
	}
	defer logger.Sync()

	w := inventory.New(warehouseOptions(cfg, logger, nil)...)
	n, err := applyScriptFile(w, path)
	if err != nil {
		return err
	}
	stats := w.Stats()
	logger.Info("script replayed",
		zap.String("path", path),
		zap.Int("operations", n),
		zap.Int("products", stats.Products),
		zap.Int64("evictions", stats.Evictions),
		zap.Int64("spills", stats.Spills))
	fmt.Fprintln(cmd.OutOrStdout(), w.String())
	return nil
}

// runServe composes metrics, the warehouse service and the HTTP server, and blocks until ctx ends.
func runServe(cmd *cobra.Command, flags *configFlags) error {
	cfg, logger, err := setup(cmd, flags)
	if err != nil {
		return err
	}
	defer logger.Sync()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := inventory.NewMetrics(registry)
	if err != nil {
		return errors.Wrap(err, "register metrics")
	}

	w := inventory.New(warehouseOptions(cfg, logger, metrics)...)
	if cfg.SeedScript != "" {
		n, err := applyScriptFile(w, cfg.SeedScript)
		if err != nil {
			return errors.Wrap(err, "seed warehouse")
		}
		logger.Info("warehouse seeded", zap.String("path", cfg.SeedScript), zap.Int("operations", n))
	}

	svc := inventory.NewService(w)
	defer svc.Close()

	api := httpapi.New(svc, registry, cfg.policy(), logger)
	addr := cfg.address()
	server := &http.Server{
		Addr:         addr,
		Handler:      api.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx := cmd.Context()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http server shutdown", zap.Error(err))
		}
	}()

	logger.Info("warehouse service is running",
		zap.String("addr", addr),
		zap.String("version", version.Version()),
		zap.String("default_policy", string(cfg.policy())))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "server stopped unexpectedly")
	}
	return nil
}
