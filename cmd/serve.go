// -- cmd/serve.go --
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/quotehound/internal/browser"
	"github.com/xkilldash9x/quotehound/internal/config"
	"github.com/xkilldash9x/quotehound/internal/observability"
	"github.com/xkilldash9x/quotehound/internal/server"
)

// newServeCommand builds the serve subcommand, which runs the HTTP control
// surface until the process receives an interrupt.
func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP control surface for wizard runs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg config.Config
			if err := viper.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("failed to unmarshal config: %w", err)
			}
			return runServe(cmd.Context(), &cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := observability.GetLogger()

	manager := browser.NewManager(cfg, logger)
	srv := server.New(cfg, manager, logger)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.ListenAndServe()
	})

	g.Go(func() error {
		<-gCtx.Done()

		timeout := cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		logger.Info("Shutdown signal received, draining.", zap.Duration("timeout", timeout))
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server terminated: %w", err)
	}
	logger.Info("Server stopped cleanly.")
	return nil
}
