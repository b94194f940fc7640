// cmd/serve.go
package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lodestar-research/lodestar/api/schemas"
	"github.com/lodestar-research/lodestar/internal/browser"
	"github.com/lodestar-research/lodestar/internal/crawler"
	"github.com/lodestar-research/lodestar/internal/knowledge"
	"github.com/lodestar-research/lodestar/internal/llmclient"
	"github.com/lodestar-research/lodestar/internal/observability"
	"github.com/lodestar-research/lodestar/internal/server"
)

func newServeCommand() *cobra.Command {
	var port int

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the crawl job API server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer observability.Sync()
			logger := observability.GetLogger()
			ctx := cmd.Context()

			if port > 0 {
				cfg.Server.Port = port
			}

			llm, err := llmclient.NewClient(cfg.LLM, logger)
			if err != nil {
				return err
			}
			store, err := knowledge.NewStore(ctx, cfg.Store, logger)
			if err != nil {
				return err
			}
			manager, err := browser.NewManager(ctx, *cfg, logger)
			if err != nil {
				return err
			}
			defer manager.Close()

			factory := func(ctx context.Context) (schemas.BrowserSession, error) {
				return manager.NewSession(ctx)
			}
			controller := crawler.NewController(*cfg, factory, llm, store, logger)
			srv := server.New(cfg.Server, controller, logger)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.Info("Shutting down job API.")
				if err := srv.Shutdown(context.Background()); err != nil {
					logger.Warn("Shutdown did not complete cleanly.", zap.Error(err))
				}
				return <-errCh
			}
		},
	}

	serveCmd.Flags().IntVar(&port, "port", 0, "override the configured listen port")
	return serveCmd
}
