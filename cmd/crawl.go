// cmd/crawl.go
package cmd

import (
	"context"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lodestar-research/lodestar/api/schemas"
	"github.com/lodestar-research/lodestar/internal/browser"
	"github.com/lodestar-research/lodestar/internal/crawler"
	"github.com/lodestar-research/lodestar/internal/knowledge"
	"github.com/lodestar-research/lodestar/internal/llmclient"
	"github.com/lodestar-research/lodestar/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newCrawlCommand() *cobra.Command {
	var (
		subject   string
		topic     string
		goal      string
		sources   []string
		debugPort int
	)

	crawlCmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run one research session over a set of source sites.",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer observability.Sync()
			logger := observability.GetLogger()
			ctx := cmd.Context()

			if debugPort > 0 {
				cfg.Browser.DebuggingPort = debugPort
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

			result, err := controller.Run(ctx, crawler.Request{
				Subject: subject,
				Topic:   topic,
				Goal:    goal,
				Sources: sources,
			})
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal session result: %w", err)
			}
			fmt.Fprintln(os.Stdout, string(out))

			if !result.Success {
				logger.Warn("Session finished without completing any source.",
					zap.String("session_id", result.SessionID))
			}
			return nil
		},
	}

	crawlCmd.Flags().StringVar(&subject, "subject", "", "research subject, e.g. a company or ticker (required)")
	crawlCmd.Flags().StringVar(&topic, "topic", "recent news", "angle to focus the research on")
	crawlCmd.Flags().StringVar(&goal, "goal", "collect and assess recent coverage", "what the session should accomplish")
	crawlCmd.Flags().StringSliceVar(&sources, "sources", nil, "comma-separated source URLs (required)")
	crawlCmd.Flags().IntVar(&debugPort, "debug-port", 0, "override the browser remote debugging port")
	_ = crawlCmd.MarkFlagRequired("subject")
	_ = crawlCmd.MarkFlagRequired("sources")
	return crawlCmd
}
