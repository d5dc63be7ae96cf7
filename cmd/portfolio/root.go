package main

import (
	"github.com/spf13/cobra"

	"token_portfolio/internal/infrastructure/configloader"
	"token_portfolio/internal/pkg/logger"
)

type rootOptions struct {
	configPath string
	logLevel   string
	app        *application
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "portfolio",
		Short:         "Track a crypto token watchlist, holdings and portfolio value",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configloader.Load(configloader.ResolvePath(opts.configPath))
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.Logging.Level = opts.logLevel
			}

			zapLogger, err := logger.NewZap(cfg.Logging.Level, cfg.Logging.Development)
			if err != nil {
				return err
			}
			logger.Init(zapLogger, cfg.Logging.Level)

			app, err := newApplication(cmd.Context(), cfg, zapLogger)
			if err != nil {
				return err
			}
			opts.app = app
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.app != nil {
				opts.app.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $CONFIG_PATH or "+configloader.DefaultPath+")")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(opts),
		newShowCmd(opts),
		newRefreshCmd(opts),
		newAddCmd(opts),
		newRemoveCmd(opts),
		newHoldingsCmd(opts),
		newSearchCmd(opts),
		newTrendingCmd(opts),
		newQuoteCmd(opts),
		newHistoryCmd(opts),
		newStatusCmd(opts),
		newWalletCmd(opts),
		newResetCmd(opts),
	)
	return cmd
}
