package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"token_portfolio/internal/domain/entity"
	"token_portfolio/internal/infrastructure/tokenloader"
	"token_portfolio/internal/pkg/logger"
	"token_portfolio/internal/pkg/render"
	"token_portfolio/internal/pkg/utils"
)

func newShowCmd(opts *rootOptions) *cobra.Command {
	var page, perPage int
	var allocation bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the portfolio total and watchlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := opts.app
			render.Portfolio(cmd.OutOrStdout(), app.portfolio.Snapshot(), app.portfolio.Page(page, perPage))
			if allocation {
				fmt.Fprintln(cmd.OutOrStdout())
				render.Allocation(cmd.OutOrStdout(), app.portfolio.Allocation())
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "watchlist page")
	cmd.Flags().IntVar(&perPage, "per-page", 6, "tokens per page")
	cmd.Flags().BoolVar(&allocation, "allocation", false, "also print the allocation by token")
	return cmd
}

func newRefreshCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch current prices for the watchlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := opts.app
			err := app.refresh.Refresh(cmd.Context())
			render.Portfolio(cmd.OutOrStdout(), app.portfolio.Snapshot(), app.portfolio.Page(1, 0))
			return err
		},
	}
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "add [id]...",
		Short: "Add tokens to the watchlist by CoinGecko id",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && file == "" {
				return fmt.Errorf("pass at least one token id or --file")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := args
			if file != "" {
				fromFile, err := tokenloader.NewFileLoader(logger.Named("tokenloader")).LoadIDs(file)
				if err != nil {
					return err
				}
				ids = append(ids, fromFile...)
			}
			added, err := opts.app.search.AddByIDs(cmd.Context(), ids)
			if err != nil {
				return err
			}
			if len(added) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No new tokens were added.")
				return nil
			}
			render.Tokens(cmd.OutOrStdout(), "Added to watchlist", added)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "import ids from a .txt (one per line) or .json file")
	return cmd
}

func newRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a token from the watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.app.portfolio.RemoveToken(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s. Watchlist now has %d tokens.\n", args[0], opts.app.portfolio.Len())
			return nil
		},
	}
}

func newHoldingsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "holdings <id> <amount>",
		Short: "Set the holdings of a watchlist token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := opts.app
			id := args[0]
			holdings, err := utils.ParseHoldings(args[1])
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%v, using 0\n", err)
			}
			found := false
			for _, tracked := range app.portfolio.WatchlistIDs() {
				if tracked == id {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("%s is not in the watchlist", id)
			}
			app.portfolio.UpdateHoldings(id, holdings)
			fmt.Fprintf(cmd.OutOrStdout(), "Holdings of %s set to %s. Portfolio total: %s\n",
				id, render.Holdings(holdings), render.USD(app.portfolio.Snapshot().PortfolioTotal))
			return nil
		},
	}
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var interactive bool
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search tokens by name or symbol",
		Args: func(cmd *cobra.Command, args []string) error {
			if !interactive && len(args) == 0 {
				return fmt.Errorf("pass a query or use --interactive")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if interactive {
				return interactiveSearch(cmd, opts.app)
			}
			query := strings.Join(args, " ")
			tokens, err := opts.app.search.Search(cmd.Context(), query)
			if err != nil {
				return err
			}
			render.Tokens(cmd.OutOrStdout(), "Search results for \""+query+"\"", tokens)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "read queries from stdin, searching once typing pauses")
	return cmd
}

// interactiveSearch feeds each stdin line to the debounced search. Only the
// last query of a burst hits the API.
func interactiveSearch(cmd *cobra.Command, app *application) error {
	out := cmd.OutOrStdout()
	var mu sync.Mutex
	done := make(chan struct{}, 1)
	onResult := func(tokens []entity.Token, err error) {
		mu.Lock()
		if err != nil {
			fmt.Fprintln(out, render.ErrorStyle.Render(err.Error()))
		} else if len(tokens) > 0 {
			render.Tokens(out, "Search results", tokens)
		}
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	queries := 0
	for scanner.Scan() {
		select {
		case <-done:
		default:
		}
		app.search.SearchDebounced(scanner.Text(), onResult)
		queries++
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if queries == 0 {
		return nil
	}

	wait := app.cfg.SearchDebounce() + 2*app.cfg.RequestTimeout()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-done:
	case <-time.After(wait):
		return fmt.Errorf("search did not complete within %s", wait)
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func newTrendingCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "trending",
		Short: "List trending tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tokens, err := opts.app.search.Trending(cmd.Context())
			if err != nil {
				return err
			}
			render.Tokens(cmd.OutOrStdout(), "Trending", tokens)
			return nil
		},
	}
}

func newQuoteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "quote <id>...",
		Short: "Print the current price and 24h change of tokens",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prices, err := opts.app.market.GetCurrentPrices(cmd.Context(), args)
			if err != nil {
				return err
			}
			render.Quotes(cmd.OutOrStdout(), args, prices)
			return nil
		},
	}
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "Print the price history of a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := opts.app.search.History(cmd.Context(), args[0], days)
			if err != nil {
				return err
			}
			render.History(cmd.OutOrStdout(), args[0], points)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "number of days (default from config)")
	return cmd
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show wallet and persistence status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, message := opts.app.refresh.State()
			render.Status(cmd.OutOrStdout(), opts.app.wallet.Status(), state, message)
			return nil
		},
	}
}

func newWalletCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Connect or disconnect a wallet address",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "connect <address>",
			Short: "Remember an EVM wallet address",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				status, err := opts.app.wallet.Connect(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), status.Message)
				return nil
			},
		},
		&cobra.Command{
			Use:   "disconnect",
			Short: "Forget the wallet address",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), opts.app.wallet.Disconnect().Message)
				return nil
			},
		},
	)
	return cmd
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear stored data and restore the default watchlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("reset deletes the stored watchlist and holdings; re-run with --yes to confirm")
			}
			opts.app.portfolio.Reset()
			fmt.Fprintf(cmd.OutOrStdout(), "Portfolio reset. Watchlist has %d tokens.\n", opts.app.portfolio.Len())
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
