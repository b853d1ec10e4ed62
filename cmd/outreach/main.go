package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unclebandit/outreach-backend/internal/app"
	"github.com/unclebandit/outreach-backend/internal/config"
)

var (
	verbose bool
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Operate outreach campaigns from the command line",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run [campaign-id]",
	Short: "Run outreach for a campaign now, in this process",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaign,
}

var quotaCmd = &cobra.Command{
	Use:   "quota [campaign-id]",
	Short: "Show which account the next run would use and how much it may send",
	Args:  cobra.ExactArgs(1),
	RunE:  showQuota,
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List sending accounts with today's usage",
	RunE:  listAccounts,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(runCmd, quotaCmd, accountsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) (any, error)) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, config.Load(), logger)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := fn(ctx, a)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func campaignID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid campaign id %q", arg)
	}
	return id, nil
}

func runCampaign(cmd *cobra.Command, args []string) error {
	id, err := campaignID(args[0])
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
		return a.Campaigns.RunCampaign(ctx, id)
	})
}

func showQuota(cmd *cobra.Command, args []string) error {
	id, err := campaignID(args[0])
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
		return a.Campaigns.QuotaReport(ctx, id)
	})
}

func listAccounts(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
		return a.Accounts.List(ctx, 0, 500)
	})
}
