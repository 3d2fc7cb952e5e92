package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AnTengye/bettertender/backend/config"
	"github.com/AnTengye/bettertender/backend/model"
	"github.com/AnTengye/bettertender/backend/service"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	dbPath     string
	tailLines  int
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "auditctl",
		Short:         "Audit ledger operations",
		Long:          "Commands for verifying and inspecting the hash-chained tender audit ledger.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "Path to the server config file")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides store.path from the config)")

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify hash chain integrity of the ledger",
		Long:  "Recomputes every entry signature from genesis. Exits 0 if valid, 1 if tampered.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, opts)
		},
	}

	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent ledger entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTail(cmd, opts)
		},
	}
	tailCmd.Flags().IntVarP(&opts.tailLines, "lines", "n", 10, "Number of recent entries to show")

	root.AddCommand(verifyCmd, tailCmd)
	return root
}

func openStore(ctx context.Context, opts *options) (*service.Store, error) {
	storeCfg := config.StoreConfig{Path: opts.dbPath}
	if opts.dbPath == "" {
		cfg, err := config.Load(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		storeCfg = cfg.Store
	}
	return service.OpenStore(ctx, &storeCfg)
}

func runVerify(cmd *cobra.Command, opts *options) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := openStore(ctx, opts)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := service.NewAuditService(store, service.NewLedger()).VerifyChain(ctx)
	var violation *service.IntegrityViolationError
	if errors.As(err, &violation) {
		fmt.Fprintf(cmd.ErrOrStderr(), "FAILED at entry %d: %s (%d verified, %d after it unverifiable)\n",
			violation.EntryID, violation.Reason, n, violation.Unverifiable)
		return err
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "OK: %d entries verified\n", n)
	return nil
}

func runTail(cmd *cobra.Command, opts *options) error {
	if opts.tailLines < 1 {
		return fmt.Errorf("--lines must be at least 1, got %d", opts.tailLines)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := openStore(ctx, opts)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := service.NewLedger().List(ctx, store.Queries(), model.AuditFilter{Limit: opts.tailLines})
	if err != nil {
		return err
	}

	// oldest first, like tail
	enc := json.NewEncoder(cmd.OutOrStdout())
	for i := len(entries) - 1; i >= 0; i-- {
		if err := enc.Encode(entries[i]); err != nil {
			return err
		}
	}
	return nil
}
