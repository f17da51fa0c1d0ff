package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flint-note/flint/internal/vault"
)

var syncCmd = &cobra.Command{
	Use:   "sync [vault-path]",
	Short: "Reconcile the index against the on-disk note tree",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	root := vaultRootArg(args)
	ctx := context.Background()

	v, err := vault.Open(ctx, root)
	if err != nil {
		return err
	}
	defer v.Close()

	result, err := v.Sync(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added %d, updated %d, deleted %d\n",
		len(result.Added), len(result.Updated), len(result.Deleted))
	return nil
}

func vaultRootArg(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return "."
}
