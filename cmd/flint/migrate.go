package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/flint-note/flint/internal/logging"
	"github.com/flint-note/flint/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [vault-path]",
	Short: "Run any pending schema migrations against the vault's index",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	root := vaultRootArg(args)
	ctx := context.Background()

	dbPath := filepath.Join(root, ".flint-note", "search.db")
	st, err := store.Open(ctx, dbPath, logging.NewStderr(false))
	if err != nil {
		return err
	}
	defer st.Close()

	applied, err := st.Migrate(ctx, root)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "already up to date")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied: %v\n", applied)
	return nil
}
