package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/flint-note/flint/internal/vault"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Spaced-repetition review session commands",
}

var reviewNextCmd = &cobra.Command{
	Use:   "next [vault-path]",
	Short: "List the notes due in the current review session",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReviewNext,
}

var reviewRateCmd = &cobra.Command{
	Use:   "rate [vault-path] <note-id> <rating>",
	Short: "Record a review rating (1-4) for a note",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runReviewRate,
}

func init() {
	reviewCmd.AddCommand(reviewNextCmd, reviewRateCmd)
	rootCmd.AddCommand(reviewCmd)
}

func runReviewNext(cmd *cobra.Command, args []string) error {
	root := vaultRootArg(args)
	ctx := context.Background()

	v, err := vault.Open(ctx, root)
	if err != nil {
		return err
	}
	defer v.Close()

	due, err := v.Reviews().Due(ctx)
	if err != nil {
		return err
	}
	for _, id := range due {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}

func runReviewRate(cmd *cobra.Command, args []string) error {
	root := "."
	noteID, ratingArg := args[0], args[1]
	if len(args) == 3 {
		root, noteID, ratingArg = args[0], args[1], args[2]
	}
	rating, err := strconv.Atoi(ratingArg)
	if err != nil {
		return fmt.Errorf("rating must be an integer 1-4: %w", err)
	}

	ctx := context.Background()
	v, err := vault.Open(ctx, root)
	if err != nil {
		return err
	}
	defer v.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	return v.Reviews().Rate(ctx, noteID, rating, "", "", "", now)
}
