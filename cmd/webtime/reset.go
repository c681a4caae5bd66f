package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all tracked data",
	Long: `Replace all tracked data with an empty record starting today. This cannot
be undone. Use --server while the daemon is running so the reset goes through
its tracker.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")
	addServerFlag(resetCmd)
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		red := color.New(color.FgRed, color.Bold)
		_, _ = red.Fprint(cmd.OutOrStdout(), "Are you sure you want to reset all tracking data? This cannot be undone. [y/N] ")
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
			return nil
		}
	}

	source, err := openDataSource()
	if err != nil {
		return err
	}
	defer source.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := source.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset tracking data: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✅ All tracking data has been reset")
	return nil
}
