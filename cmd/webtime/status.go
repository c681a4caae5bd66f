package main

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/webtime/internal/api"
	"github.com/spf13/cobra"
)

var statusServerURL string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the live tracking session of a running server",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusServerURL, "server", "http://127.0.0.1:8765", "Base URL of a running webtime server")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := api.NewClient(statusServerURL).Status(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printStat(out, "State", string(status.State))
	if status.Domain != "" {
		printStat(out, "Domain", status.Domain)
	}
	if status.StartedAt != nil {
		printStat(out, "Since", status.StartedAt.Local().Format(time.Kitchen))
	}
	printStat(out, "Window focused", fmt.Sprintf("%t", status.WindowActive))
	printStat(out, "User idle", fmt.Sprintf("%t", status.UserIdle))
	return nil
}
