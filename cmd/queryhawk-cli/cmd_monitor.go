package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newConnectCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "connect <database-url>",
		Short: "Start monitoring a database",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			resp, err := apiClient.Monitoring.Connect(context.Background(), args[0], userID)
			if err != nil {
				fatal("connect", err)
			}
			output(resp, resp.Database)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Session user ID (defaults to the server's default session)")

	return cmd
}

func newDisconnectCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "disconnect",
		Short: "Stop monitoring a database",
		Run: func(cmd *cobra.Command, args []string) {
			if err := apiClient.Monitoring.Disconnect(context.Background(), userID); err != nil {
				fatal("disconnect", err)
			}
			fmt.Println("disconnected")
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Session user ID")

	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Run: func(cmd *cobra.Command, args []string) {
			h, err := apiClient.Health(context.Background())
			if err != nil {
				fatal("health", err)
			}
			output(h, h.Status)
		},
	}
}
