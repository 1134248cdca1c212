package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newExporterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exporter",
		Short: "Exporter lifecycle commands",
	}
	cmd.AddCommand(exporterStartCmd())
	cmd.AddCommand(exporterStopCmd())
	return cmd
}

func exporterStartCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "start <user-id> <database-url>",
		Short: "Provision a metrics exporter for a user's database",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			target, err := apiClient.Exporters.Start(context.Background(), args[0], args[1], port)
			if err != nil {
				fatal("exporter start", err)
			}
			output(target, fmt.Sprintf("%d", target.Port))
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Preferred host port (0 lets the server pick)")

	return cmd
}

func exporterStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <user-id>",
		Short: "Tear down a user's exporter",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := apiClient.Exporters.Stop(context.Background(), args[0]); err != nil {
				fatal("exporter stop", err)
			}
			fmt.Println("stopped")
		},
	}
}
