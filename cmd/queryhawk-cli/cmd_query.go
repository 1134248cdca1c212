package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <database-url> <query>",
		Short: "Run EXPLAIN ANALYZE on a query and report plan metrics",
		Long: `Run EXPLAIN ANALYZE on a query and report plan metrics.

The query actually executes on the target database. Do not point this at a
query with side effects unless you mean it.`,
		Args: cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			rec, err := apiClient.Queries.Analyze(context.Background(), args[0], args[1])
			if err != nil {
				fatal("analyze", err)
			}
			output(rec, fmt.Sprintf("%.2fms", rec.ExecutionTimeMs))
		},
	}
}
