package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaiso/Foreman/internal/mq"
)

// NewTopologyCmd создаёт команду объявления топологии брокера.
func NewTopologyCmd(brokerFn func() Broker, outputFn func() *Output) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "topology",
		Short: "Declare exchanges and shared queues",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			if !dryRun {
				broker := brokerFn()
				defer broker.Close()

				ctx := cmd.Context()
				if ctx == nil {
					ctx = context.Background()
				}
				if err := broker.DeclareTopology(ctx); err != nil {
					return fmt.Errorf("declare topology: %w", err)
				}
				out.Success("Topology declared")
			}

			out.Print(
				[]string{"EXCHANGE", "QUEUE", "ROUTING"},
				[][]string{
					{string(mq.ExchangeJobs), string(mq.FunctionQueue("<function>")), "<function>"},
					{string(mq.ExchangeResults), string(mq.QueueResultsAll), string(mq.RoutingKeyAllResults)},
					{string(mq.ExchangeDLQ), string(mq.QueueDLQJobs), string(mq.RoutingKeyDLQJobs)},
				},
				map[string]string{"topology": mq.TopologyInfo()},
			)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only print the topology")

	return cmd
}
