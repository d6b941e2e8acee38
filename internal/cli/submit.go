package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// NewSubmitCmd создаёт команду отправки задания.
func NewSubmitCmd(brokerFn func() Broker, outputFn func() *Output) *cobra.Command {
	var unique string
	var wait bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "submit <function> [data|-]",
		Short: "Submit a job to workers of a function",
		Long: `Submit publishes a job for the given function.

Data is taken from the second argument; "-" reads it from stdin.
With --wait the command prints progress events and exits when the
job completes or fails.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			broker := brokerFn()
			defer broker.Close()
			out := outputFn()

			data, err := readData(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			function := args[0]

			if !wait {
				handle, err := broker.Submit(ctx, function, unique, data)
				if err != nil {
					return err
				}
				out.Success(fmt.Sprintf("Job submitted: %s", handle))
				out.Print(
					[]string{"HANDLE", "FUNCTION", "UNIQUE"},
					[][]string{{handle, function, unique}},
					map[string]string{"handle": handle, "function": function, "unique": unique},
				)
				return nil
			}

			handle, err := broker.SubmitAndWait(ctx, function, unique, data, out.Event)
			if err != nil {
				return err
			}
			out.Success(fmt.Sprintf("Job completed: %s", handle))
			return nil
		},
	}

	cmd.Flags().StringVar(&unique, "unique", "", "Unique job id set by the client")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the job result")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "Timeout for submit and wait")

	return cmd
}

// readData возвращает данные задания из аргумента или stdin.
func readData(args []string, stdin io.Reader) ([]byte, error) {
	if len(args) < 2 {
		return nil, nil
	}
	if args[1] != "-" {
		return []byte(args[1]), nil
	}

	if stdin == nil {
		stdin = os.Stdin
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return data, nil
}
