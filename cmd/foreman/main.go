// Foreman CLI — инструмент командной строки для отправки заданий
// воркерам через RabbitMQ.
//
// Использование:
//
//	foreman [--server URL] [--json] <command> [flags]
//
// Команды:
//
//	submit     Отправить задание
//	topology   Объявить топологию брокера
//	abilities  Список встроенных abilities
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/Foreman/internal/cli"
	"github.com/shaiso/Foreman/internal/mq"
	"github.com/shaiso/Foreman/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var serverURL string
	var jsonOutput bool
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "foreman",
		Short:         "Foreman CLI — job queue client",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer(), "AMQP broker URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log broker activity to stderr")

	loggerFn := func() *slog.Logger {
		if verbose {
			return telemetry.NewLogger(os.Stderr, "debug", "text")
		}
		return telemetry.NewLogger(io.Discard, "error", "text")
	}
	brokerFn := func() cli.Broker { return cli.NewClient(serverURL, loggerFn()) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewSubmitCmd(brokerFn, outputFn),
		cli.NewTopologyCmd(brokerFn, outputFn),
		cli.NewAbilitiesCmd(outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// defaultServer берёт первый брокер из FOREMAN_SERVERS.
func defaultServer() string {
	if v := os.Getenv("FOREMAN_SERVERS"); v != "" {
		return strings.TrimSpace(strings.Split(v, ",")[0])
	}
	return mq.DefaultURL()
}
