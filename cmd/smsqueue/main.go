// Command smsqueue runs the SMS queue HTTP service and its reference
// polling agent.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "smsqueue",
		Short: "Durable SMS outbox with a polling sender agent",
		Long: `smsqueue accepts outbound SMS requests over HTTP and stores them as
PENDING records. External sender agents poll the pending list, deliver
each message, and report the outcome back with mark-sent or mark-failed.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd(), newMigrateCmd(), newAgentCmd())
	return root
}
