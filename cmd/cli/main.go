package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
	actor   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "loanledger-cli",
		Short:         "LoanLedger CLI tool",
		Long:          `A command line interface for previewing schedules and interacting with the LoanLedger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the LoanLedger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "", "Actor recorded in the audit trail")

	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(loansCmd())
	rootCmd.AddCommand(repaymentsCmd())
	rootCmd.AddCommand(ledgerCmd())

	return rootCmd
}

func newClient() *apiClient {
	return &apiClient{
		baseURL: baseURL,
		actor:   actor,
		http:    newHTTPClient(timeout),
	}
}
