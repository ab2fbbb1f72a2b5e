// Package cli implements the cnd-client commands. The client talks to a
// running cnd-server over its public API and verifies signed certificates
// against the server's published JWK set.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/clearance-networks/cnd-service/internal/logger"
	"github.com/clearance-networks/cnd-service/internal/version"
)

var (
	serverURL   string
	logLevel    string
	httpTimeout time.Duration

	appLogger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:               "cnd-client",
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	Short:             "CND service client CLI",
	Long:              `Client for the debt clearance certificate (CND) service: request issuance, check validation status, download and verify signed certificates`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		appLogger = logger.InitLogger(logger.ParseLogLevel(logLevel), "dev")
	},
}

func Execute() {
	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "Base URL of the cnd-server")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error, none)")
	rootCmd.PersistentFlags().DurationVar(&httpTimeout, "timeout", 15*time.Second, "HTTP request timeout")

	rootCmd.AddCommand(issueCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(verifyCmd)
}
