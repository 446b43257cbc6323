// Package cli implements the axonflow command line interface.
package cli

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/getaxonflow/axonflow-go/internal/config"
	"github.com/getaxonflow/axonflow-go/internal/logger"
	"github.com/getaxonflow/axonflow-go/internal/tracing"
	"github.com/getaxonflow/axonflow-go/pkg/axonflow"
)

const version = "0.1.0"

var (
	cfgFile  string
	logLevel string
	agentURL string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "axonflow",
	Short: "AxonFlow - policy governance for LLM applications",
	Long: `AxonFlow is the command line client for the AxonFlow governance
platform. It executes governed queries, checks agent health, and runs
multi-agent plans through your AxonFlow agent.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	if err := tracing.Init("axonflow-cli"); err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.Shutdown(ctx)
	}()

	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.axonflow/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&agentURL, "agent-url", "", "agent URL (overrides config)")

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// newClient builds an SDK client from config file, environment, and
// flags.
func newClient() (*axonflow.Client, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if agentURL != "" {
		cfg.AgentURL = agentURL
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{
		Level:     logLevel,
		Pretty:    true,
		Redaction: true,
		Writer:    os.Stderr,
	})
	cfg.Logger = &log
	return axonflow.New(cfg)
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}
