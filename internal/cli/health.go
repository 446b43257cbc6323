package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check agent health",
	Long:  `Check whether the configured AxonFlow agent is reachable and healthy.`,
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if client.HealthCheck(cmd.Context()) {
		fmt.Println("Status: healthy")
		return nil
	}
	fmt.Println("Status: unreachable")
	return fmt.Errorf("agent at %s is not healthy", client.Config().AgentURL)
}
