package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getaxonflow/axonflow-go/internal/logger"
	"github.com/getaxonflow/axonflow-go/pkg/planner"
)

var planDomain string

var planCmd = &cobra.Command{
	Use:   "plan <query>",
	Short: "Run a multi-agent plan",
	Long: `Generate a multi-agent plan for the query, execute it on the agent,
and poll until it completes or fails. Plan runs use the MAP timeout
budget, which is larger than the single-query budget.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planDomain, "domain", "", "plan domain hint")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	log := logger.New(logger.Config{Level: logLevel, Pretty: true, Redaction: true})
	orch := planner.NewOrchestrator(client, log)

	exec, err := orch.Run(cmd.Context(), strings.Join(args, " "), planDomain)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(exec, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if exec.Status != planner.ExecCompleted {
		return fmt.Errorf("plan %s finished %s: %s", exec.PlanID, exec.Status, exec.Error)
	}
	return nil
}
