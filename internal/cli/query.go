package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getaxonflow/axonflow-go/pkg/axonflow"
)

var (
	queryUserToken   string
	queryRequestType string
	queryNoCache     bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Execute a governed query",
	Long: `Execute a query through the AxonFlow governance pipeline: policy
pre-check, agent call with retry, policy post-check, and audit.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryUserToken, "user-token", "", "end-user token forwarded to policy checks")
	queryCmd.Flags().StringVar(&queryRequestType, "type", "chat", "request type")
	queryCmd.Flags().BoolVar(&queryNoCache, "no-cache", false, "bypass the response cache")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	var opts []axonflow.QueryOption
	if queryNoCache {
		opts = append(opts, axonflow.WithoutCache())
	}

	resp, err := client.ExecuteQuery(cmd.Context(), queryUserToken, strings.Join(args, " "), queryRequestType, opts...)
	if err != nil {
		if axonflow.IsPolicyViolation(err) {
			fmt.Fprintf(os.Stderr, "Blocked by policy: %v\n", err)
		}
		return err
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
