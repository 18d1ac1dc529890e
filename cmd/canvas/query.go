package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-canvas/pkg/graphql"
)

func queryCmd() *cobra.Command {
	var (
		file     string
		varsJSON string
		maxDepth int
	)
	cmd := &cobra.Command{
		Use:   "query [graphql]",
		Short: "Run a GraphQL query against a seeded engine and print JSON",
		Example: `  canvas query --seed examples/substation.yaml '{ edges { id style } }'
  canvas query --seed examples/substation.yaml 'mutation { recenter }'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			switch {
			case len(args) == 1:
				query = args[0]
			case file != "":
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read query: %w", err)
				}
				query = string(data)
			default:
				return fmt.Errorf("a query argument or --file is required")
			}

			var vars map[string]any
			if varsJSON != "" {
				if err := json.Unmarshal([]byte(varsJSON), &vars); err != nil {
					return fmt.Errorf("invalid --vars: %w", err)
				}
			}

			s, err := openSession(cmd.Context(), sessionOptions{inline: true, quiet: true})
			if err != nil {
				return err
			}
			defer s.Close()

			x, err := graphql.NewExecutor(s.engine, maxDepth)
			if err != nil {
				return err
			}
			res := x.Execute(cmd.Context(), query, vars)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if res.HasErrors() {
				return fmt.Errorf("query returned %d error(s)", len(res.Errors))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the query from a file")
	cmd.Flags().StringVar(&varsJSON, "vars", "", "query variables as a JSON object")
	cmd.Flags().IntVar(&maxDepth, "max-depth", graphql.DefaultMaxDepth, "maximum selection depth")
	return cmd
}
