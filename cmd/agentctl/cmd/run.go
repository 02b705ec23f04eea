package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corewave/agentcore/value"
)

func init() {
	runCmd := &cobra.Command{
		Use:   "run [op] [input-json]",
		Short: "Run the agent once with the given op and JSON input",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmdr *cobra.Command, args []string) error {
			cfg, err := loadRunConfig()
			if err != nil {
				return err
			}
			a, err := buildAgent(cfg)
			if err != nil {
				return err
			}

			var input value.Value
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &input); err != nil {
					return fmt.Errorf("agentctl: parse input json: %w", err)
				}
			}

			reply := a.Run(context.Background(), value.Ask{Op: args[0], Input: input, Context: value.Map()})
			out, err := json.MarshalIndent(reply, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	rootCmd.AddCommand(runCmd)
}
