package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corewave/agentcore/value"
)

func init() {
	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect and call the tools registered in the run config",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the names of registered tools from the run config",
		RunE: func(cmdr *cobra.Command, args []string) error {
			cfg, err := loadRunConfig()
			if err != nil {
				return err
			}
			for _, t := range cfg.Tools {
				fmt.Println(t.Name)
			}
			return nil
		},
	}

	callCmd := &cobra.Command{
		Use:   "call [name] [input-json]",
		Short: "Call a registered tool directly, bypassing the step loop",
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

			reply, ok := a.CallTool(context.Background(), args[0], value.Ask{Op: args[0], Input: input, Context: value.Map()})
			if !ok {
				return fmt.Errorf("agentctl: no such tool %q", args[0])
			}
			out, err := json.MarshalIndent(reply, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	toolsCmd.AddCommand(listCmd, callCmd)
	rootCmd.AddCommand(toolsCmd)
}
