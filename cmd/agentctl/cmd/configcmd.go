package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective agentctl run configuration",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective run configuration as YAML",
		RunE: func(cmdr *cobra.Command, args []string) error {
			cfg, err := loadRunConfig()
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("agentctl: marshal config: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	}

	configCmd.AddCommand(showCmd)
	rootCmd.AddCommand(configCmd)
}
