package cmd

import (
	"fmt"
	"os"

	"github.com/MeKo-Tech/footprint/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Write the default configuration",
	Long: `Write the default configuration to a YAML file (footprint.yaml when no
file is given). Existing files are not overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := config.ConfigFileName + ".yaml"
		if len(args) == 1 {
			name = args[0]
		}
		if fileExists(name) {
			return fmt.Errorf("config file already exists: %s", name)
		}
		if err := config.GenerateDefaultConfigFile(name); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", name)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Print the resolved configuration",
	Long:        `Print the configuration after merging defaults, the config file and FOOTPRINT_* environment variables.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipValidation: "true"},
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := GetConfig()
		if used := configLoader.GetConfigFileUsed(); used != "" {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# config file: %s\n", used)
		}
		if err := cfg.Validate(); err != nil {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# warning: %v\n", err)
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode configuration: %w", err)
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
