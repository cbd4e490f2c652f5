package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/streed/memo/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage memo configuration",
	Long:  `View and manage memo configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: heredoc.Doc(`
		Display the effective memo configuration: defaults, overlaid by the
		config file, overlaid by MEMO_* environment variables.
	`),
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: heredoc.Doc(`
		Set a specific configuration value and save the config file.

		Available keys:
		  - data_directory: Data directory for storing the notes database
		  - database_path: Explicit database file (defaults to <data_directory>/memo.db)
		  - web_directory: Directory holding index.html and static/ for the web UI
		  - host, port: Listen address for 'memo serve'
		  - page_size: Default number of notes per page
		  - query_cache_size: Number of compiled queries to cache (0 disables)
		  - query_cache_ttl_seconds: How long a compiled query stays cached
		  - enable_metrics: Serve Prometheus metrics on /metrics (true/false)
		  - debug: Enable/disable debug logging (true/false)
	`),
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configOutput string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetCmd)
	configShowCmd.Flags().StringVarP(&configOutput, "output", "o", outputYAML, "Output format: yaml or json")
}

// loadConfigForEdit reads the config without opening the database.
func loadConfigForEdit() (*config.Config, error) {
	cfg, err := config.Load(viper.New(), cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if configOutput == outputText {
		configOutput = outputYAML
	}
	if err := validateOutput(configOutput); err != nil {
		return err
	}

	cfg, err := loadConfigForEdit()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# Config file: %s\n", configPath())
	_, err = writeStructured(out, configOutput, cfg)
	return err
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path := configPath()
	if path == "" {
		return fmt.Errorf("failed to get config path")
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	cfg, err := loadConfigForEdit()
	if err != nil {
		return err
	}

	oldDataDir := cfg.DataDirectory
	switch key {
	case "data_directory", "web_directory", "database_path":
		value = expandPath(value)
	}

	if err := cfg.Set(key, value); err != nil {
		return err
	}

	// A database kept under the old data directory follows the move.
	if key == "data_directory" && cfg.DatabasePath == filepath.Join(oldDataDir, "memo.db") {
		cfg.DatabasePath = filepath.Join(cfg.DataDirectory, "memo.db")
	}

	if err := config.Save(cfg, configPath()); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
	return nil
}
