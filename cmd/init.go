package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/streed/memo/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize memo configuration",
	Long: heredoc.Doc(`
		Initialize memo configuration interactively or with flags.
		This command writes the configuration file and creates the data directory.

		Examples:
		  memo init -i                               # Answer a few questions
		  memo init --data-dir ~/notes --port 9000   # Non-interactive
	`),
	Args: cobra.NoArgs,
	RunE: runInit,
}

var (
	initDataDir     string
	initWebDir      string
	initHost        string
	initPort        int
	initInteractive bool
	initForce       bool
)

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initDataDir, "data-dir", "", "Data directory for storing the notes database")
	initCmd.Flags().StringVar(&initWebDir, "web-dir", "", "Directory holding index.html and static/ for the web UI")
	initCmd.Flags().StringVar(&initHost, "host", "", "Host for 'memo serve' to bind to")
	initCmd.Flags().IntVar(&initPort, "port", 0, "Port for 'memo serve' to bind to")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Run interactive setup")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration without asking")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath()
	if path == "" {
		return fmt.Errorf("failed to get config path")
	}

	out := cmd.OutOrStdout()
	reader := bufio.NewReader(cmd.InOrStdin())

	if _, err := os.Stat(path); err == nil && !initForce {
		fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
		if !confirm(reader, out, "Do you want to overwrite it? (y/N): ") {
			fmt.Fprintln(out, "Configuration initialization cancelled.")
			return nil
		}
	}

	cfg := config.Default()
	if initInteractive {
		fmt.Fprintln(out, "=== memo Configuration Setup ===")
		fmt.Fprintln(out)
		initDataDir = prompt(reader, out, "Data directory", cfg.DataDirectory, initDataDir)
		initWebDir = prompt(reader, out, "Web UI directory (empty to auto-detect)", "", initWebDir)
		initHost = prompt(reader, out, "Server host", cfg.Host, initHost)
		portStr := prompt(reader, out, "Server port", strconv.Itoa(cfg.Port), "")
		if portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return fmt.Errorf("invalid port %q: %w", portStr, err)
			}
			initPort = port
		}
	}

	if initDataDir != "" {
		cfg.DataDirectory = expandPath(initDataDir)
		cfg.DatabasePath = filepath.Join(cfg.DataDirectory, "memo.db")
	}
	if initWebDir != "" {
		cfg.WebDirectory = expandPath(initWebDir)
	}
	if initHost != "" {
		cfg.Host = initHost
	}
	if initPort != 0 {
		cfg.Port = initPort
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	fmt.Fprintln(out, "\n=== Configuration Summary ===")
	fmt.Fprintf(out, "Config file:        %s\n", path)
	fmt.Fprintf(out, "Data directory:     %s\n", cfg.DataDirectory)
	fmt.Fprintf(out, "Database path:      %s\n", cfg.GetDatabasePath())
	if cfg.WebDirectory != "" {
		fmt.Fprintf(out, "Web directory:      %s\n", cfg.WebDirectory)
	}
	fmt.Fprintf(out, "Server address:     %s\n", cfg.Addr())

	fmt.Fprintln(out, "\nConfiguration initialized successfully!")
	fmt.Fprintln(out, "You can now use 'memo' commands to manage your notes.")
	return nil
}

// prompt asks for a value unless preset is already non-empty.
func prompt(reader *bufio.Reader, out io.Writer, label, def, preset string) string {
	if preset != "" {
		return preset
	}
	if def != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}
	input, _ := reader.ReadString('\n')
	if input = strings.TrimSpace(input); input != "" {
		return input
	}
	return def
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[2:])
		}
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}
