package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"picukidl/pkg/config"
	"picukidl/pkg/ui"
)

const exampleConfig = `# picuki-dl configuration file
#
# Every option can also be set with a PICUKI_ environment variable,
# for example PICUKI_OUTPUT_DIR or PICUKI_CONCURRENT_DOWNLOADS.
# Command line flags take precedence over both.

# Viewer site
source:
  base_url: "https://www.picuki.com"
  # Leave empty to use the built in browser user agent
  user_agent: ""
  page_timeout: 30s

# Request pacing
rate_limit:
  # Page requests per minute (profile, feed and post pages)
  requests_per_minute: 60
  # Pause between consecutive posts
  cooldown: 1s

output:
  # Files go to <base_directory>/<username>/<images|videos|thumbnails>/
  base_directory: "."

download:
  # Range: 1-10
  concurrent_downloads: 4
  # Timeout for one download attempt
  timeout: 60s
  # Retries for timeouts, resets, 429 and 5xx responses
  retry_attempts: 3
  retry_base_delay: 500ms
  user_agent: ""

logging:
  # debug, info, warn, error
  level: "info"
  # Optional JSON log file
  file: ""
`

func newConfigCmd(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
		Long: `Manage picuki-dl configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables and .env files
  - Configuration file
  - Default values (lowest priority)`,
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create an example configuration file",
		Long: `Create an example configuration file with all available options.

The file is written to ~/.config/picuki-dl/config.yaml unless a different
path is given with --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(opts)
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show the configuration that a download would use, merged from the
configuration file, environment variables and defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(opts)
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Value types and ranges
  - Log level names`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigValidate(opts)
		},
	}

	configCmd.AddCommand(initCmd, showCmd, validateCmd)
	return configCmd
}

func runConfigInit(opts *rootOptions) error {
	configPath := opts.configFile
	if configPath == "" {
		configPath = config.DefaultPath()
	}

	if _, err := os.Stat(configPath); err == nil {
		return usageError(fmt.Errorf("configuration file already exists: %s", configPath))
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess(opts.stdout, "Configuration file created: "+configPath)
	fmt.Fprintln(opts.stdout, "\nNext steps:")
	fmt.Fprintln(opts.stdout, "1. Edit the configuration file to suit your setup")
	fmt.Fprintln(opts.stdout, "2. Run 'picuki-dl config validate' to check it")
	fmt.Fprintln(opts.stdout, "3. Start downloading with 'picuki-dl -u <username> -a'")
	return nil
}

func runConfigShow(opts *rootOptions) error {
	cfg, err := config.Load(opts.configFile, nil)
	if err != nil {
		return usageError(err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	ui.PrintInfo(opts.stdout, "Current configuration", "")
	fmt.Fprintln(opts.stdout, string(data))
	return nil
}

func runConfigValidate(opts *rootOptions) error {
	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(opts.configFile); err != nil {
		return usageError(err)
	}
	if err := cfg.Validate(); err != nil {
		return usageError(fmt.Errorf("configuration is invalid: %w", err))
	}

	source := opts.configFile
	if source == "" {
		source = "defaults"
	}
	ui.PrintSuccess(opts.stdout, "Configuration is valid: "+source)
	return nil
}
