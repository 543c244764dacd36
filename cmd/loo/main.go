package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/loocode/loo/internal/config"
	"github.com/loocode/loo/internal/engine"
	"github.com/loocode/loo/internal/llm/openrouter"
	"github.com/loocode/loo/internal/session"
	"github.com/loocode/loo/internal/tui"
)

// version is the CLI build version.
const version = "0.1.0"

// options holds the CLI flags.
type options struct {
	// Model overrides the configured model for this run.
	Model string
	// Dir selects the workspace directory.
	Dir string
	// Verbose enables token usage diagnostics.
	Verbose bool
	// TUI starts the full-screen interface instead of line mode.
	TUI bool
	// Continue resumes the most recent session for the workspace.
	Continue bool
	// Version prints the CLI version.
	Version bool
}

// main wires Cobra and executes the CLI.
func main() {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "loo",
		Short: "Loo - an interactive coding assistant for the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Version {
				fmt.Println(version)
				return nil
			}
			return runRoot(opts)
		},
	}
	rootCmd.SilenceUsage = true

	applyFlags(rootCmd.Flags(), opts)
	rootCmd.AddCommand(configCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// applyFlags defines the root command flags.
func applyFlags(flags *pflag.FlagSet, opts *options) {
	flags.StringVar(&opts.Model, "model", "", "Model to use for this run")
	flags.StringVar(&opts.Dir, "dir", "", "Workspace directory (defaults to the current directory)")
	flags.BoolVar(&opts.Verbose, "verbose", false, "Show token usage after each response")
	flags.BoolVar(&opts.TUI, "tui", false, "Start the full-screen interface")
	flags.BoolVarP(&opts.Continue, "continue", "c", false, "Resume the most recent session for this workspace")
	flags.BoolVarP(&opts.Version, "version", "v", false, "Print the version and exit")
}

// runRoot resolves configuration and starts the selected interface.
func runRoot(opts *options) error {
	workingDir, err := resolveWorkingDir(opts.Dir)
	if err != nil {
		return err
	}

	configuration, err := config.Load(workingDir)
	if err != nil {
		return err
	}
	if opts.Model != "" {
		configuration.OpenRouter.Model = opts.Model
	}
	if opts.Verbose {
		configuration.Preferences.Verbose = true
	}
	if err := configuration.Validate(); err != nil {
		return err
	}

	if opts.TUI {
		return runTUI(configuration, workingDir, opts.Continue)
	}

	loop, err := engine.New(engine.Options{
		Config:       configuration,
		WorkingDir:   workingDir,
		Out:          os.Stdout,
		ContinueLast: opts.Continue,
	})
	if err != nil {
		return err
	}
	return loop.Run(context.Background())
}

// runTUI starts the full-screen interface, resuming history if asked.
func runTUI(configuration *config.Config, workingDir string, continueLast bool) error {
	store, err := session.NewStore()
	if err != nil {
		return err
	}
	projectHash := session.ProjectHash(workingDir)

	sessionID := uuid.NewString()
	var history []openrouter.Message
	if continueLast {
		if lastID, lastErr := store.LastSession(projectHash); lastErr == nil {
			records, loadErr := store.Load(projectHash, lastID)
			if loadErr != nil {
				return fmt.Errorf("resume session %s: %w", lastID, loadErr)
			}
			sessionID = lastID
			for _, record := range records {
				history = append(history, openrouter.Message{Role: record.Role, Content: record.Content})
			}
		}
	}

	return tui.Run(tui.Options{
		Config:     configuration,
		WorkingDir: workingDir,
		SessionID:  sessionID,
		History:    history,
		Store:      store,
	})
}

// resolveWorkingDir picks and validates the workspace directory.
func resolveWorkingDir(flagValue string) (string, error) {
	dir := flagValue
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working directory: %w", err)
		}
		dir = cwd
	}
	absolute, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	info, err := os.Stat(absolute)
	if err != nil {
		return "", fmt.Errorf("workspace %s: %w", absolute, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("workspace %s is not a directory", absolute)
	}
	return absolute, nil
}

// configCommand groups the configuration subcommands.
func configCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the configuration",
	}
	command.AddCommand(configInitCommand())
	command.AddCommand(configGetCommand())
	command.AddCommand(configSetCommand())
	command.AddCommand(configValidateCommand())
	return command
}

// configInitCommand creates the per-user configuration file.
func configInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the user configuration file with defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Init()
			if err != nil {
				return err
			}
			fmt.Printf("Created %s\n", path)
			return nil
		},
	}
}

// configGetCommand prints one configuration value.
func configGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configuration, err := loadForCwd()
			if err != nil {
				return err
			}
			value, err := configuration.Get(config.TrimKey(args[0]))
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		},
	}
}

// configSetCommand updates one value in the user configuration file.
func configSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value in the user file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.UserConfigPath()
			if err != nil {
				return err
			}
			configuration, err := config.Load(filepath.Dir(path))
			if err != nil {
				return err
			}
			if err := configuration.Set(config.TrimKey(args[0]), args[1]); err != nil {
				return err
			}
			if err := configuration.SaveUser(); err != nil {
				return err
			}
			fmt.Printf("Updated %s\n", path)
			return nil
		},
	}
}

// configValidateCommand checks that the merged configuration can reach
// the provider.
func configValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the merged configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configuration, err := loadForCwd()
			if err != nil {
				return err
			}
			if err := configuration.Validate(); err != nil {
				return err
			}
			fmt.Printf("OK: model %s via %s\n",
				configuration.OpenRouter.Model, configuration.OpenRouter.BaseURL)
			return nil
		},
	}
}

// loadForCwd loads the merged configuration for the current directory.
func loadForCwd() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	return config.Load(cwd)
}
