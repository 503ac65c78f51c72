package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"solace/internal/config"
	"solace/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Loaded configuration, available to every command after PersistentPreRunE.
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "solace",
	Short: "solace - therapeutic orchestration core",
	Long: `solace routes a user message through method detection, clinical
screening, a step-by-step protocol session, continuous safety monitoring
and dual-provider generation.

Run without arguments to start the interactive chat loop.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if err := logging.Initialize(logging.Options{
			Dir:        cfg.Logging.Dir,
			Level:      cfg.Logging.Level,
			Categories: cfg.Logging.Categories,
		}); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the solace version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", cfg.Name, cfg.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "solace.yaml", "configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	chatCmd.Flags().StringVar(&chatUserID, "user", "local", "user identifier for session and safety history")

	protocolsCmd.AddCommand(protocolsListCmd)
	protocolsCmd.AddCommand(protocolsValidateCmd)

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(protocolsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
