package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"postop/cmd/postop/chat"
	"postop/internal/config"
	"postop/internal/handouts"
	"postop/internal/logging"
)

var (
	// Global flags
	verbose      bool
	configPath   string
	handoutsDir  string
	protocolsDir string

	// Logger
	logger *zap.Logger

	// Resolved configuration, loaded in PersistentPreRunE
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "postop",
	Short: "Post-operative care chat assistant for Dr. Carofino's practice",
	Long: `postop is a terminal chat assistant for post-operative patients.

It loads the clinic's patient handout PDFs and protocol text files once
at startup, sends them with the first question of each conversation, and
streams answers grounded in that material.

Run without arguments to start the interactive chat interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Pick up ANTHROPIC_API_KEY and friends from a local .env
		_ = godotenv.Load()

		if err := loadConfig(); err != nil {
			return err
		}

		cwd, err := os.Getwd()
		if err == nil {
			if err := logging.Initialize(cwd); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: file logging unavailable: %v\n", err)
			}
		}

		// Skip zap init for interactive mode (it has its own UI)
		if cmd.Use == "postop" && cmd.CalledAs() == "postop" {
			return nil
		}

		zapConfig := zap.NewProductionConfig()
		if verbose {
			zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: launch interactive chat
		if err := cfg.Validate(); err != nil {
			return err
		}
		return chat.Run(*cfg)
	},
}

// statusCmd shows the resolved configuration and what reference
// material would load
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show postop configuration and loaded resources",
	RunE:  showStatus,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: .postop/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&handoutsDir, "handouts", "", "Handout PDF directory (default: postop_handouts)")
	rootCmd.PersistentFlags().StringVar(&protocolsDir, "protocols", "", "Protocol text directory (default: protocols)")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration: file, then
// environment, then command-line flags.
func loadConfig() error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}

	c, err := config.Load(path)
	if err != nil {
		return err
	}

	if handoutsDir != "" {
		c.Content.HandoutsDir = handoutsDir
	}
	if protocolsDir != "" {
		c.Content.ProtocolsDir = protocolsDir
	}
	if verbose {
		c.Logging.Level = "debug"
	}

	cfg = c
	return nil
}

// showStatus displays the resolved configuration and loads the
// reference bundle to report what the assistant would see.
func showStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("postop Status")
	fmt.Println("=============")
	fmt.Printf("Version: %s\n", cfg.Version)
	fmt.Printf("Model:   %s\n", cfg.LLM.Model)
	fmt.Println()

	if cfg.LLM.APIKey != "" {
		fmt.Println("✓ Anthropic API key configured")
	} else {
		fmt.Println("✗ Anthropic API key not configured (set ANTHROPIC_API_KEY)")
	}

	printDirStatus("Handouts directory", cfg.Content.HandoutsDir)
	printDirStatus("Protocols directory", cfg.Content.ProtocolsDir)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := handouts.NewStore(cfg.Content.HandoutsDir, cfg.Content.ProtocolsDir)
	bundle, err := store.Bundle(ctx)
	if err != nil {
		return fmt.Errorf("loading reference material: %w", err)
	}

	fmt.Println()
	fmt.Println("Loaded Resources")
	fmt.Printf("  PDF Handouts:   %d\n", bundle.DocumentCount())
	fmt.Printf("  Protocol Files: %d\n", bundle.ProtocolCount())

	if len(bundle.Warnings) > 0 {
		fmt.Println()
		fmt.Println("Warnings:")
		for _, w := range bundle.Warnings {
			fmt.Printf("  ! %s\n", w)
		}
	}

	return nil
}

func printDirStatus(label, dir string) {
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		fmt.Printf("✓ %s: %s\n", label, dir)
	} else {
		fmt.Printf("✗ %s: %s (not found)\n", label, dir)
	}
}
