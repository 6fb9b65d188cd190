// Package cli implements the assistant command line.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"voice-assistant/internal/config"
	"voice-assistant/internal/logger"
)

var (
	envFile string
	dataDir string

	cfg *config.Config
	log *zap.Logger
)

// RootCmd is the top-level command. Without a subcommand it runs the
// console loop.
var RootCmd = &cobra.Command{
	Use:           "assistant",
	Short:         "Personal voice assistant",
	Long:          "A voice-style personal assistant: keyword intent routing, command handlers, a conversational model fallback, and a security lock.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnv(envFile, cmd.Flags().Changed("env-file")); err != nil {
			return err
		}
		c, err := config.New()
		if err != nil {
			return err
		}
		if dataDir != "" {
			c.DataDir = dataDir
		}
		if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		l, err := logger.New(c.LogLevel, c.LogEncoding)
		if err != nil {
			return err
		}
		cfg, log = c, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
	RunE: runConsole,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file loaded before reading the environment")
	RootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "Data directory (default: $DATA_DIR or ./data)")
}

// loadEnv tolerates a missing file unless it was named explicitly.
func loadEnv(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil || (errors.Is(err, os.ErrNotExist) && !explicit) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}
