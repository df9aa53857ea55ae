package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pardnchiu/mcp-pyrevit/internal/config"
)

func init() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on environment variables")
	}
}

var rootCmd = &cobra.Command{
	Use:   "mcp-pyrevit",
	Short: "Send a Revit automation prompt to a model and run the tool it picks",
	Long: `mcp-pyrevit asks a chat-completion model which local MCP tool should handle
a prompt, then runs mcp_tools/<tool>/bin/Debug/<tool> with the chosen file path.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newToolsCmd())
	rootCmd.AddCommand(newKeyCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			slog.Error("command failed", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}
}

// setup loads config and installs the stderr logger at the configured level.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, nil, err
	}

	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}
