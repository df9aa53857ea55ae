package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pardnchiu/mcp-pyrevit/internal/dispatch"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the built tools under mcp_tools/",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return fmt.Errorf("setup: %w", err)
			}

			names, err := dispatch.List(cfg.RepoRoot)
			if err != nil {
				return fmt.Errorf("dispatch.List: %w", err)
			}

			if len(names) == 0 {
				fmt.Println("No tools found")
				fmt.Printf("\nExpected layout:\n  %s\n", dispatch.ExecutablePath(cfg.RepoRoot, "<tool>"))
				return nil
			}

			fmt.Printf("Found %d tool(s):\n\n", len(names))
			for _, name := range names {
				fmt.Printf("• %s\n", name)
				fmt.Printf("  Path: %s\n\n", dispatch.ExecutablePath(cfg.RepoRoot, name))
			}
			return nil
		},
	}
}
