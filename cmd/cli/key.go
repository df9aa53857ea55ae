package main

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/pardnchiu/mcp-pyrevit/internal/keychain"
)

func newKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key",
		Short: "Save the API key without running a prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := setup(); err != nil {
				return fmt.Errorf("setup: %w", err)
			}

			store, err := keychain.New()
			if err != nil {
				return fmt.Errorf("keychain.New: %w", err)
			}

			apiKeyInput := promptui.Prompt{
				Label: "API Key",
				Mask:  '*',
				Validate: func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("API key cannot be empty")
					}
					return nil
				},
			}
			apiKey, err := apiKeyInput.Run()
			if err != nil {
				return fmt.Errorf("apiKeyInput.Run: %w", err)
			}
			if err := store.Set(keychain.APIKey, strings.TrimSpace(apiKey)); err != nil {
				return fmt.Errorf("store.Set: %w", err)
			}
			fmt.Printf("[*] %s.%s saved\n", keychain.Section, keychain.APIKey)
			return nil
		},
	}
}
