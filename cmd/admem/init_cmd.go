package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"admem/internal/config"
)

var seedFlag string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the data directory and default configuration",
	Long: `Creates the admem home directory (default ~/.admem, override with
ADMEM_HOME), writes a default config.json when none exists, and optionally
seeds the decision pattern catalog from a TOML file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := config.Home()
		if err != nil {
			return err
		}

		configPath := filepath.Join(home, "config.json")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			if err := config.DefaultConfig().Save(home); err != nil {
				return fmt.Errorf("write default config: %w", err)
			}
			fmt.Printf("Created %s\n", configPath)
		} else {
			fmt.Printf("Config already exists at %s\n", configPath)
		}

		application, err := newApp(context.Background())
		if err != nil {
			return err
		}
		defer application.close()

		seedPath := seedFlag
		if seedPath == "" {
			// optional default catalog next to the config
			candidate := filepath.Join(home, "patterns.toml")
			if _, err := os.Stat(candidate); err == nil {
				seedPath = candidate
			}
		}
		if seedPath != "" {
			count, err := application.engine.SeedPatterns(seedPath)
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %d decision patterns from %s\n", count, seedPath)
		}

		fmt.Printf("Database ready at %s\n", application.cfg.DatabasePath(home))
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&seedFlag, "seed", "", "TOML file with decision patterns to seed")
	rootCmd.AddCommand(initCmd)
}
