package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/surface/internal/config"
	"github.com/vango-dev/surface/internal/errors"
)

func initCmd() *cobra.Command {
	var (
		asYAML bool
		force  bool
		dir    string
	)

	cmd := &cobra.Command{
		Use:   "init [page]",
		Short: "Write a default config file",
		Long: `Write surface.json (or surface.yaml) with the default settings.

Examples:
  surface init panel.html
  surface init https://mixer.local/panel --yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := config.ConfigFileName
			if asYAML {
				name = "surface.yaml"
			}
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil && !force {
				return errors.Newf(errors.CategoryConfig, "%s already exists", path).
					WithSuggestion("Use --force to overwrite it")
			}

			cfg := config.New()
			cfg.Page = firstArg(args)
			if err := cfg.SaveTo(path); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Write YAML instead of JSON")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write to")

	return cmd
}
