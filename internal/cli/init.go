package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vidforge/internal/config"
	"vidforge/internal/paths"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the project layout and a default config",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, _ []string) error {
	pp, err := resolveProject()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(pp.Root, 0o755); err != nil {
		return fmt.Errorf("create project root: %w", err)
	}
	if err := pp.EnsureDirs(); err != nil {
		return err
	}

	exists, err := paths.FileExists(pp.ConfigFile)
	if err != nil {
		return err
	}
	if exists {
		fmt.Fprintf(cmd.OutOrStdout(), "config already present at %s\n", pp.ConfigFile)
		return nil
	}

	buf, err := config.Default().Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(pp.ConfigFile, buf, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "initialized project at %s\n", pp.Root)
	return nil
}
