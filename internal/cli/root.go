package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"vidforge/internal/paths"
)

var (
	projectDir string
	outputJSON bool
)

// Execute runs the root cobra command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vidforge",
		Short: "Template-driven video rendering engine",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadDotEnv()
		},
	}

	cmd.PersistentFlags().StringVar(&projectDir, "project", "", "Path to project directory")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newRenderCmd())
	cmd.AddCommand(newJobsCmd())
	cmd.AddCommand(newDoctorCmd())

	return cmd
}

// loadDotEnv merges a project-level .env into the environment so
// template variables can come from it. A missing file is fine.
func loadDotEnv() error {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}
	envFile := filepath.Join(pp.Root, ".env")
	if _, err := os.Stat(envFile); err != nil {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	return nil
}

func resolveProject() (paths.ProjectPaths, error) {
	return paths.Resolve(projectDir)
}
