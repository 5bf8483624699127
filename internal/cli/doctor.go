package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"vidforge/internal/config"
	"vidforge/internal/tools"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check tooling, encoder and project health",
		RunE:  runDoctor,
	}
}

type healthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Summary string `json:"summary"`
}

var doctorStatusStyles = map[string]lipgloss.Style{
	"ok":      lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	"warning": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	"error":   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pp, err := resolveProject()
	if err != nil {
		return err
	}

	var checks []healthCheck
	checks = append(checks, checkTools(ctx)...)
	checks = append(checks, checkEncoder(ctx))
	checks = append(checks, checkHost(ctx))

	cfg, cfgErr := config.Load(pp.ConfigFile)
	if cfgErr != nil {
		checks = append(checks, healthCheck{Name: "config", Status: "error", Summary: cfgErr.Error()})
	} else {
		checks = append(checks, checkConfig(cfg)...)
	}

	if outputJSON {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(checks)
	}
	for _, c := range checks {
		style := doctorStatusStyles[c.Status]
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-10s %s\n", style.Render(fmt.Sprintf("%-7s", c.Status)), c.Name, c.Summary)
	}
	return nil
}

func checkTools(ctx context.Context) []healthCheck {
	probed := tools.Probe(ctx)
	names := make([]string, 0, len(probed))
	for name := range probed {
		names = append(names, name)
	}
	sort.Strings(names)

	var checks []healthCheck
	for _, name := range names {
		info := probed[name]
		if !info.Available {
			checks = append(checks, healthCheck{Name: name, Status: "error", Summary: info.Error})
			continue
		}
		summary := info.Path
		if info.Version != "" {
			summary = fmt.Sprintf("%s (%s)", info.Version, info.Path)
		}
		checks = append(checks, healthCheck{Name: name, Status: "ok", Summary: summary})
	}
	return checks
}

func checkEncoder(ctx context.Context) healthCheck {
	ffmpegPath, err := tools.Lookup("ffmpeg")
	if err != nil {
		return healthCheck{Name: "encoder", Status: "error", Summary: "ffmpeg not found"}
	}
	profile := tools.ResolveEncoderProfile(ctx, ffmpegPath)
	if profile.SelectedCodec == "" {
		return healthCheck{Name: "encoder", Status: "error", Summary: "no usable H.264 encoder"}
	}
	if profile.Hardware() {
		return healthCheck{Name: "encoder", Status: "ok", Summary: profile.SelectedCodec + " (hardware)"}
	}
	return healthCheck{Name: "encoder", Status: "warning", Summary: "libx264 software fallback"}
}

func checkHost(ctx context.Context) healthCheck {
	host := tools.Host(ctx)
	summary := fmt.Sprintf("%s, %d cores, %d MB free of %d MB",
		host.GOOS, host.LogicalCores, host.FreeMemMB, host.TotalMemMB)
	if host.FreeMemMB > 0 && host.FreeMemMB < 512 {
		return healthCheck{Name: "host", Status: "warning", Summary: summary + " (low memory)"}
	}
	return healthCheck{Name: "host", Status: "ok", Summary: summary}
}

func checkConfig(cfg config.Config) []healthCheck {
	results := cfg.Validate()
	if len(results) == 0 {
		return []healthCheck{{Name: "config", Status: "ok", Summary: "valid"}}
	}
	checks := make([]healthCheck, 0, len(results))
	for _, r := range results {
		checks = append(checks, healthCheck{Name: "config", Status: r.Level, Summary: r.Message})
	}
	return checks
}
