package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"vidforge/internal/config"
	"vidforge/internal/jobs"
	"vidforge/internal/logx"
	"vidforge/internal/render"
	"vidforge/internal/template"
	"vidforge/internal/timing"
	"vidforge/internal/tui"
)

// variable environment prefix: VIDFORGE_VAR_HEADLINE=... becomes the
// template variable "headline".
const envVarPrefix = "VIDFORGE_VAR_"

var (
	renderManifest   string
	renderOutput     string
	renderVars       []string
	renderDetach     bool
	renderNoProgress bool
)

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <template.json>",
		Short: "Render a template document to a video file",
		Args:  cobra.ExactArgs(1),
		RunE:  runRender,
	}

	cmd.Flags().StringVar(&renderManifest, "manifest", "", "JSON manifest with sections, assets and narration")
	cmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Output video path (default output/<template_id>.mp4)")
	cmd.Flags().StringSliceVar(&renderVars, "var", nil, "Template variable KEY=VALUE (repeatable)")
	cmd.Flags().BoolVar(&renderDetach, "detach", false, "Queue the render as a background job and return its id")
	cmd.Flags().BoolVar(&renderNoProgress, "no-progress", false, "Disable interactive progress output")

	return cmd
}

// manifest carries the collaborator inputs a render needs beside the
// template: narration sections with durations, assets to distribute,
// and the optional manual mapping.
type manifest struct {
	Sections   []timing.Section    `json:"sections"`
	Assets     []timing.MediaAsset `json:"assets"`
	Narration  string              `json:"narration_url"`
	Mode       timing.Mode         `json:"mode"`
	Mapping    map[string][]string `json:"mapping,omitempty"`
	Background string              `json:"background,omitempty"`
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pp, err := resolveProject()
	if err != nil {
		return err
	}
	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return err
	}
	if results := cfg.Validate(); config.HasErrors(results) {
		return fmt.Errorf("invalid config: %s", results[0].Message)
	}
	if err := pp.EnsureDirs(); err != nil {
		return err
	}

	tpl, err := template.Load(args[0])
	if err != nil {
		return err
	}

	var man manifest
	if renderManifest != "" {
		data, err := os.ReadFile(renderManifest)
		if err != nil {
			return fmt.Errorf("read manifest: %w", err)
		}
		if err := json.Unmarshal(data, &man); err != nil {
			return fmt.Errorf("decode manifest: %w", err)
		}
	}
	if man.Mode == "" {
		man.Mode = timing.ModeAuto
	}

	output := renderOutput
	if output == "" {
		name := tpl.TemplateID
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}
		output = filepath.Join(pp.OutputDir, name+".mp4")
	}

	logger, closer, err := logx.New(pp)
	if err != nil {
		return err
	}
	defer closer.Close()

	engine, err := render.NewEngine(ctx, pp, cfg, nil, logger)
	if err != nil {
		return err
	}

	req := render.Request{
		Template:     tpl,
		Variables:    collectVariables(renderVars),
		Assets:       man.Assets,
		Sections:     man.Sections,
		NarrationURL: man.Narration,
		Mode:         man.Mode,
		Mapping:      man.Mapping,
		Background:   man.Background,
		OutputPath:   output,
	}

	if renderDetach {
		store, err := jobs.Open(pp.JobsFile)
		if err != nil {
			return err
		}
		engine.Jobs = store
		id, err := engine.RenderAsync(req)
		if err != nil {
			return err
		}
		if outputJSON {
			if err := json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"job_id": id}); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "queued render job %s\n", id)
		}
		// The job record is only the progress surface; the render runs
		// in this process and must outlive the command returning.
		engine.Wait()
		return nil
	}

	if renderNoProgress || outputJSON {
		res, err := engine.Render(ctx, req, nil)
		if outputJSON {
			_ = json.NewEncoder(cmd.OutOrStdout()).Encode(res)
		}
		if err != nil {
			return err
		}
		if !outputJSON {
			fmt.Fprintf(cmd.OutOrStdout(), "rendered %s (%.1fs, %d bytes)\n", res.Path, res.Duration, res.SizeBytes)
		}
		return nil
	}

	return tui.RunRender("render "+filepath.Base(args[0]), func(report func(int, string)) (string, error) {
		res, err := engine.Render(ctx, req, render.Progress(report))
		if err != nil {
			return "", err
		}
		return res.Path, nil
	})
}

// collectVariables merges VIDFORGE_VAR_* environment values with --var
// flags; flags win.
func collectVariables(flags []string) map[string]string {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, envVarPrefix) {
			continue
		}
		rest := strings.TrimPrefix(kv, envVarPrefix)
		if k, v, ok := strings.Cut(rest, "="); ok {
			vars[strings.ToLower(k)] = v
		}
	}
	for _, kv := range flags {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return vars
}
