package tools

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ToolInfo captures availability and version details for an external tool.
type ToolInfo struct {
	Name      string `json:"name"`
	Path      string `json:"path,omitempty"`
	Version   string `json:"version,omitempty"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// Lookup resolves a tool on PATH.
func Lookup(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("locate %s: %w", name, err)
	}
	return path, nil
}

// Probe discovers availability and version information for the external
// tools the renderer depends on.
func Probe(ctx context.Context) map[string]ToolInfo {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	names := []string{"ffmpeg", "ffprobe"}
	result := make(map[string]ToolInfo, len(names))
	for _, name := range names {
		result[name] = probeOne(ctx, name)
	}
	return result
}

func probeOne(ctx context.Context, name string) ToolInfo {
	path, err := exec.LookPath(name)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return ToolInfo{Name: name, Available: false, Error: "not found"}
		}
		return ToolInfo{Name: name, Available: false, Error: err.Error()}
	}

	version, err := readVersion(ctx, path)
	if err != nil {
		return ToolInfo{Name: name, Path: path, Available: true, Error: err.Error()}
	}
	return ToolInfo{Name: name, Path: path, Version: version, Available: true}
}

func readVersion(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, path, "-version")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}

	line := firstLine(strings.TrimSpace(string(output)))
	fields := strings.Fields(line)
	if len(fields) >= 3 {
		return fields[2], nil
	}
	return line, nil
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}

// ProbeDuration reads a media file's duration in seconds via ffprobe.
// The ffprobe path is resolved once by the caller, keeping the runner
// the only process boundary in this function.
func ProbeDuration(ctx context.Context, runner Runner, ffprobe, path string) (float64, error) {
	if ffprobe == "" {
		return 0, fmt.Errorf("ffprobe not available")
	}

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	result, err := runner.Run(ctx, ffprobe, args, RunOptions{})
	if err != nil {
		stderr := strings.TrimSpace(string(result.Stderr))
		if stderr != "" {
			return 0, fmt.Errorf("ffprobe failed: %w (stderr: %s)", err, stderr)
		}
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(result.Stdout)), "%f", &duration); err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return duration, nil
}
