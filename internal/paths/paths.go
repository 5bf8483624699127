package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// ProjectPaths captures canonical locations for a vidforge project.
type ProjectPaths struct {
	Root       string
	ConfigFile string
	MetaDir    string
	AssetsDir  string
	OutputDir  string
	LogsDir    string
	JobsFile   string
}

// Resolve determines the project root using the optional --project flag
// or the current working directory when the flag is empty.
func Resolve(projectFlag string) (ProjectPaths, error) {
	var (
		root string
		err  error
	)

	if projectFlag != "" {
		root, err = filepath.Abs(projectFlag)
	} else {
		root, err = os.Getwd()
	}
	if err != nil {
		return ProjectPaths{}, fmt.Errorf("resolve project root: %w", err)
	}

	metaDir := filepath.Join(root, ".vidforge")
	return ProjectPaths{
		Root:       root,
		ConfigFile: filepath.Join(root, "vidforge.yaml"),
		MetaDir:    metaDir,
		AssetsDir:  filepath.Join(root, "assets"),
		OutputDir:  filepath.Join(root, "output"),
		LogsDir:    filepath.Join(root, "logs"),
		JobsFile:   filepath.Join(metaDir, "jobs.db"),
	}, nil
}

// EnsureDirs creates the assets/output/logs hierarchy alongside the
// hidden metadata directory.
func (p ProjectPaths) EnsureDirs() error {
	dirs := []string{p.MetaDir, p.AssetsDir, p.OutputDir, p.LogsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Workspace allocates a private temporary directory for one render. The
// returned cleanup removes it and must run on success and failure alike.
func Workspace() (string, func(), error) {
	dir, err := os.MkdirTemp("", "vidforge-render-*")
	if err != nil {
		return "", nil, fmt.Errorf("create render workspace: %w", err)
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}
